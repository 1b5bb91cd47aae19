// Package paths holds the derived-path convention shared between the upload
// trigger and the result poller. The OCR output location is computed from the
// upload path, never communicated out of band, so both sides must agree on
// these formulas exactly.
package paths

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	uploadsPrefix   = "uploads/"
	processedPrefix = "processed/"
	ocrSuffix       = "_ocr_output/"

	// OCROutputShard is the object name Vision writes for a batch of up to
	// 100 pages, relative to the output prefix.
	OCROutputShard = "output-1-to-100.json"
)

// UploadObject returns the object path a raw file is uploaded to for a user.
func UploadObject(userID, fileName string) string {
	return uploadsPrefix + userID + "/" + fileName
}

// IsUpload reports whether an object path lies inside the uploads area.
func IsUpload(objectPath string) bool {
	return strings.HasPrefix(objectPath, uploadsPrefix)
}

// OCROutputPrefix derives the output prefix for an upload object path.
// Only the leading "uploads/" and a trailing ".pdf" extension are rewritten;
// occurrences of either string elsewhere in the name are preserved.
func OCROutputPrefix(uploadPath string) (string, error) {
	if !strings.HasPrefix(uploadPath, uploadsPrefix) {
		return "", fmt.Errorf("upload path %q is not under %q", uploadPath, uploadsPrefix)
	}
	rest := strings.TrimPrefix(uploadPath, uploadsPrefix)
	if strings.HasSuffix(strings.ToLower(rest), ".pdf") {
		rest = rest[:len(rest)-len(".pdf")]
	}
	return processedPrefix + rest + ocrSuffix, nil
}

// OCROutputObject returns the full object path of the first (and, for
// documents up to 100 pages, only) Vision output shard for an upload path.
func OCROutputObject(uploadPath string) (string, error) {
	prefix, err := OCROutputPrefix(uploadPath)
	if err != nil {
		return "", err
	}
	return prefix + OCROutputShard, nil
}

// visionOutput mirrors the slice of the Vision asyncBatchAnnotateFiles JSON
// output this system reads.
type visionOutput struct {
	Responses []struct {
		FullTextAnnotation struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
	} `json:"responses"`
}

// ExtractOCRText decodes a Vision output shard and joins the per-page full
// text annotations with a blank line.
func ExtractOCRText(data []byte) (string, error) {
	var out visionOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode OCR output: %w", err)
	}
	texts := make([]string, 0, len(out.Responses))
	for _, r := range out.Responses {
		texts = append(texts, r.FullTextAnnotation.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}
