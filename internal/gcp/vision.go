package gcp

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// OCRBatchSize is the page batch size for Vision output shards. With a batch
// size of 100, documents up to 100 pages produce a single output object at a
// predictable name, which the client polls for.
const OCRBatchSize = 100

// NewVisionClient creates the image annotator client used for async document
// text detection.
func NewVisionClient(ctx context.Context) (*vision.ImageAnnotatorClient, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return client, nil
}

// StartDocumentOCR submits an async batch DOCUMENT_TEXT_DETECTION request for
// a PDF at sourceURI, writing JSON shards under destinationURI. It returns the
// long-running operation name; completion is observed by polling the output
// objects, not the operation.
func StartDocumentOCR(ctx context.Context, client *vision.ImageAnnotatorClient, sourceURI, destinationURI string) (string, error) {
	req := &visionpb.AsyncBatchAnnotateFilesRequest{
		Requests: []*visionpb.AsyncAnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					GcsSource: &visionpb.GcsSource{Uri: sourceURI},
					MimeType:  "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				OutputConfig: &visionpb.OutputConfig{
					GcsDestination: &visionpb.GcsDestination{Uri: destinationURI},
					BatchSize:      OCRBatchSize,
				},
			},
		},
	}

	op, err := client.AsyncBatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to start OCR batch for %s: %w", sourceURI, err)
	}
	return op.Name(), nil
}
