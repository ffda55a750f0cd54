package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine recognises images with Google Cloud Vision document text detection.
type VisionEngine struct {
	opts          []option.ClientOption
	languageHints []string
}

// NewVisionEngine creates a Vision engine. Each worker dials its own client with opts.
func NewVisionEngine(languageHints []string, opts ...option.ClientOption) *VisionEngine {
	return &VisionEngine{
		opts:          opts,
		languageHints: languageHints,
	}
}

// Name implements Engine.
func (v *VisionEngine) Name() string { return "vision" }

// NewWorker implements Engine.
func (v *VisionEngine) NewWorker(ctx context.Context) (Worker, error) {
	const op = "NewVisionWorker"

	client, err := vision.NewImageAnnotatorClient(ctx, v.opts...)
	if err != nil {
		if len(v.opts) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, "failed to create Vision client")
	}

	return &visionWorker{client: client, languageHints: v.languageHints}, nil
}

type visionWorker struct {
	client        *vision.ImageAnnotatorClient
	languageHints []string
}

func (w *visionWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	if len(w.languageHints) > 0 {
		req.Requests[0].ImageContext = &visionpb.ImageContext{LanguageHints: w.languageHints}
	}

	resp, err := w.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Vision API call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return "", fmt.Errorf("Vision API error: %s", imageResp.Error.GetMessage())
	}
	if imageResp.FullTextAnnotation == nil {
		return "", nil
	}
	return imageResp.FullTextAnnotation.Text, nil
}

func (w *visionWorker) Close() error {
	return w.client.Close()
}
