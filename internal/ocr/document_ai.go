package ocr

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig holds configuration for the Document AI OCR processor.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the ID of an OCR (Document OCR) processor.
	ProcessorID string

	// ProcessorVersion pins a processor version. Empty uses the default version.
	ProcessorVersion string
}

// DocumentAIEngine recognises images with a Google Document AI OCR processor.
type DocumentAIEngine struct {
	config DocumentAIConfig
	opts   []option.ClientOption
}

// NewDocumentAIEngine creates a Document AI engine. The regional endpoint is added
// to opts for locations other than "us".
func NewDocumentAIEngine(config DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if config.ProjectID == "" {
		return nil, NewExtractionError(op, ErrExtractionFailed, "project ID is required")
	}
	if config.ProcessorID == "" {
		return nil, NewExtractionError(op, ErrExtractionFailed, "processor ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	return &DocumentAIEngine{config: config, opts: opts}, nil
}

// Name implements Engine.
func (d *DocumentAIEngine) Name() string { return "documentai" }

// ProcessorName is the full resource name requests are sent to.
func (d *DocumentAIEngine) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
	if d.config.ProcessorVersion != "" {
		name += "/processorVersions/" + d.config.ProcessorVersion
	}
	return name
}

// NewWorker implements Engine.
func (d *DocumentAIEngine) NewWorker(ctx context.Context) (Worker, error) {
	client, err := documentai.NewDocumentProcessorClient(ctx, d.opts...)
	if err != nil {
		return nil, WrapExtractionError("NewDocumentAIWorker", err,
			fmt.Sprintf("failed to create Document AI client for location: %s", d.config.Location))
	}
	return &documentAIWorker{client: client, processor: d.ProcessorName()}, nil
}

type documentAIWorker struct {
	client    *documentai.DocumentProcessorClient
	processor string
}

func (w *documentAIWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	req := &documentaipb.ProcessRequest{
		Name: w.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: imageMimeType(image),
			},
		},
	}

	resp, err := w.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", classifyDocumentAIError(err)
	}
	if resp.Document == nil {
		return "", fmt.Errorf("no document in response")
	}
	return resp.Document.Text, nil
}

func (w *documentAIWorker) Close() error {
	return w.client.Close()
}

// classifyDocumentAIError adds a readable reason to common gRPC failures.
func classifyDocumentAIError(err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("insufficient permissions for Document AI: %w", err)
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED"), strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("Document AI API quota exceeded: %w", err)
	case strings.Contains(errStr, "NOT_FOUND"):
		return fmt.Errorf("Document AI processor not found: %w", err)
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return fmt.Errorf("image format not supported or corrupted: %w", err)
	default:
		return fmt.Errorf("Document AI call failed: %w", err)
	}
}
