package gcp

import (
	"context"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFPreflight downloads a source letter and checks it is a readable PDF with at least one page.
type PDFPreflight struct {
	client *storage.Client
	bucket string
}

func NewPDFPreflight(client *storage.Client, bucket string) *PDFPreflight {
	return &PDFPreflight{client: client, bucket: bucket}
}

func (p *PDFPreflight) Check(ctx context.Context, key string) error {
	tempDir, err := os.MkdirTemp("", "preflight-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(tempDir)

	local := filepath.Join(tempDir, "source.pdf")
	if err := streamGCSObject(ctx, p.client, p.bucket, key, local); err != nil {
		return err
	}
	return validatePDF(local)
}

func validatePDF(path string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return errors.Wrap(err, "invalid PDF")
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to get page count")
	}
	if pageCount < 1 {
		return errors.New("PDF has no pages")
	}
	return nil
}
