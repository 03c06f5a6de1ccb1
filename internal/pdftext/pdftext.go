// Package pdftext turns uploaded lease PDFs into plain text. Three providers
// are supported: the native pure-Go reader, the pdftotext CLI for layouts the
// native reader mangles, and Mistral OCR for scanned documents.
package pdftext

import (
	"bytes"
	"context"

	"github.com/rotisserie/eris"

	"github.com/mietwerk/leasescan/internal/config"
)

// Upload limits. Files over these caps are rejected before any parsing.
const (
	MaxFileBytes = 50 << 20 // 50 MB
	MaxPages     = 50
)

var pdfMagic = []byte("%PDF-")

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "native", "":
		return NewNative(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("pdftext: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("pdftext: unknown provider %q", cfg.Provider)
	}
}

// ValidateUpload rejects files that are empty, oversized or not PDFs.
// The magic-byte check catches renamed Word documents and images before
// they waste an extraction attempt.
func ValidateUpload(data []byte) error {
	if len(data) == 0 {
		return eris.New("pdftext: empty file")
	}
	if len(data) > MaxFileBytes {
		return eris.Errorf("pdftext: file too large: %d bytes (max %d)", len(data), MaxFileBytes)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return eris.New("pdftext: not a PDF file")
	}
	return nil
}
