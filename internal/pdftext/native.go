package pdftext

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Native extracts text with the pure-Go PDF reader. It handles digital
// contracts well but returns little or nothing for scanned documents, which
// should use the mistral provider instead.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native {
	return &Native{}
}

// ExtractText reads the text layer of the PDF at pdfPath.
func (n *Native) ExtractText(_ context.Context, pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "pdftext: open %s", pdfPath)
	}
	defer f.Close()

	if pages := r.NumPage(); pages > MaxPages {
		return "", eris.Errorf("pdftext: %s has %d pages (max %d)", pdfPath, pages, MaxPages)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", eris.Wrapf(err, "pdftext: extract plain text from %s", pdfPath)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", eris.Wrapf(err, "pdftext: read text from %s", pdfPath)
	}
	return buf.String(), nil
}
