package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractProvider implements OCR using the Tesseract engine via gosseract
type TesseractProvider struct {
	languages []string
}

// NewTesseractProvider creates a new Tesseract OCR provider.
// language can be a single code ("eng", "rus") or several joined with "+".
func NewTesseractProvider(language string) *TesseractProvider {
	if language == "" {
		language = "eng"
	}

	return &TesseractProvider{
		languages: strings.Split(language, "+"),
	}
}

// ExtractText extracts text from an image using Tesseract
func (p *TesseractProvider) ExtractText(ctx context.Context, imageData []byte) (*Result, error) {
	// gosseract calls block in C; honor cancellation before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}

	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract recognition failed: %w", err)
	}

	// Tesseract doesn't report a page-level confidence through this API;
	// use a fixed high value
	return &Result{
		Text:       strings.TrimSpace(text),
		Confidence: 0.90,
	}, nil
}

// GetProviderName returns the name of the provider
func (p *TesseractProvider) GetProviderName() string {
	return "Tesseract OCR"
}
