package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextReader reads the embedded text layer of a PDF, one entry per page
// in document order. Pages without a usable text layer are reported with
// NoTextLayer set rather than as empty strings, so the caller can fall back
// to OCR for exactly those pages.
type PDFTextReader interface {
	PageTexts(data []byte) ([]PageText, error)
}

// PageText is the text-layer result for a single page. Number is 1-based.
type PageText struct {
	Number      int
	Text        string
	NoTextLayer bool
}

// LedongthucReader extracts per-page text with github.com/ledongthuc/pdf.
type LedongthucReader struct{}

func (LedongthucReader) PageTexts(data []byte) ([]PageText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf input")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	total := r.NumPage()
	pages := make([]PageText, 0, total)
	for n := 1; n <= total; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			pages = append(pages, PageText{Number: n, NoTextLayer: true})
			continue
		}
		text := joinPageTokens(page.Content().Text)
		pages = append(pages, PageText{
			Number:      n,
			Text:        text,
			NoTextLayer: text == "",
		})
	}
	return pages, nil
}

// joinPageTokens joins the page's text items with single spaces, dropping
// empty and whitespace-only tokens.
func joinPageTokens(items []pdf.Text) string {
	var sb strings.Builder
	for _, item := range items {
		token := strings.TrimSpace(item.S)
		if token == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(token)
	}
	return sb.String()
}
