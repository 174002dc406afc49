// Package extract normalizes uploaded files into plain text for use as
// conversation context. Extraction is best-effort enrichment: the pipeline
// is a total function that downgrades every internal failure to a sentinel
// string, so an upload never fails merely because its content could not be
// read.
package extract

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"unicode/utf8"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	// UnsupportedFileText is the terminal output for media types outside the
	// classifier's closed set. It is a defined result, not a failure.
	UnsupportedFileText = "Unsupported file type for content extraction."

	// ExtractionFailedText replaces the extracted content whenever any step
	// of the pipeline fails. The caller still gets a string.
	ExtractionFailedText = "Error extracting file content."
)

const imageUpscaleFactor = 2

// Pipeline dispatches one uploaded file to the extraction strategy selected
// by Classify. It holds no per-call state; distinct uploads may run through
// the same Pipeline concurrently.
type Pipeline struct {
	pdfText PDFTextReader
	raster  PageRasterizer
	ocr     Recognizer
	office  OfficeConverter
	logger  *slog.Logger
}

func NewPipeline(pdfText PDFTextReader, raster PageRasterizer, ocr Recognizer, office OfficeConverter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		pdfText: pdfText,
		raster:  raster,
		ocr:     ocr,
		office:  office,
		logger:  logger,
	}
}

// Extract converts file bytes plus a declared media type into plain text.
// It never returns an error and never panics: failures come back as
// ExtractionFailedText, unknown formats as UnsupportedFileText.
func (p *Pipeline) Extract(data []byte, mediaType string) (result string) {
	defer func() {
		// ledongthuc/pdf panics on some malformed documents; the sentinel
		// contract has to hold regardless.
		if r := recover(); r != nil {
			p.logger.Error("extraction panicked",
				"media_type", mediaType,
				"panic", fmt.Sprint(r))
			result = ExtractionFailedText
		}
	}()

	text, err := p.extract(data, mediaType)
	if err != nil {
		p.logger.Warn("extraction failed",
			"media_type", mediaType,
			"size_bytes", len(data),
			"error", err)
		return ExtractionFailedText
	}
	return text
}

func (p *Pipeline) extract(data []byte, mediaType string) (string, error) {
	strategy, err := Classify(mediaType)
	if err != nil {
		return "", err
	}

	switch strategy {
	case StrategyPDF:
		return p.extractPDF(data)
	case StrategyPlainText:
		return decodePlainText(data), nil
	case StrategyOffice:
		return p.office.Convert(data, mediaType)
	case StrategyImage:
		return p.extractImage(data)
	case StrategyUnsupported:
		return UnsupportedFileText, nil
	default:
		return UnsupportedFileText, nil
	}
}

// extractPDF walks pages in document order. Pages with an embedded text
// layer are used as-is; pages without one are rasterized and OCR'd
// individually, so documents mixing native and scanned pages lose nothing.
// Every page contributes its text followed by a newline.
func (p *Pipeline) extractPDF(data []byte) (string, error) {
	pages, err := p.pdfText.PageTexts(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, page := range pages {
		text := page.Text
		if page.NoTextLayer {
			rendered, rerr := p.raster.RenderPage(data, page.Number)
			if rerr != nil {
				return "", rerr
			}
			text, rerr = p.ocr.Recognize(rendered)
			if rerr != nil {
				return "", rerr
			}
			p.logger.Debug("ocr fallback for page", "page", page.Number)
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// extractImage OCRs a standalone image, upscaled first when it decodes.
// Bytes that no registered decoder understands go to the engine untouched;
// tesseract reads more formats than the stdlib does.
func (p *Pipeline) extractImage(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		if scaled, serr := upscaleForOCR(img, imageUpscaleFactor); serr == nil {
			data = scaled
		}
	}
	return p.ocr.Recognize(data)
}

// decodePlainText passes UTF-8 bytes through verbatim. Invalid sequences
// are replaced rather than rejected, matching string conversion semantics.
func decodePlainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
