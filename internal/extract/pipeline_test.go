package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/ledongthuc/pdf"
)

type fakePDFReader struct {
	pages []PageText
	err   error
}

func (f *fakePDFReader) PageTexts(data []byte) ([]PageText, error) {
	return f.pages, f.err
}

type fakeRasterizer struct {
	rendered []int
	err      error
}

func (f *fakeRasterizer) RenderPage(pdfData []byte, pageNumber int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rendered = append(f.rendered, pageNumber)
	return []byte(fmt.Sprintf("raster-page-%d", pageNumber)), nil
}

type fakeRecognizer struct {
	calls int
	text  string
	err   error
}

func (f *fakeRecognizer) Recognize(imageData []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeOfficeConverter struct {
	text string
	err  error
}

func (f *fakeOfficeConverter) Convert(data []byte, mediaType string) (string, error) {
	return f.text, f.err
}

func newTestPipeline(pdf PDFTextReader, raster PageRasterizer, ocr Recognizer, office OfficeConverter) *Pipeline {
	return NewPipeline(pdf, raster, ocr, office, nil)
}

func TestExtractPlainTextPassthrough(t *testing.T) {
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, &fakeRecognizer{}, &fakeOfficeConverter{})

	input := "hello world"
	got := p.Extract([]byte(input), "text/plain")
	if got != input {
		t.Errorf("Extract plain text = %q, want %q", got, input)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	ocr := &fakeRecognizer{text: "should never be used"}
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("zip bytes"), "application/zip")
	if got != UnsupportedFileText {
		t.Errorf("Extract unsupported = %q, want %q", got, UnsupportedFileText)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR invoked %d times for unsupported type, want 0", ocr.calls)
	}
}

func TestExtractMissingMediaTypeFailsSoft(t *testing.T) {
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, &fakeRecognizer{}, &fakeOfficeConverter{})

	got := p.Extract([]byte("data"), "")
	if got != ExtractionFailedText {
		t.Errorf("Extract without media type = %q, want %q", got, ExtractionFailedText)
	}
}

func TestExtractPDFAllPagesHaveTextLayer(t *testing.T) {
	pdf := &fakePDFReader{pages: []PageText{
		{Number: 1, Text: "Chapter 1"},
		{Number: 2, Text: "Chapter 2"},
	}}
	ocr := &fakeRecognizer{text: "unexpected"}
	p := newTestPipeline(pdf, &fakeRasterizer{}, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("%PDF"), "application/pdf")
	want := "Chapter 1\nChapter 2\n"
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR invoked %d times with full text layer, want 0", ocr.calls)
	}
}

func TestExtractPDFPageLevelOCRFallback(t *testing.T) {
	pdf := &fakePDFReader{pages: []PageText{
		{Number: 1, Text: "Chapter 1"},
		{Number: 2, NoTextLayer: true},
	}}
	raster := &fakeRasterizer{}
	ocr := &fakeRecognizer{text: "scanned text"}
	p := newTestPipeline(pdf, raster, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("%PDF"), "application/pdf")
	want := "Chapter 1\nscanned text\n"
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
	if ocr.calls != 1 {
		t.Errorf("OCR invoked %d times, want exactly 1", ocr.calls)
	}
	if len(raster.rendered) != 1 || raster.rendered[0] != 2 {
		t.Errorf("rasterized pages = %v, want [2]", raster.rendered)
	}
}

func TestExtractPDFMixedPagesPreserveOrder(t *testing.T) {
	pdf := &fakePDFReader{pages: []PageText{
		{Number: 1, NoTextLayer: true},
		{Number: 2, Text: "native"},
		{Number: 3, NoTextLayer: true},
	}}
	raster := &fakeRasterizer{}
	ocr := &fakeRecognizer{text: "ocr"}
	p := newTestPipeline(pdf, raster, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("%PDF"), "application/pdf")
	want := "ocr\nnative\nocr\n"
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
	if ocr.calls != 2 {
		t.Errorf("OCR invoked %d times, want 2", ocr.calls)
	}
	if len(raster.rendered) != 2 || raster.rendered[0] != 1 || raster.rendered[1] != 3 {
		t.Errorf("rasterized pages = %v, want [1 3]", raster.rendered)
	}
}

func TestExtractPDFOCRFailureBecomesSentinel(t *testing.T) {
	pdf := &fakePDFReader{pages: []PageText{{Number: 1, NoTextLayer: true}}}
	ocr := &fakeRecognizer{err: errors.New("engine exploded")}
	p := newTestPipeline(pdf, &fakeRasterizer{}, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("%PDF"), "application/pdf")
	if got != ExtractionFailedText {
		t.Errorf("Extract = %q, want %q", got, ExtractionFailedText)
	}
}

func TestExtractCorruptPDFBecomesSentinel(t *testing.T) {
	pdf := &fakePDFReader{err: errors.New("not a pdf")}
	p := newTestPipeline(pdf, &fakeRasterizer{}, &fakeRecognizer{}, &fakeOfficeConverter{})

	got := p.Extract([]byte("garbage"), "application/pdf")
	if got != ExtractionFailedText {
		t.Errorf("Extract = %q, want %q", got, ExtractionFailedText)
	}
}

func TestExtractOfficeDelegates(t *testing.T) {
	office := &fakeOfficeConverter{text: "slide one\nslide two"}
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, &fakeRecognizer{}, office)

	got := p.Extract([]byte("pptbytes"), "application/vnd.ms-powerpoint")
	if got != office.text {
		t.Errorf("Extract office = %q, want %q", got, office.text)
	}
}

func TestExtractOfficeFailureBecomesSentinel(t *testing.T) {
	office := &fakeOfficeConverter{err: errors.New("converter missing")}
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, &fakeRecognizer{}, office)

	got := p.Extract([]byte("docbytes"), "application/msword")
	if got != ExtractionFailedText {
		t.Errorf("Extract = %q, want %q", got, ExtractionFailedText)
	}
}

func TestExtractImageRunsOCROnce(t *testing.T) {
	ocr := &fakeRecognizer{text: "whiteboard notes"}
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, ocr, &fakeOfficeConverter{})

	got := p.Extract(encodeTestPNG(t, 8, 6), "image/png")
	if got != "whiteboard notes" {
		t.Errorf("Extract image = %q, want %q", got, "whiteboard notes")
	}
	if ocr.calls != 1 {
		t.Errorf("OCR invoked %d times, want 1", ocr.calls)
	}
}

func TestExtractImageUndecodableStillReachesOCR(t *testing.T) {
	ocr := &fakeRecognizer{text: "from raw bytes"}
	p := newTestPipeline(&fakePDFReader{}, &fakeRasterizer{}, ocr, &fakeOfficeConverter{})

	got := p.Extract([]byte("not an image"), "image/tiff")
	if got != "from raw bytes" {
		t.Errorf("Extract = %q, want %q", got, "from raw bytes")
	}
	if ocr.calls != 1 {
		t.Errorf("OCR invoked %d times, want 1", ocr.calls)
	}
}

func TestUpscaleForOCRDoublesDimensions(t *testing.T) {
	scaled, err := upscaleForOCR(image.NewRGBA(image.Rect(0, 0, 10, 4)), 2)
	if err != nil {
		t.Fatalf("upscaleForOCR failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("decode scaled png failed: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 20 || bounds.Dy() != 8 {
		t.Errorf("scaled dimensions = %dx%d, want 20x8", bounds.Dx(), bounds.Dy())
	}
}

func TestJoinPageTokensDropsEmpty(t *testing.T) {
	items := []pdf.Text{{S: "Chapter"}, {S: ""}, {S: "  "}, {S: "1"}}
	got := joinPageTokens(items)
	if got != "Chapter 1" {
		t.Errorf("joined = %q, want %q", got, "Chapter 1")
	}
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode test png failed: %v", err)
	}
	return buf.Bytes()
}
