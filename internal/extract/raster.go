package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

// pdfBaselineDPI is the nominal resolution a PDF page is laid out at.
const pdfBaselineDPI = 72

// PageRasterizer renders a single PDF page (1-based) to an encoded image
// suitable for OCR.
type PageRasterizer interface {
	RenderPage(pdfData []byte, pageNumber int) ([]byte, error)
}

// FitzRasterizer renders pages with MuPDF. The document is reopened per
// call; OCR dominates the cost of the fallback path by orders of magnitude,
// so keeping the renderer stateless is the simpler trade.
type FitzRasterizer struct {
	// DPI is the render resolution. Anything below 2x the PDF baseline
	// produces bitmaps too coarse for reliable recognition.
	DPI float64
}

func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	if dpi < 2*pdfBaselineDPI {
		dpi = 2 * pdfBaselineDPI
	}
	return &FitzRasterizer{DPI: dpi}
}

func (r *FitzRasterizer) RenderPage(pdfData []byte, pageNumber int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("open pdf for raster failed: %w", err)
	}
	defer doc.Close()

	if pageNumber < 1 || pageNumber > doc.NumPage() {
		return nil, fmt.Errorf("raster page %d out of range (1..%d)", pageNumber, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageNumber-1, r.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d failed: %w", pageNumber, err)
	}
	return encodePNG(img)
}

// upscaleForOCR scales a standalone image by the given factor before
// recognition. Uploaded photos of documents are often small enough that
// recognition quality collapses without it.
func upscaleForOCR(img image.Image, factor int) ([]byte, error) {
	if factor < 2 {
		factor = 2
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return encodePNG(dst)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png failed: %w", err)
	}
	return buf.Bytes(), nil
}
