package extract

import (
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer recovers text from an encoded raster image. Implementations
// are best-effort: recognized text carries no correctness guarantee.
type Recognizer interface {
	Recognize(imageData []byte) (string, error)
}

// TesseractRecognizer runs OCR through a single lazily initialized
// gosseract client. The client is stateful and not reentrant, so every
// recognition holds the mutex for the full call; pages of one document are
// therefore processed strictly in order and never in parallel.
type TesseractRecognizer struct {
	mu sync.Mutex

	language string
	client   *gosseract.Client
	inited   bool
}

// NewTesseractRecognizer creates a recognizer for the given language
// ("eng" when empty). The underlying engine is created on first use.
func NewTesseractRecognizer(language string) *TesseractRecognizer {
	if language == "" {
		language = "eng"
	}
	return &TesseractRecognizer{language: language}
}

func (r *TesseractRecognizer) Recognize(imageData []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.initLocked(); err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("ocr set image failed: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr recognize failed: %w", err)
	}
	return text, nil
}

func (r *TesseractRecognizer) initLocked() error {
	if r.inited {
		return nil
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(r.language); err != nil {
		_ = client.Close()
		return fmt.Errorf("ocr set language %q failed: %w", r.language, err)
	}
	r.client = client
	r.inited = true
	return nil
}

// Close releases the tesseract engine. Safe to call if Recognize never ran.
func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inited {
		return nil
	}
	r.inited = false
	return r.client.Close()
}
