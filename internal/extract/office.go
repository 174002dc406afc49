package extract

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv"
)

// OfficeConverter turns DOC/DOCX/PPT/XLS/XLSX byte streams into plain text.
type OfficeConverter interface {
	Convert(data []byte, mediaType string) (string, error)
}

// DocconvConverter delegates to code.sajari.com/docconv, which shells out
// to the format-specific tooling installed on the host.
type DocconvConverter struct{}

func (DocconvConverter) Convert(data []byte, mediaType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mediaType, true)
	if err != nil {
		return "", fmt.Errorf("office convert %s failed: %w", mediaType, err)
	}
	return res.Body, nil
}
