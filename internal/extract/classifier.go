package extract

import (
	"errors"
	"strings"
)

// Strategy is the closed set of extraction routes. Classify resolves the
// declared media type to exactly one of them; the pipeline switches on the
// result exhaustively so unknown types cannot fall through by accident.
type Strategy int

const (
	StrategyUnsupported Strategy = iota
	StrategyPDF
	StrategyPlainText
	StrategyOffice
	StrategyImage
)

// ErrMissingMediaType is returned when the upload carries no declared media
// type at all. This is the only classification outcome treated as invalid
// input; everything unknown is StrategyUnsupported, which is a valid result.
var ErrMissingMediaType = errors.New("media type is required")

// officeMediaTypes are the formats delegated to the external converter.
var officeMediaTypes = map[string]struct{}{
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.ms-excel":      {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

// Classify maps a declared media type to an extraction strategy.
func Classify(mediaType string) (Strategy, error) {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return StrategyUnsupported, ErrMissingMediaType
	}
	if mediaType == "application/pdf" {
		return StrategyPDF, nil
	}
	if mediaType == "text/plain" {
		return StrategyPlainText, nil
	}
	if _, ok := officeMediaTypes[mediaType]; ok {
		return StrategyOffice, nil
	}
	if strings.HasPrefix(mediaType, "image/") {
		return StrategyImage, nil
	}
	return StrategyUnsupported, nil
}

func (s Strategy) String() string {
	switch s {
	case StrategyPDF:
		return "pdf"
	case StrategyPlainText:
		return "plain_text"
	case StrategyOffice:
		return "office"
	case StrategyImage:
		return "image"
	default:
		return "unsupported"
	}
}
