package extract

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		want      Strategy
		wantErr   error
	}{
		{name: "pdf", mediaType: "application/pdf", want: StrategyPDF},
		{name: "plain text", mediaType: "text/plain", want: StrategyPlainText},
		{name: "msword", mediaType: "application/msword", want: StrategyOffice},
		{
			name:      "docx",
			mediaType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			want:      StrategyOffice,
		},
		{name: "powerpoint", mediaType: "application/vnd.ms-powerpoint", want: StrategyOffice},
		{name: "excel", mediaType: "application/vnd.ms-excel", want: StrategyOffice},
		{
			name:      "xlsx",
			mediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			want:      StrategyOffice,
		},
		{name: "png", mediaType: "image/png", want: StrategyImage},
		{name: "jpeg", mediaType: "image/jpeg", want: StrategyImage},
		{name: "unknown", mediaType: "application/zip", want: StrategyUnsupported},
		{name: "html is not plain text", mediaType: "text/html", want: StrategyUnsupported},
		{name: "missing", mediaType: "", want: StrategyUnsupported, wantErr: ErrMissingMediaType},
		{name: "whitespace only", mediaType: "   ", want: StrategyUnsupported, wantErr: ErrMissingMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.mediaType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Classify(%q) error = %v, want %v", tt.mediaType, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.mediaType, got, tt.want)
			}
		})
	}
}
