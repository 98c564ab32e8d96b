package docs

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// PDFExtractor extracts the text layer of a PDF page by page
type PDFExtractor struct{}

// NewPDFExtractor creates the default extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText implements Extractor. A page whose text cannot be read is
// skipped; the rest of the document still contributes.
func (e *PDFExtractor) ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract PDF page text")
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
