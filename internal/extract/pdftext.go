// internal/extract/pdftext.go
package extract

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir"
)

// openPDF parses the document and returns an extractor over it.
func openPDF(ctx context.Context, pdf []byte) (*extractor.Extractor, error) {
	doc, err := ir.NewDefault().Parse(ctx, bytes.NewReader(pdf))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	if doc == nil || doc.Decoded() == nil {
		return nil, fmt.Errorf("parse pdf: empty document")
	}
	return extractor.New(doc.Decoded())
}

// PageText reads the text layer of every page.
type PageText struct{}

func (PageText) Name() string { return "page_text" }

func (PageText) Extract(ctx context.Context, pdf []byte) (string, error) {
	ex, err := openPDF(ctx, pdf)
	if err != nil {
		return "", err
	}
	pages, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if c := strings.TrimSpace(p.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n"), nil
}
