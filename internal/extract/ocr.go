// internal/extract/ocr.go
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Corphon/NoteQuiz/internal/utils"
)

// Recognizer reads text from a PNG image.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// PageImageOCR recognizes the images embedded in the PDF, page by page.
// Scanned documents usually carry one full-page image per page.
type PageImageOCR struct {
	Recognizer Recognizer
	Logger     *utils.Logger
	Metrics    *utils.APIMetrics
}

func (PageImageOCR) Name() string { return "page_ocr" }

func (o PageImageOCR) Extract(ctx context.Context, pdf []byte) (string, error) {
	if o.Recognizer == nil {
		return "", fmt.Errorf("ocr not available")
	}
	ex, err := openPDF(ctx, pdf)
	if err != nil {
		return "", err
	}
	assets, err := ex.ExtractImages()
	if err != nil {
		return "", fmt.Errorf("extract images: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].Page != assets[j].Page {
			return assets[i].Page < assets[j].Page
		}
		return assets[i].ResourceName < assets[j].ResourceName
	})

	var parts []string
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := a.ToImage()
		if err != nil {
			o.Logger.Debug("跳过无法解码的图片", map[string]interface{}{"page": a.Page, "name": a.ResourceName, "error": err})
			continue
		}
		data, err := PrepareImage(img)
		if err != nil {
			continue
		}

		start := time.Now()
		text, err := o.Recognizer.Recognize(ctx, data)
		if o.Metrics != nil {
			o.Metrics.RecordOCR("pdf", err == nil, time.Since(start))
		}
		if err != nil {
			o.Logger.Warn("页面识别失败", map[string]interface{}{"page": a.Page, "error": err})
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ImageReader recognizes uploaded photos (handwritten answers).
type ImageReader struct {
	Recognizer Recognizer
	Metrics    *utils.APIMetrics
}

// Read decodes any supported image format and recognizes it. Failures
// return an error; callers that treat OCR as best-effort use "".
func (r ImageReader) Read(ctx context.Context, data []byte) (string, error) {
	if r.Recognizer == nil {
		return "", fmt.Errorf("ocr not available")
	}
	img, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	png, err := PrepareImage(img)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := r.Recognizer.Recognize(ctx, png)
	if r.Metrics != nil {
		r.Metrics.RecordOCR("photo", err == nil, time.Since(start))
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(Normalize(text)), nil
}
