// internal/ocr/tesseract/tesseract.go
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs Tesseract through gosseract. A fresh client is created
// per call; gosseract clients are not safe for concurrent use.
type Recognizer struct {
	languages     []string
	timeout       time.Duration
	clientFactory func() *gosseract.Client
}

// New creates a recognizer for the given Tesseract language codes.
func New(languages []string, timeout time.Duration) *Recognizer {
	return &Recognizer{
		languages:     append([]string(nil), languages...),
		timeout:       timeout,
		clientFactory: gosseract.NewClient,
	}
}

// Version reports the linked Tesseract version.
func Version() string {
	c := gosseract.NewClient()
	defer c.Close()
	return c.Version()
}

// Recognize returns the plain text found in a PNG image.
func (r *Recognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := r.recognize(png)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func (r *Recognizer) recognize(png []byte) (string, error) {
	c := r.clientFactory()
	defer c.Close()

	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
