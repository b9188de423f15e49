package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func requireTesseract(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func renderText(t *testing.T, text string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 240, 60))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 35)}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRecognize(t *testing.T) {
	requireTesseract(t)

	r := New([]string{"eng"}, 20*time.Second)
	got, err := r.Recognize(context.Background(), renderText(t, "Glucose"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !strings.Contains(strings.ToLower(got), "glucose") {
		t.Fatalf("got %q", got)
	}
}

func TestRecognizeCancelled(t *testing.T) {
	requireTesseract(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil, 0).Recognize(ctx, renderText(t, "x")); err == nil {
		t.Fatal("expected context error")
	}
}
