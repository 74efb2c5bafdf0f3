package template

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	fontPath := filepath.Join(t.TempDir(), "test.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	layout := DefaultLayout()
	layout.FontPath = fontPath
	return layout
}

func testPhoto() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestComposeIsDeterministic(t *testing.T) {
	c := NewCompositor(testLayout(t))
	photo := testPhoto()

	first, err := c.Compose(photo, "Alice", "HEADLINE", "story text for the wanted poster")
	if err != nil {
		t.Fatalf("first Compose: %v", err)
	}
	second, err := c.Compose(photo, "Alice", "HEADLINE", "story text for the wanted poster")
	if err != nil {
		t.Fatalf("second Compose: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical inputs produced different canvases")
	}
}

func TestComposeCanvasDimensions(t *testing.T) {
	c := NewCompositor(testLayout(t))
	canvas, err := c.Compose(testPhoto(), "Bob", "", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := canvas.Bounds(); got.Dx() != 1200 || got.Dy() != 1800 {
		t.Errorf("canvas = %dx%d, want 1200x1800", got.Dx(), got.Dy())
	}
}

func TestMissingBackgroundFallsBackToSolidFill(t *testing.T) {
	layout := testLayout(t)
	layout.BackgroundPath = "/nonexistent/background.png"
	c := NewCompositor(layout)

	canvas, err := c.Compose(testPhoto(), "Carol", "", "")
	if err != nil {
		t.Fatalf("Compose with missing background: %v", err)
	}
	if got := canvas.RGBAAt(5, 5); got != layout.Fill {
		t.Errorf("corner pixel = %v, want fill %v", got, layout.Fill)
	}
}

func TestStoryPanelIsBlended(t *testing.T) {
	c := NewCompositor(testLayout(t))
	canvas, err := c.Compose(testPhoto(), "", "", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	// White fill blended 4:1 with (255,240,240) gives (255,252,252).
	got := canvas.RGBAAt(5, storyTop+10)
	want := color.RGBA{255, 252, 252, 255}
	if got != want {
		t.Errorf("panel pixel = %v, want %v", got, want)
	}
	// Above the panel the fill is untouched.
	if got := canvas.RGBAAt(5, storyTop-10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel above panel = %v, want white", got)
	}
}

func TestMissingFontSkipsTextButComposes(t *testing.T) {
	layout := DefaultLayout()
	layout.FontPath = "/nonexistent/font.ttf"
	c := NewCompositor(layout)

	if _, err := c.Compose(testPhoto(), "Dave", "HEADLINE", "story"); err != nil {
		t.Fatalf("Compose without font: %v", err)
	}
}

func TestComposeRejectsNilPhoto(t *testing.T) {
	c := NewCompositor(testLayout(t))
	if _, err := c.Compose(nil, "", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Compose(nil) = %v, want ErrInvalidInput", err)
	}
}

func TestComposeFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "photo.png")
	outPath := filepath.Join(dir, "out.png")

	f, err := os.Create(photoPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, testPhoto()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c := NewCompositor(testLayout(t))
	if err := c.ComposeFile(photoPath, outPath, "Eve", "The Great Candy Caper", "WANTED for petty crimes."); err != nil {
		t.Fatalf("ComposeFile: %v", err)
	}

	out, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	img, err := png.Decode(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 1200 || got.Dy() != 1800 {
		t.Errorf("output = %dx%d, want 1200x1800", got.Dx(), got.Dy())
	}
}

func TestComposeFileMissingPhoto(t *testing.T) {
	c := NewCompositor(testLayout(t))
	err := c.ComposeFile("/nonexistent/photo.jpg", filepath.Join(t.TempDir(), "out.png"), "", "", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ComposeFile = %v, want ErrInvalidInput", err)
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 65, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		t.Fatal(err)
	}

	text := "WANTED FOR PETTY CRIMES\nThis villain's depravity knows no bounds.\nApprehend for the sake of decency."
	maxWidth := 1100
	lines := wrapText(face, text, maxWidth)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d lines", len(lines))
	}
	d := &font.Drawer{Face: face}
	for _, line := range lines {
		if w := d.MeasureString(line).Ceil(); w > maxWidth {
			t.Errorf("line %q is %dpx wide, max %d", line, w, maxWidth)
		}
	}
}
