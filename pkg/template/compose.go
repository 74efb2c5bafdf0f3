// Package template composes captured photos into print-ready wanted-poster
// cards. Composition is deterministic: the same inputs always produce the
// same canvas bytes, so a print can be reproduced from stored session data.
package template

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	_ "image/jpeg"
)

// Canvas geometry for a 4x6 inch card at 300 dpi.
const (
	printWidth  = 1200
	printHeight = 1800

	photoWidth  = 1000
	photoHeight = 667
	photoY      = 400

	storyTop    = 1350
	storyBottom = 1700

	blockGap    = 40
	storyMargin = 50
)

// ErrInvalidInput is returned when the photo is missing or undecodable.
// A missing background or font is not an error; those degrade silently.
var ErrInvalidInput = errors.New("invalid compose input")

// Layout carries the configurable pieces of the card design.
type Layout struct {
	BackgroundPath string
	FontPath       string
	Header         string

	HeaderSize   float64
	NameSize     float64
	HeadlineSize float64
	StorySize    float64

	Fill       color.RGBA
	TextColor  color.RGBA
	StoryColor color.RGBA
}

// DefaultLayout matches the deployed card design.
func DefaultLayout() Layout {
	return Layout{
		FontPath:     "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		Header:       "Essen Spiel '25",
		HeaderSize:   80,
		NameSize:     100,
		HeadlineSize: 70,
		StorySize:    65,
		Fill:         color.RGBA{255, 255, 255, 255},
		TextColor:    color.RGBA{50, 50, 50, 255},
		StoryColor:   color.RGBA{20, 20, 20, 255},
	}
}

// Compositor renders cards for one layout.
type Compositor struct {
	layout Layout
}

func NewCompositor(layout Layout) *Compositor {
	return &Compositor{layout: layout}
}

// Compose builds the full card: background, story panel, photo, then text.
func (c *Compositor) Compose(photo image.Image, name, headline, story string) (*image.RGBA, error) {
	if photo == nil {
		return nil, fmt.Errorf("%w: no photo", ErrInvalidInput)
	}
	b := photo.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: photo is %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	canvas := image.NewRGBA(image.Rect(0, 0, printWidth, printHeight))
	c.drawBackground(canvas)
	drawStoryPanel(canvas)

	// Photo, scaled into its fixed box, centered horizontally.
	photoX := (printWidth - photoWidth) / 2
	dst := image.Rect(photoX, photoY, photoX+photoWidth, photoY+photoHeight)
	draw.CatmullRom.Scale(canvas, dst, photo, b, draw.Src, nil)

	if err := c.drawText(canvas, name, headline, story); err != nil {
		return nil, err
	}
	return canvas, nil
}

// ComposeFile reads the photo, composes the card and writes it as PNG.
func (c *Compositor) ComposeFile(photoPath, outputPath, name, headline, story string) error {
	f, err := os.Open(photoPath)
	if err != nil {
		return fmt.Errorf("%w: open photo: %v", ErrInvalidInput, err)
	}
	defer f.Close()
	photo, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: decode photo: %v", ErrInvalidInput, err)
	}

	canvas, err := c.Compose(photo, name, headline, story)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, canvas); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// drawBackground scales the configured asset over the whole canvas, or fills
// with the solid color when the asset is missing or unreadable.
func (c *Compositor) drawBackground(canvas *image.RGBA) {
	if c.layout.BackgroundPath != "" {
		if bg := loadImage(c.layout.BackgroundPath); bg != nil {
			draw.CatmullRom.Scale(canvas, canvas.Bounds(), bg, bg.Bounds(), draw.Src, nil)
			return
		}
		slog.Warn("background asset missing, using solid fill", "path", c.layout.BackgroundPath)
	}
	fill := image.NewUniform(c.layout.Fill)
	draw.Draw(canvas, canvas.Bounds(), fill, image.Point{}, draw.Src)
}

func loadImage(path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil
	}
	return img
}

// drawStoryPanel lightens the story band so text stays legible on any
// background. 20% blend toward a warm off-white.
func drawStoryPanel(canvas *image.RGBA) {
	overlay := [3]uint16{255, 240, 240}
	for y := storyTop; y < storyBottom; y++ {
		for x := 0; x < printWidth; x++ {
			px := canvas.RGBAAt(x, y)
			px.R = uint8((uint16(px.R)*4 + overlay[0]) / 5)
			px.G = uint8((uint16(px.G)*4 + overlay[1]) / 5)
			px.B = uint8((uint16(px.B)*4 + overlay[2]) / 5)
			px.A = 255
			canvas.SetRGBA(x, y, px)
		}
	}
}

// drawText lays out header, name, headline and story. Each block's vertical
// extent comes from its face metrics, so a large name never collides with
// the headline below it. If the font file is missing the card ships without
// text rather than failing the print.
func (c *Compositor) drawText(canvas *image.RGBA, name, headline, story string) error {
	fontData, err := os.ReadFile(c.layout.FontPath)
	if err != nil {
		slog.Warn("font not found, skipping text", "path", c.layout.FontPath)
		return nil
	}
	parsed, err := opentype.Parse(fontData)
	if err != nil {
		slog.Warn("font unparseable, skipping text", "path", c.layout.FontPath, "error", err)
		return nil
	}

	faces := make(map[float64]font.Face)
	face := func(size float64) (font.Face, error) {
		if f, ok := faces[size]; ok {
			return f, nil
		}
		f, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("build face at %gpt: %w", size, err)
		}
		faces[size] = f
		return f, nil
	}

	headerFace, err := face(c.layout.HeaderSize)
	if err != nil {
		return err
	}
	nameFace, err := face(c.layout.NameSize)
	if err != nil {
		return err
	}
	headlineFace, err := face(c.layout.HeadlineSize)
	if err != nil {
		return err
	}
	storyFace, err := face(c.layout.StorySize)
	if err != nil {
		return err
	}

	// Header sits at the top of the card.
	drawCentered(canvas, headerFace, c.layout.TextColor, c.layout.Header, 80+headerFace.Metrics().Ascent.Ceil())

	// Name and headline stack under the photo; each block advances the
	// cursor by its own measured height.
	y := photoY + photoHeight + blockGap
	y += nameFace.Metrics().Ascent.Ceil()
	drawCentered(canvas, nameFace, c.layout.TextColor, name, y)
	y += nameFace.Metrics().Descent.Ceil() + blockGap/2

	y += headlineFace.Metrics().Ascent.Ceil()
	drawCentered(canvas, headlineFace, c.layout.TextColor, headline, y)

	// Story wraps inside its panel and clips rather than overflowing.
	storyMetrics := storyFace.Metrics()
	lineHeight := storyMetrics.Height.Ceil()
	lines := wrapText(storyFace, story, printWidth-2*storyMargin)
	lineY := storyTop + 30 + storyMetrics.Ascent.Ceil()
	for _, line := range lines {
		if lineY+storyMetrics.Descent.Ceil() > storyBottom-storyMargin {
			break
		}
		drawCentered(canvas, storyFace, c.layout.StoryColor, line, lineY)
		lineY += lineHeight
	}
	return nil
}

func drawCentered(canvas *image.RGBA, face font.Face, col color.RGBA, text string, baselineY int) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	x := (printWidth - width) / 2
	if x < 0 {
		x = 0
	}
	d.Dot = fixed.P(x, baselineY)
	d.DrawString(text)
}

// wrapText greedily packs words into lines no wider than maxWidth. Newlines
// in the input are treated as plain word separators.
func wrapText(face font.Face, text string, maxWidth int) []string {
	d := &font.Drawer{Face: face}
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if d.MeasureString(candidate).Ceil() > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
