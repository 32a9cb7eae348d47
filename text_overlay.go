package plume

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one block of text to draw. Position is in pixels from the
// top-left corner of the window.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32 // pixels in the atlas
	Off   [2]float32 // bearing from the pen position
	Adv   float32
}

// TextOverlay rasterizes the printable ASCII range into an alpha atlas once
// and turns text items into screen-space quads. Font metrics are captured at
// construction, so building vertices needs no live font face.
type TextOverlay struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Ascent     float32
	LineHeight float32
}

func NewTextOverlay(fontPath string, fontSize float64) (*TextOverlay, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	parsed, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	const atlasSize = 512
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, advance, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(advance) / 64.0, // 26.6 fixed point
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	metrics := face.Metrics()
	return &TextOverlay{
		AtlasImage: atlas,
		Glyphs:     glyphs,
		Ascent:     float32(metrics.Ascent.Ceil()),
		LineHeight: float32(metrics.Height.Ceil()),
	}, nil
}

// BuildVertices emits two triangles per visible glyph in normalized device
// coordinates for the given screen size.
func (t *TextOverlay) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(items)*6)

	sw := float32(screenW)
	sh := float32(screenH)

	for _, item := range items {
		startX := item.Position[0]
		penX := startX
		penY := item.Position[1] + t.Ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				penX = startX
				penY += t.LineHeight * item.Scale
				continue
			}

			glyph, ok := t.Glyphs[r]
			if !ok {
				continue
			}

			x0 := (penX+glyph.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (penY+glyph.Off[1]*item.Scale)/sh*2.0
			x1 := (penX+(glyph.Off[0]+glyph.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (penY+(glyph.Off[1]+glyph.Size[1])*item.Scale)/sh*2.0

			vertices = append(vertices,
				TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{glyph.UVMin[0], glyph.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{glyph.UVMax[0], glyph.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{glyph.UVMin[0], glyph.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{glyph.UVMax[0], glyph.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{glyph.UVMax[0], glyph.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{glyph.UVMin[0], glyph.UVMax[1]}, Color: item.Color},
			)

			penX += glyph.Adv * item.Scale
		}
	}

	return vertices
}

// MeasureText returns the pixel width and height the text would cover at the
// given scale.
func (t *TextOverlay) MeasureText(text string, scale float32) (float32, float32) {
	if t == nil {
		return 0, 0
	}

	maxWidth := float32(0)
	lineWidth := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if lineWidth > maxWidth {
				maxWidth = lineWidth
			}
			lineWidth = 0
			lines++
			continue
		}
		glyph, ok := t.Glyphs[r]
		if !ok {
			continue
		}
		lineWidth += glyph.Adv * scale
	}
	if lineWidth > maxWidth {
		maxWidth = lineWidth
	}

	return maxWidth, t.LineHeight * scale * float32(lines)
}
