package plume

import (
	"math"
	"testing"
)

func approxEq(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

// testOverlay builds a one glyph overlay by hand so vertex math is exact and
// no font file is needed.
func testOverlay() *TextOverlay {
	return &TextOverlay{
		Glyphs: map[rune]GlyphInfo{
			'A': {
				UVMin: [2]float32{0, 0},
				UVMax: [2]float32{0.1, 0.2},
				Size:  [2]float32{8, 10},
				Off:   [2]float32{1, -9},
				Adv:   10,
			},
		},
		Ascent:     10,
		LineHeight: 14,
	}
}

func TestTextOverlay_BuildVertices(t *testing.T) {
	overlay := testOverlay()

	vertices := overlay.BuildVertices([]TextItem{{
		Text:     "A",
		Position: [2]float32{0, 0},
		Scale:    1,
		Color:    [4]float32{1, 0, 0, 1},
	}}, 100, 100)

	if len(vertices) != 6 {
		t.Fatalf("Expected 6 vertices for one glyph, got %d", len(vertices))
	}

	// pen starts at the baseline: ascent below the item position
	// x0 = (0 + off.x)/100*2 - 1, y0 = 1 - (10 + off.y)/100*2
	if !approxEq(vertices[0].Pos[0], -0.98) || !approxEq(vertices[0].Pos[1], 0.98) {
		t.Errorf("Top-left corner wrong: %v", vertices[0].Pos)
	}
	// x1 adds the glyph width, y1 the glyph height
	if !approxEq(vertices[4].Pos[0], -0.82) || !approxEq(vertices[4].Pos[1], 0.78) {
		t.Errorf("Bottom-right corner wrong: %v", vertices[4].Pos)
	}

	if vertices[0].UV != ([2]float32{0, 0}) {
		t.Errorf("Top-left UV wrong: %v", vertices[0].UV)
	}
	if vertices[4].UV != ([2]float32{0.1, 0.2}) {
		t.Errorf("Bottom-right UV wrong: %v", vertices[4].UV)
	}

	for i, v := range vertices {
		if v.Color != ([4]float32{1, 0, 0, 1}) {
			t.Errorf("Vertex %d lost the item color: %v", i, v.Color)
		}
	}
}

func TestTextOverlay_AdvancesThePen(t *testing.T) {
	overlay := testOverlay()

	vertices := overlay.BuildVertices([]TextItem{{
		Text:  "AA",
		Scale: 1,
	}}, 100, 100)

	if len(vertices) != 12 {
		t.Fatalf("Expected 12 vertices for two glyphs, got %d", len(vertices))
	}
	// the second glyph starts one advance further right
	if !approxEq(vertices[6].Pos[0], -0.78) {
		t.Errorf("Second glyph did not advance: %v", vertices[6].Pos)
	}
}

func TestTextOverlay_NewlineWrapsToStart(t *testing.T) {
	overlay := testOverlay()

	vertices := overlay.BuildVertices([]TextItem{{
		Text:  "A\nA",
		Scale: 1,
	}}, 100, 100)

	if len(vertices) != 12 {
		t.Fatalf("Expected 12 vertices, the newline draws nothing, got %d", len(vertices))
	}
	// back to the start x, one line height down
	if !approxEq(vertices[6].Pos[0], vertices[0].Pos[0]) {
		t.Errorf("Newline should reset the pen x: %v vs %v", vertices[6].Pos, vertices[0].Pos)
	}
	if !approxEq(vertices[6].Pos[1], 0.98-0.28) {
		t.Errorf("Newline should drop one line height: %v", vertices[6].Pos)
	}
}

func TestTextOverlay_SkipsUnknownRunes(t *testing.T) {
	overlay := testOverlay()

	vertices := overlay.BuildVertices([]TextItem{{
		Text:  "A?A",
		Scale: 1,
	}}, 100, 100)

	if len(vertices) != 12 {
		t.Errorf("Unknown runes draw nothing, expected 12 vertices, got %d", len(vertices))
	}
}

func TestTextOverlay_Scale(t *testing.T) {
	overlay := testOverlay()

	vertices := overlay.BuildVertices([]TextItem{{
		Text:  "A",
		Scale: 2,
	}}, 100, 100)

	// ascent, offsets and sizes all scale: y0 = 1 - (20 - 18)/100*2
	if !approxEq(vertices[0].Pos[0], -0.96) || !approxEq(vertices[0].Pos[1], 0.96) {
		t.Errorf("Scaled top-left corner wrong: %v", vertices[0].Pos)
	}
}

func TestTextOverlay_MeasureText(t *testing.T) {
	overlay := testOverlay()

	w, h := overlay.MeasureText("AA", 1)
	if !approxEq(w, 20) || !approxEq(h, 14) {
		t.Errorf("Expected 20x14, got %vx%v", w, h)
	}

	w, h = overlay.MeasureText("A\nAA", 1)
	if !approxEq(w, 20) || !approxEq(h, 28) {
		t.Errorf("Expected the widest line and two line heights, got %vx%v", w, h)
	}

	var nilOverlay *TextOverlay
	w, h = nilOverlay.MeasureText("A", 1)
	if w != 0 || h != 0 {
		t.Errorf("A nil overlay measures zero, got %vx%v", w, h)
	}
}
