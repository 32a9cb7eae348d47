package plume

// FillView writes value into view. Accepted value kinds:
//
//   - float32 / float64 / int: broadcast to every component of every item
//   - []float32: tiled repeatedly across the view; a partial copy at the
//     tail is allowed when the vector length does not divide the view length
//   - func(i int) float32: called with i = 0,1,2,... once per remaining
//     scalar slot
//   - func(i int) []float32: called with i = 0,1,2,... until the view is
//     exhausted; a result is partially written if the view ends mid-vector
//
// All writes go through the view, so the owning attribute is marked dirty
// before the first written value is observable. Anything else, including a
// nil view, is a silent no-op.
func FillView(view AttributeView, value any) {
	if view == nil || view.Len() == 0 {
		return
	}

	switch v := value.(type) {
	case float32:
		fillScalar(view, v)
	case float64:
		fillScalar(view, float32(v))
	case int:
		fillScalar(view, float32(v))
	case []float32:
		fillVector(view, v)
	case func(i int) float32:
		fillGeneratorScalar(view, v)
	case func(i int) []float32:
		fillGeneratorVector(view, v)
	}
}

func fillScalar(view AttributeView, v float32) {
	for i := 0; i < view.Len(); i++ {
		view.Write(i, v)
	}
}

func fillVector(view AttributeView, vec []float32) {
	if len(vec) == 0 {
		return
	}
	for i := 0; i < view.Len(); i++ {
		view.Write(i, vec[i%len(vec)])
	}
}

func fillGeneratorScalar(view AttributeView, gen func(i int) float32) {
	for i := 0; i < view.Len(); i++ {
		view.Write(i, gen(i))
	}
}

func fillGeneratorVector(view AttributeView, gen func(i int) []float32) {
	pos := 0
	for call := 0; pos < view.Len(); call++ {
		out := gen(call)
		if len(out) == 0 {
			// an empty result can never advance, stop instead of spinning
			return
		}
		for _, v := range out {
			if pos >= view.Len() {
				return
			}
			view.Write(pos, v)
			pos++
		}
	}
}
