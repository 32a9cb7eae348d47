package plume

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// EmitterSpec is a declarative recipe for one emitter: how many particles,
// where they start and how they move. Spread fields widen each base value by
// a uniform interval of +-spread/2 per component.
type EmitterSpec struct {
	ParticleCount int `json:"particle_count"`

	Position       mgl32.Vec3 `json:"position"`
	PositionSpread mgl32.Vec3 `json:"position_spread,omitempty"`

	Velocity       mgl32.Vec3 `json:"velocity"`
	VelocitySpread mgl32.Vec3 `json:"velocity_spread,omitempty"`

	Acceleration       mgl32.Vec3 `json:"acceleration,omitempty"`
	AccelerationSpread mgl32.Vec3 `json:"acceleration_spread,omitempty"`

	ColorMin [4]float32 `json:"color_min"` // RGBA min (0..1)
	ColorMax [4]float32 `json:"color_max"` // RGBA max (0..1)

	SizeRange [2]float32 `json:"size_range"` // world units (min,max)
	LifeRange [2]float32 `json:"life_range"` // seconds (min,max)

	Duration float32 `json:"duration,omitempty"` // seconds until the emitter is removed, 0 = forever
}

// Standard per-emitter attributes of the built-in pipeline, in the
// declaration order the default shaders expect after the template geometry's
// shared streams.
var standardAttributes = []struct {
	name  string
	width int
}{
	{"translate", 3},
	{"velocity", 3},
	{"acceleration", 3},
	{"color", 4},
	{"size", 1},
	{"age", 1},
	{"lifetime", 1},
}

func ensureStandardAttributes(g *Group) {
	for _, attr := range standardAttributes {
		// declared already is fine
		_ = g.Declare(attr.name, attr.width, PerEmitter)
	}
}

// Apply declares the standard attributes on g if missing, attaches a new
// emitter and seeds its ranges from the spec. Zero-valued counts, sizes,
// lifetimes and colors fall back to usable defaults.
func (spec EmitterSpec) Apply(g *Group) *Emitter {
	count := spec.count()
	life := spec.LifeRange
	if life == ([2]float32{}) {
		life = [2]float32{3, 3}
	}
	size := spec.SizeRange
	if size == ([2]float32{}) {
		size = [2]float32{1, 1}
	}
	colorMin := spec.ColorMin
	colorMax := spec.ColorMax
	if colorMin == ([4]float32{}) && colorMax == ([4]float32{}) {
		colorMin = [4]float32{1, 1, 1, 1}
		colorMax = [4]float32{1, 1, 1, 1}
	}

	ensureStandardAttributes(g)

	em := g.AddEmitter(count)

	em.Fill("translate", func(i int) []float32 { return jitter3(spec.Position, spec.PositionSpread) })
	em.Fill("velocity", func(i int) []float32 { return jitter3(spec.Velocity, spec.VelocitySpread) })
	em.Fill("acceleration", func(i int) []float32 { return jitter3(spec.Acceleration, spec.AccelerationSpread) })
	em.Fill("color", func(i int) []float32 {
		out := make([]float32, 4)
		for j := 0; j < 4; j++ {
			out[j] = lerp(colorMin[j], colorMax[j], rand.Float32())
		}
		return out
	})
	em.Fill("size", func(i int) float32 { return lerp(size[0], size[1], rand.Float32()) })
	em.Fill("age", func(i int) float32 { return rand.Float32() * life[1] })
	em.Fill("lifetime", func(i int) float32 { return lerp(life[0], life[1], rand.Float32()) })

	if spec.Duration > 0 {
		em.SetLifetime(spec.Duration)
	}
	return em
}

func (spec EmitterSpec) count() int {
	if spec.ParticleCount <= 0 {
		return 100
	}
	return spec.ParticleCount
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func jitter(base, spread float32) float32 {
	return base + spread*(rand.Float32()-0.5)
}

func jitter3(base, spread mgl32.Vec3) []float32 {
	return []float32{
		jitter(base[0], spread[0]),
		jitter(base[1], spread[1]),
		jitter(base[2], spread[2]),
	}
}
