package plume

import (
	"encoding/json"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// EffectPreset is a serializable description of a complete particle effect:
// pool size, template quad, blending and the emitters to spawn into it.
type EffectPreset struct {
	Name         string        `json:"name"`
	MaxParticles int           `json:"max_particles"`
	QuadSize     float32       `json:"quad_size,omitempty"`
	Blending     string        `json:"blending,omitempty"`
	Emitters     []EmitterSpec `json:"emitters"`
}

func SaveEffectPreset(preset EffectPreset, filename string) error {
	bytes, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, bytes, 0644)
}

func LoadEffectPreset(filename string) (EffectPreset, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return EffectPreset{}, err
	}

	var preset EffectPreset
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return EffectPreset{}, err
	}

	return preset, nil
}

// SpawnEffect builds a live group from a preset: a quad template merged
// first so the shared streams take the locations the default shaders expect,
// then the standard attributes and one emitter per spec. A zero MaxParticles
// sizes the pool to the sum of the emitter counts.
func SpawnEffect(groups *GroupServer, assets *AssetServer, preset EffectPreset) *Group {
	maxParticles := preset.MaxParticles
	if maxParticles <= 0 {
		for _, spec := range preset.Emitters {
			maxParticles += spec.count()
		}
	}

	g := groups.CreateGroup(maxParticles)

	quadSize := preset.QuadSize
	if quadSize <= 0 {
		quadSize = 1
	}
	quad := assets.CreateQuadGeometry(quadSize)
	if geo, ok := assets.GeometryData(quad); ok {
		g.MergeGeometry(geo)
	}

	settings := map[string]any{
		"blending":   "additive",
		"depthWrite": false,
	}
	if preset.Blending != "" {
		settings["blending"] = preset.Blending
	}
	g.SetMaterial(assets.CreateMaterial(preset.Name, defaultVertexShader, defaultFragmentShader, settings))

	for _, spec := range preset.Emitters {
		spec.Apply(g)
	}

	return g
}

func FountainPreset() EffectPreset {
	return EffectPreset{
		Name:         "fountain",
		MaxParticles: 500,
		Emitters: []EmitterSpec{{
			ParticleCount:  500,
			Velocity:       mgl32.Vec3{0, 6, 0},
			VelocitySpread: mgl32.Vec3{2, 1, 2},
			Acceleration:   mgl32.Vec3{0, -9.8, 0},
			ColorMin:       [4]float32{0.2, 0.4, 1, 1},
			ColorMax:       [4]float32{0.6, 0.8, 1, 1},
			SizeRange:      [2]float32{0.05, 0.15},
			LifeRange:      [2]float32{1.5, 2.5},
		}},
	}
}

func SmokePreset() EffectPreset {
	return EffectPreset{
		Name:         "smoke",
		MaxParticles: 200,
		Blending:     "alpha",
		Emitters: []EmitterSpec{{
			ParticleCount:  200,
			PositionSpread: mgl32.Vec3{0.5, 0, 0.5},
			Velocity:       mgl32.Vec3{0, 1, 0},
			VelocitySpread: mgl32.Vec3{0.4, 0.5, 0.4},
			ColorMin:       [4]float32{0.3, 0.3, 0.3, 0.2},
			ColorMax:       [4]float32{0.6, 0.6, 0.6, 0.5},
			SizeRange:      [2]float32{0.5, 1.2},
			LifeRange:      [2]float32{2, 4},
		}},
	}
}
