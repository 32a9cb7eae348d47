package plume

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type AssetId string

type AssetServer struct {
	materials  map[AssetId]MaterialAsset
	geometries map[AssetId]GeometryAsset
}

type AssetServerModule struct{}

// Material is a handle to a shader pair plus render toggles stored in the
// AssetServer.
type Material struct {
	assetId AssetId
}

// Geometry is a handle to a template mesh stored in the AssetServer.
type Geometry struct {
	assetId AssetId
}

type MaterialAsset struct {
	version        uint
	name           string
	vertexSource   string
	fragmentSource string
	settings       map[string]any
}

// GeometryAsset is the template mesh every particle of a group is stamped
// from. Its per-vertex streams become Shared attributes when merged into a
// group; the indices drive the instanced indexed draw.
type GeometryAsset struct {
	version   uint
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2
	indices   []uint16
}

func (server AssetServer) CreateMaterial(name string, vertexSource string, fragmentSource string, settings map[string]any) Material {
	id := makeAssetId()

	server.materials[id] = MaterialAsset{
		version:        0,
		name:           name,
		vertexSource:   vertexSource,
		fragmentSource: fragmentSource,
		settings:       settings,
	}

	return Material{
		assetId: id,
	}
}

func (server AssetServer) LoadMaterial(vertexFile string, fragmentFile string, settings map[string]any) Material {
	vertexSource, err := os.ReadFile(vertexFile)
	if err != nil {
		panic(err)
	}
	fragmentSource, err := os.ReadFile(fragmentFile)
	if err != nil {
		panic(err)
	}

	id := makeAssetId()

	server.materials[id] = MaterialAsset{
		version:        0,
		name:           vertexFile,
		vertexSource:   string(vertexSource),
		fragmentSource: string(fragmentSource),
		settings:       settings,
	}

	return Material{
		assetId: id,
	}
}

// DefaultParticleMaterial returns a material using the built-in billboard
// shaders and additive blending.
func (server AssetServer) DefaultParticleMaterial() Material {
	return server.CreateMaterial("plume-default", defaultVertexShader, defaultFragmentShader, map[string]any{
		"blending":   "additive",
		"depthWrite": false,
	})
}

func (server AssetServer) MaterialData(m Material) (MaterialAsset, bool) {
	asset, ok := server.materials[m.assetId]
	return asset, ok
}

func (server AssetServer) LoadGeometry(positions []mgl32.Vec3, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint16) Geometry {
	id := makeAssetId()

	server.geometries[id] = GeometryAsset{
		version:   0,
		positions: positions,
		normals:   normals,
		uvs:       uvs,
		indices:   indices,
	}

	return Geometry{
		assetId: id,
	}
}

// CreateQuadGeometry builds a size x size quad in the XY plane facing +Z,
// the usual billboard template.
func (server AssetServer) CreateQuadGeometry(size float32) Geometry {
	h := size * 0.5

	return server.LoadGeometry(
		[]mgl32.Vec3{
			{-h, -h, 0},
			{h, -h, 0},
			{h, h, 0},
			{-h, h, 0},
		},
		[]mgl32.Vec3{
			{0, 0, 1},
			{0, 0, 1},
			{0, 0, 1},
			{0, 0, 1},
		},
		[]mgl32.Vec2{
			{0, 0},
			{1, 0},
			{1, 1},
			{0, 1},
		},
		[]uint16{0, 1, 2, 0, 2, 3},
	)
}

// CreateDiscGeometry builds a triangle fan disc in the XY plane facing +Z.
// Segments below 3 are raised to 3.
func (server AssetServer) CreateDiscGeometry(radius float32, segments int) Geometry {
	if segments < 3 {
		segments = 3
	}

	positions := make([]mgl32.Vec3, 0, segments+1)
	normals := make([]mgl32.Vec3, 0, segments+1)
	uvs := make([]mgl32.Vec2, 0, segments+1)
	indices := make([]uint16, 0, segments*3)

	positions = append(positions, mgl32.Vec3{0, 0, 0})
	normals = append(normals, mgl32.Vec3{0, 0, 1})
	uvs = append(uvs, mgl32.Vec2{0.5, 0.5})

	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		c := float32(math.Cos(angle))
		s := float32(math.Sin(angle))
		positions = append(positions, mgl32.Vec3{radius * c, radius * s, 0})
		normals = append(normals, mgl32.Vec3{0, 0, 1})
		uvs = append(uvs, mgl32.Vec2{0.5 + 0.5*c, 0.5 + 0.5*s})
	}

	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		indices = append(indices, 0, uint16(i+1), uint16(next))
	}

	return server.LoadGeometry(positions, normals, uvs, indices)
}

func (server AssetServer) GeometryData(g Geometry) (GeometryAsset, bool) {
	asset, ok := server.geometries[g.assetId]
	return asset, ok
}

// SetMaterial picks the material the group's particles are drawn with.
func (g *Group) SetMaterial(m Material) {
	g.material = m.assetId
	g.hasMaterial = true
}

func (g *Group) MaterialId() (AssetId, bool) {
	return g.material, g.hasMaterial
}

// MergeGeometry declares the template mesh's vertex streams as Shared
// attributes named "position", "normal" and "uv", copies the data in and
// records the index list for indexed drawing. Streams the geometry does not
// carry are skipped. Merging over an existing attribute refreshes its
// contents.
func (g *Group) MergeGeometry(geo GeometryAsset) {
	if len(geo.positions) > 0 {
		g.mergeShared("position", 3, flattenVec3(geo.positions))
	}
	if len(geo.normals) > 0 {
		g.mergeShared("normal", 3, flattenVec3(geo.normals))
	}
	if len(geo.uvs) > 0 {
		g.mergeShared("uv", 2, flattenVec2(geo.uvs))
	}
	if len(geo.indices) > 0 {
		g.indices = append([]uint16(nil), geo.indices...)
	}
}

// TemplateIndices returns the index list recorded by MergeGeometry.
func (g *Group) TemplateIndices() []uint16 {
	return g.indices
}

func (g *Group) mergeShared(name string, itemWidth int, data []float32) {
	// a second merge finds the attribute declared already, the fill then
	// refreshes it in place
	_ = g.DeclareSized(name, itemWidth, Shared, len(data)/itemWidth)
	g.Fill(name, data)
}

func flattenVec3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flattenVec2(vs []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(&AssetServer{
		materials:  make(map[AssetId]MaterialAsset),
		geometries: make(map[AssetId]GeometryAsset),
	})
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
