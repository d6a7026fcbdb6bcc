package scene

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
)

type Geometry struct {
	ID        string
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

type Texture struct {
	Name     string
	URL      string
	MimeType string
	Buffer   []byte
	Width    int
	Height   int
	Level    float32
	HasAlpha bool

	IsRenderTarget bool
	IsCube         bool
}

// Material keeps the fields the scene works with. The complete serialized
// form is retained in Values so unknown properties survive a save.
type Material struct {
	ID         string
	Name       string
	CustomType string

	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3
	Emissive mgl32.Vec3
	Ambient  mgl32.Vec3
	Alpha    float32

	Metallic  float32
	Roughness float32

	BackFaceCulling bool
	Wireframe       bool

	DiffuseTexture    *Texture
	BumpTexture       *Texture
	ReflectionTexture *Texture
	EmissiveTexture   *Texture

	Values json.RawMessage
}

func NewMaterial(customType, id, name string) *Material {
	return &Material{
		ID:              id,
		Name:            name,
		CustomType:      customType,
		Diffuse:         mgl32.Vec3{1, 1, 1},
		Specular:        mgl32.Vec3{1, 1, 1},
		Alpha:           1,
		Metallic:        1,
		Roughness:       1,
		BackFaceCulling: true,
	}
}

// Textures returns every texture slot currently in use
func (m *Material) Textures() []*Texture {
	result := make([]*Texture, 0, 4)
	for _, t := range []*Texture{m.DiffuseTexture, m.BumpTexture, m.ReflectionTexture, m.EmissiveTexture} {
		if t != nil {
			result = append(result, t)
		}
	}
	return result
}
