package scene

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
)

type ParticleSystem struct {
	ID        string
	Name      string
	Emitter   *Node
	EmitterID string

	Capacity    int
	EmitRate    float32
	MinSize     float32
	MaxSize     float32
	MinLifeTime float32
	MaxLifeTime float32
	Color1      mgl32.Vec4
	Color2      mgl32.Vec4
	Gravity     mgl32.Vec3
	Direction1  mgl32.Vec3
	Direction2  mgl32.Vec3

	Texture *Texture
	Values  json.RawMessage
}

func (ps *ParticleSystem) AnimatableName() string { return ps.Name }

// SetEmitter links both sides of the emitter relation
func (ps *ParticleSystem) SetEmitter(n *Node) {
	ps.Emitter = n
	if n != nil {
		ps.EmitterID = n.ID
		n.AttachedParticleSystem = ps
	}
}

type LensFlare struct {
	Size     float32
	Position float32
	Color    mgl32.Vec3
	Texture  *Texture
}

type LensFlareSystem struct {
	ID          string
	Name        string
	Emitter     *Node
	BorderLimit int
	Flares      []*LensFlare
}

type ShadowGenerator struct {
	Light      *Node
	MapSize    int
	RenderList []*Node

	Bias                 float32
	Darkness             float32
	UseVarianceShadowMap bool
	UsePoissonSampling   bool
	UseBlurExponential   bool
}

func (sg *ShadowGenerator) AddToRenderList(n *Node) {
	sg.RenderList = append(sg.RenderList, n)
}

// ScrubRenderList drops unresolved entries in place
func (sg *ShadowGenerator) ScrubRenderList() int {
	kept := sg.RenderList[:0]
	for _, n := range sg.RenderList {
		if n != nil {
			kept = append(kept, n)
		}
	}
	removed := len(sg.RenderList) - len(kept)
	for i := len(kept); i < len(sg.RenderList); i++ {
		sg.RenderList[i] = nil
	}
	sg.RenderList = kept
	return removed
}
