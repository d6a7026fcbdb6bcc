// Package scene is the live scene context: it exclusively owns every entity
// reconstructed from a project and addresses them by id and name.
package scene

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/mogaika/scene_project/tags"
)

const DefaultFramesPerSecond = 60

// Animatable is anything that can be queued to play at launch
type Animatable interface {
	AnimatableName() string
}

// ConfiguredObject is the editor-side registration of a node and the action
// manager reconstructed for it
type ConfiguredObject struct {
	Node          *Node
	ActionManager *ActionManager
}

type Scene struct {
	Name string

	Nodes            []*Node
	Geometries       []*Geometry
	Materials        []*Material
	Textures         []*Texture
	RenderTargets    []*RenderTargetTexture
	ReflectionProbes []*ReflectionProbe
	ParticleSystems  []*ParticleSystem
	LensFlareSystems []*LensFlareSystem
	ShadowGenerators []*ShadowGenerator
	PostProcesses    []*PostProcess
	EffectLayers     []*EffectLayer
	Sounds           []*Sound
	Animations       []*Animation
	ActionManager    *ActionManager

	PhysicsEnabled bool
	Gravity        mgl32.Vec3

	AnimationSpeed  float32
	FramesPerSecond int
	NodesToStart    []Animatable

	ConfiguredObjects map[string]*ConfiguredObject
	Metadata          map[string]json.RawMessage

	Tags *tags.Store
}

func New(name string) *Scene {
	return &Scene{
		Name:              name,
		Gravity:           mgl32.Vec3{0, -9.81, 0},
		AnimationSpeed:    1,
		FramesPerSecond:   DefaultFramesPerSecond,
		ConfiguredObjects: make(map[string]*ConfiguredObject),
		Metadata:          make(map[string]json.RawMessage),
		Tags:              tags.NewStore(),
	}
}

func (sc *Scene) AnimatableName() string { return "Scene" }

// NewID generates an id unique enough to be referenced across saves
func NewID() string {
	return uuid.NewString()
}

func (sc *Scene) AddNode(n *Node) *Node {
	sc.Nodes = append(sc.Nodes, n)
	return n
}

func (sc *Scene) AddGeometry(g *Geometry) *Geometry {
	sc.Geometries = append(sc.Geometries, g)
	return g
}

func (sc *Scene) AddMaterial(m *Material) *Material {
	sc.Materials = append(sc.Materials, m)
	return m
}

func (sc *Scene) AddTexture(t *Texture) *Texture {
	sc.Textures = append(sc.Textures, t)
	return t
}

// AddRenderTarget registers the render target and its texture so materials
// can reference it by name
func (sc *Scene) AddRenderTarget(rt *RenderTargetTexture) *RenderTargetTexture {
	sc.RenderTargets = append(sc.RenderTargets, rt)
	if rt.Texture != nil {
		sc.AddTexture(rt.Texture)
	}
	return rt
}

func (sc *Scene) AddReflectionProbe(rp *ReflectionProbe) *ReflectionProbe {
	sc.ReflectionProbes = append(sc.ReflectionProbes, rp)
	if rp.CubeTexture != nil {
		sc.AddTexture(rp.CubeTexture)
	}
	return rp
}

func (sc *Scene) AddParticleSystem(ps *ParticleSystem) *ParticleSystem {
	sc.ParticleSystems = append(sc.ParticleSystems, ps)
	return ps
}

func (sc *Scene) AddLensFlareSystem(lf *LensFlareSystem) *LensFlareSystem {
	sc.LensFlareSystems = append(sc.LensFlareSystems, lf)
	return lf
}

func (sc *Scene) AddShadowGenerator(sg *ShadowGenerator) *ShadowGenerator {
	sc.ShadowGenerators = append(sc.ShadowGenerators, sg)
	if sg.Light != nil && sg.Light.Light != nil {
		sg.Light.Light.ShadowGenerator = sg
	}
	return sg
}

func (sc *Scene) AddPostProcess(pp *PostProcess) *PostProcess {
	sc.PostProcesses = append(sc.PostProcesses, pp)
	return pp
}

func (sc *Scene) AddEffectLayer(el *EffectLayer) *EffectLayer {
	sc.EffectLayers = append(sc.EffectLayers, el)
	return el
}

func (sc *Scene) AddSound(s *Sound) *Sound {
	sc.Sounds = append(sc.Sounds, s)
	return s
}

func (sc *Scene) GetNodeByID(id string) *Node {
	for _, n := range sc.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (sc *Scene) GetNodeByName(name string) *Node {
	for _, n := range sc.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (sc *Scene) GetMeshByID(id string) *Node {
	for _, n := range sc.Nodes {
		if n.IsMesh() && n.ID == id {
			return n
		}
	}
	return nil
}

func (sc *Scene) GetMeshByName(name string) *Node {
	for _, n := range sc.Nodes {
		if n.IsMesh() && n.Name == name {
			return n
		}
	}
	return nil
}

func (sc *Scene) GetLightByID(id string) *Node {
	for _, n := range sc.Nodes {
		if n.Kind == NodeLight && n.ID == id {
			return n
		}
	}
	return nil
}

func (sc *Scene) GetCameraByID(id string) *Node {
	for _, n := range sc.Nodes {
		if n.Kind == NodeCamera && n.ID == id {
			return n
		}
	}
	return nil
}

func (sc *Scene) Cameras() []*Node {
	result := make([]*Node, 0, 2)
	for _, n := range sc.Nodes {
		if n.Kind == NodeCamera {
			result = append(result, n)
		}
	}
	return result
}

func (sc *Scene) Meshes() []*Node {
	result := make([]*Node, 0, len(sc.Nodes))
	for _, n := range sc.Nodes {
		if n.IsMesh() {
			result = append(result, n)
		}
	}
	return result
}

// Children returns direct descendants of n, or root nodes when n is nil
func (sc *Scene) Children(n *Node) []*Node {
	result := make([]*Node, 0)
	for _, c := range sc.Nodes {
		if c.Parent == n {
			result = append(result, c)
		}
	}
	return result
}

func (sc *Scene) GetGeometryByID(id string) *Geometry {
	for _, g := range sc.Geometries {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (sc *Scene) GetMaterialByID(id string) *Material {
	for _, m := range sc.Materials {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (sc *Scene) GetMaterialByName(name string) *Material {
	for _, m := range sc.Materials {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (sc *Scene) GetTextureByName(name string) *Texture {
	for _, t := range sc.Textures {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (sc *Scene) GetSoundByName(name string) *Sound {
	for _, s := range sc.Sounds {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (sc *Scene) GetParticleSystemByName(name string) *ParticleSystem {
	for _, ps := range sc.ParticleSystems {
		if ps.Name == name {
			return ps
		}
	}
	return nil
}

func (sc *Scene) GetPostProcessByName(name string) *PostProcess {
	for _, pp := range sc.PostProcesses {
		if pp.Name == name {
			return pp
		}
	}
	return nil
}

// IsParticleEmitter reports whether n drives a particle system. The
// back-reference is checked first, the scan keeps it correct for emitters
// wired by hand.
func (sc *Scene) IsParticleEmitter(n *Node) bool {
	if n == nil {
		return false
	}
	if n.AttachedParticleSystem != nil {
		return true
	}
	for _, ps := range sc.ParticleSystems {
		if ps.Emitter == n {
			return true
		}
	}
	return false
}

// ConfigureObject registers n once in the configured objects index
func (sc *Scene) ConfigureObject(n *Node) *ConfiguredObject {
	if co, ok := sc.ConfiguredObjects[n.ID]; ok {
		return co
	}
	co := &ConfiguredObject{Node: n, ActionManager: n.ActionManager}
	sc.ConfiguredObjects[n.ID] = co
	return co
}

func (sc *Scene) IsConfigured(n *Node) bool {
	_, ok := sc.ConfiguredObjects[n.ID]
	return ok
}
