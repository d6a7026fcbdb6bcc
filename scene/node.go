package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type NodeKind int

const (
	NodeMesh NodeKind = iota
	NodeInstancedMesh
	NodeLight
	NodeCamera
	// geometry-less mesh, e.g. a synthesized particle emitter
	NodeTransform
)

func (k NodeKind) String() string {
	switch k {
	case NodeMesh:
		return "Mesh"
	case NodeInstancedMesh:
		return "InstancedMesh"
	case NodeLight:
		return "Light"
	case NodeCamera:
		return "Camera"
	case NodeTransform:
		return "Transform"
	default:
		return "Unknown"
	}
}

type LightType int

const (
	PointLight LightType = iota
	DirectionalLight
	SpotLight
	HemisphericLight
)

type LightProps struct {
	Type      LightType
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Direction mgl32.Vec3
	Intensity float32
	Range     float32
	Angle     float32
	Exponent  float32

	ShadowGenerator *ShadowGenerator
}

type CameraProps struct {
	Type   string
	Fov    float32
	MinZ   float32
	MaxZ   float32
	Speed  float32
	Target mgl32.Vec3
}

type Node struct {
	ID   string
	Name string
	Kind NodeKind

	Position mgl32.Vec3
	// euler angles, radians
	Rotation mgl32.Vec3
	Scaling  mgl32.Vec3

	IsVisible bool
	IsEnabled bool

	Parent          *Node
	WaitingParentID string

	Material   *Material
	Geometry   *Geometry
	SourceMesh *Node

	Animations    []*Animation
	ActionManager *ActionManager
	Physics       *PhysicsImpostor

	AttachedParticleSystem *ParticleSystem

	Light  *LightProps
	Camera *CameraProps
}

func NewNode(kind NodeKind, id, name string) *Node {
	n := &Node{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Scaling:   mgl32.Vec3{1, 1, 1},
		IsVisible: true,
		IsEnabled: true,
	}
	switch kind {
	case NodeLight:
		n.Light = &LightProps{Diffuse: mgl32.Vec3{1, 1, 1}, Specular: mgl32.Vec3{1, 1, 1}, Intensity: 1}
	case NodeCamera:
		n.Camera = &CameraProps{Type: "FreeCamera", Fov: 0.8, MinZ: 1, MaxZ: 10000, Speed: 2}
	}
	return n
}

func (n *Node) AnimatableName() string { return n.Name }

// IsMesh reports whether the node is an abstract mesh (can carry materials,
// actions and physics)
func (n *Node) IsMesh() bool {
	return n.Kind == NodeMesh || n.Kind == NodeInstancedMesh || n.Kind == NodeTransform
}
