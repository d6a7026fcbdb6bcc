// Package project is the persisted form of an editor scene. Engine specific
// payloads are kept raw and decoded by the factories that own them.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

const (
	NodeTypeMesh          = "Mesh"
	NodeTypeInstancedMesh = "InstancedMesh"
	NodeTypeLight         = "Light"
	NodeTypeCamera        = "Camera"
	NodeTypeScene         = "Scene"
	NodeTypeSound         = "Sound"
)

const (
	AnimatedScene          = "Scene"
	AnimatedNode           = "Node"
	AnimatedSound          = "Sound"
	AnimatedParticleSystem = "ParticleSystem"
)

const (
	CollectionRenderTargets   = "renderTargets"
	CollectionMaterials       = "materials"
	CollectionSounds          = "sounds"
	CollectionNodes           = "nodes"
	CollectionParticleSystems = "particleSystems"
	CollectionLensFlares      = "lensFlares"
	CollectionPostProcesses   = "postProcesses"
	CollectionEffectLayers    = "effectLayers"
)

// RecordError is a collection entry whose envelope could not be decoded
type RecordError struct {
	Collection string
	Index      int
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s #%d: %v", e.Collection, e.Index, e.Err)
}

type Project struct {
	GlobalConfiguration *GlobalConfiguration       `json:"globalConfiguration"`
	RenderTargets       []*RenderTarget            `json:"renderTargets"`
	Materials           []*Material                `json:"materials"`
	Sounds              []*Sound                   `json:"sounds"`
	Nodes               []*Node                    `json:"nodes"`
	ParticleSystems     []*ParticleSystem          `json:"particleSystems"`
	LensFlares          []*LensFlare               `json:"lensFlares"`
	ShadowGenerators    []json.RawMessage          `json:"shadowGenerators"`
	PostProcesses       []*PostProcess             `json:"postProcesses"`
	EffectLayers        []*EffectLayer             `json:"effectLayers"`
	Actions             json.RawMessage            `json:"actions,omitempty"`
	PhysicsEnabled      bool                       `json:"physicsEnabled"`
	CustomMetadatas     map[string]json.RawMessage `json:"customMetadatas"`

	// Rejected records of a decoded document, their slots are nil
	Rejected []*RecordError `json:"-"`
}

func (p *Project) reject(collection string, index int, err error) {
	p.Rejected = append(p.Rejected, &RecordError{Collection: collection, Index: index, Err: err})
}

// RejectedIn lists rejected records of one collection in document order
func (p *Project) RejectedIn(collection string) []*RecordError {
	var result []*RecordError
	for _, r := range p.Rejected {
		if r.Collection == collection {
			result = append(result, r)
		}
	}
	return result
}

type GlobalConfiguration struct {
	GlobalAnimationSpeed *float32            `json:"globalAnimationSpeed,omitempty"`
	FramesPerSecond      int                 `json:"framesPerSecond"`
	AnimatedAtLaunch     []*AnimatedAtLaunch `json:"animatedAtLaunch"`
}

type AnimatedAtLaunch struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type RenderTarget struct {
	IsProbe             bool            `json:"isProbe"`
	SerializationObject json.RawMessage `json:"serializationObject"`
}

// RenderTargetHeader is the engine independent part of a render target payload
type RenderTargetHeader struct {
	Name            string   `json:"name"`
	Size            int      `json:"size"`
	GenerateMipMaps bool     `json:"generateMipMaps"`
	RenderList      []string `json:"renderList"`
	AttachedMeshID  string   `json:"attachedMeshId,omitempty"`
}

func (rt *RenderTarget) Header() (*RenderTargetHeader, error) {
	var h RenderTargetHeader
	if err := Peek(rt.SerializationObject, &h); err != nil {
		return nil, errors.Wrapf(err, "Failed to read render target")
	}
	return &h, nil
}

type Material struct {
	NewInstance      bool            `json:"newInstance"`
	SerializedValues json.RawMessage `json:"serializedValues"`
	MeshesNames      []string        `json:"meshesNames,omitempty"`
}

type materialHeader struct {
	CustomType string `json:"customType"`
	Name       string `json:"name"`
}

func (m *Material) header() materialHeader {
	var h materialHeader
	_ = Peek(m.SerializedValues, &h)
	return h
}

// CustomType returns serializedValues.customType, empty if absent
func (m *Material) CustomType() string { return m.header().CustomType }

func (m *Material) Name() string { return m.header().Name }

type Sound struct {
	Name                string          `json:"name"`
	SerializationObject json.RawMessage `json:"serializationObject"`
}

type Node struct {
	Type                string          `json:"type"`
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	SerializationObject json.RawMessage `json:"serializationObject,omitempty"`
	Animations          []*Animation    `json:"animations"`
	Actions             json.RawMessage `json:"actions,omitempty"`
	Physics             *Physics        `json:"physics,omitempty"`
}

func (n *Node) HasSerializationObject() bool { return !IsNull(n.SerializationObject) }

func (n *Node) HasActions() bool { return !IsNull(n.Actions) }

type Animation struct {
	TargetName          string          `json:"targetName,omitempty"`
	TargetType          string          `json:"targetType,omitempty"`
	Events              json.RawMessage `json:"events,omitempty"`
	SerializationObject json.RawMessage `json:"serializationObject"`
}

type Physics struct {
	Impostor    int     `json:"physicsImpostor"`
	Mass        float32 `json:"physicsMass"`
	Friction    float32 `json:"physicsFriction"`
	Restitution float32 `json:"physicsRestitution"`
}

type ParticleSystem struct {
	HasEmitter          bool            `json:"hasEmitter"`
	SerializationObject json.RawMessage `json:"serializationObject"`
	EmitterPosition     []float32       `json:"emitterPosition,omitempty"`
}

// EmitterID returns serializationObject.emitterId, empty if absent
func (ps *ParticleSystem) EmitterID() string {
	var h struct {
		EmitterID string `json:"emitterId"`
	}
	_ = Peek(ps.SerializationObject, &h)
	return h.EmitterID
}

type LensFlare struct {
	SerializationObject json.RawMessage `json:"serializationObject"`
}

type PostProcess struct {
	Name                string          `json:"name"`
	Attach              *bool           `json:"attach,omitempty"`
	SerializationObject json.RawMessage `json:"serializationObject,omitempty"`
}

// Detached reports an explicit attach == false
func (pp *PostProcess) Detached() bool {
	return pp.Attach != nil && !*pp.Attach
}

type EffectLayer struct {
	Name                string          `json:"name"`
	SerializationObject json.RawMessage `json:"serializationObject"`
}

// IsNull reports an absent or null raw value
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Peek decodes the fields of raw that v declares, ignoring the rest
func Peek(raw json.RawMessage, v interface{}) error {
	if IsNull(raw) {
		return errors.Errorf("Value is empty")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal")
	}
	return nil
}
