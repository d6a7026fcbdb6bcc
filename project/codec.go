package project

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/scene_project/config"
)

// ErrDocumentMalformed is the cause of every fatal document level error
var ErrDocumentMalformed = errors.New("Document malformed")

var requiredCollections = []string{"nodes", "materials", "particleSystems", "globalConfiguration"}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDocumentMalformed, format, args...)
}

func IsMalformed(err error) bool {
	return errors.Cause(err) == ErrDocumentMalformed
}

// Decode parses and cleans a project document
func Decode(data []byte) (*Project, error) {
	data, err := config.DecodeText(data)
	if err != nil {
		return nil, malformed("Failed to transcode document: %v", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, malformed("Document is not an object")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, malformed("Failed to parse document: %v", err)
	}
	for _, name := range requiredCollections {
		if raw, ok := top[name]; !ok || IsNull(raw) {
			return nil, malformed("Missing required collection %q", name)
		}
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, malformed("Invalid document shape: %v", err)
	}

	p := &Project{
		GlobalConfiguration: doc.GlobalConfiguration,
		ShadowGenerators:    doc.ShadowGenerators,
		Actions:             doc.Actions,
		PhysicsEnabled:      doc.PhysicsEnabled,
		CustomMetadatas:     doc.CustomMetadatas,
	}
	p.RenderTargets = decodeRecords[RenderTarget](p, CollectionRenderTargets, doc.RenderTargets)
	p.Materials = decodeRecords[Material](p, CollectionMaterials, doc.Materials)
	p.Sounds = decodeRecords[Sound](p, CollectionSounds, doc.Sounds)
	p.Nodes = decodeRecords[Node](p, CollectionNodes, doc.Nodes)
	p.ParticleSystems = decodeRecords[ParticleSystem](p, CollectionParticleSystems, doc.ParticleSystems)
	p.LensFlares = decodeRecords[LensFlare](p, CollectionLensFlares, doc.LensFlares)
	p.PostProcesses = decodeRecords[PostProcess](p, CollectionPostProcesses, doc.PostProcesses)
	p.EffectLayers = decodeRecords[EffectLayer](p, CollectionEffectLayers, doc.EffectLayers)
	Clean(p)
	return p, nil
}

// document is the top level shape. Collections stay raw so a record with a
// broken envelope is rejected alone.
type document struct {
	GlobalConfiguration *GlobalConfiguration       `json:"globalConfiguration"`
	RenderTargets       []json.RawMessage          `json:"renderTargets"`
	Materials           []json.RawMessage          `json:"materials"`
	Sounds              []json.RawMessage          `json:"sounds"`
	Nodes               []json.RawMessage          `json:"nodes"`
	ParticleSystems     []json.RawMessage          `json:"particleSystems"`
	LensFlares          []json.RawMessage          `json:"lensFlares"`
	ShadowGenerators    []json.RawMessage          `json:"shadowGenerators"`
	PostProcesses       []json.RawMessage          `json:"postProcesses"`
	EffectLayers        []json.RawMessage          `json:"effectLayers"`
	Actions             json.RawMessage            `json:"actions"`
	PhysicsEnabled      bool                       `json:"physicsEnabled"`
	CustomMetadatas     map[string]json.RawMessage `json:"customMetadatas"`
}

// decodeRecords keeps the index of every record, rejected ones stay nil
func decodeRecords[T any](p *Project, collection string, raws []json.RawMessage) []*T {
	result := make([]*T, len(raws))
	for i, raw := range raws {
		if IsNull(raw) {
			p.reject(collection, i, errors.Errorf("Empty record"))
			continue
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			p.reject(collection, i, errors.Wrapf(err, "Failed to decode record"))
			continue
		}
		result[i] = &v
	}
	return result
}

// Clean defaults every optional collection so older projects load
func Clean(p *Project) {
	if p.GlobalConfiguration == nil {
		p.GlobalConfiguration = &GlobalConfiguration{}
	}
	if p.GlobalConfiguration.AnimatedAtLaunch == nil {
		p.GlobalConfiguration.AnimatedAtLaunch = []*AnimatedAtLaunch{}
	}
	if p.RenderTargets == nil {
		p.RenderTargets = []*RenderTarget{}
	}
	if p.Materials == nil {
		p.Materials = []*Material{}
	}
	if p.Sounds == nil {
		p.Sounds = []*Sound{}
	}
	if p.Nodes == nil {
		p.Nodes = []*Node{}
	}
	for _, n := range p.Nodes {
		if n != nil && n.Animations == nil {
			n.Animations = []*Animation{}
		}
	}
	if p.ParticleSystems == nil {
		p.ParticleSystems = []*ParticleSystem{}
	}
	if p.LensFlares == nil {
		p.LensFlares = []*LensFlare{}
	}
	if p.ShadowGenerators == nil {
		p.ShadowGenerators = []json.RawMessage{}
	}
	if p.PostProcesses == nil {
		p.PostProcesses = []*PostProcess{}
	}
	if p.EffectLayers == nil {
		p.EffectLayers = []*EffectLayer{}
	}
	if p.CustomMetadatas == nil {
		p.CustomMetadatas = make(map[string]json.RawMessage)
	}
}

func Encode(p *Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal project")
	}
	return data, nil
}

// EncodeYAML renders the project as yaml for reading, it is not loadable
func EncodeYAML(p *Project) ([]byte, error) {
	data, err := Encode(p)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal project")
	}
	result, err := yaml.Marshal(generic)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal yaml")
	}
	return result, nil
}

func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read project %q", path)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode project %q", path)
	}
	return p, nil
}

func Save(path string, p *Project) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write project %q", path)
	}
	return nil
}
