package factory

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
)

type renderTargetRecord struct {
	Name             string  `json:"name"`
	Size             int     `json:"size"`
	RenderTargetSize int     `json:"renderTargetSize"`
	GenerateMipMaps  bool    `json:"generateMipMaps"`
	RefreshRate      *int    `json:"refreshRate"`
	Level            float32 `json:"level"`
	HasAlpha         bool    `json:"hasAlpha"`
}

// ParseRenderTargetTexture builds a render target, its render list stays
// empty until meshes exist
func ParseRenderTargetTexture(ctx *Context, raw json.RawMessage) (*scene.RenderTargetTexture, error) {
	var rec renderTargetRecord
	if err := unmarshal(raw, &rec, "render target"); err != nil {
		return nil, err
	}
	if rec.Name == "" {
		return nil, errors.Errorf("Render target without name")
	}
	size := rec.RenderTargetSize
	if size == 0 {
		size = rec.Size
	}
	if size <= 0 {
		return nil, errors.Errorf("Render target %q has invalid size %d", rec.Name, size)
	}

	rt := scene.NewRenderTargetTexture(rec.Name, size, rec.GenerateMipMaps)
	rt.Values = append(json.RawMessage(nil), raw...)
	if rec.RefreshRate != nil {
		rt.RefreshRate = *rec.RefreshRate
	}
	if rec.Level != 0 {
		rt.Texture.Level = rec.Level
	}
	rt.Texture.HasAlpha = rec.HasAlpha
	return ctx.Scene.AddRenderTarget(rt), nil
}

func NewReflectionProbe(ctx *Context, h *project.RenderTargetHeader) (*scene.ReflectionProbe, error) {
	if h.Name == "" {
		return nil, errors.Errorf("Reflection probe without name")
	}
	if h.Size <= 0 {
		return nil, errors.Errorf("Reflection probe %q has invalid size %d", h.Name, h.Size)
	}
	return ctx.Scene.AddReflectionProbe(scene.NewReflectionProbe(h.Name, h.Size, h.GenerateMipMaps)), nil
}

var effectLayerTypes = map[string]struct{}{
	"GlowLayer":      {},
	"HighlightLayer": {},
}

func ParseEffectLayer(ctx *Context, name string, raw json.RawMessage) (*scene.EffectLayer, error) {
	var rec struct {
		CustomType string `json:"customType"`
		Name       string `json:"name"`
	}
	if err := unmarshal(raw, &rec, "effect layer"); err != nil {
		return nil, err
	}
	layerType := strings.TrimPrefix(rec.CustomType, enginePrefix)
	if _, ok := effectLayerTypes[layerType]; !ok {
		return nil, errors.Errorf("Unknown effect layer type %q", rec.CustomType)
	}
	if name == "" {
		name = rec.Name
	}
	return ctx.Scene.AddEffectLayer(&scene.EffectLayer{
		Name:    name,
		Type:    layerType,
		Options: append(json.RawMessage(nil), raw...),
	}), nil
}

// pipelineFactory creates a post-process attached to every scene camera.
// Options missing in the record take values from defaults.
func pipelineFactory(name string, defaults map[string]interface{}) PostProcessFactory {
	return func(ctx *Context, options json.RawMessage) (*scene.PostProcess, error) {
		merged := make(map[string]interface{}, len(defaults))
		for k, v := range defaults {
			merged[k] = v
		}
		if !project.IsNull(options) {
			var opts map[string]interface{}
			if err := unmarshal(options, &opts, name); err != nil {
				return nil, err
			}
			for k, v := range opts {
				merged[k] = v
			}
		}
		if ratio, ok := merged["ratio"].(float64); ok && (ratio <= 0 || ratio > 1) {
			return nil, errors.Errorf("Invalid ratio %v of %s", ratio, name)
		}
		data, err := json.Marshal(merged)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to marshal %s options", name)
		}

		pp := &scene.PostProcess{Name: name, Options: data}
		pp.AttachCameras(ctx.Scene.Cameras())
		return ctx.Scene.AddPostProcess(pp), nil
	}
}

func init() {
	SetPostProcessFactory(PostProcessKey("StandardRenderingPipeline"), pipelineFactory("StandardRenderingPipeline", map[string]interface{}{
		"ratio":            1.0,
		"bloomEnabled":     true,
		"exposure":         1.0,
		"lensFlareEnabled": false,
	}))
	SetPostProcessFactory(PostProcessKey("HDRPipeline"), pipelineFactory("HDRPipeline", map[string]interface{}{
		"ratio":             1.0,
		"exposure":          1.0,
		"minimumLuminance":  0.5,
		"maximumLuminance":  1e20,
		"luminanceDecrease": 0.5,
		"luminanceIncrease": 0.5,
		"gaussCoeff":        0.3,
		"gaussMean":         1.0,
		"gaussStandDev":     0.8,
		"gaussMultiplier":   4.0,
		"brightThreshold":   0.8,
	}))
	SetPostProcessFactory(PostProcessKey("SSAOPipeline"), pipelineFactory("SSAOPipeline", map[string]interface{}{
		"ratio":         0.5,
		"totalStrength": 1.0,
		"radius":        0.0001,
		"area":          0.0075,
		"fallOff":       0.000001,
	}))
	SetPostProcessFactory(PostProcessKey("SSAO2Pipeline"), pipelineFactory("SSAO2Pipeline", map[string]interface{}{
		"ratio":         0.5,
		"totalStrength": 1.0,
		"radius":        2.0,
		"samples":       16.0,
	}))
	SetPostProcessFactory(PostProcessKey("VLSPostProcess"), pipelineFactory("VLSPostProcess", map[string]interface{}{
		"ratio":    1.0,
		"samples":  100.0,
		"exposure": 0.3,
		"decay":    0.96815,
		"weight":   0.58767,
		"density":  0.926,
	}))
}
