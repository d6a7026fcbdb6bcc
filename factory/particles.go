package factory

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/utils"
)

type particleSystemRecord struct {
	Name              string    `json:"name"`
	ID                string    `json:"id"`
	EmitterID         string    `json:"emitterId"`
	Capacity          *int      `json:"capacity"`
	EmitRate          float32   `json:"emitRate"`
	MinSize           float32   `json:"minSize"`
	MaxSize           float32   `json:"maxSize"`
	MinLifeTime       float32   `json:"minLifeTime"`
	MaxLifeTime       float32   `json:"maxLifeTime"`
	Color1            []float32 `json:"color1"`
	Color2            []float32 `json:"color2"`
	Gravity           []float32 `json:"gravity"`
	Direction1        []float32 `json:"direction1"`
	Direction2        []float32 `json:"direction2"`
	Base64Texture     string    `json:"base64Texture"`
	Base64TextureName string    `json:"base64TextureName"`
	TextureName       string    `json:"textureName"`
}

func color4(v []float32, def mgl32.Vec4) (mgl32.Vec4, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return mgl32.Vec4{v[0], v[1], v[2], 1}, nil
	case 4:
		return mgl32.Vec4{v[0], v[1], v[2], v[3]}, nil
	default:
		return def, errors.Errorf("Expected 3 or 4 color components, got %d", len(v))
	}
}

// ParseParticleSystem returns the embedded texture separately so the caller
// can decode it concurrently with sibling records
func ParseParticleSystem(ctx *Context, raw json.RawMessage) (*scene.ParticleSystem, TextureRef, error) {
	var rec particleSystemRecord
	if err := unmarshal(raw, &rec, "particle system"); err != nil {
		return nil, TextureRef{}, err
	}
	if rec.Capacity == nil || *rec.Capacity <= 0 {
		return nil, TextureRef{}, errors.Errorf("Particle system %q without capacity", rec.Name)
	}

	ps := &scene.ParticleSystem{
		ID:          rec.ID,
		Name:        rec.Name,
		Capacity:    *rec.Capacity,
		EmitRate:    rec.EmitRate,
		MinSize:     rec.MinSize,
		MaxSize:     rec.MaxSize,
		MinLifeTime: rec.MinLifeTime,
		MaxLifeTime: rec.MaxLifeTime,
		Values:      append(json.RawMessage(nil), raw...),
	}
	if ps.ID == "" {
		ps.ID = rec.Name
	}

	var err error
	if ps.Color1, err = color4(rec.Color1, mgl32.Vec4{1, 1, 1, 1}); err != nil {
		return nil, TextureRef{}, errors.Wrapf(err, "Invalid color1 of particle system %q", rec.Name)
	}
	if ps.Color2, err = color4(rec.Color2, mgl32.Vec4{1, 1, 1, 1}); err != nil {
		return nil, TextureRef{}, errors.Wrapf(err, "Invalid color2 of particle system %q", rec.Name)
	}
	for _, v := range []struct {
		dst  *mgl32.Vec3
		src  []float32
		what string
	}{
		{&ps.Gravity, rec.Gravity, "gravity"},
		{&ps.Direction1, rec.Direction1, "direction1"},
		{&ps.Direction2, rec.Direction2, "direction2"},
	} {
		if *v.dst, err = utils.Vec3FromSliceOr(v.src, *v.dst); err != nil {
			return nil, TextureRef{}, errors.Wrapf(err, "Invalid %s of particle system %q", v.what, rec.Name)
		}
	}

	if rec.EmitterID != "" {
		emitter := ctx.emitter(rec.EmitterID)
		if emitter == nil {
			return nil, TextureRef{}, errors.Errorf("Emitter %q of particle system %q not found", rec.EmitterID, rec.Name)
		}
		ps.SetEmitter(emitter)
	}

	ref := TextureRef{Payload: rec.Base64Texture, Name: rec.Base64TextureName}
	if ref.Name == "" {
		ref.Name = rec.TextureName
	}
	return ctx.Scene.AddParticleSystem(ps), ref, nil
}

type lensFlareSystemRecord struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	EmitterID   string `json:"emitterId"`
	BorderLimit int    `json:"borderLimit"`
	Flares      []struct {
		Size         float32   `json:"size"`
		Position     float32   `json:"position"`
		Color        []float32 `json:"color"`
		Base64Name   string    `json:"base64Name"`
		Base64Buffer string    `json:"base64Buffer"`
		TextureName  string    `json:"textureName"`
	} `json:"flares"`
}

// ParseLensFlareSystem returns one texture reference per flare
func ParseLensFlareSystem(ctx *Context, raw json.RawMessage) (*scene.LensFlareSystem, []TextureRef, error) {
	var rec lensFlareSystemRecord
	if err := unmarshal(raw, &rec, "lens flare system"); err != nil {
		return nil, nil, err
	}
	emitter := ctx.Scene.GetNodeByID(rec.EmitterID)
	if emitter == nil {
		return nil, nil, errors.Errorf("Emitter %q of lens flare system not found", rec.EmitterID)
	}

	lf := &scene.LensFlareSystem{
		ID:          rec.ID,
		Name:        rec.Name,
		Emitter:     emitter,
		BorderLimit: rec.BorderLimit,
	}
	if lf.Name == "" {
		lf.Name = fmt.Sprintf("lensFlareSystem#%s", rec.ID)
	}
	if lf.BorderLimit == 0 {
		lf.BorderLimit = 300
	}

	refs := make([]TextureRef, len(rec.Flares))
	for i, f := range rec.Flares {
		c, err := utils.Vec3FromSliceOr(f.Color, mgl32.Vec3{1, 1, 1})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Invalid color of flare %d", i)
		}
		lf.Flares = append(lf.Flares, &scene.LensFlare{Size: f.Size, Position: f.Position, Color: c})
		refs[i] = TextureRef{Payload: f.Base64Buffer, Name: f.Base64Name}
		if refs[i].Name == "" {
			refs[i].Name = f.TextureName
		}
	}
	return ctx.Scene.AddLensFlareSystem(lf), refs, nil
}

type shadowGeneratorRecord struct {
	LightID                     string   `json:"lightId"`
	MapSize                     int      `json:"mapSize"`
	RenderList                  []string `json:"renderList"`
	Bias                        *float32 `json:"bias"`
	Darkness                    float32  `json:"darkness"`
	UseVarianceShadowMap        bool     `json:"useVarianceShadowMap"`
	UsePoissonSampling          bool     `json:"usePoissonSampling"`
	UseBlurExponentialShadowMap bool     `json:"useBlurExponentialShadowMap"`
}

// ParseShadowGenerator keeps unresolved render list ids as nil entries
func ParseShadowGenerator(ctx *Context, raw json.RawMessage) (*scene.ShadowGenerator, error) {
	var rec shadowGeneratorRecord
	if err := unmarshal(raw, &rec, "shadow generator"); err != nil {
		return nil, err
	}
	light := ctx.Scene.GetLightByID(rec.LightID)
	if light == nil {
		return nil, errors.Errorf("Light %q of shadow generator not found", rec.LightID)
	}

	sg := &scene.ShadowGenerator{
		Light:                light,
		MapSize:              rec.MapSize,
		Bias:                 0.00005,
		Darkness:             rec.Darkness,
		UseVarianceShadowMap: rec.UseVarianceShadowMap,
		UsePoissonSampling:   rec.UsePoissonSampling,
		UseBlurExponential:   rec.UseBlurExponentialShadowMap,
	}
	if sg.MapSize <= 0 {
		sg.MapSize = 1024
	}
	if rec.Bias != nil {
		sg.Bias = *rec.Bias
	}
	for _, id := range rec.RenderList {
		sg.RenderList = append(sg.RenderList, ctx.Scene.GetMeshByID(id))
	}
	return ctx.Scene.AddShadowGenerator(sg), nil
}

type soundRecord struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Autoplay        bool     `json:"autoplay"`
	Loop            bool     `json:"loop"`
	Volume          *float32 `json:"volume"`
	SpatialSound    bool     `json:"spatialSound"`
	ConnectedMeshID string   `json:"connectedMeshId"`
}

// ParseSound uses name over the payload name when given
func ParseSound(ctx *Context, name string, raw json.RawMessage) (*scene.Sound, error) {
	var rec soundRecord
	if err := unmarshal(raw, &rec, "sound"); err != nil {
		return nil, err
	}
	if name == "" {
		name = rec.Name
	}
	if name == "" {
		return nil, errors.Errorf("Sound without name")
	}

	s := &scene.Sound{
		Name:            name,
		URL:             rec.URL,
		Volume:          1,
		Autoplay:        rec.Autoplay,
		Loop:            rec.Loop,
		Spatial:         rec.SpatialSound,
		ConnectedMeshID: rec.ConnectedMeshID,
		Values:          append(json.RawMessage(nil), raw...),
	}
	if s.URL == "" {
		s.URL = ctx.RootURL + name
	}
	if rec.Volume != nil {
		s.Volume = *rec.Volume
	}
	if rec.ConnectedMeshID != "" {
		s.ConnectedMesh = ctx.Scene.GetMeshByID(rec.ConnectedMeshID)
	}
	return ctx.Scene.AddSound(s), nil
}
