package factory

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/utils"
)

type textureRecord struct {
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	Level          float32 `json:"level"`
	HasAlpha       bool    `json:"hasAlpha"`
	IsRenderTarget bool    `json:"isRenderTarget"`
	IsCube         bool    `json:"isCube"`
	Base64String   string  `json:"base64String"`
}

type materialRecord struct {
	CustomType string `json:"customType"`
	Name       string `json:"name"`
	ID         string `json:"id"`

	Diffuse       []float32 `json:"diffuse"`
	DiffuseColor  []float32 `json:"diffuseColor"`
	Specular      []float32 `json:"specular"`
	SpecularColor []float32 `json:"specularColor"`
	Emissive      []float32 `json:"emissive"`
	EmissiveColor []float32 `json:"emissiveColor"`
	Ambient       []float32 `json:"ambient"`
	AmbientColor  []float32 `json:"ambientColor"`

	Albedo      []float32 `json:"albedo"`
	AlbedoColor []float32 `json:"albedoColor"`
	BaseColor   []float32 `json:"baseColor"`

	Alpha           *float32 `json:"alpha"`
	Metallic        *float32 `json:"metallic"`
	Roughness       *float32 `json:"roughness"`
	BackFaceCulling *bool    `json:"backFaceCulling"`
	Wireframe       bool     `json:"wireframe"`

	DiffuseTexture    *textureRecord `json:"diffuseTexture"`
	AlbedoTexture     *textureRecord `json:"albedoTexture"`
	BaseTexture       *textureRecord `json:"baseTexture"`
	BumpTexture       *textureRecord `json:"bumpTexture"`
	NormalTexture     *textureRecord `json:"normalTexture"`
	ReflectionTexture *textureRecord `json:"reflectionTexture"`
	EmissiveTexture   *textureRecord `json:"emissiveTexture"`
}

// firstColor picks the first non empty color, names are the serialized aliases
func firstColor(def mgl32.Vec3, colors ...[]float32) (mgl32.Vec3, error) {
	for _, c := range colors {
		if len(c) != 0 {
			return utils.Color3FromSlice(c)
		}
	}
	return def, nil
}

func firstTexture(refs ...*textureRecord) *textureRecord {
	for _, r := range refs {
		if r != nil {
			return r
		}
	}
	return nil
}

// resolveTexture finds or creates the texture a material slot references.
// Render target textures must already exist in the scene.
func resolveTexture(ctx *Context, rec *textureRecord) (*scene.Texture, error) {
	if rec == nil {
		return nil, nil
	}
	if rec.Base64String != "" {
		tex, err := ctx.Textures.Decode(rec.Base64String, rec.Name)
		if err != nil {
			return nil, err
		}
		tex.HasAlpha = rec.HasAlpha
		if rec.Level != 0 {
			tex.Level = rec.Level
		}
		return ctx.Scene.AddTexture(tex), nil
	}

	existing := ctx.Scene.GetTextureByName(rec.Name)
	if rec.IsRenderTarget {
		if existing == nil || !existing.IsRenderTarget {
			return nil, errors.Errorf("Render target texture not found: %q", rec.Name)
		}
		return existing, nil
	}
	if existing != nil {
		return existing, nil
	}
	if rec.Name == "" {
		return nil, errors.Errorf("Texture without name")
	}

	url := rec.URL
	if url == "" {
		url = ctx.RootURL + rec.Name
	}
	level := rec.Level
	if level == 0 {
		level = 1
	}
	return ctx.Scene.AddTexture(&scene.Texture{
		Name:     rec.Name,
		URL:      url,
		Level:    level,
		HasAlpha: rec.HasAlpha,
		IsCube:   rec.IsCube,
	}), nil
}

func parseMaterialCommon(ctx *Context, customType string, values json.RawMessage) (*scene.Material, *materialRecord, error) {
	var rec materialRecord
	if err := unmarshal(values, &rec, "material"); err != nil {
		return nil, nil, err
	}

	id := rec.ID
	if id == "" {
		id = rec.Name
	}
	m := scene.NewMaterial(customType, id, rec.Name)
	m.Values = append(json.RawMessage(nil), values...)
	m.Wireframe = rec.Wireframe
	if rec.Alpha != nil {
		m.Alpha = *rec.Alpha
	}
	if rec.BackFaceCulling != nil {
		m.BackFaceCulling = *rec.BackFaceCulling
	}
	if rec.Metallic != nil {
		m.Metallic = *rec.Metallic
	}
	if rec.Roughness != nil {
		m.Roughness = *rec.Roughness
	}

	var err error
	if m.Specular, err = firstColor(m.Specular, rec.Specular, rec.SpecularColor); err != nil {
		return nil, nil, errors.Wrapf(err, "Invalid specular color of material %q", rec.Name)
	}
	if m.Emissive, err = firstColor(m.Emissive, rec.Emissive, rec.EmissiveColor); err != nil {
		return nil, nil, errors.Wrapf(err, "Invalid emissive color of material %q", rec.Name)
	}
	if m.Ambient, err = firstColor(m.Ambient, rec.Ambient, rec.AmbientColor); err != nil {
		return nil, nil, errors.Wrapf(err, "Invalid ambient color of material %q", rec.Name)
	}

	slots := []struct {
		dst **scene.Texture
		rec *textureRecord
	}{
		{&m.DiffuseTexture, firstTexture(rec.DiffuseTexture, rec.AlbedoTexture, rec.BaseTexture)},
		{&m.BumpTexture, firstTexture(rec.BumpTexture, rec.NormalTexture)},
		{&m.ReflectionTexture, rec.ReflectionTexture},
		{&m.EmissiveTexture, rec.EmissiveTexture},
	}
	for _, slot := range slots {
		tex, err := resolveTexture(ctx, slot.rec)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Failed to resolve texture of material %q", rec.Name)
		}
		*slot.dst = tex
	}
	return m, &rec, nil
}

func parseStandardMaterial(ctx *Context, values json.RawMessage) (*scene.Material, error) {
	m, rec, err := parseMaterialCommon(ctx, "StandardMaterial", values)
	if err != nil {
		return nil, err
	}
	if m.Diffuse, err = firstColor(m.Diffuse, rec.Diffuse, rec.DiffuseColor); err != nil {
		return nil, errors.Wrapf(err, "Invalid diffuse color of material %q", rec.Name)
	}
	return ctx.Scene.AddMaterial(m), nil
}

func parsePBRMaterial(ctx *Context, values json.RawMessage) (*scene.Material, error) {
	m, rec, err := parseMaterialCommon(ctx, "PBRMaterial", values)
	if err != nil {
		return nil, err
	}
	if m.Diffuse, err = firstColor(m.Diffuse, rec.Albedo, rec.AlbedoColor, rec.Diffuse, rec.DiffuseColor); err != nil {
		return nil, errors.Wrapf(err, "Invalid albedo color of material %q", rec.Name)
	}
	return ctx.Scene.AddMaterial(m), nil
}

func parsePBRMetallicRoughnessMaterial(ctx *Context, values json.RawMessage) (*scene.Material, error) {
	m, rec, err := parseMaterialCommon(ctx, "PBRMetallicRoughnessMaterial", values)
	if err != nil {
		return nil, err
	}
	if m.Diffuse, err = firstColor(m.Diffuse, rec.BaseColor, rec.Diffuse, rec.DiffuseColor); err != nil {
		return nil, errors.Wrapf(err, "Invalid base color of material %q", rec.Name)
	}
	return ctx.Scene.AddMaterial(m), nil
}

func parseSkyMaterial(ctx *Context, values json.RawMessage) (*scene.Material, error) {
	m, _, err := parseMaterialCommon(ctx, "SkyMaterial", values)
	if err != nil {
		return nil, err
	}
	m.BackFaceCulling = false
	return ctx.Scene.AddMaterial(m), nil
}

// ParseMaterial dispatches on the customType stored in values
func ParseMaterial(ctx *Context, values json.RawMessage) (*scene.Material, error) {
	var header struct {
		CustomType string `json:"customType"`
	}
	if err := unmarshal(values, &header, "material"); err != nil {
		return nil, err
	}
	if header.CustomType == "" {
		return nil, errors.Errorf("Material without customType")
	}
	p, ok := GetMaterialType(header.CustomType)
	if !ok {
		return nil, errors.Errorf("Unknown material type %q", header.CustomType)
	}
	return p(ctx, values)
}

func init() {
	SetMaterialType("StandardMaterial", parseStandardMaterial)
	SetMaterialType("PBRMaterial", parsePBRMaterial)
	SetMaterialType("PBRMetallicRoughnessMaterial", parsePBRMetallicRoughnessMaterial)
	SetMaterialType("SkyMaterial", parseSkyMaterial)
}
