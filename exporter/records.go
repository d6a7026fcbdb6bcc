package exporter

import (
	"encoding/json"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/texture"
	"github.com/mogaika/scene_project/utils"
)

type object map[string]interface{}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Panicf("[exporter] Failed to marshal %T: %v", v, err)
	}
	return data
}

// merge overlays fields on the retained serialized form, dropped keys are
// aliases that would shadow the written ones on import
func merge(values json.RawMessage, fields object, drop ...string) json.RawMessage {
	result := make(object)
	if len(values) != 0 {
		if err := json.Unmarshal(values, &result); err != nil {
			result = make(object)
		}
	}
	for _, k := range drop {
		delete(result, k)
	}
	for k, v := range fields {
		result[k] = v
	}
	return mustMarshal(result)
}

func color4(v mgl32.Vec4) []float32 { return []float32{v[0], v[1], v[2], v[3]} }

func nodeIDs(nodes []*scene.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func parentID(n *scene.Node) string {
	if n.Parent != nil {
		return n.Parent.ID
	}
	return n.WaitingParentID
}

func transform(n *scene.Node, o object) object {
	o["position"] = utils.Vec3ToSlice(n.Position)
	o["rotation"] = utils.Vec3ToSlice(n.Rotation)
	o["scaling"] = utils.Vec3ToSlice(n.Scaling)
	if id := parentID(n); id != "" {
		o["parentId"] = id
	}
	return o
}

func geometryRecord(g *scene.Geometry) object {
	o := object{
		"id":        g.ID,
		"positions": g.Positions,
		"indices":   g.Indices,
	}
	if len(g.Normals) != 0 {
		o["normals"] = g.Normals
	}
	if len(g.UVs) != 0 {
		o["uvs"] = g.UVs
	}
	return o
}

func meshPayload(n *scene.Node) json.RawMessage {
	mesh := transform(n, object{
		"name":      n.Name,
		"id":        n.ID,
		"isVisible": n.IsVisible,
		"isEnabled": n.IsEnabled,
	})
	vertexData := make([]object, 0, 1)
	if n.Geometry != nil {
		mesh["geometryId"] = n.Geometry.ID
		vertexData = append(vertexData, geometryRecord(n.Geometry))
	}
	if n.Material != nil {
		mesh["materialId"] = n.Material.ID
	}
	return mustMarshal(object{
		"meshes":     []object{mesh},
		"geometries": object{"vertexData": vertexData},
	})
}

func instancePayload(n *scene.Node) json.RawMessage {
	o := transform(n, object{"name": n.Name})
	if n.SourceMesh != nil {
		o["sourceMesh"] = n.SourceMesh.ID
	}
	return mustMarshal(o)
}

func lightPayload(n *scene.Node) json.RawMessage {
	l := n.Light
	o := object{
		"name":      n.Name,
		"id":        n.ID,
		"type":      int(l.Type),
		"position":  utils.Vec3ToSlice(n.Position),
		"direction": utils.Vec3ToSlice(l.Direction),
		"diffuse":   utils.Vec3ToSlice(l.Diffuse),
		"specular":  utils.Vec3ToSlice(l.Specular),
		"intensity": l.Intensity,
		"range":     l.Range,
		"angle":     l.Angle,
		"exponent":  l.Exponent,
	}
	if id := parentID(n); id != "" {
		o["parentId"] = id
	}
	return mustMarshal(o)
}

func cameraPayload(n *scene.Node) json.RawMessage {
	c := n.Camera
	return mustMarshal(transform(n, object{
		"name":   n.Name,
		"id":     n.ID,
		"type":   c.Type,
		"target": utils.Vec3ToSlice(c.Target),
		"fov":    c.Fov,
		"minZ":   c.MinZ,
		"maxZ":   c.MaxZ,
		"speed":  c.Speed,
	}))
}

func animationPayload(a *scene.Animation) json.RawMessage {
	keys := make([]object, len(a.Keys))
	for i, k := range a.Keys {
		keys[i] = object{"frame": k.Frame, "values": k.Values}
	}
	return mustMarshal(object{
		"name":           a.Name,
		"property":       a.TargetProperty,
		"framePerSecond": a.FramePerSecond,
		"dataType":       a.DataType,
		"loopBehavior":   a.LoopBehavior,
		"keys":           keys,
		"events":         animationEvents(a),
	})
}

func animationEvents(a *scene.Animation) []object {
	events := make([]object, len(a.Events))
	for i, e := range a.Events {
		events[i] = object{"frame": e.Frame, "name": e.Name}
	}
	return events
}

func actionNode(an *scene.ActionNode) object {
	properties := make([]object, len(an.Properties))
	for i, p := range an.Properties {
		properties[i] = object{"name": p.Name, "value": p.Value, "targetType": p.TargetType}
	}
	o := object{
		"type":       int(an.Type),
		"name":       an.Name,
		"detached":   an.Detached,
		"properties": properties,
		"children":   actionNodes(an.Children),
	}
	if len(an.Combine) != 0 {
		o["combine"] = actionNodes(an.Combine)
	}
	return o
}

func actionNodes(nodes []*scene.ActionNode) []object {
	result := make([]object, len(nodes))
	for i, an := range nodes {
		result[i] = actionNode(an)
	}
	return result
}

func actionManagerPayload(am *scene.ActionManager) json.RawMessage {
	return mustMarshal(object{
		"name":     am.Name,
		"children": actionNodes(am.Triggers),
	})
}

func textureRecord(tex *scene.Texture) object {
	o := object{
		"name":           tex.Name,
		"level":          tex.Level,
		"hasAlpha":       tex.HasAlpha,
		"isRenderTarget": tex.IsRenderTarget,
		"isCube":         tex.IsCube,
	}
	if tex.IsRenderTarget {
		return o
	}
	if data := texture.Encode(tex); data != "" {
		o["base64String"] = data
	} else if tex.URL != "" {
		o["url"] = tex.URL
	}
	return o
}

var materialAliases = []string{
	"diffuseColor", "specularColor", "emissiveColor", "ambientColor",
	"albedo", "albedoColor", "baseColor",
	"albedoTexture", "baseTexture", "normalTexture",
}

func materialValues(m *scene.Material) json.RawMessage {
	fields := object{
		"customType":      m.CustomType,
		"name":            m.Name,
		"id":              m.ID,
		"diffuse":         utils.Vec3ToSlice(m.Diffuse),
		"specular":        utils.Vec3ToSlice(m.Specular),
		"emissive":        utils.Vec3ToSlice(m.Emissive),
		"ambient":         utils.Vec3ToSlice(m.Ambient),
		"alpha":           m.Alpha,
		"metallic":        m.Metallic,
		"roughness":       m.Roughness,
		"backFaceCulling": m.BackFaceCulling,
		"wireframe":       m.Wireframe,
	}
	slots := []struct {
		key string
		tex *scene.Texture
	}{
		{"diffuseTexture", m.DiffuseTexture},
		{"bumpTexture", m.BumpTexture},
		{"reflectionTexture", m.ReflectionTexture},
		{"emissiveTexture", m.EmissiveTexture},
	}
	drop := append([]string(nil), materialAliases...)
	for _, slot := range slots {
		if slot.tex != nil {
			fields[slot.key] = textureRecord(slot.tex)
		} else {
			drop = append(drop, slot.key)
		}
	}
	return merge(m.Values, fields, drop...)
}

func renderTargetPayload(rt *scene.RenderTargetTexture) json.RawMessage {
	return merge(rt.Values, object{
		"name":             rt.Name,
		"size":             rt.Size,
		"renderTargetSize": rt.Size,
		"generateMipMaps":  rt.GenerateMipMaps,
		"refreshRate":      rt.RefreshRate,
		"level":            rt.Texture.Level,
		"hasAlpha":         rt.Texture.HasAlpha,
		"renderList":       nodeIDs(rt.RenderList),
	})
}

func probePayload(rp *scene.ReflectionProbe) json.RawMessage {
	o := object{
		"name":            rp.Name,
		"size":            rp.Size,
		"generateMipMaps": rp.GenerateMipMaps,
		"renderList":      nodeIDs(rp.RenderList),
	}
	if rp.AttachedMesh != nil {
		o["attachedMeshId"] = rp.AttachedMesh.ID
	}
	return mustMarshal(o)
}

func particleSystemPayload(ps *scene.ParticleSystem) json.RawMessage {
	fields := object{
		"name":        ps.Name,
		"id":          ps.ID,
		"capacity":    ps.Capacity,
		"emitRate":    ps.EmitRate,
		"minSize":     ps.MinSize,
		"maxSize":     ps.MaxSize,
		"minLifeTime": ps.MinLifeTime,
		"maxLifeTime": ps.MaxLifeTime,
		"color1":      color4(ps.Color1),
		"color2":      color4(ps.Color2),
		"gravity":     utils.Vec3ToSlice(ps.Gravity),
		"direction1":  utils.Vec3ToSlice(ps.Direction1),
		"direction2":  utils.Vec3ToSlice(ps.Direction2),
	}
	drop := []string{"base64Texture", "base64TextureName", "emitterId"}
	if ps.Emitter != nil {
		fields["emitterId"] = ps.Emitter.ID
	}
	if ps.Texture != nil {
		if data := texture.Encode(ps.Texture); data != "" {
			fields["base64Texture"] = data
			fields["base64TextureName"] = ps.Texture.Name
		} else {
			fields["textureName"] = ps.Texture.Name
		}
	}
	return merge(ps.Values, fields, drop...)
}

func lensFlarePayload(lf *scene.LensFlareSystem) json.RawMessage {
	flares := make([]object, len(lf.Flares))
	for i, f := range lf.Flares {
		o := object{
			"size":     f.Size,
			"position": f.Position,
			"color":    utils.Vec3ToSlice(f.Color),
		}
		if f.Texture != nil {
			if data := texture.Encode(f.Texture); data != "" {
				o["base64Buffer"] = data
				o["base64Name"] = f.Texture.Name
			} else {
				o["textureName"] = f.Texture.Name
			}
		}
		flares[i] = o
	}
	o := object{
		"id":          lf.ID,
		"name":        lf.Name,
		"borderLimit": lf.BorderLimit,
		"flares":      flares,
	}
	if lf.Emitter != nil {
		o["emitterId"] = lf.Emitter.ID
	}
	return mustMarshal(o)
}

func shadowGeneratorPayload(sg *scene.ShadowGenerator) json.RawMessage {
	return mustMarshal(object{
		"lightId":                     sg.Light.ID,
		"mapSize":                     sg.MapSize,
		"renderList":                  nodeIDs(sg.RenderList),
		"bias":                        sg.Bias,
		"darkness":                    sg.Darkness,
		"useVarianceShadowMap":        sg.UseVarianceShadowMap,
		"usePoissonSampling":          sg.UsePoissonSampling,
		"useBlurExponentialShadowMap": sg.UseBlurExponential,
	})
}

func soundPayload(s *scene.Sound) json.RawMessage {
	fields := object{
		"name":         s.Name,
		"url":          s.URL,
		"volume":       s.Volume,
		"autoplay":     s.Autoplay,
		"loop":         s.Loop,
		"spatialSound": s.Spatial,
	}
	if s.ConnectedMesh != nil {
		fields["connectedMeshId"] = s.ConnectedMesh.ID
	} else if s.ConnectedMeshID != "" {
		fields["connectedMeshId"] = s.ConnectedMeshID
	}
	return merge(s.Values, fields)
}

func effectLayerPayload(el *scene.EffectLayer) json.RawMessage {
	return merge(el.Options, object{
		"customType": el.Type,
		"name":       el.Name,
	})
}
