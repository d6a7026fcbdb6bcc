package factory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
)

func newTestContext() *Context {
	return NewContext(scene.New("test"))
}

func TestMaterialRegistry(t *testing.T) {
	for _, test := range []struct {
		customType string
		found      bool
	}{
		{"StandardMaterial", true},
		{"BABYLON.StandardMaterial", true},
		{"BABYLON.PBRMaterial", true},
		{"PBRMetallicRoughnessMaterial", true},
		{"BABYLON.SkyMaterial", true},
		{"BABYLON.FurMaterial", false},
		{"", false},
	} {
		if _, found := GetMaterialType(test.customType); found != test.found {
			t.Errorf("GetMaterialType(%q)=%v; expected %v", test.customType, found, test.found)
		}
	}
}

func TestParseMaterial(t *testing.T) {
	ctx := newTestContext()
	m, err := ParseMaterial(ctx, json.RawMessage(`{"customType": "StandardMaterial", "name": "Red", "diffuseColor": [1, 0, 0], "alpha": 0.5}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "Red" || m.ID != "Red" || m.Diffuse != (mgl32.Vec3{1, 0, 0}) || m.Alpha != 0.5 {
		t.Errorf("ParseMaterial=%+v", m)
	}
	if ctx.Scene.GetMaterialByName("Red") != m {
		t.Errorf("material not registered in scene")
	}

	pbr, err := ParseMaterial(ctx, json.RawMessage(`{"customType": "BABYLON.PBRMaterial", "name": "Gold", "id": "g", "albedo": [1, 0.8, 0, 1], "metallic": 0.9}`))
	if err != nil {
		t.Fatal(err)
	}
	if pbr.CustomType != "PBRMaterial" || pbr.Diffuse != (mgl32.Vec3{1, 0.8, 0}) || pbr.Metallic != 0.9 {
		t.Errorf("ParseMaterial(PBR)=%+v", pbr)
	}

	for _, values := range []string{
		`{"customType": "StandardMaterial", "diffuse": [1, 0]}`,
		`{"customType": "NoSuchMaterial"}`,
		`{"name": "untyped"}`,
		`[1, 2, 3]`,
		`null`,
	} {
		if _, err := ParseMaterial(ctx, json.RawMessage(values)); err == nil {
			t.Errorf("ParseMaterial(%s) expected error", values)
		}
	}
}

func TestMaterialRenderTargetReference(t *testing.T) {
	values := json.RawMessage(`{"customType": "StandardMaterial", "name": "Mirror", "reflectionTexture": {"name": "mirror", "isRenderTarget": true}}`)

	ctx := newTestContext()
	_, err := ParseMaterial(ctx, values)
	if err == nil || !strings.Contains(err.Error(), "texture not found") {
		t.Fatalf("ParseMaterial before render target=%v; expected texture not found", err)
	}

	if _, err := ParseRenderTargetTexture(ctx, json.RawMessage(`{"name": "mirror", "renderTargetSize": 256, "isRenderTarget": true}`)); err != nil {
		t.Fatal(err)
	}
	m, err := ParseMaterial(ctx, values)
	if err != nil {
		t.Fatalf("ParseMaterial after render target=%v", err)
	}
	if m.ReflectionTexture == nil || m.ReflectionTexture != ctx.Scene.RenderTargets[0].Texture {
		t.Errorf("reflection texture not bound to render target")
	}
}

func TestMaterialTextureByURL(t *testing.T) {
	ctx := newTestContext()
	ctx.RootURL = "assets/"
	m, err := ParseMaterial(ctx, json.RawMessage(`{"customType": "StandardMaterial", "name": "Wood", "diffuseTexture": {"name": "wood.png", "level": 0.5}}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.DiffuseTexture == nil || m.DiffuseTexture.URL != "assets/wood.png" || m.DiffuseTexture.Level != 0.5 {
		t.Errorf("DiffuseTexture=%+v", m.DiffuseTexture)
	}
}

func TestParseMeshes(t *testing.T) {
	ctx := newTestContext()
	raw := json.RawMessage(`{
		"geometries": {"vertexData": [{"id": "g1", "positions": [0,0,0, 1,0,0, 0,1,0], "indices": [0, 1, 2]}]},
		"meshes": [
			{"name": "Parent", "id": "p", "position": [0, 0, 0], "geometryId": "g1"},
			{"name": "Child", "id": "c", "position": [1, 2, 3], "rotationQuaternion": [0, 0, 0, 1], "scaling": [2, 2, 2], "parentId": "p", "geometryId": "g1"},
			{"name": "Orphan", "id": "o", "position": [0, 0, 0], "parentId": "later"}
		]
	}`)
	meshes, err := ParseMeshes(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 3 || len(ctx.Scene.Geometries) != 1 {
		t.Fatalf("ParseMeshes produced %d meshes, %d geometries", len(meshes), len(ctx.Scene.Geometries))
	}
	child := meshes[1]
	if child.Parent != meshes[0] || child.Position != (mgl32.Vec3{1, 2, 3}) || child.Scaling != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("child=%+v", child)
	}
	if child.Geometry == nil || child.Geometry != meshes[0].Geometry {
		t.Errorf("geometry not shared")
	}
	if meshes[2].Parent != nil || meshes[2].WaitingParentID != "later" {
		t.Errorf("unresolved parent must be kept as waiting id")
	}

	// shared geometry parsed twice is kept once
	if _, err := ParseMeshes(ctx, json.RawMessage(`{"geometries": {"vertexData": [{"id": "g1", "positions": []}]}, "meshes": []}`)); err != nil {
		t.Fatal(err)
	}
	if len(ctx.Scene.Geometries) != 1 {
		t.Errorf("geometry duplicated")
	}
}

func TestParseMeshInvalid(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"meshes": [{"name": "NoID", "position": [0, 0, 0]}]}`,
		`{"meshes": [{"name": "NoPosition", "id": "x"}]}`,
		`{"meshes": [{"name": "Bad", "id": "x", "position": [0, 0]}]}`,
		`{"meshes": [{"name": "Bad", "id": "x", "position": [0, 0, 0], "positions": [0, 0, 0], "indices": [3]}]}`,
		`{"meshes": "nope"}`,
	} {
		ctx := newTestContext()
		if _, err := ParseMeshes(ctx, json.RawMessage(raw)); err == nil {
			t.Errorf("ParseMeshes(%s) expected error", raw)
		}
	}
}

func TestParseLightCamera(t *testing.T) {
	ctx := newTestContext()
	l, err := ParseLight(ctx, json.RawMessage(`{"name": "Sun", "id": "sun", "type": 1, "direction": [0, -1, 0], "intensity": 0.7, "diffuse": [1, 1, 0.9]}`))
	if err != nil {
		t.Fatal(err)
	}
	if l.Light.Type != scene.DirectionalLight || l.Light.Intensity != 0.7 || l.Light.Direction != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("ParseLight=%+v", l.Light)
	}
	if _, err := ParseLight(ctx, json.RawMessage(`{"name": "Bad", "id": "b", "type": 9}`)); err == nil {
		t.Errorf("ParseLight(type 9) expected error")
	}

	c, err := ParseCamera(ctx, json.RawMessage(`{"name": "Cam", "id": "cam", "type": "ArcRotateCamera", "position": [0, 5, -10], "fov": 1.2, "parentId": "sun"}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Camera.Type != "ArcRotateCamera" || c.Camera.Fov != 1.2 || c.Camera.MinZ != 1 || c.Parent != l {
		t.Errorf("ParseCamera=%+v parent %v", c.Camera, c.Parent)
	}
}

func TestParseInstancedMesh(t *testing.T) {
	ctx := newTestContext()
	source, err := ParseMesh(ctx, json.RawMessage(`{"name": "Tree", "id": "tree", "position": [0, 0, 0]}`))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := ParseInstancedMesh(ctx, "tree2", json.RawMessage(`{"name": "Tree2", "sourceMesh": "tree", "position": [5, 0, 0]}`))
	if err != nil || inst == nil {
		t.Fatalf("ParseInstancedMesh=%v, %v", inst, err)
	}
	if inst.SourceMesh != source || inst.Kind != scene.NodeInstancedMesh || inst.ID != "tree2" {
		t.Errorf("instance=%+v", inst)
	}
	gone, err := ParseInstancedMesh(ctx, "x", json.RawMessage(`{"name": "X", "sourceMesh": "missing"}`))
	if gone != nil || err != nil {
		t.Errorf("ParseInstancedMesh(missing source)=%v, %v; expected nil, nil", gone, err)
	}
}

func TestParseAnimation(t *testing.T) {
	a, err := ParseAnimation(json.RawMessage(`{"name": "move", "property": "position", "framePerSecond": 30, "dataType": 1, "loopBehavior": 1,
		"keys": [{"frame": 0, "values": [0, 0, 0]}, {"frame": 30, "values": [0, 1, 0]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if from, to := a.Range(); from != 0 || to != 30 || a.TargetProperty != "position" {
		t.Errorf("ParseAnimation=%+v", a)
	}

	for _, raw := range []string{
		`{"name": "noProperty", "dataType": 0, "keys": []}`,
		`{"name": "badType", "property": "x", "dataType": 42, "keys": []}`,
		`{"name": "badKey", "property": "position", "dataType": 1, "keys": [{"frame": 0, "values": [0, 0]}]}`,
		`{"name": "unsorted", "property": "x", "dataType": 0, "keys": [{"frame": 10, "values": [0]}, {"frame": 0, "values": [1]}]}`,
	} {
		if _, err := ParseAnimation(json.RawMessage(raw)); err == nil {
			t.Errorf("ParseAnimation(%s) expected error", raw)
		}
	}
}

func TestParseActionManager(t *testing.T) {
	owner := scene.NewNode(scene.NodeMesh, "m", "m")
	am, err := ParseActionManager(json.RawMessage(`{"name": "ActionManager", "type": 0, "children": [
		{"type": 0, "name": "OnPickTrigger", "properties": [], "children": [
			{"type": 1, "name": "SetValueAction", "properties": [{"name": "value", "value": "1", "targetType": "MeshProperties"}, {"name": "n", "value": 3}], "children": []}
		]}
	]}`), owner)
	if err != nil {
		t.Fatal(err)
	}
	if am.Owner != owner || len(am.Triggers) != 1 || am.CountActions() != 1 {
		t.Fatalf("ParseActionManager=%+v", am)
	}
	props := am.Triggers[0].Children[0].Properties
	if props[0].Value != "1" || props[1].Value != "3" {
		t.Errorf("properties=%+v", props)
	}

	for _, raw := range []string{
		`{"name": "x"}`,
		`{"children": [{"type": 1, "name": "ActionAtRoot"}]}`,
		`{"children": [{"type": 0, "name": "T", "children": [{"type": 0, "name": "NestedTrigger"}]}]}`,
		`{"children": [{"name": "NoType"}]}`,
	} {
		if _, err := ParseActionManager(json.RawMessage(raw), nil); err == nil {
			t.Errorf("ParseActionManager(%s) expected error", raw)
		}
	}
}

func TestParseParticleSystem(t *testing.T) {
	ctx := newTestContext()
	emitter := NewEmitterPlaceholder(ctx, "e1", "emitter")
	ps, ref, err := ParseParticleSystem(ctx, json.RawMessage(`{"name": "fire", "capacity": 100, "emitterId": "e1",
		"base64Texture": "data:image/png;base64,AAAA", "base64TextureName": "data:flame.png", "color1": [1, 0, 0, 1]}`))
	if err != nil {
		t.Fatal(err)
	}
	if ps.Emitter != emitter || emitter.AttachedParticleSystem != ps {
		t.Errorf("emitter not linked")
	}
	if ref.Payload == "" || ref.Name != "data:flame.png" {
		t.Errorf("texture ref=%+v", ref)
	}

	for _, raw := range []string{
		`{"name": "noCapacity", "emitterId": "e1"}`,
		`{"name": "missingEmitter", "capacity": 10, "emitterId": "nope"}`,
		`{"name": "badColor", "capacity": 10, "color1": [1]}`,
	} {
		if _, _, err := ParseParticleSystem(ctx, json.RawMessage(raw)); err == nil {
			t.Errorf("ParseParticleSystem(%s) expected error", raw)
		}
	}
}

func TestParseShadowGeneratorKeepsUnresolved(t *testing.T) {
	ctx := newTestContext()
	light, _ := ParseLight(ctx, json.RawMessage(`{"name": "l", "id": "l", "type": 1}`))
	ParseMesh(ctx, json.RawMessage(`{"name": "a", "id": "a", "position": [0, 0, 0]}`))

	sg, err := ParseShadowGenerator(ctx, json.RawMessage(`{"lightId": "l", "mapSize": 512, "renderList": ["a", "gone"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(sg.RenderList) != 2 || sg.RenderList[1] != nil {
		t.Errorf("RenderList=%v; expected [a nil]", sg.RenderList)
	}
	if light.Light.ShadowGenerator != sg {
		t.Errorf("shadow generator not linked to light")
	}
	if _, err := ParseShadowGenerator(ctx, json.RawMessage(`{"lightId": "nope"}`)); err == nil {
		t.Errorf("ParseShadowGenerator(missing light) expected error")
	}
}

func TestPostProcessFactories(t *testing.T) {
	ctx := newTestContext()
	ParseCamera(ctx, json.RawMessage(`{"name": "c1", "id": "c1"}`))
	ParseCamera(ctx, json.RawMessage(`{"name": "c2", "id": "c2"}`))

	for _, name := range []string{"StandardRenderingPipeline", "HDRPipeline", "SSAOPipeline", "SSAO2Pipeline", "VLSPostProcess"} {
		f, ok := GetPostProcessFactory(PostProcessKey(name))
		if !ok {
			t.Errorf("GetPostProcessFactory(%q) not registered", PostProcessKey(name))
			continue
		}
		pp, err := f(ctx, json.RawMessage(`{"ratio": 0.75}`))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(pp.Cameras) != 2 {
			t.Errorf("%s attached to %d cameras; expected 2", name, len(pp.Cameras))
		}
		var opts map[string]interface{}
		if err := json.Unmarshal(pp.Options, &opts); err != nil || opts["ratio"] != 0.75 {
			t.Errorf("%s options=%s", name, pp.Options)
		}
	}

	f, _ := GetPostProcessFactory("CreateSSAOPipeline")
	if _, err := f(ctx, json.RawMessage(`{"ratio": 4}`)); err == nil {
		t.Errorf("invalid ratio expected error")
	}
	if _, ok := GetPostProcessFactory("CreateNothing"); ok {
		t.Errorf("unexpected factory CreateNothing")
	}
}

func TestNewPhysicsImpostor(t *testing.T) {
	if _, err := NewPhysicsImpostor(&project.Physics{Impostor: scene.BoxImpostor, Mass: 1}); err != nil {
		t.Error(err)
	}
	for _, rec := range []project.Physics{{Impostor: 5}, {Impostor: scene.SphereImpostor, Mass: -1}} {
		if _, err := NewPhysicsImpostor(&rec); err == nil {
			t.Errorf("NewPhysicsImpostor(%+v) expected error", rec)
		}
	}
}

func TestParseEffectLayerAndSound(t *testing.T) {
	ctx := newTestContext()
	el, err := ParseEffectLayer(ctx, "glow", json.RawMessage(`{"customType": "BABYLON.GlowLayer", "intensity": 0.5}`))
	if err != nil || el.Type != "GlowLayer" || el.Name != "glow" {
		t.Errorf("ParseEffectLayer=%+v, %v", el, err)
	}
	if _, err := ParseEffectLayer(ctx, "x", json.RawMessage(`{"customType": "Bloom"}`)); err == nil {
		t.Errorf("ParseEffectLayer(unknown) expected error")
	}

	s, err := ParseSound(ctx, "music", json.RawMessage(`{"name": "old", "url": "music.mp3", "loop": true, "volume": 0.2, "connectedMeshId": "later"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "music" || !s.Loop || s.Volume != 0.2 || s.ConnectedMesh != nil || s.ConnectedMeshID != "later" {
		t.Errorf("ParseSound=%+v", s)
	}
}
