package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/tags"
	"github.com/mogaika/scene_project/texture"
)

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return texture.Encode(&scene.Texture{MimeType: "image/png", Buffer: buf.Bytes()})
}

func sourceDocument(t *testing.T) []byte {
	flare := pngDataURL(t)
	return []byte(`{
		"globalConfiguration": {"globalAnimationSpeed": 1.5, "framesPerSecond": 30, "animatedAtLaunch": [{"type": "Node", "name": "Box"}, {"type": "Scene", "name": "Scene"}]},
		"physicsEnabled": true,
		"renderTargets": [
			{"isProbe": false, "serializationObject": {"name": "rt", "size": 256, "renderList": ["box", "sphere"]}},
			{"isProbe": true, "serializationObject": {"name": "probe", "size": 128, "renderList": ["sphere"], "attachedMeshId": "box"}}
		],
		"materials": [
			{"newInstance": true, "serializedValues": {"customType": "StandardMaterial", "name": "Red", "diffuseColor": [1, 0, 0], "customField": 7,
				"reflectionTexture": {"name": "rt", "isRenderTarget": true}}, "meshesNames": ["Box"]},
			{"newInstance": true, "serializedValues": {"customType": "PBRMaterial", "name": "Gold", "albedo": [1, 0.8, 0],
				"albedoTexture": {"name": "gold.png", "base64String": "` + flare + `"}}, "meshesNames": ["Sphere"]}
		],
		"sounds": [{"name": "hit.wav", "serializationObject": {"volume": 0.5, "connectedMeshId": "box"}}],
		"nodes": [
			{"type": "Mesh", "id": "box", "name": "Box", "serializationObject": {"meshes": [{"name": "Box", "id": "box", "position": [1, 2, 3], "rotation": [0, 1, 0], "geometryId": "g1"}],
				"geometries": {"vertexData": [{"id": "g1", "positions": [0, 0, 0, 1, 0, 0, 0, 1, 0], "normals": [0, 0, 1, 0, 0, 1, 0, 0, 1], "indices": [0, 1, 2]}]}},
				"animations": [{"targetName": "Box", "targetType": "Node", "serializationObject": {"name": "move", "property": "position", "dataType": 1, "keys": [{"frame": 0, "values": [0, 0, 0]}, {"frame": 30, "values": [0, 1, 0]}]}}],
				"physics": {"physicsImpostor": 2, "physicsMass": 2},
				"actions": {"name": "Box", "children": [{"type": 0, "name": "OnPickTrigger", "children": [{"type": 1, "name": "SetValueAction", "properties": [{"name": "value", "value": "1"}]}]}]}},
			{"type": "Mesh", "id": "sphere", "name": "Sphere", "serializationObject": {"meshes": [{"name": "Sphere", "id": "sphere", "position": [0, 0, 0], "parentId": "box",
				"positions": [0, 0, 0, 1, 0, 0, 0, 1, 0], "indices": [0, 1, 2]}]}},
			{"type": "InstancedMesh", "id": "inst", "name": "BoxCopy", "serializationObject": {"name": "BoxCopy", "sourceMesh": "box", "position": [5, 0, 0]}},
			{"type": "Light", "id": "sun", "name": "Sun", "serializationObject": {"id": "sun", "name": "Sun", "type": 1, "direction": [0, -1, 0], "intensity": 0.7}},
			{"type": "Camera", "id": "cam", "name": "Camera", "serializationObject": {"id": "cam", "name": "Camera", "position": [0, 5, -10], "fov": 1.2}}
		],
		"particleSystems": [{"hasEmitter": false, "emitterPosition": [0, 3, 0], "serializationObject": {"name": "fire", "emitterId": "emitter", "capacity": 50}}],
		"lensFlares": [{"serializationObject": {"id": "lf", "emitterId": "sun", "flares": [{"size": 0.2, "position": 0, "base64Name": "flare.png", "base64Buffer": "` + flare + `"}]}}],
		"shadowGenerators": [{"lightId": "sun", "mapSize": 512, "renderList": ["box"]}],
		"postProcesses": [{"name": "SSAOPipeline", "attach": false}, {"name": "StandardRenderingPipeline"}],
		"effectLayers": [{"name": "glow", "serializationObject": {"customType": "GlowLayer", "intensity": 2}}],
		"actions": {"name": "Scene", "children": [{"type": 0, "name": "OnEveryFrameTrigger", "children": []}]},
		"customMetadatas": {"author": "tester"}
	}`)
}

func importScene(t *testing.T, data []byte) *scene.Scene {
	t.Helper()
	sc := scene.New("test")
	err := importer.ImportData(sc, data,
		importer.WithStrict(true),
		importer.WithDiagnostics(func(d importer.Diagnostic) {}),
		importer.WithProgress(nil))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	return sc
}

func nodeRef(n *scene.Node) string {
	if n == nil {
		return "-"
	}
	return n.ID
}

func materialRef(m *scene.Material) string {
	if m == nil {
		return "-"
	}
	return m.Name
}

// summary lists entity identities and the relations the importer rebuilds
func summary(sc *scene.Scene) []string {
	var lines []string
	for _, n := range sc.Nodes {
		lines = append(lines, fmt.Sprintf("node %s %q %v parent=%s material=%s source=%s",
			n.ID, n.Name, n.Kind, nodeRef(n.Parent), materialRef(n.Material), nodeRef(n.SourceMesh)))
	}
	for _, m := range sc.Materials {
		lines = append(lines, fmt.Sprintf("material %q %s diffuse=%v", m.Name, m.CustomType, m.Diffuse))
	}
	for _, rt := range sc.RenderTargets {
		lines = append(lines, fmt.Sprintf("rt %q %d %v", rt.Name, rt.Size, nodeIDs(rt.RenderList)))
	}
	for _, rp := range sc.ReflectionProbes {
		lines = append(lines, fmt.Sprintf("probe %q %v attached=%s", rp.Name, nodeIDs(rp.RenderList), nodeRef(rp.AttachedMesh)))
	}
	for _, ps := range sc.ParticleSystems {
		lines = append(lines, fmt.Sprintf("ps %q emitter=%s", ps.Name, nodeRef(ps.Emitter)))
	}
	for _, lf := range sc.LensFlareSystems {
		lines = append(lines, fmt.Sprintf("lf %q emitter=%s flares=%d", lf.Name, nodeRef(lf.Emitter), len(lf.Flares)))
	}
	for _, sg := range sc.ShadowGenerators {
		lines = append(lines, fmt.Sprintf("sg light=%s %v", nodeRef(sg.Light), nodeIDs(sg.RenderList)))
	}
	for _, pp := range sc.PostProcesses {
		lines = append(lines, fmt.Sprintf("pp %q attached=%v", pp.Name, pp.IsAttached()))
	}
	for _, s := range sc.Sounds {
		lines = append(lines, fmt.Sprintf("sound %q mesh=%s", s.Name, nodeRef(s.ConnectedMesh)))
	}
	for _, a := range sc.NodesToStart {
		lines = append(lines, fmt.Sprintf("start %q", a.AnimatableName()))
	}
	sort.Strings(lines)
	return lines
}

func TestExportRoundTrip(t *testing.T) {
	original := importScene(t, sourceDocument(t))

	data, err := project.Encode(Export(original))
	if err != nil {
		t.Fatal(err)
	}
	restored := importScene(t, data)

	want, got := summary(original), summary(restored)
	if len(want) != len(got) {
		t.Fatalf("summary length %d; expected %d\n%v\n%v", len(got), len(want), got, want)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("summary[%d]=%s; expected %s", i, got[i], want[i])
		}
	}

	box := restored.GetNodeByID("box")
	if box.Position != (mgl32.Vec3{1, 2, 3}) || len(box.Animations) != 1 || box.Physics == nil || box.ActionManager == nil {
		t.Errorf("Box=%+v; expected position, animation, physics and actions", box)
	}
	if restored.AnimationSpeed != 1.5 || restored.FramesPerSecond != 30 || !restored.PhysicsEnabled {
		t.Errorf("global configuration not restored: %v %v %v", restored.AnimationSpeed, restored.FramesPerSecond, restored.PhysicsEnabled)
	}
	if string(restored.Metadata["author"]) != `"tester"` {
		t.Errorf("Metadata[author]=%s", restored.Metadata["author"])
	}
	if lf := restored.LensFlareSystems[0]; lf.Flares[0].Texture == nil || lf.Flares[0].Texture.Width != 2 {
		t.Errorf("flare texture not restored")
	}
	if gold := restored.GetMaterialByName("Gold"); gold.DiffuseTexture == nil || len(gold.DiffuseTexture.Buffer) == 0 {
		t.Errorf("embedded material texture not restored")
	}
	if restored.ActionManager == nil || len(restored.EffectLayers) != 1 {
		t.Errorf("scene actions or effect layers not restored")
	}

	var values map[string]interface{}
	if err := json.Unmarshal(restored.GetMaterialByName("Red").Values, &values); err != nil {
		t.Fatal(err)
	}
	if values["customField"] != float64(7) {
		t.Errorf("unknown material field lost: %v", values)
	}

	again, err := project.Encode(Export(restored))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("second export differs from first")
	}
}

func TestExportSelection(t *testing.T) {
	sc := scene.New("test")
	red := sc.AddMaterial(scene.NewMaterial("StandardMaterial", "red", "Red"))
	sky := sc.AddMaterial(scene.NewMaterial("SkyMaterial", "sky", "Sky"))

	untouched := sc.AddNode(scene.NewNode(scene.NodeMesh, "u", "Untouched"))
	untouched.Material = red
	sc.Tags.EnableFor(untouched)
	sc.Tags.EnableFor(red)
	added := sc.AddNode(scene.NewNode(scene.NodeMesh, "", ""))
	added.Material = sky
	sc.Tags.EnableFor(added)
	sc.Tags.AddTagsTo(added, tags.Added)

	animated := sc.AddNode(scene.NewNode(scene.NodeMesh, "m", "Animated"))
	anim := &scene.Animation{Name: "a", TargetProperty: "position.x", Keys: []scene.AnimationKey{{Frame: 0, Values: []float32{0}}}}
	animated.Animations = []*scene.Animation{anim, {Name: "base", TargetProperty: "position.y"}}
	sc.Tags.AddTagsTo(anim, tags.Modified)
	sc.Tags.EnableFor(animated)
	sc.Tags.EnableFor(animated.Animations[1])

	p := Export(sc)
	if added.ID == "" || added.Name == "" {
		t.Errorf("added node identity=%q %q; expected generated", added.ID, added.Name)
	}
	if len(p.Nodes) != 2 {
		t.Fatalf("len(Nodes)=%d; expected 2", len(p.Nodes))
	}
	if p.Nodes[0].ID != added.ID || !p.Nodes[0].HasSerializationObject() {
		t.Errorf("Nodes[0]=%+v; expected added node with payload", p.Nodes[0])
	}
	if p.Nodes[1].Name != "Animated" || p.Nodes[1].HasSerializationObject() || len(p.Nodes[1].Animations) != 1 {
		t.Errorf("Nodes[1]=%+v; expected name only record with one animation", p.Nodes[1])
	}
	if len(p.Materials) != 1 || p.Materials[0].Name() != "Sky" {
		t.Fatalf("Materials=%v; expected Sky only", p.Materials)
	}
	if names := p.Materials[0].MeshesNames; len(names) != 1 || names[0] != added.Name {
		t.Errorf("MeshesNames=%v; expected [%s]", names, added.Name)
	}
	if gc := p.GlobalConfiguration; gc.GlobalAnimationSpeed == nil || *gc.GlobalAnimationSpeed != 1 || gc.FramesPerSecond != scene.DefaultFramesPerSecond {
		t.Errorf("GlobalConfiguration=%+v", gc)
	}
}

func TestExportUntrackedScene(t *testing.T) {
	original := scene.New("test")
	red := original.AddMaterial(scene.NewMaterial("StandardMaterial", "red", "Red"))
	red.Diffuse = mgl32.Vec3{1, 0, 0}
	box := original.AddNode(scene.NewNode(scene.NodeMesh, "box", "Box"))
	box.Position = mgl32.Vec3{1, 2, 3}
	box.Material = red
	box.Geometry = original.AddGeometry(&scene.Geometry{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:   []uint32{0, 1, 2},
	})
	original.AddNode(scene.NewNode(scene.NodeLight, "sun", "Sun"))

	p := Export(original)
	if len(p.Nodes) != 2 || len(p.Materials) != 1 {
		t.Fatalf("Export exported %d nodes, %d materials; expected 2, 1", len(p.Nodes), len(p.Materials))
	}
	for _, rec := range p.Nodes {
		if !rec.HasSerializationObject() {
			t.Errorf("node %q exported without payload", rec.Name)
		}
	}

	data, err := project.Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	restored := importScene(t, data)

	want, got := summary(original), summary(restored)
	if len(want) != len(got) {
		t.Fatalf("summary length %d; expected %d\n%v\n%v", len(got), len(want), got, want)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("summary[%d]=%s; expected %s", i, got[i], want[i])
		}
	}
	if b := restored.GetNodeByID("box"); b.Position != box.Position || b.Geometry == nil || b.Geometry.VertexCount() != 3 {
		t.Errorf("Box=%+v; expected position %v with 3 vertices", b, box.Position)
	}
}

func TestExportGLTF(t *testing.T) {
	sc := importScene(t, sourceDocument(t))
	var buf bytes.Buffer
	if err := ExportGLTF(sc, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() < 12 || string(buf.Bytes()[:4]) != "glTF" {
		t.Errorf("ExportGLTF wrote %d bytes without glb header", buf.Len())
	}
}
