package scene

import (
	"testing"
)

func TestLookupsReturnFirstInserted(t *testing.T) {
	sc := New("test")
	first := sc.AddNode(NewNode(NodeMesh, "a", "Box"))
	sc.AddNode(NewNode(NodeMesh, "b", "Box"))
	sc.AddNode(NewNode(NodeLight, "l", "Sun"))
	sc.AddNode(NewNode(NodeCamera, "c", "Camera"))

	if n := sc.GetMeshByName("Box"); n != first {
		t.Errorf("GetMeshByName(%q)=%v; expected %v", "Box", n, first)
	}
	if n := sc.GetMeshByID("l"); n != nil {
		t.Errorf("GetMeshByID(%q)=%v; expected nil for light", "l", n)
	}
	if n := sc.GetLightByID("l"); n == nil || n.Name != "Sun" {
		t.Errorf("GetLightByID(%q)=%v; expected Sun", "l", n)
	}
	if cams := sc.Cameras(); len(cams) != 1 || cams[0].ID != "c" {
		t.Errorf("Cameras()=%v; expected [c]", cams)
	}
	if meshes := sc.Meshes(); len(meshes) != 2 {
		t.Errorf("len(Meshes())=%v; expected 2", len(meshes))
	}
}

func TestRenderTargetTextureRegistered(t *testing.T) {
	sc := New("test")
	sc.AddRenderTarget(NewRenderTargetTexture("mirror", 512, true))
	sc.AddReflectionProbe(NewReflectionProbe("probe", 256, false))

	for _, name := range []string{"mirror", "probe"} {
		tex := sc.GetTextureByName(name)
		if tex == nil || !tex.IsRenderTarget {
			t.Errorf("GetTextureByName(%q)=%v; expected render target texture", name, tex)
		}
	}
}

func TestIsParticleEmitter(t *testing.T) {
	sc := New("test")
	linked := sc.AddNode(NewNode(NodeTransform, "e1", "emitter1"))
	scanned := sc.AddNode(NewNode(NodeMesh, "e2", "emitter2"))
	plain := sc.AddNode(NewNode(NodeMesh, "m", "mesh"))

	ps := sc.AddParticleSystem(&ParticleSystem{Name: "fire"})
	ps.SetEmitter(linked)
	sc.AddParticleSystem(&ParticleSystem{Name: "smoke", Emitter: scanned})

	for _, test := range []struct {
		n      *Node
		result bool
	}{
		{linked, true},
		{scanned, true},
		{plain, false},
		{nil, false},
	} {
		if got := sc.IsParticleEmitter(test.n); got != test.result {
			t.Errorf("IsParticleEmitter(%v)=%v; expected %v", test.n, got, test.result)
		}
	}
	if linked.AttachedParticleSystem != ps || ps.EmitterID != "e1" {
		t.Errorf("SetEmitter did not link both sides")
	}
}

func TestPostProcessCameras(t *testing.T) {
	c1 := NewNode(NodeCamera, "c1", "c1")
	c2 := NewNode(NodeCamera, "c2", "c2")
	pp := &PostProcess{Name: "SSAOPipeline"}

	pp.AttachCameras([]*Node{c1, c2, c1})
	if len(pp.Cameras) != 2 {
		t.Fatalf("len(Cameras)=%v; expected 2", len(pp.Cameras))
	}
	pp.DetachCameras(c1)
	if len(pp.Cameras) != 1 || pp.Cameras[0] != c2 {
		t.Errorf("DetachCameras(c1) left %v", pp.Cameras)
	}
	pp.DetachCameras()
	if pp.IsAttached() {
		t.Errorf("DetachCameras() left %v", pp.Cameras)
	}
}

func TestScrubRenderList(t *testing.T) {
	a := NewNode(NodeMesh, "a", "a")
	b := NewNode(NodeMesh, "b", "b")
	sg := &ShadowGenerator{RenderList: []*Node{nil, a, nil, b, nil}}
	if removed := sg.ScrubRenderList(); removed != 3 {
		t.Errorf("ScrubRenderList()=%v; expected 3", removed)
	}
	if len(sg.RenderList) != 2 || sg.RenderList[0] != a || sg.RenderList[1] != b {
		t.Errorf("RenderList=%v; expected [a b]", sg.RenderList)
	}
}

func TestConfigureObjectOnce(t *testing.T) {
	sc := New("test")
	n := sc.AddNode(NewNode(NodeMesh, "m", "m"))
	n.ActionManager = &ActionManager{Owner: n}
	first := sc.ConfigureObject(n)
	n.ActionManager = &ActionManager{Owner: n}
	if second := sc.ConfigureObject(n); second != first {
		t.Errorf("ConfigureObject registered node twice")
	}
	if !sc.IsConfigured(n) {
		t.Errorf("IsConfigured(m)=false; expected true")
	}
}

func TestCountActions(t *testing.T) {
	am := &ActionManager{Triggers: []*ActionNode{
		{Type: ActionNodeTrigger, Name: "OnPickTrigger", Children: []*ActionNode{
			{Type: ActionNodeAction, Name: "PlaySoundAction"},
			{Type: ActionNodeFlowControl, Name: "ValueCondition", Children: []*ActionNode{
				{Type: ActionNodeAction, Name: "SetValueAction"},
			}},
		}},
	}}
	if count := am.CountActions(); count != 3 {
		t.Errorf("CountActions()=%v; expected 3", count)
	}
}
