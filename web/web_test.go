package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/vfs"
)

const boxProject = `{
	"nodes": [{"type": "Mesh", "id": "box", "name": "Box", "animations": [],
		"serializationObject": {"meshes": [{"name": "Box", "id": "box", "position": [0, 0, 0],
		"positions": [0, 0, 0, 1, 0, 0, 0, 1, 0], "indices": [0, 1, 2]}]}}],
	"materials": [{"newInstance": true, "serializedValues": {"customType": "StandardMaterial", "name": "Red", "diffuseColor": [1, 0, 0]}, "meshesNames": ["Box"]}],
	"particleSystems": [],
	"globalConfiguration": {}
}`

func newTestServer(t *testing.T, files map[string]string) (*httptest.Server, *Workspace) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
	}
	ws := NewWorkspace(vfs.NewDirectoryDriver(dir), false, nil)
	srv := httptest.NewServer(NewRouter(ws, ""))
	t.Cleanup(srv.Close)
	return srv, ws
}

func getScene(t *testing.T, srv *httptest.Server) *SceneSummary {
	t.Helper()
	resp, err := http.Get(srv.URL + "/json/scene")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s SceneSummary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	return &s
}

func TestProjectsAndLoad(t *testing.T) {
	srv, ws := newTestServer(t, map[string]string{
		"box.editorproject": boxProject,
		"broken.json":       `{"nodes": [`,
		"readme.txt":        "",
	})

	resp, err := http.Get(srv.URL + "/json/projects")
	if err != nil {
		t.Fatal(err)
	}
	var projects []string
	err = json.NewDecoder(resp.Body).Decode(&projects)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0] != "box.editorproject" || projects[1] != "broken.json" {
		t.Errorf("projects=%v; expected [box.editorproject broken.json]", projects)
	}

	resp, err = http.Post(srv.URL+"/action/project/box.editorproject/load", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status=%d; expected %d", resp.StatusCode, http.StatusOK)
	}

	s := getScene(t, srv)
	if s.Project != "box.editorproject" || s.Counts["nodes"] != 1 || s.Counts["materials"] != 1 {
		t.Errorf("scene=%+v; expected box.editorproject with 1 node and 1 material", s)
	}
	if len(s.Nodes) != 1 || s.Nodes[0].Material != "Red" {
		t.Errorf("nodes=%+v; expected Box bound to Red", s.Nodes)
	}

	resp, err = http.Post(srv.URL+"/action/project/broken.json/load", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("broken load status=%d; expected %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ws.Project() != "box.editorproject" {
		t.Errorf("Project()=%q after failed load; expected box.editorproject", ws.Project())
	}
}

func TestUploadAndDump(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("data", "uploaded.json")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(boxProject))
	mw.Close()

	resp, err := http.Post(srv.URL+"/upload/project", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status=%d; expected %d", resp.StatusCode, http.StatusOK)
	}

	resp, err = http.Get(srv.URL + "/dump/project")
	if err != nil {
		t.Fatal(err)
	}
	var data bytes.Buffer
	data.ReadFrom(resp.Body)
	resp.Body.Close()
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="uploaded.editorproject"` {
		t.Errorf("Content-Disposition=%q", cd)
	}
	p, err := project.Decode(data.Bytes())
	if err != nil {
		t.Fatalf("Decode(dump): %v", err)
	}
	if len(p.Nodes) != 1 || len(p.Materials) != 1 {
		t.Errorf("dump has %d nodes, %d materials; expected 1, 1", len(p.Nodes), len(p.Materials))
	}

	resp, err = http.Get(srv.URL + "/dump/gltf")
	if err != nil {
		t.Fatal(err)
	}
	data.Reset()
	data.ReadFrom(resp.Body)
	resp.Body.Close()
	if !bytes.HasPrefix(data.Bytes(), []byte("glTF")) {
		t.Errorf("gltf dump does not start with glTF magic")
	}
}

func TestWorkspaceReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "box.json")
	if err := os.WriteFile(path, []byte(boxProject), 0666); err != nil {
		t.Fatal(err)
	}
	ws := NewWorkspace(vfs.NewDirectoryDriver(dir), false, nil)
	if err := ws.Load("box.json"); err != nil {
		t.Fatal(err)
	}

	empty := `{"nodes": [], "materials": [], "particleSystems": [], "globalConfiguration": {}}`
	if err := os.WriteFile(path, []byte(empty), 0666); err != nil {
		t.Fatal(err)
	}
	ws.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})

	ws.View(func(sc *scene.Scene, _ string, _ []importer.Diagnostic) error {
		if len(sc.Nodes) != 0 {
			t.Errorf("len(Nodes)=%d after reload; expected 0", len(sc.Nodes))
		}
		return nil
	})
}
