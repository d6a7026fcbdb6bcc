package web

import (
	"bytes"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/exporter"
	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/status"
	"github.com/mogaika/scene_project/vfs"
	"github.com/mogaika/scene_project/webutils"
)

type NodeSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Parent   string `json:"parent,omitempty"`
	Material string `json:"material,omitempty"`
}

type SceneSummary struct {
	Project     string         `json:"project"`
	Counts      map[string]int `json:"counts"`
	Nodes       []NodeSummary  `json:"nodes"`
	Diagnostics []string       `json:"diagnostics"`
}

func summarize(sc *scene.Scene, projectName string, diagnostics []importer.Diagnostic) *SceneSummary {
	s := &SceneSummary{
		Project: projectName,
		Counts: map[string]int{
			"nodes":            len(sc.Nodes),
			"materials":        len(sc.Materials),
			"textures":         len(sc.Textures),
			"renderTargets":    len(sc.RenderTargets),
			"reflectionProbes": len(sc.ReflectionProbes),
			"particleSystems":  len(sc.ParticleSystems),
			"lensFlares":       len(sc.LensFlareSystems),
			"shadowGenerators": len(sc.ShadowGenerators),
			"postProcesses":    len(sc.PostProcesses),
			"effectLayers":     len(sc.EffectLayers),
			"sounds":           len(sc.Sounds),
		},
		Nodes:       make([]NodeSummary, 0, len(sc.Nodes)),
		Diagnostics: make([]string, 0, len(diagnostics)),
	}
	for _, n := range sc.Nodes {
		ns := NodeSummary{ID: n.ID, Name: n.Name, Kind: n.Kind.String()}
		if n.Parent != nil {
			ns.Parent = n.Parent.ID
		}
		if n.Material != nil {
			ns.Material = n.Material.Name
		}
		s.Nodes = append(s.Nodes, ns)
	}
	for _, d := range diagnostics {
		s.Diagnostics = append(s.Diagnostics, d.String())
	}
	return s
}

func HandlerAjaxProjects(w http.ResponseWriter, r *http.Request) {
	if files, err := vfs.ListProjects(ServerWorkspace.dir); err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteJson(w, files)
	}
}

func HandlerAjaxScene(w http.ResponseWriter, r *http.Request) {
	ServerWorkspace.View(func(sc *scene.Scene, projectName string, diagnostics []importer.Diagnostic) error {
		webutils.WriteJson(w, summarize(sc, projectName, diagnostics))
		return nil
	})
}

func writeImportError(w http.ResponseWriter, err error) {
	if project.IsMalformed(err) {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	var derr *importer.DiagnosticsError
	if errors.As(err, &derr) {
		webutils.WriteErrorCode(w, http.StatusUnprocessableEntity, err)
		return
	}
	webutils.WriteError(w, err)
}

func HandlerActionProjectLoad(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if err := ServerWorkspace.Load(file); err != nil {
		writeImportError(w, err)
		return
	}
	HandlerAjaxScene(w, r)
}

func HandlerUploadProject(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	name := "upload"
	if _, header, err := r.FormFile("data"); err == nil && header.Filename != "" {
		name = path.Base(header.Filename)
	}
	if err := ServerWorkspace.LoadData(name, data); err != nil {
		writeImportError(w, err)
		return
	}
	HandlerAjaxScene(w, r)
}

func exportName(projectName string) string {
	if projectName == "" {
		return "scene"
	}
	return strings.TrimSuffix(projectName, path.Ext(projectName))
}

func HandlerDumpProject(w http.ResponseWriter, r *http.Request) {
	ServerWorkspace.View(func(sc *scene.Scene, projectName string, _ []importer.Diagnostic) error {
		data, err := project.Encode(exporter.Export(sc))
		if err != nil {
			webutils.WriteError(w, err)
			return err
		}
		webutils.WriteFile(w, bytes.NewReader(data), exportName(projectName)+".editorproject")
		return nil
	})
}

func HandlerDumpProjectYAML(w http.ResponseWriter, r *http.Request) {
	ServerWorkspace.View(func(sc *scene.Scene, projectName string, _ []importer.Diagnostic) error {
		data, err := project.EncodeYAML(exporter.Export(sc))
		if err != nil {
			webutils.WriteError(w, err)
			return err
		}
		webutils.WriteFile(w, bytes.NewReader(data), exportName(projectName)+".yaml")
		return nil
	})
}

func HandlerDumpGLTF(w http.ResponseWriter, r *http.Request) {
	ServerWorkspace.View(func(sc *scene.Scene, projectName string, _ []importer.Diagnostic) error {
		var buf bytes.Buffer
		if err := exporter.ExportGLTF(sc, &buf); err != nil {
			webutils.WriteError(w, err)
			return err
		}
		webutils.WriteFile(w, &buf, exportName(projectName)+".glb")
		return nil
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerWebsocketStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	status.NewClient(conn)
}
