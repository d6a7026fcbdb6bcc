package web

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/texture"
	"github.com/mogaika/scene_project/vfs"
)

// Workspace holds the scene of the currently loaded project. Imports are
// serialized, a failed import keeps the previous scene.
type Workspace struct {
	mu          sync.Mutex
	dir         vfs.Directory
	strict      bool
	textures    *texture.Cache
	scene       *scene.Scene
	project     string
	diagnostics []importer.Diagnostic
	watcher     *fsnotify.Watcher
}

func NewWorkspace(dir vfs.Directory, strict bool, textures *texture.Cache) *Workspace {
	return &Workspace{
		dir:      dir,
		strict:   strict,
		textures: textures,
		scene:    scene.New("empty"),
	}
}

// importData imports into a fresh scene, ws.mu must be held
func (ws *Workspace) importData(name string, data []byte) error {
	sc := scene.New(name)
	var diagnostics []importer.Diagnostic
	err := importer.ImportData(sc, data,
		importer.WithStrict(ws.strict),
		importer.WithTextureCache(ws.textures),
		importer.WithDiagnostics(func(d importer.Diagnostic) {
			diagnostics = append(diagnostics, d)
			importer.LogDiagnostic(d)
		}))
	if err != nil {
		return errors.Wrapf(err, "Failed to import %q", name)
	}
	ws.scene = sc
	ws.project = name
	ws.diagnostics = diagnostics
	log.Printf("[web] Loaded project %q: %d nodes, %d diagnostics", name, len(sc.Nodes), len(diagnostics))
	return nil
}

// Load imports a project file of the workspace directory
func (ws *Workspace) Load(name string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	data, err := vfs.ReadFile(ws.dir, name)
	if err != nil {
		return err
	}
	return ws.importData(name, data)
}

// LoadData imports a document that has no file in the workspace directory
func (ws *Workspace) LoadData(name string, data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.importData(name, data)
}

// View calls fn with the current scene while no import can replace it
func (ws *Workspace) View(fn func(sc *scene.Scene, project string, diagnostics []importer.Diagnostic) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.scene, ws.project, ws.diagnostics)
}

func (ws *Workspace) Project() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.project
}

// Watch reloads the loaded project whenever its file changes on disk.
// Only directories backed by the host file system can be watched.
func (ws *Workspace) Watch() error {
	dd, ok := ws.dir.(*vfs.DirectoryDriver)
	if !ok {
		return errors.Errorf("Directory %q cannot be watched", ws.dir.Name())
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrapf(err, "Failed to create watcher")
	}
	if err := watcher.Add(dd.Path()); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "Failed to watch %q", dd.Path())
	}

	ws.mu.Lock()
	ws.watcher = watcher
	ws.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				ws.handleEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[web] Watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (ws *Workspace) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	project := ws.Project()
	if project == "" || filepath.Base(event.Name) != project {
		return
	}
	log.Printf("[web] Project %q changed, reloading", project)
	if err := ws.Load(project); err != nil {
		log.Printf("[web] Reload failed: %v", err)
	}
}

func (ws *Workspace) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.watcher == nil {
		return nil
	}
	err := ws.watcher.Close()
	ws.watcher = nil
	return err
}
