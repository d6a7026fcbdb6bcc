// Package factory builds live scene entities from serialized records.
// Constructors looked up by name (material custom types, post-process
// pipelines) live in registries filled from init functions.
package factory

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/texture"
)

// Context is what every factory may use while building an entity
type Context struct {
	Scene *scene.Scene
	// base path for relative asset urls
	RootURL  string
	Textures *texture.Cache

	// ResolveEmitter overrides the mesh lookup of particle emitters
	ResolveEmitter func(id string) *scene.Node
	// Dangling receives references that point at nothing
	Dangling func(format string, args ...interface{})
}

func NewContext(sc *scene.Scene) *Context {
	return &Context{Scene: sc, RootURL: "./"}
}

func (ctx *Context) emitter(id string) *scene.Node {
	if ctx.ResolveEmitter != nil {
		return ctx.ResolveEmitter(id)
	}
	return ctx.Scene.GetMeshByID(id)
}

func (ctx *Context) dangling(format string, args ...interface{}) {
	if ctx.Dangling != nil {
		ctx.Dangling(format, args...)
	}
}

type MaterialParser func(ctx *Context, values json.RawMessage) (*scene.Material, error)

type PostProcessFactory func(ctx *Context, options json.RawMessage) (*scene.PostProcess, error)

var gMaterialTypes map[string]MaterialParser = make(map[string]MaterialParser, 0)

var gPostProcessFactories map[string]PostProcessFactory = make(map[string]PostProcessFactory, 0)

const enginePrefix = "BABYLON."

// SetMaterialType registers parser for customType, the engine prefix is optional
func SetMaterialType(customType string, p MaterialParser) {
	gMaterialTypes[strings.TrimPrefix(customType, enginePrefix)] = p
}

func GetMaterialType(customType string) (MaterialParser, bool) {
	p, ok := gMaterialTypes[strings.TrimPrefix(customType, enginePrefix)]
	return p, ok
}

func ListMaterialTypes() []string {
	result := make([]string, 0, len(gMaterialTypes))
	for name := range gMaterialTypes {
		result = append(result, name)
	}
	return result
}

// SetPostProcessFactory registers factory under key, e.g. "CreateSSAOPipeline"
func SetPostProcessFactory(key string, f PostProcessFactory) {
	gPostProcessFactories[key] = f
}

func GetPostProcessFactory(key string) (PostProcessFactory, bool) {
	f, ok := gPostProcessFactories[key]
	return f, ok
}

// PostProcessKey is the registry key of a post-process record name
func PostProcessKey(name string) string {
	return "Create" + name
}

// TextureRef is an embedded texture payload waiting to be decoded
type TextureRef struct {
	Payload string
	Name    string
}

func (ref TextureRef) Empty() bool {
	return ref.Payload == ""
}

func unmarshal(raw json.RawMessage, v interface{}, what string) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return errors.Errorf("Missing %s payload", what)
	}
	if trimmed[0] != '{' {
		return errors.Errorf("Invalid %s payload: expected object", what)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal %s", what)
	}
	return nil
}

func resolveParent(ctx *Context, n *scene.Node, parentID string) {
	if parentID == "" {
		return
	}
	if parent := ctx.Scene.GetNodeByID(parentID); parent != nil && parent != n {
		n.Parent = parent
	} else {
		n.WaitingParentID = parentID
	}
}
