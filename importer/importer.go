// Package importer reconstructs a live scene from a project document.
//
// Records are rebuilt in passes ordered by dependency: render targets and
// materials before nodes, nodes before particle systems, lens flares and
// shadow generators, and every entity before references by id are wired.
// A failing record is reported and skipped; only a malformed document stops
// the import.
package importer

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/factory"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/tags"
	"github.com/mogaika/scene_project/texture"
	"github.com/mogaika/scene_project/utils"
)

const (
	PassPhysics             = "physics"
	PassRenderTargets       = "renderTargets"
	PassMaterials           = "materials"
	PassSounds              = "sounds"
	PassNodes               = "nodes"
	PassParticleSystems     = "particleSystems"
	PassLensFlares          = "lensFlares"
	PassShadowGenerators    = "shadowGenerators"
	PassSceneActions        = "actions"
	PassEffectLayers        = "effectLayers"
	PassWaitingLists        = "waitingLists"
	PassMaterialBinding     = "materialBinding"
	PassGlobalConfiguration = "globalConfiguration"
	PassPostProcesses       = "postProcesses"
	PassCustomMetadata      = "customMetadatas"
)

type options struct {
	sink     func(Diagnostic)
	progress func(pass string, index, total int)
	strict   bool
	verbose  bool
	rootURL  string
	textures *texture.Cache
}

type Option func(*options)

// WithDiagnostics replaces the default log sink
func WithDiagnostics(sink func(Diagnostic)) Option {
	return func(o *options) { o.sink = sink }
}

func WithProgress(progress func(pass string, index, total int)) Option {
	return func(o *options) { o.progress = progress }
}

// WithStrict makes Import fail after completion when any diagnostic was
// produced, dangling references included
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithVerbose reports dangling references, which are skipped silently otherwise
func WithVerbose(verbose bool) Option {
	return func(o *options) { o.verbose = verbose }
}

func WithRootURL(rootURL string) Option {
	return func(o *options) { o.rootURL = rootURL }
}

func WithTextureCache(c *texture.Cache) Option {
	return func(o *options) { o.textures = c }
}

// pendingRenderList is a render list waiting for meshes to exist
type pendingRenderList struct {
	holder scene.RenderListHolder
	probe  *scene.ReflectionProbe
	header *project.RenderTargetHeader
}

type importer struct {
	sc   *scene.Scene
	p    *project.Project
	ctx  *factory.Context
	opts options

	pending     []*pendingRenderList
	materials   []*scene.Material
	diagnostics []Diagnostic

	// record being built, for references factories report as dangling
	pass   string
	record string
}

// Import rebuilds every record of p into sc. Returned error is either a
// malformed document or, in strict mode, a *DiagnosticsError.
func Import(sc *scene.Scene, p *project.Project, opts ...Option) error {
	if sc == nil {
		return errors.Errorf("Nil scene")
	}
	if p == nil {
		return errors.Wrapf(project.ErrDocumentMalformed, "Nil project")
	}

	o := options{
		sink:     LogDiagnostic,
		progress: LogProgress,
		rootURL:  "./",
	}
	for _, opt := range opts {
		opt(&o)
	}

	project.Clean(p)

	ctx := factory.NewContext(sc)
	ctx.RootURL = o.rootURL
	ctx.Textures = o.textures

	imp := &importer{
		sc:        sc,
		p:         p,
		ctx:       ctx,
		opts:      o,
		pending:   make([]*pendingRenderList, len(p.RenderTargets)),
		materials: make([]*scene.Material, len(p.Materials)),
	}
	ctx.Dangling = func(format string, args ...interface{}) {
		imp.dangling(imp.pass, imp.record, format, args...)
	}
	imp.run()

	if o.strict && len(imp.diagnostics) != 0 {
		return &DiagnosticsError{Diagnostics: imp.diagnostics}
	}
	return nil
}

// ImportData decodes and imports a serialized project
func ImportData(sc *scene.Scene, data []byte, opts ...Option) error {
	p, err := project.Decode(data)
	if err != nil {
		return err
	}
	return Import(sc, p, opts...)
}

func ImportFile(sc *scene.Scene, path string, opts ...Option) error {
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	return Import(sc, p, opts...)
}

func (imp *importer) run() {
	passes := []struct {
		name string
		run  func()
	}{
		{PassPhysics, imp.importPhysics},
		{PassRenderTargets, imp.importRenderTargets},
		{PassMaterials, imp.importMaterials},
		{PassSounds, imp.importSounds},
		{PassNodes, imp.importNodes},
		{PassParticleSystems, imp.importParticleSystems},
		{PassLensFlares, imp.importLensFlares},
		{PassShadowGenerators, imp.importShadowGenerators},
		{PassSceneActions, imp.importSceneActions},
		{PassEffectLayers, imp.importEffectLayers},
		{PassWaitingLists, imp.fillWaitingLists},
		{PassMaterialBinding, imp.bindMaterials},
		{PassGlobalConfiguration, imp.applyGlobalConfiguration},
		{PassPostProcesses, imp.importPostProcesses},
		{PassCustomMetadata, imp.importCustomMetadata},
	}
	for i, pass := range passes {
		pass.run()
		if imp.opts.progress != nil {
			imp.opts.progress(pass.name, i+1, len(passes))
		}
	}
}

func (imp *importer) report(kind Kind, pass, record string, err error) {
	if kind == ReferenceDangling && !imp.opts.verbose && !imp.opts.strict {
		return
	}
	d := Diagnostic{Kind: kind, Pass: pass, Record: record, Err: err}
	imp.diagnostics = append(imp.diagnostics, d)
	if imp.opts.sink != nil {
		imp.opts.sink(d)
	}
}

func (imp *importer) dangling(pass, record, format string, args ...interface{}) {
	imp.report(ReferenceDangling, pass, record, errors.Errorf(format, args...))
}

// rejected reports records whose envelope failed to decode
func (imp *importer) rejected(pass, collection, what string) {
	for _, r := range imp.p.RejectedIn(collection) {
		imp.report(RecordFailed, pass, fmt.Sprintf("%s #%d", what, r.Index), r.Err)
	}
}

// guard runs one record; errors and panics become diagnostics
func (imp *importer) guard(pass, record string, fn func() error) {
	imp.pass, imp.record = pass, record
	defer func() {
		imp.pass, imp.record = "", ""
		if r := recover(); r != nil {
			imp.report(RecordFailed, pass, record, errors.Errorf("Panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		imp.report(kindOf(err), pass, record, err)
	}
}

func (imp *importer) tag(obj interface{}, tag string) {
	imp.sc.Tags.EnableFor(obj)
	imp.sc.Tags.AddTagsTo(obj, tag)
}

func (imp *importer) importPhysics() {
	if imp.p.PhysicsEnabled && !imp.sc.PhysicsEnabled {
		imp.sc.PhysicsEnabled = true
	}
}

func (imp *importer) importRenderTargets() {
	imp.rejected(PassRenderTargets, project.CollectionRenderTargets, "render target")
	for i, rt := range imp.p.RenderTargets {
		if rt == nil {
			continue
		}
		i, rt := i, rt
		imp.guard(PassRenderTargets, fmt.Sprintf("render target #%d", i), func() error {
			h, err := rt.Header()
			if err != nil {
				return err
			}
			if rt.IsProbe {
				probe, err := factory.NewReflectionProbe(imp.ctx, h)
				if err != nil {
					return err
				}
				imp.pending[i] = &pendingRenderList{holder: probe, probe: probe, header: h}
				return nil
			}

			tex, err := factory.ParseRenderTargetTexture(imp.ctx, rt.SerializationObject)
			if err != nil {
				return err
			}
			imp.tag(tex, tags.Added)
			imp.pending[i] = &pendingRenderList{holder: tex, header: h}
			return nil
		})
	}
}

func (imp *importer) importMaterials() {
	imp.rejected(PassMaterials, project.CollectionMaterials, "material")
	for i, m := range imp.p.Materials {
		if m == nil || !m.NewInstance {
			continue
		}
		customType := m.CustomType()
		if customType == "" {
			continue
		}
		i, m := i, m
		imp.guard(PassMaterials, fmt.Sprintf("material %q", m.Name()), func() error {
			parse, ok := factory.GetMaterialType(customType)
			if !ok {
				return unavailable("Material type %q is not registered", customType)
			}
			mat, err := parse(imp.ctx, m.SerializedValues)
			if err != nil {
				return err
			}
			imp.tag(mat, tags.Added)
			imp.materials[i] = mat
			return nil
		})
	}
}

func (imp *importer) importSounds() {
	imp.rejected(PassSounds, project.CollectionSounds, "sound")
	for i, s := range imp.p.Sounds {
		if s == nil {
			continue
		}
		s := s
		imp.guard(PassSounds, fmt.Sprintf("sound #%d", i), func() error {
			sound, err := factory.ParseSound(imp.ctx, s.Name, s.SerializationObject)
			if err != nil {
				return err
			}
			imp.tag(sound, tags.Added)
			return nil
		})
	}
}

func nodeRecordName(n *project.Node) string {
	return fmt.Sprintf("node %q (id %q)", n.Name, n.ID)
}

func (imp *importer) importNodes() {
	imp.rejected(PassNodes, project.CollectionNodes, "node")
	for _, n := range imp.p.Nodes {
		if n == nil {
			continue
		}
		n := n
		imp.guard(PassNodes, nodeRecordName(n), func() error {
			return imp.importNode(n)
		})
	}
}

// resolveNode builds or finds the live node of rec, nil when unresolved
func (imp *importer) resolveNode(rec *project.Node) (*scene.Node, error) {
	if !rec.HasSerializationObject() {
		if rec.Name == "" {
			return nil, nil
		}
		return imp.sc.GetNodeByName(rec.Name), nil
	}

	switch rec.Type {
	case project.NodeTypeMesh:
		meshes, err := factory.ParseMeshes(imp.ctx, rec.SerializationObject)
		for _, m := range meshes {
			imp.tag(m, tags.Added)
		}
		if err != nil {
			return nil, err
		}
		if len(meshes) == 0 {
			return nil, nil
		}
		return meshes[len(meshes)-1], nil
	case project.NodeTypeInstancedMesh:
		inst, err := factory.ParseInstancedMesh(imp.ctx, rec.ID, rec.SerializationObject)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			imp.tag(inst, tags.Added)
		}
		return inst, nil
	case project.NodeTypeLight, project.NodeTypeCamera:
		parse := factory.ParseLight
		if rec.Type == project.NodeTypeCamera {
			parse = factory.ParseCamera
		}
		n, err := parse(imp.ctx, rec.SerializationObject)
		if err != nil {
			return nil, err
		}
		imp.tag(n, tags.Added)
		return n, nil
	}
	return nil, nil
}

// emitterPlaceholder synthesizes the emitter a particle system without its
// own emitter node refers to
func (imp *importer) emitterPlaceholder(rec *project.Node) *scene.Node {
	if rec.ID == "" {
		return nil
	}
	for _, ps := range imp.p.ParticleSystems {
		if ps != nil && !ps.HasEmitter && ps.EmitterID() == rec.ID {
			n := factory.NewEmitterPlaceholder(imp.ctx, rec.ID, rec.Name)
			imp.tag(n, tags.AddedParticleSystem)
			return n
		}
	}
	return nil
}

func (imp *importer) importNode(rec *project.Node) error {
	var node *scene.Node
	var target scene.Animatable

	switch rec.Type {
	case project.NodeTypeMesh, project.NodeTypeInstancedMesh, project.NodeTypeLight, project.NodeTypeCamera:
		var err error
		if node, err = imp.resolveNode(rec); err != nil {
			return err
		}
	case project.NodeTypeScene:
		target = imp.sc
	default:
		return nil
	}

	if node == nil && target == nil {
		node = imp.emitterPlaceholder(rec)
	}
	if node == nil && target == nil {
		return unresolvable("Cannot configure node named %q, with ID %q", rec.Name, rec.ID)
	}
	record := nodeRecordName(rec)

	for i, a := range rec.Animations {
		if a == nil {
			continue
		}
		anim, err := factory.ParseAnimation(a.SerializationObject)
		if err != nil {
			imp.report(RecordFailed, PassNodes, fmt.Sprintf("%s animation #%d", record, i), err)
			continue
		}
		if node != nil {
			node.Animations = append(node.Animations, anim)
		} else {
			imp.sc.Animations = append(imp.sc.Animations, anim)
		}
		imp.tag(anim, tags.Modified)
	}

	if node == nil || !node.IsMesh() {
		return nil
	}

	if rec.Physics != nil {
		impostor, err := factory.NewPhysicsImpostor(rec.Physics)
		if err != nil {
			imp.report(RecordFailed, PassNodes, record+" physics", err)
		} else {
			node.Physics = impostor
			imp.tag(impostor, tags.Added)
		}
	}

	if rec.HasActions() {
		am, err := factory.ParseActionManager(rec.Actions, node)
		if err != nil {
			imp.report(RecordFailed, PassNodes, record+" actions", err)
		} else {
			node.ActionManager = am
			imp.tag(am, tags.Added)
			if co, ok := imp.sc.ConfiguredObjects[node.ID]; ok {
				co.ActionManager = am
			}
		}
	}

	if !imp.sc.IsConfigured(node) {
		imp.sc.ConfigureObject(node)
	}
	return nil
}

func (imp *importer) importParticleSystems() {
	imp.rejected(PassParticleSystems, project.CollectionParticleSystems, "particle system")
	defer func() { imp.ctx.ResolveEmitter = nil }()
	batch := texture.NewBatch(imp.opts.textures)
	for i, ps := range imp.p.ParticleSystems {
		if ps == nil {
			continue
		}
		ps := ps
		record := fmt.Sprintf("particle system #%d", i)
		imp.ctx.ResolveEmitter = func(id string) *scene.Node {
			return imp.resolveEmitter(ps, id)
		}
		imp.guard(PassParticleSystems, record, func() error {
			var pos *mgl32.Vec3
			if !ps.HasEmitter && len(ps.EmitterPosition) != 0 {
				v, err := utils.Vec3FromSlice(ps.EmitterPosition)
				if err != nil {
					return errors.Wrapf(err, "Invalid emitterPosition")
				}
				pos = &v
			}

			live, ref, err := factory.ParseParticleSystem(imp.ctx, ps.SerializationObject)
			if err != nil {
				return err
			}
			record = fmt.Sprintf("particle system %q", live.Name)

			if pos != nil && live.Emitter != nil {
				live.Emitter.Position = *pos
			}
			if live.Emitter != nil {
				live.Emitter.AttachedParticleSystem = live
			}

			if !ref.Empty() {
				batch.Go(ref.Payload, ref.Name, func(tex *scene.Texture, err error) {
					if err != nil {
						imp.report(RecordFailed, PassParticleSystems, record, err)
						return
					}
					live.Texture = imp.sc.AddTexture(tex)
				})
			}
			return nil
		})
	}
	batch.Wait()
}

// resolveEmitter finds the emitter mesh of ps. A particle system without its
// own emitter node gets a placeholder when the id is not taken by any node.
func (imp *importer) resolveEmitter(ps *project.ParticleSystem, id string) *scene.Node {
	if mesh := imp.sc.GetMeshByID(id); mesh != nil || ps.HasEmitter {
		return mesh
	}
	if imp.sc.GetNodeByID(id) != nil {
		return nil
	}
	n := factory.NewEmitterPlaceholder(imp.ctx, id, id)
	imp.tag(n, tags.AddedParticleSystem)
	return n
}

func (imp *importer) importLensFlares() {
	imp.rejected(PassLensFlares, project.CollectionLensFlares, "lens flare system")
	batch := texture.NewBatch(imp.opts.textures)
	for i, lf := range imp.p.LensFlares {
		if lf == nil {
			continue
		}
		lf := lf
		record := fmt.Sprintf("lens flare system #%d", i)
		imp.guard(PassLensFlares, record, func() error {
			live, refs, err := factory.ParseLensFlareSystem(imp.ctx, lf.SerializationObject)
			if err != nil {
				return err
			}
			for j, ref := range refs {
				if ref.Empty() {
					continue
				}
				flare := live.Flares[j]
				flareRecord := fmt.Sprintf("%s flare #%d", record, j)
				batch.Go(ref.Payload, ref.Name, func(tex *scene.Texture, err error) {
					if err != nil {
						imp.report(RecordFailed, PassLensFlares, flareRecord, err)
						return
					}
					flare.Texture = imp.sc.AddTexture(tex)
				})
			}
			return nil
		})
	}
	batch.Wait()
}

func (imp *importer) importShadowGenerators() {
	for i, raw := range imp.p.ShadowGenerators {
		raw := raw
		record := fmt.Sprintf("shadow generator #%d", i)
		imp.guard(PassShadowGenerators, record, func() error {
			sg, err := factory.ParseShadowGenerator(imp.ctx, raw)
			if err != nil {
				return err
			}
			imp.tag(sg, tags.Added)
			if removed := sg.ScrubRenderList(); removed != 0 {
				imp.dangling(PassShadowGenerators, record, "Dropped %d unresolved render list entries", removed)
			}
			return nil
		})
	}
}

func (imp *importer) importSceneActions() {
	if project.IsNull(imp.p.Actions) {
		return
	}
	imp.guard(PassSceneActions, "scene actions", func() error {
		am, err := factory.ParseActionManager(imp.p.Actions, nil)
		if err != nil {
			return err
		}
		imp.sc.ActionManager = am
		imp.tag(am, tags.Added)
		return nil
	})
}

func (imp *importer) importEffectLayers() {
	imp.rejected(PassEffectLayers, project.CollectionEffectLayers, "effect layer")
	for i, el := range imp.p.EffectLayers {
		if el == nil {
			continue
		}
		el := el
		imp.guard(PassEffectLayers, fmt.Sprintf("effect layer #%d", i), func() error {
			layer, err := factory.ParseEffectLayer(imp.ctx, el.Name, el.SerializationObject)
			if err != nil {
				return err
			}
			imp.tag(layer, tags.Added)
			return nil
		})
	}
}

func isAncestor(ancestor, n *scene.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func (imp *importer) fillWaitingLists() {
	for i, pend := range imp.pending {
		if pend == nil {
			continue
		}
		record := fmt.Sprintf("render target %q", pend.header.Name)
		if pend.probe != nil && pend.header.AttachedMeshID != "" {
			if mesh := imp.sc.GetMeshByID(pend.header.AttachedMeshID); mesh != nil {
				pend.probe.AttachToMesh(mesh)
			} else {
				imp.dangling(PassWaitingLists, record, "Attached mesh %q not found", pend.header.AttachedMeshID)
			}
		}
		for _, id := range pend.header.RenderList {
			if mesh := imp.sc.GetMeshByID(id); mesh != nil {
				pend.holder.AddToRenderList(mesh)
			} else {
				imp.dangling(PassWaitingLists, record, "Render list mesh %q not found", id)
			}
		}
		imp.pending[i] = nil
	}

	for _, n := range imp.sc.Nodes {
		if n.WaitingParentID == "" {
			continue
		}
		parent := imp.sc.GetNodeByID(n.WaitingParentID)
		if parent == nil || isAncestor(n, parent) {
			imp.dangling(PassWaitingLists, fmt.Sprintf("node %q", n.Name), "Parent %q not found", n.WaitingParentID)
		} else {
			n.Parent = parent
		}
		n.WaitingParentID = ""
	}

	for _, s := range imp.sc.Sounds {
		if s.ConnectedMesh != nil || s.ConnectedMeshID == "" {
			continue
		}
		if mesh := imp.sc.GetMeshByID(s.ConnectedMeshID); mesh != nil {
			s.ConnectedMesh = mesh
		} else {
			imp.dangling(PassWaitingLists, fmt.Sprintf("sound %q", s.Name), "Connected mesh %q not found", s.ConnectedMeshID)
		}
	}
}

func (imp *importer) bindMaterials() {
	for i, m := range imp.p.Materials {
		mat := imp.materials[i]
		if mat == nil || len(m.MeshesNames) == 0 {
			continue
		}
		for _, name := range m.MeshesNames {
			mesh := imp.sc.GetMeshByName(name)
			if mesh == nil {
				imp.dangling(PassMaterialBinding, fmt.Sprintf("material %q", mat.Name), "Mesh %q not found", name)
				continue
			}
			if mesh.Kind == scene.NodeInstancedMesh {
				continue
			}
			mesh.Material = mat
		}
	}
}

func (imp *importer) launchTarget(a *project.AnimatedAtLaunch) scene.Animatable {
	switch a.Type {
	case project.AnimatedScene:
		return imp.sc
	case project.AnimatedNode:
		if n := imp.sc.GetNodeByName(a.Name); n != nil {
			return n
		}
	case project.AnimatedSound:
		if s := imp.sc.GetSoundByName(a.Name); s != nil {
			return s
		}
	case project.AnimatedParticleSystem:
		if ps := imp.sc.GetParticleSystemByName(a.Name); ps != nil {
			return ps
		}
	}
	return nil
}

func (imp *importer) applyGlobalConfiguration() {
	gc := imp.p.GlobalConfiguration
	if gc.GlobalAnimationSpeed != nil {
		imp.sc.AnimationSpeed = *gc.GlobalAnimationSpeed
	}
	if gc.FramesPerSecond > 0 {
		imp.sc.FramesPerSecond = gc.FramesPerSecond
	}
	for _, a := range gc.AnimatedAtLaunch {
		if a == nil {
			continue
		}
		target := imp.launchTarget(a)
		if target == nil {
			imp.dangling(PassGlobalConfiguration, "animatedAtLaunch", "%s %q not found", a.Type, a.Name)
			continue
		}
		imp.sc.NodesToStart = append(imp.sc.NodesToStart, target)
	}
}

func (imp *importer) importPostProcesses() {
	imp.rejected(PassPostProcesses, project.CollectionPostProcesses, "post-process")
	for i, pp := range imp.p.PostProcesses {
		if pp == nil {
			continue
		}
		pp := pp
		imp.guard(PassPostProcesses, fmt.Sprintf("post-process #%d", i), func() error {
			create, ok := factory.GetPostProcessFactory(factory.PostProcessKey(pp.Name))
			if !ok {
				return unavailable("Post-process factory %q is not registered", factory.PostProcessKey(pp.Name))
			}
			live, err := create(imp.ctx, pp.SerializationObject)
			if err != nil {
				return err
			}
			if pp.Detached() {
				live.DetachCameras(imp.sc.Cameras()...)
			}
			imp.tag(live, tags.Added)
			return nil
		})
	}
}

func (imp *importer) importCustomMetadata() {
	for key, value := range imp.p.CustomMetadatas {
		imp.sc.Metadata[key] = append(json.RawMessage(nil), value...)
	}
}
