// Package exporter writes a live scene back into a project document that
// the importer can rebuild, and into binary glTF.
package exporter

import (
	"encoding/json"

	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/tags"
	"github.com/mogaika/scene_project/utils"
)

type exporter struct {
	sc *scene.Scene
	p  *project.Project
}

// Export serializes every entity the editor created or modified. Entities
// the tag store never saw are serialized in full as well. Nodes
// without id and nameless meshes carrying a material get identities
// assigned in place since the importer resolves them by id and name.
func Export(sc *scene.Scene) *project.Project {
	ensureIdentity(sc)

	e := &exporter{sc: sc, p: &project.Project{}}
	project.Clean(e.p)

	e.exportRenderTargets()
	e.exportMaterials()
	e.exportSounds()
	e.exportNodes()
	e.exportParticleSystems()
	e.exportLensFlares()
	e.exportShadowGenerators()
	e.exportSceneActions()
	e.exportEffectLayers()
	e.exportGlobalConfiguration()
	e.exportPostProcesses()

	e.p.PhysicsEnabled = sc.PhysicsEnabled
	for key, value := range sc.Metadata {
		e.p.CustomMetadatas[key] = append(json.RawMessage(nil), value...)
	}
	return e.p
}

func ensureIdentity(sc *scene.Scene) {
	var names utils.RandomNameGenerator
	for _, n := range sc.Nodes {
		if n.Name != "" {
			names.Reserve(n.Name)
		}
	}
	for _, n := range sc.Nodes {
		if n.ID == "" {
			n.ID = scene.NewID()
		}
		if n.Name == "" && n.Material != nil && n.IsMesh() {
			n.Name = names.RandomName()
		}
	}
	for _, g := range sc.Geometries {
		if g.ID == "" {
			g.ID = scene.NewID()
		}
	}
}

func (e *exporter) has(obj interface{}, query string) bool {
	return e.sc.Tags.MatchesQuery(obj, query)
}

// created reports entities to serialize in full: added ones and untracked
// ones built outside the importer
func (e *exporter) created(obj interface{}) bool {
	return !e.sc.Tags.IsEnabled(obj) || e.has(obj, tags.Added)
}

func (e *exporter) modified(obj interface{}) bool {
	return !e.sc.Tags.IsEnabled(obj) || e.has(obj, tags.Modified)
}

func nodeType(n *scene.Node) string {
	switch n.Kind {
	case scene.NodeInstancedMesh:
		return project.NodeTypeInstancedMesh
	case scene.NodeLight:
		return project.NodeTypeLight
	case scene.NodeCamera:
		return project.NodeTypeCamera
	default:
		return project.NodeTypeMesh
	}
}

func (e *exporter) animations(list []*scene.Animation, targetName, targetType string, all bool) []*project.Animation {
	result := make([]*project.Animation, 0)
	for _, a := range list {
		if !all && !e.modified(a) {
			continue
		}
		result = append(result, &project.Animation{
			TargetName:          targetName,
			TargetType:          targetType,
			Events:              mustMarshal(animationEvents(a)),
			SerializationObject: animationPayload(a),
		})
	}
	return result
}

func physicsRecord(pi *scene.PhysicsImpostor) *project.Physics {
	if pi == nil {
		return nil
	}
	return &project.Physics{
		Impostor:    pi.Type,
		Mass:        pi.Mass,
		Friction:    pi.Friction,
		Restitution: pi.Restitution,
	}
}

func (e *exporter) exportNodes() {
	for _, n := range e.sc.Nodes {
		rec := &project.Node{
			Type: nodeType(n),
			ID:   n.ID,
			Name: n.Name,
		}
		added := e.created(n) && !e.has(n, tags.AddedParticleSystem)

		switch {
		case e.has(n, tags.AddedParticleSystem):
		case added && n.Kind == scene.NodeInstancedMesh:
			rec.SerializationObject = instancePayload(n)
		case added && n.Kind == scene.NodeLight:
			rec.SerializationObject = lightPayload(n)
		case added && n.Kind == scene.NodeCamera:
			rec.SerializationObject = cameraPayload(n)
		case added:
			rec.SerializationObject = meshPayload(n)
		}

		rec.Animations = e.animations(n.Animations, n.Name, project.AnimatedNode, added)
		if n.IsMesh() {
			if n.ActionManager != nil {
				rec.Actions = actionManagerPayload(n.ActionManager)
			}
			rec.Physics = physicsRecord(n.Physics)
		}

		if !added && !e.has(n, tags.AddedParticleSystem) &&
			len(rec.Animations) == 0 && rec.Actions == nil && rec.Physics == nil {
			continue
		}
		e.p.Nodes = append(e.p.Nodes, rec)
	}

	if anims := e.animations(e.sc.Animations, "Scene", project.AnimatedScene, false); len(anims) != 0 {
		e.p.Nodes = append(e.p.Nodes, &project.Node{
			Type:       project.NodeTypeScene,
			Name:       "Scene",
			Animations: anims,
		})
	}
}

func (e *exporter) exportRenderTargets() {
	for _, rp := range e.sc.ReflectionProbes {
		e.p.RenderTargets = append(e.p.RenderTargets, &project.RenderTarget{
			IsProbe:             true,
			SerializationObject: probePayload(rp),
		})
	}
	for _, rt := range e.sc.RenderTargets {
		if !e.created(rt) {
			continue
		}
		e.p.RenderTargets = append(e.p.RenderTargets, &project.RenderTarget{
			SerializationObject: renderTargetPayload(rt),
		})
	}
}

func (e *exporter) exportMaterials() {
	for _, m := range e.sc.Materials {
		if !e.created(m) && m.CustomType == "StandardMaterial" {
			continue
		}
		rec := &project.Material{
			NewInstance:      true,
			SerializedValues: materialValues(m),
		}
		for _, n := range e.sc.Meshes() {
			if n.Material == m && n.Kind != scene.NodeInstancedMesh && n.Name != "" {
				rec.MeshesNames = append(rec.MeshesNames, n.Name)
			}
		}
		e.p.Materials = append(e.p.Materials, rec)
	}
}

func (e *exporter) exportSounds() {
	for _, s := range e.sc.Sounds {
		if !e.created(s) {
			continue
		}
		e.p.Sounds = append(e.p.Sounds, &project.Sound{
			Name:                s.Name,
			SerializationObject: soundPayload(s),
		})
	}
}

func (e *exporter) exportParticleSystems() {
	for _, ps := range e.sc.ParticleSystems {
		rec := &project.ParticleSystem{
			HasEmitter:          true,
			SerializationObject: particleSystemPayload(ps),
		}
		if ps.Emitter != nil && e.has(ps.Emitter, tags.AddedParticleSystem) {
			rec.HasEmitter = false
			rec.EmitterPosition = utils.Vec3ToSlice(ps.Emitter.Position)
		}
		e.p.ParticleSystems = append(e.p.ParticleSystems, rec)
	}
}

func (e *exporter) exportLensFlares() {
	for _, lf := range e.sc.LensFlareSystems {
		e.p.LensFlares = append(e.p.LensFlares, &project.LensFlare{
			SerializationObject: lensFlarePayload(lf),
		})
	}
}

func (e *exporter) exportShadowGenerators() {
	for _, sg := range e.sc.ShadowGenerators {
		if !e.created(sg) || sg.Light == nil {
			continue
		}
		e.p.ShadowGenerators = append(e.p.ShadowGenerators, shadowGeneratorPayload(sg))
	}
}

func (e *exporter) exportSceneActions() {
	if e.sc.ActionManager != nil {
		e.p.Actions = actionManagerPayload(e.sc.ActionManager)
	}
}

func (e *exporter) exportEffectLayers() {
	for _, el := range e.sc.EffectLayers {
		if !e.created(el) {
			continue
		}
		e.p.EffectLayers = append(e.p.EffectLayers, &project.EffectLayer{
			Name:                el.Name,
			SerializationObject: effectLayerPayload(el),
		})
	}
}

func launchRecord(a scene.Animatable) *project.AnimatedAtLaunch {
	switch a.(type) {
	case *scene.Scene:
		return &project.AnimatedAtLaunch{Type: project.AnimatedScene, Name: a.AnimatableName()}
	case *scene.Node:
		return &project.AnimatedAtLaunch{Type: project.AnimatedNode, Name: a.AnimatableName()}
	case *scene.Sound:
		return &project.AnimatedAtLaunch{Type: project.AnimatedSound, Name: a.AnimatableName()}
	case *scene.ParticleSystem:
		return &project.AnimatedAtLaunch{Type: project.AnimatedParticleSystem, Name: a.AnimatableName()}
	}
	return nil
}

func (e *exporter) exportGlobalConfiguration() {
	speed := e.sc.AnimationSpeed
	gc := &project.GlobalConfiguration{
		GlobalAnimationSpeed: &speed,
		FramesPerSecond:      e.sc.FramesPerSecond,
		AnimatedAtLaunch:     make([]*project.AnimatedAtLaunch, 0, len(e.sc.NodesToStart)),
	}
	for _, a := range e.sc.NodesToStart {
		if rec := launchRecord(a); rec != nil {
			gc.AnimatedAtLaunch = append(gc.AnimatedAtLaunch, rec)
		}
	}
	e.p.GlobalConfiguration = gc
}

func (e *exporter) exportPostProcesses() {
	for _, pp := range e.sc.PostProcesses {
		attach := pp.IsAttached()
		e.p.PostProcesses = append(e.p.PostProcesses, &project.PostProcess{
			Name:                pp.Name,
			Attach:              &attach,
			SerializationObject: append(json.RawMessage(nil), pp.Options...),
		})
	}
}
