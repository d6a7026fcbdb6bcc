package factory

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/utils"
)

type transformRecord struct {
	Position           []float32 `json:"position"`
	Rotation           []float32 `json:"rotation"`
	RotationQuaternion []float32 `json:"rotationQuaternion"`
	Scaling            []float32 `json:"scaling"`
}

func (tr *transformRecord) apply(n *scene.Node) error {
	var err error
	if n.Position, err = utils.Vec3FromSliceOr(tr.Position, n.Position); err != nil {
		return errors.Wrapf(err, "Invalid position")
	}
	if len(tr.RotationQuaternion) != 0 {
		if len(tr.RotationQuaternion) != 4 {
			return errors.Errorf("Invalid rotationQuaternion: expected 4 components, got %d", len(tr.RotationQuaternion))
		}
		q := tr.RotationQuaternion
		n.Rotation = utils.QuatToEuler(mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}})
	} else if n.Rotation, err = utils.Vec3FromSliceOr(tr.Rotation, n.Rotation); err != nil {
		return errors.Wrapf(err, "Invalid rotation")
	}
	if n.Scaling, err = utils.Vec3FromSliceOr(tr.Scaling, n.Scaling); err != nil {
		return errors.Wrapf(err, "Invalid scaling")
	}
	return nil
}

type vertexDataRecord struct {
	ID        string    `json:"id"`
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	UVs       []float32 `json:"uvs"`
	Indices   []uint32  `json:"indices"`
}

func (vd *vertexDataRecord) geometry(id string) (*scene.Geometry, error) {
	if len(vd.Positions)%3 != 0 {
		return nil, errors.Errorf("Positions count %d is not a multiple of 3", len(vd.Positions))
	}
	if len(vd.Normals) != 0 && len(vd.Normals) != len(vd.Positions) {
		return nil, errors.Errorf("Normals count %d does not match positions count %d", len(vd.Normals), len(vd.Positions))
	}
	if len(vd.UVs) != 0 && len(vd.UVs)/2 != len(vd.Positions)/3 {
		return nil, errors.Errorf("UVs count %d does not match vertex count %d", len(vd.UVs), len(vd.Positions)/3)
	}
	vertices := uint32(len(vd.Positions) / 3)
	for _, idx := range vd.Indices {
		if idx >= vertices {
			return nil, errors.Errorf("Index %d out of range, %d vertices", idx, vertices)
		}
	}
	return &scene.Geometry{
		ID:        id,
		Positions: vd.Positions,
		Normals:   vd.Normals,
		UVs:       vd.UVs,
		Indices:   vd.Indices,
	}, nil
}

type meshRecord struct {
	transformRecord
	vertexDataRecord

	Name       string  `json:"name"`
	ID         *string `json:"id"`
	ParentID   string  `json:"parentId"`
	MaterialID string  `json:"materialId"`
	GeometryID string  `json:"geometryId"`
	IsVisible  *bool   `json:"isVisible"`
	IsEnabled  *bool   `json:"isEnabled"`
}

type meshesRecord struct {
	Meshes     []json.RawMessage `json:"meshes"`
	Geometries struct {
		VertexData []json.RawMessage `json:"vertexData"`
	} `json:"geometries"`
}

// ParseMeshes builds shared geometries first, then every mesh of the record
func ParseMeshes(ctx *Context, raw json.RawMessage) ([]*scene.Node, error) {
	var rec meshesRecord
	if err := unmarshal(raw, &rec, "mesh"); err != nil {
		return nil, err
	}
	if rec.Meshes == nil {
		return nil, errors.Errorf("Mesh payload without meshes")
	}

	for _, vdRaw := range rec.Geometries.VertexData {
		if err := ParseGeometry(ctx, vdRaw); err != nil {
			return nil, err
		}
	}

	result := make([]*scene.Node, 0, len(rec.Meshes))
	for _, meshRaw := range rec.Meshes {
		n, err := ParseMesh(ctx, meshRaw)
		if err != nil {
			return result, err
		}
		result = append(result, n)
	}
	return result, nil
}

// ParseGeometry adds shared vertex data, already known ids are kept
func ParseGeometry(ctx *Context, raw json.RawMessage) error {
	var vd vertexDataRecord
	if err := unmarshal(raw, &vd, "vertex data"); err != nil {
		return err
	}
	if vd.ID == "" {
		return errors.Errorf("Vertex data without id")
	}
	if ctx.Scene.GetGeometryByID(vd.ID) != nil {
		return nil
	}
	g, err := vd.geometry(vd.ID)
	if err != nil {
		return errors.Wrapf(err, "Invalid geometry %q", vd.ID)
	}
	ctx.Scene.AddGeometry(g)
	return nil
}

func ParseMesh(ctx *Context, raw json.RawMessage) (*scene.Node, error) {
	var rec meshRecord
	if err := unmarshal(raw, &rec, "mesh"); err != nil {
		return nil, err
	}
	if rec.ID == nil {
		return nil, errors.Errorf("Mesh %q without id", rec.Name)
	}
	if rec.Position == nil {
		return nil, errors.Errorf("Mesh %q without position", rec.Name)
	}

	n := scene.NewNode(scene.NodeMesh, *rec.ID, rec.Name)
	if err := rec.transformRecord.apply(n); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse mesh %q", rec.Name)
	}
	if rec.IsVisible != nil {
		n.IsVisible = *rec.IsVisible
	}
	if rec.IsEnabled != nil {
		n.IsEnabled = *rec.IsEnabled
	}

	if rec.GeometryID != "" {
		if n.Geometry = ctx.Scene.GetGeometryByID(rec.GeometryID); n.Geometry == nil {
			ctx.dangling("Geometry %q of mesh %q not found", rec.GeometryID, rec.Name)
		}
	} else if len(rec.Positions) != 0 {
		g, err := rec.vertexDataRecord.geometry(n.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid geometry of mesh %q", rec.Name)
		}
		n.Geometry = ctx.Scene.AddGeometry(g)
	}

	if rec.MaterialID != "" {
		n.Material = ctx.Scene.GetMaterialByID(rec.MaterialID)
	}
	resolveParent(ctx, n, rec.ParentID)
	return ctx.Scene.AddNode(n), nil
}

type instanceRecord struct {
	transformRecord
	Name       string `json:"name"`
	SourceMesh string `json:"sourceMesh"`
	ParentID   string `json:"parentId"`
}

// ParseInstancedMesh returns nil without error when the source mesh is gone
func ParseInstancedMesh(ctx *Context, id string, raw json.RawMessage) (*scene.Node, error) {
	var rec instanceRecord
	if err := unmarshal(raw, &rec, "instanced mesh"); err != nil {
		return nil, err
	}
	source := ctx.Scene.GetMeshByID(rec.SourceMesh)
	if source == nil || source.Kind != scene.NodeMesh {
		return nil, nil
	}

	n := scene.NewNode(scene.NodeInstancedMesh, id, rec.Name)
	n.SourceMesh = source
	n.Geometry = source.Geometry
	n.Material = source.Material
	if err := rec.transformRecord.apply(n); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse instance %q", rec.Name)
	}
	resolveParent(ctx, n, rec.ParentID)
	return ctx.Scene.AddNode(n), nil
}

type lightRecord struct {
	Name      string    `json:"name"`
	ID        *string   `json:"id"`
	Type      *int      `json:"type"`
	ParentID  string    `json:"parentId"`
	Position  []float32 `json:"position"`
	Direction []float32 `json:"direction"`
	Diffuse   []float32 `json:"diffuse"`
	Specular  []float32 `json:"specular"`
	Intensity *float32  `json:"intensity"`
	Range     float32   `json:"range"`
	Angle     float32   `json:"angle"`
	Exponent  float32   `json:"exponent"`
}

func ParseLight(ctx *Context, raw json.RawMessage) (*scene.Node, error) {
	var rec lightRecord
	if err := unmarshal(raw, &rec, "light"); err != nil {
		return nil, err
	}
	if rec.ID == nil {
		return nil, errors.Errorf("Light %q without id", rec.Name)
	}
	if rec.Type == nil || *rec.Type < int(scene.PointLight) || *rec.Type > int(scene.HemisphericLight) {
		return nil, errors.Errorf("Light %q has invalid type", rec.Name)
	}

	n := scene.NewNode(scene.NodeLight, *rec.ID, rec.Name)
	l := n.Light
	l.Type = scene.LightType(*rec.Type)
	l.Range = rec.Range
	l.Angle = rec.Angle
	l.Exponent = rec.Exponent
	if rec.Intensity != nil {
		l.Intensity = *rec.Intensity
	}

	var err error
	if n.Position, err = utils.Vec3FromSliceOr(rec.Position, n.Position); err != nil {
		return nil, errors.Wrapf(err, "Invalid position of light %q", rec.Name)
	}
	if l.Direction, err = utils.Vec3FromSliceOr(rec.Direction, l.Direction); err != nil {
		return nil, errors.Wrapf(err, "Invalid direction of light %q", rec.Name)
	}
	if len(rec.Diffuse) != 0 {
		if l.Diffuse, err = utils.Color3FromSlice(rec.Diffuse); err != nil {
			return nil, errors.Wrapf(err, "Invalid diffuse of light %q", rec.Name)
		}
	}
	if len(rec.Specular) != 0 {
		if l.Specular, err = utils.Color3FromSlice(rec.Specular); err != nil {
			return nil, errors.Wrapf(err, "Invalid specular of light %q", rec.Name)
		}
	}
	resolveParent(ctx, n, rec.ParentID)
	return ctx.Scene.AddNode(n), nil
}

type cameraRecord struct {
	transformRecord
	Name     string    `json:"name"`
	ID       *string   `json:"id"`
	Type     string    `json:"type"`
	ParentID string    `json:"parentId"`
	Target   []float32 `json:"target"`
	Fov      *float32  `json:"fov"`
	MinZ     *float32  `json:"minZ"`
	MaxZ     *float32  `json:"maxZ"`
	Speed    *float32  `json:"speed"`
}

func ParseCamera(ctx *Context, raw json.RawMessage) (*scene.Node, error) {
	var rec cameraRecord
	if err := unmarshal(raw, &rec, "camera"); err != nil {
		return nil, err
	}
	if rec.ID == nil {
		return nil, errors.Errorf("Camera %q without id", rec.Name)
	}

	n := scene.NewNode(scene.NodeCamera, *rec.ID, rec.Name)
	c := n.Camera
	if rec.Type != "" {
		c.Type = rec.Type
	}
	for _, f := range []struct {
		dst *float32
		src *float32
	}{{&c.Fov, rec.Fov}, {&c.MinZ, rec.MinZ}, {&c.MaxZ, rec.MaxZ}, {&c.Speed, rec.Speed}} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if err := rec.transformRecord.apply(n); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse camera %q", rec.Name)
	}
	var err error
	if c.Target, err = utils.Vec3FromSliceOr(rec.Target, c.Target); err != nil {
		return nil, errors.Wrapf(err, "Invalid target of camera %q", rec.Name)
	}
	resolveParent(ctx, n, rec.ParentID)
	return ctx.Scene.AddNode(n), nil
}

// NewEmitterPlaceholder creates the bare transform a particle system emits from
func NewEmitterPlaceholder(ctx *Context, id, name string) *scene.Node {
	return ctx.Scene.AddNode(scene.NewNode(scene.NodeTransform, id, name))
}

func NewPhysicsImpostor(rec *project.Physics) (*scene.PhysicsImpostor, error) {
	switch rec.Impostor {
	case scene.NoImpostor, scene.SphereImpostor, scene.BoxImpostor, scene.PlaneImpostor,
		scene.MeshImpostor, scene.CylinderImpostor, scene.ParticleImpostor, scene.HeightmapImpostor:
	default:
		return nil, errors.Errorf("Unknown physics impostor type %d", rec.Impostor)
	}
	if rec.Mass < 0 {
		return nil, errors.Errorf("Negative physics mass %v", rec.Mass)
	}
	return &scene.PhysicsImpostor{
		Type:        rec.Impostor,
		Mass:        rec.Mass,
		Friction:    rec.Friction,
		Restitution: rec.Restitution,
	}, nil
}
