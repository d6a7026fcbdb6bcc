package exporter

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/utils"
	"github.com/mogaika/scene_project/utils/gltfutils"
)

type meshKey struct {
	geometry *scene.Geometry
	material *scene.Material
}

func exportGLTFMaterial(c *gltfutils.Cacher, m *scene.Material) uint32 {
	return c.GetCachedOr(m, func() uint32 {
		color := &[4]float32{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], m.Alpha}
		gm := &gltf.Material{
			Name:        m.Name,
			DoubleSided: !m.BackFaceCulling,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: color,
			},
		}
		if m.Alpha < 1 {
			gm.AlphaMode = gltf.AlphaBlend
		}
		c.Doc.Materials = append(c.Doc.Materials, gm)
		return uint32(len(c.Doc.Materials) - 1)
	})
}

func exportGLTFMesh(c *gltfutils.Cacher, name string, g *scene.Geometry, m *scene.Material) uint32 {
	return c.GetCachedOr(meshKey{g, m}, func() uint32 {
		doc := c.Doc
		vertices := g.VertexCount()

		positions := make([][3]float32, vertices)
		for i := range positions {
			positions[i] = [3]float32{g.Positions[i*3], g.Positions[i*3+1], g.Positions[i*3+2]}
		}
		attributes := map[string]uint32{
			"POSITION": modeler.WritePosition(doc, positions),
		}
		if len(g.Normals) == len(g.Positions) {
			normals := make([][3]float32, vertices)
			for i := range normals {
				normals[i] = [3]float32{g.Normals[i*3], g.Normals[i*3+1], g.Normals[i*3+2]}
			}
			attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
		}
		if len(g.UVs) == vertices*2 {
			uvs := make([][2]float32, vertices)
			for i := range uvs {
				uvs[i] = [2]float32{g.UVs[i*2], g.UVs[i*2+1]}
			}
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		}

		primitive := &gltf.Primitive{Attributes: attributes}
		if len(g.Indices) != 0 {
			primitive.Indices = gltf.Index(modeler.WriteIndices(doc, g.Indices))
		}
		if m != nil {
			primitive.Material = gltf.Index(exportGLTFMaterial(c, m))
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       name,
			Primitives: []*gltf.Primitive{primitive},
		})
		return uint32(len(doc.Meshes) - 1)
	})
}

func exportGLTFNode(c *gltfutils.Cacher, sc *scene.Scene, n *scene.Node) uint32 {
	q := utils.EulerToQuat(n.Rotation)
	gn := &gltf.Node{
		Name:        n.Name,
		Translation: n.Position,
		Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       n.Scaling,
	}

	geometry, material := n.Geometry, n.Material
	if n.SourceMesh != nil {
		geometry, material = n.SourceMesh.Geometry, n.SourceMesh.Material
	}
	if geometry != nil && geometry.VertexCount() != 0 {
		gn.Mesh = gltf.Index(exportGLTFMesh(c, n.Name, geometry, material))
	}

	c.Doc.Nodes = append(c.Doc.Nodes, gn)
	idx := uint32(len(c.Doc.Nodes) - 1)
	for _, child := range sc.Children(n) {
		gn.Children = append(gn.Children, exportGLTFNode(c, sc, child))
	}
	return idx
}

// ExportGLTF writes the mesh hierarchy of sc with material base colors as glb
func ExportGLTF(sc *scene.Scene, w io.Writer) error {
	c := gltfutils.NewCacher()
	for _, n := range sc.Children(nil) {
		c.Doc.Scenes[0].Nodes = append(c.Doc.Scenes[0].Nodes, exportGLTFNode(c, sc, n))
	}
	if err := gltfutils.ExportBinary(w, c.Doc); err != nil {
		return errors.Wrapf(err, "Failed to encode gltf")
	}
	return nil
}
