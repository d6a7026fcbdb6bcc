package scene

import (
	"encoding/json"
)

// RenderListHolder is an entity whose render list is filled after nodes exist
type RenderListHolder interface {
	AddToRenderList(n *Node)
}

type RenderTargetTexture struct {
	Name            string
	Size            int
	GenerateMipMaps bool
	RefreshRate     int
	RenderList      []*Node

	Texture *Texture
	Values  json.RawMessage
}

func NewRenderTargetTexture(name string, size int, generateMipMaps bool) *RenderTargetTexture {
	return &RenderTargetTexture{
		Name:            name,
		Size:            size,
		GenerateMipMaps: generateMipMaps,
		RefreshRate:     1,
		Texture:         &Texture{Name: name, Width: size, Height: size, Level: 1, IsRenderTarget: true},
	}
}

func (rt *RenderTargetTexture) AddToRenderList(n *Node) {
	rt.RenderList = append(rt.RenderList, n)
}

type ReflectionProbe struct {
	Name            string
	Size            int
	GenerateMipMaps bool
	RenderList      []*Node
	AttachedMesh    *Node

	CubeTexture *Texture
}

func NewReflectionProbe(name string, size int, generateMipMaps bool) *ReflectionProbe {
	return &ReflectionProbe{
		Name:            name,
		Size:            size,
		GenerateMipMaps: generateMipMaps,
		CubeTexture:     &Texture{Name: name, Width: size, Height: size, Level: 1, IsRenderTarget: true, IsCube: true},
	}
}

func (rp *ReflectionProbe) AddToRenderList(n *Node) {
	rp.RenderList = append(rp.RenderList, n)
}

// AttachToMesh makes the probe follow the position of mesh
func (rp *ReflectionProbe) AttachToMesh(mesh *Node) {
	rp.AttachedMesh = mesh
}
