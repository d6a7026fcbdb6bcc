package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
)

// Cacher maps exported source entities to their glTF indexes
type Cacher struct {
	Doc   *gltf.Document
	cache map[interface{}]uint32
}

func NewCacher() *Cacher {
	return &Cacher{
		Doc:   gltf.NewDocument(),
		cache: make(map[interface{}]uint32),
	}
}

// GetCachedOr returns the index stored for key, calling create once otherwise
func (c *Cacher) GetCachedOr(key interface{}, create func() uint32) uint32 {
	if idx, ok := c.cache[key]; ok {
		return idx
	}
	idx := create()
	c.cache[key] = idx
	return idx
}

// ExportBinary writes doc as glb. Root nodes must already be listed in the
// default scene.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
