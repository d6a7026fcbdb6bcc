// Package texture decodes the base64 texture payloads embedded in projects
package texture

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mogaika/scene_project/scene"
)

const dataPrefix = "data:"

type decoded struct {
	mime   string
	buffer []byte
	width  int
	height int
}

// splitDataURL separates "data:<mime>;base64,<payload>"
func splitDataURL(payload string) (mime string, body string) {
	if !strings.HasPrefix(payload, dataPrefix) {
		return "", payload
	}
	comma := strings.IndexByte(payload, ',')
	if comma < 0 {
		return "", payload[len(dataPrefix):]
	}
	header := payload[len(dataPrefix):comma]
	if semi := strings.IndexByte(header, ';'); semi >= 0 {
		header = header[:semi]
	}
	return header, payload[comma+1:]
}

func decode(payload string) (*decoded, error) {
	mime, body := splitDataURL(strings.TrimSpace(payload))
	if body == "" {
		return nil, errors.Errorf("Empty texture payload")
	}

	buf, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		var rawErr error
		if buf, rawErr = base64.RawStdEncoding.DecodeString(body); rawErr != nil {
			return nil, errors.Wrapf(err, "Failed to decode base64 texture")
		}
	}

	d := &decoded{mime: mime, buffer: buf}
	if kind, err := filetype.Match(buf); err == nil && kind != filetype.Unknown {
		d.mime = kind.MIME.Value
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf)); err == nil {
		d.width = cfg.Width
		d.height = cfg.Height
	}
	return d, nil
}

func (d *decoded) texture(name string) *scene.Texture {
	return &scene.Texture{
		Name:     strings.Replace(name, dataPrefix, "", 1),
		MimeType: d.mime,
		Buffer:   d.buffer,
		Width:    d.width,
		Height:   d.height,
		Level:    1,
	}
}

// Decode creates a texture from base64 payload. Payloads that are not a
// known image are kept as opaque buffers.
func Decode(payload string, name string) (*scene.Texture, error) {
	d, err := decode(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode texture %q", name)
	}
	return d.texture(name), nil
}

// Encode is the inverse of Decode
func Encode(tex *scene.Texture) string {
	if tex == nil || len(tex.Buffer) == 0 {
		return ""
	}
	mime := tex.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return dataPrefix + mime + ";base64," + base64.StdEncoding.EncodeToString(tex.Buffer)
}

// Cache shares decoded payloads between textures. Every Decode still
// returns a distinct texture since textures are separate scene entities.
type Cache struct {
	lru *lru.Cache[[sha1.Size]byte, *decoded]
}

func NewCache(size int) (*Cache, error) {
	l, err := lru.New[[sha1.Size]byte, *decoded](size)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create texture cache")
	}
	return &Cache{lru: l}, nil
}

// Decode works like the package level Decode, a nil cache decodes directly
func (c *Cache) Decode(payload string, name string) (*scene.Texture, error) {
	if c == nil {
		return Decode(payload, name)
	}
	key := sha1.Sum([]byte(payload))
	if d, ok := c.lru.Get(key); ok {
		return d.texture(name), nil
	}
	d, err := decode(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode texture %q", name)
	}
	c.lru.Add(key, d)
	return d.texture(name), nil
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
