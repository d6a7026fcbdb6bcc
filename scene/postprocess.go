package scene

import (
	"encoding/json"
)

// PostProcess is a rendering pipeline created by a named factory
type PostProcess struct {
	Name    string
	Options json.RawMessage
	Cameras []*Node
}

func (pp *PostProcess) IsAttached() bool {
	return len(pp.Cameras) != 0
}

func (pp *PostProcess) AttachCameras(cameras []*Node) {
	for _, c := range cameras {
		attached := false
		for _, existing := range pp.Cameras {
			if existing == c {
				attached = true
				break
			}
		}
		if !attached {
			pp.Cameras = append(pp.Cameras, c)
		}
	}
}

// DetachCameras removes the given cameras, or every camera when none given
func (pp *PostProcess) DetachCameras(cameras ...*Node) {
	if len(cameras) == 0 {
		pp.Cameras = nil
		return
	}
	kept := pp.Cameras[:0]
	for _, existing := range pp.Cameras {
		remove := false
		for _, c := range cameras {
			if c == existing {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, existing)
		}
	}
	pp.Cameras = kept
}

type EffectLayer struct {
	Name    string
	Type    string
	Options json.RawMessage
}

type Sound struct {
	Name     string
	URL      string
	Volume   float32
	Autoplay bool
	Loop     bool
	Spatial  bool

	ConnectedMesh   *Node
	ConnectedMeshID string
	Values          json.RawMessage
}

func (s *Sound) AnimatableName() string { return s.Name }
