package factory

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/scene"
)

var animationValueSizes = map[int]int{
	scene.AnimationTypeFloat:      1,
	scene.AnimationTypeVector3:    3,
	scene.AnimationTypeQuaternion: 4,
	scene.AnimationTypeMatrix:     16,
	scene.AnimationTypeColor3:     3,
	scene.AnimationTypeVector2:    2,
}

type animationRecord struct {
	Name           string  `json:"name"`
	Property       string  `json:"property"`
	FramePerSecond float32 `json:"framePerSecond"`
	DataType       int     `json:"dataType"`
	LoopBehavior   int     `json:"loopBehavior"`
	Keys           []struct {
		Frame  float32   `json:"frame"`
		Values []float32 `json:"values"`
	} `json:"keys"`
	Events []struct {
		Frame float32 `json:"frame"`
		Name  string  `json:"name"`
	} `json:"events"`
}

func ParseAnimation(raw json.RawMessage) (*scene.Animation, error) {
	var rec animationRecord
	if err := unmarshal(raw, &rec, "animation"); err != nil {
		return nil, err
	}
	if rec.Property == "" {
		return nil, errors.Errorf("Animation %q without target property", rec.Name)
	}
	size, ok := animationValueSizes[rec.DataType]
	if !ok {
		return nil, errors.Errorf("Animation %q has unknown data type %d", rec.Name, rec.DataType)
	}
	if rec.LoopBehavior < scene.AnimationLoopRelative || rec.LoopBehavior > scene.AnimationLoopConstant {
		return nil, errors.Errorf("Animation %q has unknown loop behavior %d", rec.Name, rec.LoopBehavior)
	}

	a := &scene.Animation{
		Name:           rec.Name,
		TargetProperty: rec.Property,
		FramePerSecond: rec.FramePerSecond,
		DataType:       rec.DataType,
		LoopBehavior:   rec.LoopBehavior,
		Keys:           make([]scene.AnimationKey, len(rec.Keys)),
	}
	for i, k := range rec.Keys {
		// values may carry in and out tangents around the value
		if len(k.Values) != size && len(k.Values) != size*3 {
			return nil, errors.Errorf("Animation %q key %d has %d values, expected %d", rec.Name, i, len(k.Values), size)
		}
		if i > 0 && k.Frame < rec.Keys[i-1].Frame {
			return nil, errors.Errorf("Animation %q keys are not sorted by frame", rec.Name)
		}
		a.Keys[i] = scene.AnimationKey{Frame: k.Frame, Values: k.Values}
	}
	for _, e := range rec.Events {
		a.Events = append(a.Events, scene.AnimationEvent{Frame: e.Frame, Name: e.Name})
	}
	return a, nil
}

type actionRecord struct {
	Type       *int   `json:"type"`
	Name       string `json:"name"`
	Detached   bool   `json:"detached"`
	Properties []struct {
		Name       string          `json:"name"`
		Value      json.RawMessage `json:"value"`
		TargetType string          `json:"targetType"`
	} `json:"properties"`
	Children []*actionRecord `json:"children"`
	Combine  []*actionRecord `json:"combine"`
}

func propertyValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (rec *actionRecord) node(depth int) (*scene.ActionNode, error) {
	if rec == nil {
		return nil, errors.Errorf("Empty action entry")
	}
	if rec.Type == nil {
		return nil, errors.Errorf("Action %q without type", rec.Name)
	}
	t := scene.ActionNodeType(*rec.Type)
	if t < scene.ActionNodeTrigger || t > scene.ActionNodeCondition {
		return nil, errors.Errorf("Action %q has unknown type %d", rec.Name, *rec.Type)
	}
	if depth == 0 && t != scene.ActionNodeTrigger {
		return nil, errors.Errorf("Action manager root entry %q is not a trigger", rec.Name)
	}
	if depth > 0 && t == scene.ActionNodeTrigger {
		return nil, errors.Errorf("Trigger %q nested in an action", rec.Name)
	}

	an := &scene.ActionNode{Type: t, Name: rec.Name, Detached: rec.Detached}
	for _, p := range rec.Properties {
		an.Properties = append(an.Properties, scene.ActionProperty{
			Name:       p.Name,
			Value:      propertyValue(p.Value),
			TargetType: p.TargetType,
		})
	}
	for _, child := range rec.Children {
		c, err := child.node(depth + 1)
		if err != nil {
			return nil, err
		}
		an.Children = append(an.Children, c)
	}
	for _, child := range rec.Combine {
		c, err := child.node(depth + 1)
		if err != nil {
			return nil, err
		}
		an.Combine = append(an.Combine, c)
	}
	return an, nil
}

// ParseActionManager builds a fresh action graph, owner is nil for the scene
func ParseActionManager(raw json.RawMessage, owner *scene.Node) (*scene.ActionManager, error) {
	var rec struct {
		Name     string          `json:"name"`
		Children []*actionRecord `json:"children"`
	}
	if err := unmarshal(raw, &rec, "action manager"); err != nil {
		return nil, err
	}
	if rec.Children == nil {
		return nil, errors.Errorf("Action manager %q without triggers", rec.Name)
	}

	am := &scene.ActionManager{Name: rec.Name, Owner: owner}
	for i, child := range rec.Children {
		trigger, err := child.node(0)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid trigger %d of action manager %q", i, rec.Name)
		}
		am.Triggers = append(am.Triggers, trigger)
	}
	return am, nil
}
