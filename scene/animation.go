package scene

const (
	AnimationTypeFloat = iota
	AnimationTypeVector3
	AnimationTypeQuaternion
	AnimationTypeMatrix
	AnimationTypeColor3
	AnimationTypeVector2
)

const (
	AnimationLoopRelative = iota
	AnimationLoopCycle
	AnimationLoopConstant
)

type AnimationKey struct {
	Frame  float32
	Values []float32
}

type AnimationEvent struct {
	Frame float32
	Name  string
}

type Animation struct {
	Name           string
	TargetProperty string
	FramePerSecond float32
	DataType       int
	LoopBehavior   int
	Keys           []AnimationKey
	Events         []AnimationEvent
}

// Range returns first and last key frames
func (a *Animation) Range() (from, to float32) {
	if len(a.Keys) == 0 {
		return 0, 0
	}
	return a.Keys[0].Frame, a.Keys[len(a.Keys)-1].Frame
}

// ActionNodeType distinguishes entries of a serialized action graph
type ActionNodeType int

const (
	ActionNodeTrigger ActionNodeType = iota
	ActionNodeAction
	ActionNodeFlowControl
	ActionNodeCondition
)

type ActionProperty struct {
	Name       string
	Value      string
	TargetType string
}

type ActionNode struct {
	Type       ActionNodeType
	Name       string
	Detached   bool
	Properties []ActionProperty
	Children   []*ActionNode
	Combine    []*ActionNode
}

// ActionManager is the trigger/action graph of a mesh or of the scene
type ActionManager struct {
	Name     string
	Owner    *Node
	Triggers []*ActionNode
}

// CountActions returns the number of action nodes below all triggers
func (am *ActionManager) CountActions() int {
	var count func(nodes []*ActionNode) int
	count = func(nodes []*ActionNode) int {
		total := 0
		for _, n := range nodes {
			if n.Type != ActionNodeTrigger {
				total++
			}
			total += count(n.Children) + count(n.Combine)
		}
		return total
	}
	return count(am.Triggers)
}

const (
	NoImpostor        = 0
	SphereImpostor    = 1
	BoxImpostor       = 2
	PlaneImpostor     = 3
	MeshImpostor      = 4
	CylinderImpostor  = 7
	ParticleImpostor  = 8
	HeightmapImpostor = 9
)

type PhysicsImpostor struct {
	Type        int
	Mass        float32
	Friction    float32
	Restitution float32
}
