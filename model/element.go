package model

import "sort"

// Kind discriminates the element variant stored at a Path. A path maps
// to at most one element kind, and it cannot change once established.
type Kind int

const (
	KindNode Kind = iota
	KindParameter
	KindMatrix
	KindFunction
)

// Node is a non-leaf element: a stable identifier, optional human
// description, online flag, and an ordered list of child paths. Order is
// preserved exactly as observed/recorded in provider response order.
type Node struct {
	Path        Path
	Identifier  string
	Description string
	IsOnline    bool
	Children    []Path
}

func (n *Node) Kind() Kind  { return KindNode }
func (n *Node) path() Path  { return n.Path }
func (n *Node) clone() *Node {
	c := *n
	c.Children = append([]Path(nil), n.Children...)
	return &c
}

// Parameter is a leaf element carrying a typed value plus metadata that is
// preserved across value-only updates.
type Parameter struct {
	Path        Path
	Identifier  string
	Value       Value
	Access      Access
	Minimum     *float64
	Maximum     *float64
	EnumNames   []string
	EnumValues  []int32
	Format      string
	Formula     string
	Factor      float64 // divides streamed raw values; 0 treated as 1
	StreamID    int64   // 0 means "not streamed"
	IsOnline    bool
}

func (p *Parameter) Kind() Kind { return KindParameter }
func (p *Parameter) path() Path { return p.Path }

// Editable reports whether a host write to this parameter is allowed.
func (p *Parameter) Editable() bool {
	return p.IsOnline && (p.Access == AccessWrite || p.Access == AccessReadWrite)
}

func (p *Parameter) EffectiveFactor() float64 {
	if p.Factor == 0 {
		return 1
	}
	return p.Factor
}

func (p *Parameter) clone() *Parameter {
	c := *p
	c.EnumNames = append([]string(nil), p.EnumNames...)
	c.EnumValues = append([]int32(nil), p.EnumValues...)
	if p.Minimum != nil {
		m := *p.Minimum
		c.Minimum = &m
	}
	if p.Maximum != nil {
		m := *p.Maximum
		c.Maximum = &m
	}
	return &c
}

// Connection is one (target,source) crosspoint's state.
type Connection struct {
	Connected   bool
	Disposition Disposition
}

// connKey identifies a crosspoint in Matrix.Connections.
type connKey struct{ Target, Source int }

// Matrix is a switching element with a declared type governing the
// connection-set invariants.
type Matrix struct {
	Path          Path
	Identifier    string
	Description   string
	Type          MatrixType
	TargetCount   int
	SourceCount   int
	Targets       []int // actual ordered target numbers
	Sources       []int // actual ordered source numbers
	TargetLabels  map[int]string
	SourceLabels  map[int]string
	Connections   map[connKey]Connection
}

func (m *Matrix) Kind() Kind { return KindMatrix }
func (m *Matrix) path() Path { return m.Path }

func newMatrix() *Matrix {
	return &Matrix{
		TargetLabels: map[int]string{},
		SourceLabels: map[int]string{},
		Connections:  map[connKey]Connection{},
	}
}

// NewMatrix constructs a Matrix with its maps initialized, for callers
// outside this package (snapshot load, provider dispatch) that cannot
// reach the unexported connKey type directly; connections are populated
// afterward via Store.MutateMatrix + ApplyConnection.
func NewMatrix(p Path, identifier, description string, mt MatrixType, targetCount, sourceCount int, targets, sources []int) *Matrix {
	m := newMatrix()
	m.Path = p
	m.Identifier = identifier
	m.Description = description
	m.Type = mt
	m.TargetCount = targetCount
	m.SourceCount = sourceCount
	m.Targets = append([]int(nil), targets...)
	m.Sources = append([]int(nil), sources...)
	return m
}

func (m *Matrix) clone() *Matrix {
	c := *m
	c.Targets = append([]int(nil), m.Targets...)
	c.Sources = append([]int(nil), m.Sources...)
	c.TargetLabels = make(map[int]string, len(m.TargetLabels))
	for k, v := range m.TargetLabels {
		c.TargetLabels[k] = v
	}
	c.SourceLabels = make(map[int]string, len(m.SourceLabels))
	for k, v := range m.SourceLabels {
		c.SourceLabels[k] = v
	}
	c.Connections = make(map[connKey]Connection, len(m.Connections))
	for k, v := range m.Connections {
		c.Connections[k] = v
	}
	return &c
}

// SourcesFor returns the ascending list of sources currently connected to
// target, for building a Glow Connection element.
func (m *Matrix) SourcesFor(target int) []int {
	var out []int
	for k, v := range m.Connections {
		if k.Target == target && v.Connected {
			out = append(out, k.Source)
		}
	}
	sort.Ints(out)
	return out
}

// TargetsFor returns all targets currently connected to source.
func (m *Matrix) TargetsFor(source int) []int {
	var out []int
	for k, v := range m.Connections {
		if k.Source == source && v.Connected {
			out = append(out, k.Target)
		}
	}
	return out
}

// Function is a leaf element describing an invocable operation: ordered
// argument and result descriptors.
type Function struct {
	Path        Path
	Identifier  string
	Description string
	ArgNames    []string
	ArgTypes    []ValueType
	ResNames    []string
	ResTypes    []ValueType
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) path() Path { return f.Path }

func (f *Function) clone() *Function {
	c := *f
	c.ArgNames = append([]string(nil), f.ArgNames...)
	c.ArgTypes = append([]ValueType(nil), f.ArgTypes...)
	c.ResNames = append([]string(nil), f.ResNames...)
	c.ResTypes = append([]ValueType(nil), f.ResTypes...)
	return &c
}

// Element is implemented by *Node, *Parameter, *Matrix, *Function.
type Element interface {
	Kind() Kind
	path() Path
}
