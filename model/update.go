package model

// ParameterUpdate carries only the fields actually present on the wire for
// a given Parameter message. Nil/false fields are "not present" and must
// not overwrite the cached value.
type ParameterUpdate struct {
	Identifier *string
	Value      *Value
	Access     *Access
	Minimum    *float64
	Maximum    *float64
	EnumNames  []string // nil means absent; present implies EnumValues also present
	EnumValues []int32
	Format     *string
	Formula    *string
	Factor     *float64
	StreamID   *int64
	IsOnline   *bool
}

// MergeParameter applies upd onto a copy of base (or a fresh Parameter if
// base is nil), implementing the metadata-preservation property: after a
// value-only update, identifier/type/access/min/max/enum/stream are
// unchanged.
func MergeParameter(base *Parameter, path Path, upd ParameterUpdate) *Parameter {
	var p Parameter
	if base != nil {
		p = *base.clone()
	} else {
		p = Parameter{Path: path.Clone()}
	}
	if upd.Identifier != nil {
		p.Identifier = *upd.Identifier
	}
	if upd.Value != nil {
		p.Value = *upd.Value
	}
	if upd.Access != nil {
		p.Access = *upd.Access
	}
	if upd.Minimum != nil {
		m := *upd.Minimum
		p.Minimum = &m
	}
	if upd.Maximum != nil {
		m := *upd.Maximum
		p.Maximum = &m
	}
	if upd.EnumNames != nil {
		p.EnumNames = append([]string(nil), upd.EnumNames...)
		p.EnumValues = append([]int32(nil), upd.EnumValues...)
	}
	if upd.Format != nil {
		p.Format = *upd.Format
	}
	if upd.Formula != nil {
		p.Formula = *upd.Formula
	}
	if upd.Factor != nil {
		p.Factor = *upd.Factor
	}
	if upd.StreamID != nil {
		p.StreamID = *upd.StreamID
	}
	if upd.IsOnline != nil {
		p.IsOnline = *upd.IsOnline
	}
	return &p
}

// NodeUpdate mirrors ParameterUpdate for Node fields observed piecemeal.
type NodeUpdate struct {
	Identifier  *string
	Description *string
	IsOnline    *bool
}

func MergeNode(base *Node, path Path, upd NodeUpdate) *Node {
	var n Node
	if base != nil {
		n = *base.clone()
	} else {
		n = Node{Path: path.Clone()}
	}
	if upd.Identifier != nil {
		n.Identifier = *upd.Identifier
	}
	if upd.Description != nil {
		n.Description = *upd.Description
	}
	if upd.IsOnline != nil {
		n.IsOnline = *upd.IsOnline
	}
	return &n
}
