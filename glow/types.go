package glow

import "github.com/magnusoverli/ember-plus-sub000/model"

// NodeContents, ParameterContents, MatrixContents and FunctionContents
// carry only the fields actually present on the wire; nil means absent.
type NodeContents struct {
	Identifier  *string
	Description *string
	IsOnline    *bool
}

type ParameterContents struct {
	Identifier *string
	Value      *model.Value
	Minimum    *float64
	Maximum    *float64
	Access     *model.Access
	Format     *string
	EnumNames  []string
	EnumValues []int32
	Factor     *float64
	StreamID   *int64
	Formula    *string
	IsOnline   *bool
}

type MatrixContents struct {
	Identifier  *string
	Description *string
	Type        *model.MatrixType
	TargetCount *int
	SourceCount *int
}

type FunctionContents struct {
	Identifier  *string
	Description *string
}

// Invocation is the payload of a Command{Invoke}.
type Invocation struct {
	ID   int64
	Args []model.Value
}

// Command appears as a child of a Node/Parameter/Matrix(/Qualified*) or
// directly under the root with an implicit empty path.
type Command struct {
	Number       int
	Invocation   *Invocation
	DirFieldMask *int
}

// ConnectionWire is the wire form of one target's connection operation.
type ConnectionWire struct {
	Target      int
	Sources     []int
	Operation   model.ConnectionOperation
	Disposition *model.Disposition
}

type TupleItem struct {
	Name string
	Type model.ValueType
}

// Node / QualifiedNode.
type Node struct {
	Number   int
	Contents NodeContents
	Children []Item
	Command  *Command
}

type QualifiedNode struct {
	Path     model.Path
	Contents NodeContents
	Children []Item
	Command  *Command
}

// Parameter / QualifiedParameter.
type Parameter struct {
	Number   int
	Contents ParameterContents
	Command  *Command
}

type QualifiedParameter struct {
	Path     model.Path
	Contents ParameterContents
	Command  *Command
}

// Matrix / QualifiedMatrix.
type Matrix struct {
	Number      int
	Contents    MatrixContents
	Targets     []int
	Sources     []int
	Connections []ConnectionWire
	Command     *Command
}

type QualifiedMatrix struct {
	Path        model.Path
	Contents    MatrixContents
	Targets     []int
	Sources     []int
	Connections []ConnectionWire
	Command     *Command
}

// Function / QualifiedFunction.
type Function struct {
	Number   int
	Contents FunctionContents
	Args     []TupleItem
	Results  []TupleItem
	Command  *Command
}

type QualifiedFunction struct {
	Path     model.Path
	Contents FunctionContents
	Args     []TupleItem
	Results  []TupleItem
	Command  *Command
}

type InvocationResult struct {
	InvocationID int64
	Success      bool
	Result       []model.Value
}

type StreamEntry struct {
	StreamID int64
	Raw      model.Value
}

type StreamCollection struct {
	Entries []StreamEntry
}

// Item is any element that may appear directly inside a RootElementCollection
// or a Node/Matrix's children collection.
type Item interface{ isItem() }

func (*Node) isItem()               {}
func (*QualifiedNode) isItem()      {}
func (*Parameter) isItem()          {}
func (*QualifiedParameter) isItem() {}
func (*Matrix) isItem()             {}
func (*QualifiedMatrix) isItem()    {}
func (*Function) isItem()           {}
func (*QualifiedFunction) isItem()  {}
func (*Command) isItem()            {}
func (*InvocationResult) isItem()   {}
func (*StreamCollection) isItem()   {}

// Root is the decoded/encoded form of one Glow message: an ordered list of
// top-level items inside a RootElementCollection.
type Root struct {
	Items []Item
}
