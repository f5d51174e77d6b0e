package glow_test

import (
	"testing"

	"github.com/magnusoverli/ember-plus-sub000/ber"
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

func ptr[T any](v T) *T { return &v }

func TestNodeRoundTrip(t *testing.T) {
	n := &glow.Node{
		Number: 1,
		Contents: glow.NodeContents{
			Identifier:  ptr("amp1"),
			Description: ptr("Main amplifier"),
			IsOnline:    ptr(true),
		},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{n}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(root.Items))
	}
	got, ok := root.Items[0].(*glow.Node)
	if !ok {
		t.Fatalf("expected *Node, got %T", root.Items[0])
	}
	if got.Number != 1 || *got.Contents.Identifier != "amp1" || *got.Contents.Description != "Main amplifier" || !*got.Contents.IsOnline {
		t.Fatalf("node round-trip mismatch: %+v", got.Contents)
	}
}

func TestQualifiedNodeWithChildren(t *testing.T) {
	child := &glow.Parameter{
		Number: 2,
		Contents: glow.ParameterContents{
			Identifier: ptr("gain"),
			Value:      &model.Value{Type: model.TypeReal, Real: -3.5},
			Access:     ptr(model.AccessReadWrite),
		},
	}
	qn := &glow.QualifiedNode{
		Path:     model.Path{1, 2},
		Contents: glow.NodeContents{Identifier: ptr("channel2")},
		Children: []glow.Item{child},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{qn}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := root.Items[0].(*glow.QualifiedNode)
	if !ok {
		t.Fatalf("expected *QualifiedNode, got %T", root.Items[0])
	}
	if !got.Path.Equal(model.Path{1, 2}) {
		t.Fatalf("path mismatch: %v", got.Path)
	}
	if len(got.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(got.Children))
	}
	gotParam, ok := got.Children[0].(*glow.Parameter)
	if !ok {
		t.Fatalf("expected *Parameter child, got %T", got.Children[0])
	}
	if gotParam.Contents.Value.Type != model.TypeReal || gotParam.Contents.Value.Real != -3.5 {
		t.Fatalf("param value mismatch: %+v", gotParam.Contents.Value)
	}
}

// TestEnumWireIsNativeInteger confirms an Enum value rides the wire as a
// plain INTEGER, matching a real device: there is no separate Enum tag, so
// a bare round-trip through glow decodes both as TypeInteger. Recovering
// TypeEnum requires the owning Parameter's EnumMap, which lives one layer
// up from here.
func TestEnumWireIsNativeInteger(t *testing.T) {
	intParam := &glow.Parameter{
		Number:   1,
		Contents: glow.ParameterContents{Value: &model.Value{Type: model.TypeInteger, Int: 42}},
	}
	enumParam := &glow.Parameter{
		Number:   2,
		Contents: glow.ParameterContents{Value: &model.Value{Type: model.TypeEnum, EnumIdx: 42}},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{intParam, enumParam}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	gotInt := root.Items[0].(*glow.Parameter)
	gotEnum := root.Items[1].(*glow.Parameter)
	if gotInt.Contents.Value.Type != model.TypeInteger || gotInt.Contents.Value.Int != 42 {
		t.Fatalf("expected integer 42, got %+v", gotInt.Contents.Value)
	}
	if gotEnum.Contents.Value.Type != model.TypeInteger || gotEnum.Contents.Value.Int != 42 {
		t.Fatalf("expected enum value to decode as native integer 42, got %+v", gotEnum.Contents.Value)
	}
}

func TestMatrixConnectionsRoundTrip(t *testing.T) {
	m := &glow.QualifiedMatrix{
		Path: model.Path{3},
		Contents: glow.MatrixContents{
			Identifier:  ptr("xy"),
			Type:        ptr(model.MatrixOneToN),
			TargetCount: ptr(4),
			SourceCount: ptr(4),
		},
		Targets: []int{0, 1, 2, 3},
		Sources: []int{0, 1, 2, 3},
		Connections: []glow.ConnectionWire{
			{Target: 0, Sources: []int{2}, Operation: model.OpAbsolute},
			{Target: 1, Sources: []int{3}, Operation: model.OpConnect, Disposition: ptr(model.DispositionModified)},
		},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{m}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	got := root.Items[0].(*glow.QualifiedMatrix)
	if len(got.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(got.Connections))
	}
	if got.Connections[0].Target != 0 || got.Connections[0].Sources[0] != 2 {
		t.Fatalf("connection 0 mismatch: %+v", got.Connections[0])
	}
	if got.Connections[1].Disposition == nil || *got.Connections[1].Disposition != model.DispositionModified {
		t.Fatalf("connection 1 disposition mismatch: %+v", got.Connections[1])
	}
}

func TestFunctionInvocationAndResult(t *testing.T) {
	f := &glow.QualifiedFunction{
		Path:     model.Path{5},
		Contents: glow.FunctionContents{Identifier: ptr("reboot")},
		Args:     []glow.TupleItem{{Name: "delaySeconds", Type: model.TypeInteger}},
		Results:  []glow.TupleItem{{Name: "ok", Type: model.TypeBoolean}},
		Command: &glow.Command{
			Number: glow.CmdInvoke,
			Invocation: &glow.Invocation{
				ID:   7,
				Args: []model.Value{model.NewInt(10)},
			},
		},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{f}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	got := root.Items[0].(*glow.QualifiedFunction)
	if len(got.Args) != 1 || got.Args[0].Name != "delaySeconds" {
		t.Fatalf("args mismatch: %+v", got.Args)
	}
	if got.Command == nil || got.Command.Invocation == nil || got.Command.Invocation.ID != 7 {
		t.Fatalf("invocation mismatch: %+v", got.Command)
	}
	if len(got.Command.Invocation.Args) != 1 || got.Command.Invocation.Args[0].Int != 10 {
		t.Fatalf("invocation args mismatch: %+v", got.Command.Invocation.Args)
	}

	ir := &glow.InvocationResult{InvocationID: 7, Success: true, Result: []model.Value{model.NewBool(true)}}
	data2 := glow.EncodeRoot(&glow.Root{Items: []glow.Item{ir}})
	root2, err := glow.DecodeRoot(data2)
	if err != nil {
		t.Fatal(err)
	}
	gotIR := root2.Items[0].(*glow.InvocationResult)
	if gotIR.InvocationID != 7 || !gotIR.Success || len(gotIR.Result) != 1 || !gotIR.Result[0].Bool {
		t.Fatalf("invocation result mismatch: %+v", gotIR)
	}
}

func TestStreamCollectionRoundTrip(t *testing.T) {
	sc := &glow.StreamCollection{
		Entries: []glow.StreamEntry{
			{StreamID: 1, Raw: model.NewInt(100)},
			{StreamID: 2, Raw: model.NewReal(-6.0)},
		},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{sc}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	got := root.Items[0].(*glow.StreamCollection)
	if len(got.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Entries))
	}
	if got.Entries[0].StreamID != 1 || got.Entries[0].Raw.Int != 100 {
		t.Fatalf("entry 0 mismatch: %+v", got.Entries[0])
	}
	if got.Entries[1].StreamID != 2 || got.Entries[1].Raw.Real != -6.0 {
		t.Fatalf("entry 1 mismatch: %+v", got.Entries[1])
	}
}

func TestSubscribeCommand(t *testing.T) {
	p := &glow.QualifiedParameter{
		Path:     model.Path{1, 2, 3},
		Contents: glow.ParameterContents{},
		Command:  &glow.Command{Number: glow.CmdSubscribe},
	}
	data := glow.EncodeRoot(&glow.Root{Items: []glow.Item{p}})
	root, err := glow.DecodeRoot(data)
	if err != nil {
		t.Fatal(err)
	}
	got := root.Items[0].(*glow.QualifiedParameter)
	if got.Command == nil || got.Command.Number != glow.CmdSubscribe {
		t.Fatalf("expected subscribe command, got %+v", got.Command)
	}
	if !got.Path.Equal(model.Path{1, 2, 3}) {
		t.Fatalf("path mismatch: %v", got.Path)
	}
}

func TestUnknownApplicationTagIsSkipped(t *testing.T) {
	n := &glow.Node{Number: 1, Contents: glow.NodeContents{Identifier: ptr("n1")}}
	goodRoot := glow.EncodeRoot(&glow.Root{Items: []glow.Item{n}})

	// Rebuild the RootElementCollection with an item carrying an
	// unrecognized application tag placed ahead of the encoded node.
	_, _, hdr, err := ber.DecodeLength(goodRoot[1:])
	if err != nil {
		t.Fatal(err)
	}
	nodeItem := goodRoot[1+hdr:]
	bogus := ber.EncodeConstructed(ber.ApplicationTag(29))
	spliced := ber.EncodeConstructed(ber.ApplicationTag(11), bogus, nodeItem)

	root, err := glow.DecodeRoot(spliced)
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(root.Items))
	}
	got, ok := root.Items[0].(*glow.Node)
	if !ok || got.Number != 1 {
		t.Fatalf("expected node 1 to survive the skipped item, got %+v", root.Items[0])
	}
}
