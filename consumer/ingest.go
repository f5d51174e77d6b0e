package consumer

import (
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

// ingestRoot applies one decoded provider message to the mirrored tree,
// running entirely on the engine goroutine (called only from handleFrame).
func (c *Conn) ingestRoot(root *glow.Root) {
	for _, it := range root.Items {
		c.ingestItem(nil, it)
	}
}

func pathFor(parent model.Path, number int) model.Path {
	if parent == nil {
		return model.Path{number}
	}
	return parent.Child(number)
}

func (c *Conn) ingestItem(parent model.Path, it glow.Item) {
	switch v := it.(type) {
	case *glow.Node:
		c.ingestNode(pathFor(parent, v.Number), v.Contents, v.Children)
	case *glow.QualifiedNode:
		c.ingestNode(v.Path, v.Contents, v.Children)
	case *glow.Parameter:
		c.ingestParameter(pathFor(parent, v.Number), v.Contents)
	case *glow.QualifiedParameter:
		c.ingestParameter(v.Path, v.Contents)
	case *glow.Matrix:
		c.ingestMatrix(pathFor(parent, v.Number), v.Contents, v.Targets, v.Sources, v.Connections)
	case *glow.QualifiedMatrix:
		c.ingestMatrix(v.Path, v.Contents, v.Targets, v.Sources, v.Connections)
	case *glow.Function:
		c.ingestFunction(pathFor(parent, v.Number), v.Contents, v.Args, v.Results)
	case *glow.QualifiedFunction:
		c.ingestFunction(v.Path, v.Contents, v.Args, v.Results)
	case *glow.InvocationResult:
		c.ingestInvocationResult(v)
	case *glow.StreamCollection:
		c.ingestStreamCollection(v)
	case *glow.Command:
		// a provider never issues a command to a consumer; ignore.
	}
}

func (c *Conn) ingestNode(path model.Path, contents glow.NodeContents, children []glow.Item) {
	existing, _ := c.store.Get(path).(*model.Node)
	n := model.MergeNode(existing, path, model.NodeUpdate{
		Identifier:  contents.Identifier,
		Description: contents.Description,
		IsOnline:    contents.IsOnline,
	})
	if err := c.store.Put(n); err != nil {
		c.emitDecodeError(err)
		return
	}
	c.link(path)

	c.emit(Event{Kind: EventNode, Node: n})

	for _, child := range children {
		c.ingestItem(path, child)
	}

	if c.autoSubScope[path.String()] {
		for _, childPath := range c.store.Children(path) {
			c.subscribeInternal(childPath, true)
		}
	}

	c.fulfillExpandWaiters(path.String())
}

// reclassifyEnum recovers Enum-ness lost on the wire: an incoming INTEGER
// belongs to a parameter with enumerants declared (either on this same
// message or previously recorded) is reinterpreted as TypeEnum so it
// matches what MergeParameter already has on file, satisfying the
// value-type-immutability invariant Store.Put enforces once a parameter's
// type has been established.
func reclassifyEnum(v *model.Value, existing *model.Parameter, newEnumNames []string) *model.Value {
	if v == nil || v.Type != model.TypeInteger {
		return v
	}
	enumerated := len(newEnumNames) > 0
	if !enumerated && existing != nil {
		enumerated = len(existing.EnumNames) > 0
	}
	if !enumerated {
		return v
	}
	enum := model.NewEnum(int32(v.Int))
	return &enum
}

func (c *Conn) ingestParameter(path model.Path, contents glow.ParameterContents) {
	if matrixPath, ok := model.IsMatrixLabelSubtree(path); ok && len(path) == len(matrixPath)+3 {
		c.ingestMatrixLabel(matrixPath, path, contents)
		return
	}

	existing, _ := c.store.Get(path).(*model.Parameter)
	value := reclassifyEnum(contents.Value, existing, contents.EnumNames)
	p := model.MergeParameter(existing, path, model.ParameterUpdate{
		Identifier: contents.Identifier,
		Value:      value,
		Access:     contents.Access,
		Minimum:    contents.Minimum,
		Maximum:    contents.Maximum,
		EnumNames:  contents.EnumNames,
		EnumValues: contents.EnumValues,
		Format:     contents.Format,
		Formula:    contents.Formula,
		Factor:     contents.Factor,
		StreamID:   contents.StreamID,
		IsOnline:   contents.IsOnline,
	})
	if err := c.store.Put(p); err != nil {
		c.emitDecodeError(err)
		return
	}
	c.link(path)

	c.metaCache[path.String()] = paramMeta{identifier: p.Identifier, access: p.Access, valueType: p.Value.Type}
	if p.StreamID != 0 {
		c.streamFactors[p.StreamID] = p.EffectiveFactor()
	}

	c.emit(Event{Kind: EventParameter, Parameter: p})
	c.fulfillExpandWaiters(path.String())
}

// ingestMatrixLabel handles a Parameter decoded under a matrix's synthetic
// P.666999666.{1,2}.<number> sub-path: it is a label, not a real parameter,
// and is folded directly into the Matrix's TargetLabels/SourceLabels.
func (c *Conn) ingestMatrixLabel(matrixPath, path model.Path, contents glow.ParameterContents) {
	if contents.Value == nil || contents.Value.Type != model.TypeString {
		return
	}
	kind := path[len(matrixPath)+1]
	number := path[len(matrixPath)+2]
	label := contents.Value.Str

	err := c.store.MutateMatrix(matrixPath, func(m *model.Matrix) error {
		switch kind {
		case 1:
			m.TargetLabels[number] = label
		case 2:
			m.SourceLabels[number] = label
		}
		return nil
	})
	if err != nil {
		c.emitDecodeError(err)
		return
	}
	ev := EventMatrixTarget
	if kind == 2 {
		ev = EventMatrixSource
	}
	c.emit(Event{Kind: ev, Label: &LabelEvent{MatrixPath: matrixPath, Number: number, Label: label}})
}

func (c *Conn) ingestMatrix(path model.Path, contents glow.MatrixContents, targets, sources []int, conns []glow.ConnectionWire) {
	m, ok := c.store.Get(path).(*model.Matrix)
	if !ok {
		m = model.NewMatrix(path, "", "", model.MatrixOneToN, 0, 0, nil, nil)
	}
	if contents.Identifier != nil {
		m.Identifier = *contents.Identifier
	}
	if contents.Description != nil {
		m.Description = *contents.Description
	}
	if contents.Type != nil {
		m.Type = *contents.Type
	}
	if contents.TargetCount != nil {
		m.TargetCount = *contents.TargetCount
	}
	if contents.SourceCount != nil {
		m.SourceCount = *contents.SourceCount
	}
	if targets != nil {
		m.Targets = append([]int(nil), targets...)
	}
	if sources != nil {
		m.Sources = append([]int(nil), sources...)
	}
	if err := c.store.Put(m); err != nil {
		c.emitDecodeError(err)
		return
	}
	c.link(path)

	for _, cw := range conns {
		if err := c.store.MutateMatrix(path, func(mx *model.Matrix) error {
			return model.ApplyConnection(mx, cw.Target, cw.Sources, cw.Operation)
		}); err != nil {
			c.emitDecodeError(err)
			continue
		}
		disp := model.DispositionTally
		if cw.Disposition != nil {
			disp = *cw.Disposition
		}
		c.emit(Event{Kind: EventMatrixConnection, Connection: &ConnectionEvent{
			MatrixPath: path, Target: cw.Target, Sources: cw.Sources, Disposition: disp,
		}})
	}

	if got, ok := c.store.Get(path).(*model.Matrix); ok {
		c.emit(Event{Kind: EventMatrix, Matrix: got})
	}
	c.fulfillExpandWaiters(path.String())
}

func (c *Conn) ingestFunction(path model.Path, contents glow.FunctionContents, args, results []glow.TupleItem) {
	f, ok := c.store.Get(path).(*model.Function)
	if !ok {
		f = &model.Function{Path: path}
	}
	if contents.Identifier != nil {
		f.Identifier = *contents.Identifier
	}
	if contents.Description != nil {
		f.Description = *contents.Description
	}
	if args != nil {
		f.ArgNames, f.ArgTypes = splitTuple(args)
	}
	if results != nil {
		f.ResNames, f.ResTypes = splitTuple(results)
	}
	if err := c.store.Put(f); err != nil {
		c.emitDecodeError(err)
		return
	}
	c.link(path)
	c.emit(Event{Kind: EventFunction, Function: f})
	c.fulfillExpandWaiters(path.String())
}

func (c *Conn) ingestInvocationResult(ir *glow.InvocationResult) {
	path := c.pendingInvocations[ir.InvocationID]
	delete(c.pendingInvocations, ir.InvocationID)
	c.emit(Event{Kind: EventInvocationResult, InvocationResult: &InvocationResultEvent{
		InvocationID: ir.InvocationID, Path: path, Success: ir.Success, Result: ir.Result,
	}})
}

func (c *Conn) ingestStreamCollection(sc *glow.StreamCollection) {
	for _, entry := range sc.Entries {
		factor := c.streamFactors[entry.StreamID]
		if factor == 0 {
			factor = 1
		}
		c.metrics.StreamSamples.Inc()
		c.emit(Event{Kind: EventStreamValue, StreamValue: &StreamValueEvent{
			StreamID: entry.StreamID, Value: divideByFactor(entry.Raw, factor),
		}})
	}
}

// divideByFactor implements the streamed-value scaling rule: integer raw
// values divide exactly when possible, otherwise both integer and real raw
// values fall back to floating point division.
func divideByFactor(raw model.Value, factor float64) model.Value {
	if factor == 1 {
		return raw
	}
	switch raw.Type {
	case model.TypeInteger:
		if f := int64(factor); f != 0 && float64(f) == factor && raw.Int%f == 0 {
			return model.NewInt(raw.Int / f)
		}
		return model.NewReal(float64(raw.Int) / factor)
	case model.TypeReal:
		return model.NewReal(raw.Real / factor)
	default:
		return raw
	}
}

func (c *Conn) link(path model.Path) {
	if parent, ok := path.Parent(); ok {
		_ = c.store.Link(parent, path)
	}
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stop:
	}
}

func splitTuple(items []glow.TupleItem) ([]string, []model.ValueType) {
	names := make([]string, len(items))
	types := make([]model.ValueType, len(items))
	for i, it := range items {
		names[i] = it.Name
		types[i] = it.Type
	}
	return names, types
}
