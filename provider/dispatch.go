package provider

import (
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

func ptr[T any](v T) *T { return &v }

func (sess *session) handleItem(it glow.Item) {
	switch v := it.(type) {
	case *glow.Command:
		if v.Number == glow.CmdGetDirectory {
			sess.sendRootDirectory()
		}
	case *glow.QualifiedNode:
		if v.Command != nil {
			switch v.Command.Number {
			case glow.CmdGetDirectory:
				sess.sendDirectory(v.Path)
			case glow.CmdSubscribe:
				sess.srv.subscribe(v.Path, sess)
			case glow.CmdUnsubscribe:
				sess.srv.unsubscribe(v.Path, sess)
			}
		}
	case *glow.QualifiedParameter:
		sess.handleQualifiedParameter(v)
	case *glow.QualifiedMatrix:
		sess.handleQualifiedMatrix(v)
	case *glow.QualifiedFunction:
		sess.handleQualifiedFunction(v)
	}
}

// reclassifyEnum recovers Enum-ness a consumer write loses on the wire: an
// incoming write carries a plain INTEGER, but if existing is already an
// enumerated parameter the write must land as TypeEnum too, or
// Store.Put rejects it for changing the parameter's established type.
func reclassifyEnum(v *model.Value, existing *model.Parameter) *model.Value {
	if v == nil || v.Type != model.TypeInteger || len(existing.EnumNames) == 0 {
		return v
	}
	enum := model.NewEnum(int32(v.Int))
	return &enum
}

func (sess *session) handleQualifiedParameter(qp *glow.QualifiedParameter) {
	if qp.Command != nil {
		switch qp.Command.Number {
		case glow.CmdSubscribe:
			sess.srv.subscribe(qp.Path, sess)
		case glow.CmdUnsubscribe:
			sess.srv.unsubscribe(qp.Path, sess)
		case glow.CmdGetDirectory:
			sess.sendDirectory(qp.Path)
		}
		return
	}
	if qp.Contents.Value == nil {
		return
	}
	existing, ok := sess.srv.store.Get(qp.Path).(*model.Parameter)
	if !ok || !existing.Editable() {
		return
	}
	updated := model.MergeParameter(existing, qp.Path, model.ParameterUpdate{Value: reclassifyEnum(qp.Contents.Value, existing)})
	if err := sess.srv.store.Put(updated); err != nil {
		sess.emitDecodeError(err)
		return
	}
	sess.srv.metrics.Writes.Inc()
	sess.srv.broadcast(qp.Path, sess, &glow.Root{Items: []glow.Item{paramToWire(updated)}})
}

func (sess *session) handleQualifiedMatrix(qm *glow.QualifiedMatrix) {
	if qm.Command != nil && qm.Command.Number == glow.CmdGetDirectory {
		sess.sendDirectory(qm.Path)
		return
	}
	if len(qm.Connections) == 0 {
		return
	}
	for _, cw := range qm.Connections {
		if err := sess.srv.store.MutateMatrix(qm.Path, func(m *model.Matrix) error {
			return model.ApplyConnection(m, cw.Target, cw.Sources, cw.Operation)
		}); err != nil {
			sess.emitDecodeError(err)
		}
	}
	m, ok := sess.srv.store.Get(qm.Path).(*model.Matrix)
	if !ok {
		return
	}
	sess.srv.broadcast(qm.Path, sess, &glow.Root{Items: []glow.Item{matrixToWire(m)}})
}

func (sess *session) handleQualifiedFunction(qf *glow.QualifiedFunction) {
	if qf.Command == nil {
		return
	}
	switch qf.Command.Number {
	case glow.CmdGetDirectory:
		sess.sendDirectory(qf.Path)
	case glow.CmdInvoke:
		if qf.Command.Invocation == nil {
			return
		}
		success, result := sess.srv.invoke(qf.Path, qf.Command.Invocation.Args)
		sess.send(&glow.Root{Items: []glow.Item{&glow.InvocationResult{
			InvocationID: qf.Command.Invocation.ID,
			Success:      success,
			Result:       result,
		}}})
	}
}

// sendDirectory answers a GetDirectory for path: either one level of a
// node's children, a matrix's own contents (matrices carry no separate
// directory listing), or the synthetic target/source label group a matrix
// exposes under P.666999666.{1,2}.
func (sess *session) sendDirectory(path model.Path) {
	if matrixPath, ok := model.IsMatrixLabelSubtree(path); ok {
		switch len(path) - len(matrixPath) {
		case 1:
			sess.send(&glow.Root{Items: []glow.Item{&glow.QualifiedNode{
				Path: path,
				Children: []glow.Item{
					&glow.QualifiedNode{Path: path.Child(1)},
					&glow.QualifiedNode{Path: path.Child(2)},
				},
			}}})
		case 2:
			sess.sendMatrixLabels(matrixPath, path)
		}
		return
	}

	switch e := sess.srv.store.Get(path).(type) {
	case *model.Matrix:
		sess.send(&glow.Root{Items: []glow.Item{matrixToWire(e)}})
	case *model.Node:
		children := sess.srv.store.Children(path)
		items := make([]glow.Item, 0, len(children))
		for _, c := range children {
			items = append(items, sess.itemFor(c))
		}
		sess.send(&glow.Root{Items: []glow.Item{&glow.QualifiedNode{
			Path: path, Contents: nodeContents(e), Children: items,
		}}})
	case nil:
		if path == nil {
			sess.sendRootDirectory()
		}
	}
}

func (sess *session) sendMatrixLabels(matrixPath, groupPath model.Path) {
	m, ok := sess.srv.store.Get(matrixPath).(*model.Matrix)
	if !ok {
		return
	}
	numbers, labels := m.Targets, m.TargetLabels
	if groupPath.Last() == 2 {
		numbers, labels = m.Sources, m.SourceLabels
	}
	items := make([]glow.Item, 0, len(numbers))
	for _, n := range numbers {
		items = append(items, &glow.QualifiedParameter{
			Path:     groupPath.Child(n),
			Contents: glow.ParameterContents{Value: ptr(model.NewString(labels[n]))},
		})
	}
	sess.send(&glow.Root{Items: []glow.Item{&glow.QualifiedNode{Path: groupPath, Children: items}}})
}

func (sess *session) sendRootDirectory() {
	roots := sess.srv.store.IterRoots()
	items := make([]glow.Item, 0, len(roots))
	for _, r := range roots {
		items = append(items, sess.itemFor(r))
	}
	sess.send(&glow.Root{Items: items})
}

func (sess *session) itemFor(path model.Path) glow.Item {
	switch e := sess.srv.store.Get(path).(type) {
	case *model.Node:
		return &glow.QualifiedNode{Path: path, Contents: nodeContents(e)}
	case *model.Parameter:
		return paramToWire(e)
	case *model.Matrix:
		return matrixToWire(e)
	case *model.Function:
		return functionToWire(e)
	default:
		return &glow.QualifiedNode{Path: path}
	}
}

func nodeContents(n *model.Node) glow.NodeContents {
	return glow.NodeContents{
		Identifier:  ptr(n.Identifier),
		Description: ptr(n.Description),
		IsOnline:    ptr(n.IsOnline),
	}
}

func paramToWire(p *model.Parameter) *glow.QualifiedParameter {
	v := p.Value
	c := glow.ParameterContents{
		Identifier: ptr(p.Identifier),
		Value:      &v,
		Access:     ptr(p.Access),
		Minimum:    p.Minimum,
		Maximum:    p.Maximum,
		EnumNames:  p.EnumNames,
		EnumValues: p.EnumValues,
		IsOnline:   ptr(p.IsOnline),
	}
	if p.Format != "" {
		c.Format = ptr(p.Format)
	}
	if p.Formula != "" {
		c.Formula = ptr(p.Formula)
	}
	if p.Factor != 0 {
		c.Factor = ptr(p.Factor)
	}
	if p.StreamID != 0 {
		c.StreamID = ptr(p.StreamID)
	}
	return &glow.QualifiedParameter{Path: p.Path, Contents: c}
}

// matrixToWire reports full connection state on every directory/update
// response; the consumer has no incremental matrix sync beyond Connection
// events, so each push must stand alone.
func matrixToWire(m *model.Matrix) *glow.QualifiedMatrix {
	var conns []glow.ConnectionWire
	for _, t := range m.Targets {
		sources := m.SourcesFor(t)
		if len(sources) == 0 {
			continue
		}
		conns = append(conns, glow.ConnectionWire{
			Target: t, Sources: sources,
			Operation:   model.OpAbsolute,
			Disposition: ptr(model.DispositionTally),
		})
	}
	return &glow.QualifiedMatrix{
		Path: m.Path,
		Contents: glow.MatrixContents{
			Identifier:  ptr(m.Identifier),
			Description: ptr(m.Description),
			Type:        ptr(m.Type),
			TargetCount: ptr(m.TargetCount),
			SourceCount: ptr(m.SourceCount),
		},
		Targets:     m.Targets,
		Sources:     m.Sources,
		Connections: conns,
	}
}

func functionToWire(f *model.Function) *glow.QualifiedFunction {
	args := make([]glow.TupleItem, len(f.ArgNames))
	for i := range f.ArgNames {
		args[i] = glow.TupleItem{Name: f.ArgNames[i], Type: f.ArgTypes[i]}
	}
	results := make([]glow.TupleItem, len(f.ResNames))
	for i := range f.ResNames {
		results[i] = glow.TupleItem{Name: f.ResNames[i], Type: f.ResTypes[i]}
	}
	return &glow.QualifiedFunction{
		Path: f.Path,
		Contents: glow.FunctionContents{
			Identifier:  ptr(f.Identifier),
			Description: ptr(f.Description),
		},
		Args:    args,
		Results: results,
	}
}
