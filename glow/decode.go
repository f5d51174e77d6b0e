package glow

import (
	"github.com/pkg/errors"

	"github.com/magnusoverli/ember-plus-sub000/ber"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

// DecodeRoot parses one complete Glow BER message (the reassembled payload
// handed up by s101) into a Root. An item whose application tag is
// unrecognized is skipped rather than failing the whole message; malformed
// tag/length bytes remain a terminal error.
func DecodeRoot(data []byte) (*Root, error) {
	elems, err := ber.ParseElems(data)
	if err != nil {
		return nil, errors.Wrap(err, "glow: malformed BER")
	}
	if len(elems) != 1 || !elems[0].Tag.Equal(appTag(appRootElementCollection)) {
		return nil, errors.New("glow: expected a single RootElementCollection")
	}
	items, err := decodeItems(elems[0].Children)
	if err != nil {
		return nil, err
	}
	return &Root{Items: items}, nil
}

func decodeItems(elems []*ber.Elem) ([]Item, error) {
	var out []Item
	for _, e := range elems {
		it, skip, err := decodeItem(e)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func decodeItem(e *ber.Elem) (Item, bool, error) {
	switch {
	case e.Tag.Equal(appTag(appNode)):
		v, err := decodeNode(e)
		return v, false, err
	case e.Tag.Equal(appTag(appQualifiedNode)):
		v, err := decodeQualifiedNode(e)
		return v, false, err
	case e.Tag.Equal(appTag(appParameter)):
		v, err := decodeParameter(e)
		return v, false, err
	case e.Tag.Equal(appTag(appQualifiedParameter)):
		v, err := decodeQualifiedParameter(e)
		return v, false, err
	case e.Tag.Equal(appTag(appMatrix)):
		v, err := decodeMatrix(e)
		return v, false, err
	case e.Tag.Equal(appTag(appQualifiedMatrix)):
		v, err := decodeQualifiedMatrix(e)
		return v, false, err
	case e.Tag.Equal(appTag(appFunction)):
		v, err := decodeFunction(e)
		return v, false, err
	case e.Tag.Equal(appTag(appQualifiedFunction)):
		v, err := decodeQualifiedFunction(e)
		return v, false, err
	case e.Tag.Equal(appTag(appCommand)):
		v, err := decodeCommand(e)
		return v, false, err
	case e.Tag.Equal(appTag(appInvocationResult)):
		v, err := decodeInvocationResult(e)
		return v, false, err
	case e.Tag.Equal(appTag(appStreamCollection)):
		v, err := decodeStreamCollection(e)
		return v, false, err
	default:
		// Unrecognized application tag: recoverable, per GlowParser's
		// unknown-tag skip-and-continue behavior.
		return nil, true, nil
	}
}

func decodeNodeContents(e *ber.Elem) (NodeContents, error) {
	var c NodeContents
	contents := e.Find(ctxTag(fieldContents))
	if contents == nil {
		return c, nil
	}
	if id := contents.Find(ctxTag(cIdentifier)); id != nil {
		s, err := decodeStringField(id)
		if err != nil {
			return c, err
		}
		c.Identifier = &s
	}
	if desc := contents.Find(ctxTag(cDescription)); desc != nil {
		s, err := decodeStringField(desc)
		if err != nil {
			return c, err
		}
		c.Description = &s
	}
	if online := contents.Find(ctxTag(cIsOnline)); online != nil {
		b, err := decodeBoolField(online)
		if err != nil {
			return c, err
		}
		c.IsOnline = &b
	}
	return c, nil
}

func decodeStringField(e *ber.Elem) (string, error) {
	prim := leafOf(e)
	if prim == nil {
		return "", errors.New("glow: expected primitive string content")
	}
	return ber.DecodeUTF8String(prim.Contents), nil
}

func decodeBoolField(e *ber.Elem) (bool, error) {
	prim := leafOf(e)
	if prim == nil {
		return false, errors.New("glow: expected primitive bool content")
	}
	return ber.DecodeBoolean(prim.Contents)
}

func decodeIntField(e *ber.Elem) (int64, error) {
	prim := leafOf(e)
	if prim == nil {
		return 0, errors.New("glow: expected primitive integer content")
	}
	return ber.DecodeInteger(prim.Contents)
}

func decodeRealField(e *ber.Elem) (float64, error) {
	prim := leafOf(e)
	if prim == nil {
		return 0, errors.New("glow: expected primitive real content")
	}
	return ber.DecodeReal(prim.Contents)
}

// leafOf returns e itself if it is primitive, or its sole child if e is a
// context-tagged wrapper around one primitive value (the shape every
// contents field takes: ctx[n]{ universal-primitive }).
func leafOf(e *ber.Elem) *ber.Elem {
	if e.Children == nil {
		return e
	}
	if len(e.Children) == 1 {
		return e.Children[0]
	}
	return nil
}

func decodeNode(e *ber.Elem) (*Node, error) {
	n := &Node{}
	if numE := e.Find(ctxTag(fieldNumber)); numE != nil {
		v, err := decodeIntField(numE)
		if err != nil {
			return nil, err
		}
		n.Number = int(v)
	}
	contents, err := decodeNodeContents(e)
	if err != nil {
		return nil, err
	}
	n.Contents = contents
	if ch := e.Find(ctxTag(fieldChildren)); ch != nil {
		coll := ch.Find(appTag(appElementCollection))
		if coll != nil {
			items, err := decodeItems(coll.Children)
			if err != nil {
				return nil, err
			}
			n.Children = items
		}
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			n.Command = c
		}
	}
	return n, nil
}

func decodeQualifiedNode(e *ber.Elem) (*QualifiedNode, error) {
	n := &QualifiedNode{}
	if pathE := e.Find(ctxTag(fieldPath)); pathE != nil {
		p, err := decodePathField(pathE)
		if err != nil {
			return nil, err
		}
		n.Path = p
	}
	contents, err := decodeNodeContents(e)
	if err != nil {
		return nil, err
	}
	n.Contents = contents
	if ch := e.Find(ctxTag(fieldChildren)); ch != nil {
		coll := ch.Find(appTag(appElementCollection))
		if coll != nil {
			items, err := decodeItems(coll.Children)
			if err != nil {
				return nil, err
			}
			n.Children = items
		}
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			n.Command = c
		}
	}
	return n, nil
}

func decodePathField(e *ber.Elem) (model.Path, error) {
	prim := leafOf(e)
	if prim == nil {
		return nil, errors.New("glow: expected primitive OID content")
	}
	ints, err := ber.DecodeObjectIdentifier(prim.Contents)
	if err != nil {
		return nil, err
	}
	return model.Path(ints), nil
}

// decodeValue recovers a value from its native BER primitive tag. There is
// no wire-level Enum tag: an INTEGER here decodes to TypeInteger regardless
// of whether the owning Parameter declares an EnumMap. Callers that know
// the parameter is enumerated reclassify the result themselves.
func decodeValue(e *ber.Elem) (model.Value, error) {
	leaf := leafOf(e)
	if leaf == nil {
		return model.Value{}, errors.New("glow: malformed value wrapper")
	}
	switch leaf.Tag.Number {
	case ber.TagInteger:
		n, err := ber.DecodeInteger(leaf.Contents)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewInt(n), nil
	case ber.TagReal:
		f, err := ber.DecodeReal(leaf.Contents)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewReal(f), nil
	case ber.TagUTF8String:
		return model.NewString(ber.DecodeUTF8String(leaf.Contents)), nil
	case ber.TagBoolean:
		b, err := ber.DecodeBoolean(leaf.Contents)
		if err != nil {
			return model.Value{}, err
		}
		return model.NewBool(b), nil
	case ber.TagNull:
		return model.NewTrigger(), nil
	case ber.TagOctetString:
		return model.NewOctets(leaf.Contents), nil
	default:
		return model.Value{}, errors.Errorf("glow: unknown value tag %d", leaf.Tag.Number)
	}
}

func decodeParameterContents(e *ber.Elem) (ParameterContents, error) {
	var c ParameterContents
	contents := e.Find(ctxTag(fieldContents))
	if contents == nil {
		return c, nil
	}
	if id := contents.Find(ctxTag(cIdentifier)); id != nil {
		s, err := decodeStringField(id)
		if err != nil {
			return c, err
		}
		c.Identifier = &s
	}
	if val := contents.Find(ctxTag(cValue)); val != nil {
		v, err := decodeValue(val)
		if err != nil {
			return c, err
		}
		c.Value = &v
	}
	if min := contents.Find(ctxTag(cMinimum)); min != nil {
		f, err := decodeRealField(min)
		if err != nil {
			return c, err
		}
		c.Minimum = &f
	}
	if max := contents.Find(ctxTag(cMaximum)); max != nil {
		f, err := decodeRealField(max)
		if err != nil {
			return c, err
		}
		c.Maximum = &f
	}
	if acc := contents.Find(ctxTag(cAccess)); acc != nil {
		n, err := decodeIntField(acc)
		if err != nil {
			return c, err
		}
		a := model.Access(n)
		c.Access = &a
	}
	if fmtE := contents.Find(ctxTag(cFormat)); fmtE != nil {
		s, err := decodeStringField(fmtE)
		if err != nil {
			return c, err
		}
		c.Format = &s
	}
	if enumMap := contents.Find(ctxTag(cEnumMap)); enumMap != nil {
		for _, pair := range enumMap.FindAll(appTag(appStringIntegerPair)) {
			nameE := pair.Find(ctxTag(sipName))
			valE := pair.Find(ctxTag(sipValue))
			if nameE == nil || valE == nil {
				continue
			}
			name, err := decodeStringField(nameE)
			if err != nil {
				return c, err
			}
			code, err := decodeIntField(valE)
			if err != nil {
				return c, err
			}
			c.EnumNames = append(c.EnumNames, name)
			c.EnumValues = append(c.EnumValues, int32(code))
		}
	}
	if factor := contents.Find(ctxTag(cFactor)); factor != nil {
		f, err := decodeRealField(factor)
		if err != nil {
			return c, err
		}
		c.Factor = &f
	}
	if sid := contents.Find(ctxTag(cStreamID)); sid != nil {
		n, err := decodeIntField(sid)
		if err != nil {
			return c, err
		}
		c.StreamID = &n
	}
	if formula := contents.Find(ctxTag(cFormula)); formula != nil {
		s, err := decodeStringField(formula)
		if err != nil {
			return c, err
		}
		c.Formula = &s
	}
	if online := contents.Find(ctxTag(cIsOnline)); online != nil {
		b, err := decodeBoolField(online)
		if err != nil {
			return c, err
		}
		c.IsOnline = &b
	}
	return c, nil
}

func decodeParameter(e *ber.Elem) (*Parameter, error) {
	p := &Parameter{}
	if numE := e.Find(ctxTag(fieldNumber)); numE != nil {
		v, err := decodeIntField(numE)
		if err != nil {
			return nil, err
		}
		p.Number = int(v)
	}
	contents, err := decodeParameterContents(e)
	if err != nil {
		return nil, err
	}
	p.Contents = contents
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			p.Command = c
		}
	}
	return p, nil
}

func decodeQualifiedParameter(e *ber.Elem) (*QualifiedParameter, error) {
	p := &QualifiedParameter{}
	if pathE := e.Find(ctxTag(fieldPath)); pathE != nil {
		path, err := decodePathField(pathE)
		if err != nil {
			return nil, err
		}
		p.Path = path
	}
	contents, err := decodeParameterContents(e)
	if err != nil {
		return nil, err
	}
	p.Contents = contents
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			p.Command = c
		}
	}
	return p, nil
}

func decodeMatrixContents(e *ber.Elem) (MatrixContents, error) {
	var c MatrixContents
	contents := e.Find(ctxTag(fieldContents))
	if contents == nil {
		return c, nil
	}
	if id := contents.Find(ctxTag(cIdentifier)); id != nil {
		s, err := decodeStringField(id)
		if err != nil {
			return c, err
		}
		c.Identifier = &s
	}
	if desc := contents.Find(ctxTag(cDescription)); desc != nil {
		s, err := decodeStringField(desc)
		if err != nil {
			return c, err
		}
		c.Description = &s
	}
	if mt := contents.Find(ctxTag(cMatrixType)); mt != nil {
		n, err := decodeIntField(mt)
		if err != nil {
			return c, err
		}
		t := model.MatrixType(n)
		c.Type = &t
	}
	if tc := contents.Find(ctxTag(cTargetCount)); tc != nil {
		n, err := decodeIntField(tc)
		if err != nil {
			return c, err
		}
		v := int(n)
		c.TargetCount = &v
	}
	if sc := contents.Find(ctxTag(cSourceCount)); sc != nil {
		n, err := decodeIntField(sc)
		if err != nil {
			return c, err
		}
		v := int(n)
		c.SourceCount = &v
	}
	return c, nil
}

func decodeIntList(e *ber.Elem) ([]int, error) {
	var out []int
	for _, child := range e.Children {
		n, err := ber.DecodeInteger(child.Contents)
		if err != nil {
			return nil, err
		}
		out = append(out, int(n))
	}
	return out, nil
}

func decodeConnections(e *ber.Elem) ([]ConnectionWire, error) {
	var out []ConnectionWire
	for _, conn := range e.FindAll(appTag(appConnection)) {
		var w ConnectionWire
		if t := conn.Find(ctxTag(connTarget)); t != nil {
			n, err := decodeIntField(t)
			if err != nil {
				return nil, err
			}
			w.Target = int(n)
		}
		if s := conn.Find(ctxTag(connSources)); s != nil {
			list, err := decodeIntList(s)
			if err != nil {
				return nil, err
			}
			w.Sources = list
		}
		if op := conn.Find(ctxTag(connOperation)); op != nil {
			n, err := decodeIntField(op)
			if err != nil {
				return nil, err
			}
			w.Operation = model.ConnectionOperation(n)
		}
		if d := conn.Find(ctxTag(connDisposition)); d != nil {
			n, err := decodeIntField(d)
			if err != nil {
				return nil, err
			}
			disp := model.Disposition(n)
			w.Disposition = &disp
		}
		out = append(out, w)
	}
	return out, nil
}

func decodeMatrix(e *ber.Elem) (*Matrix, error) {
	m := &Matrix{}
	if numE := e.Find(ctxTag(fieldNumber)); numE != nil {
		v, err := decodeIntField(numE)
		if err != nil {
			return nil, err
		}
		m.Number = int(v)
	}
	contents, err := decodeMatrixContents(e)
	if err != nil {
		return nil, err
	}
	m.Contents = contents
	if t := e.Find(ctxTag(cTargets)); t != nil {
		list, err := decodeIntList(t)
		if err != nil {
			return nil, err
		}
		m.Targets = list
	}
	if s := e.Find(ctxTag(cSources)); s != nil {
		list, err := decodeIntList(s)
		if err != nil {
			return nil, err
		}
		m.Sources = list
	}
	if c := e.Find(ctxTag(cConnections)); c != nil {
		conns, err := decodeConnections(c)
		if err != nil {
			return nil, err
		}
		m.Connections = conns
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			m.Command = c
		}
	}
	return m, nil
}

func decodeQualifiedMatrix(e *ber.Elem) (*QualifiedMatrix, error) {
	m := &QualifiedMatrix{}
	if pathE := e.Find(ctxTag(fieldPath)); pathE != nil {
		path, err := decodePathField(pathE)
		if err != nil {
			return nil, err
		}
		m.Path = path
	}
	contents, err := decodeMatrixContents(e)
	if err != nil {
		return nil, err
	}
	m.Contents = contents
	if t := e.Find(ctxTag(cTargets)); t != nil {
		list, err := decodeIntList(t)
		if err != nil {
			return nil, err
		}
		m.Targets = list
	}
	if s := e.Find(ctxTag(cSources)); s != nil {
		list, err := decodeIntList(s)
		if err != nil {
			return nil, err
		}
		m.Sources = list
	}
	if c := e.Find(ctxTag(cConnections)); c != nil {
		conns, err := decodeConnections(c)
		if err != nil {
			return nil, err
		}
		m.Connections = conns
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			m.Command = c
		}
	}
	return m, nil
}

func decodeFunctionContents(e *ber.Elem) (FunctionContents, error) {
	var c FunctionContents
	contents := e.Find(ctxTag(fieldContents))
	if contents == nil {
		return c, nil
	}
	if id := contents.Find(ctxTag(cIdentifier)); id != nil {
		s, err := decodeStringField(id)
		if err != nil {
			return c, err
		}
		c.Identifier = &s
	}
	if desc := contents.Find(ctxTag(cDescription)); desc != nil {
		s, err := decodeStringField(desc)
		if err != nil {
			return c, err
		}
		c.Description = &s
	}
	return c, nil
}

func decodeTupleItems(e *ber.Elem) ([]TupleItem, error) {
	var out []TupleItem
	for _, it := range e.FindAll(appTag(appTupleItemDescription)) {
		var ti TupleItem
		if nameE := it.Find(ctxTag(tidName)); nameE != nil {
			s, err := decodeStringField(nameE)
			if err != nil {
				return nil, err
			}
			ti.Name = s
		}
		if typeE := it.Find(ctxTag(tidType)); typeE != nil {
			n, err := decodeIntField(typeE)
			if err != nil {
				return nil, err
			}
			ti.Type = model.ValueType(n)
		}
		out = append(out, ti)
	}
	return out, nil
}

func decodeFunction(e *ber.Elem) (*Function, error) {
	f := &Function{}
	if numE := e.Find(ctxTag(fieldNumber)); numE != nil {
		v, err := decodeIntField(numE)
		if err != nil {
			return nil, err
		}
		f.Number = int(v)
	}
	contents, err := decodeFunctionContents(e)
	if err != nil {
		return nil, err
	}
	f.Contents = contents
	if args := e.Find(ctxTag(cArguments)); args != nil {
		items, err := decodeTupleItems(args)
		if err != nil {
			return nil, err
		}
		f.Args = items
	}
	if res := e.Find(ctxTag(cResult)); res != nil {
		items, err := decodeTupleItems(res)
		if err != nil {
			return nil, err
		}
		f.Results = items
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			f.Command = c
		}
	}
	return f, nil
}

func decodeQualifiedFunction(e *ber.Elem) (*QualifiedFunction, error) {
	f := &QualifiedFunction{}
	if pathE := e.Find(ctxTag(fieldPath)); pathE != nil {
		path, err := decodePathField(pathE)
		if err != nil {
			return nil, err
		}
		f.Path = path
	}
	contents, err := decodeFunctionContents(e)
	if err != nil {
		return nil, err
	}
	f.Contents = contents
	if args := e.Find(ctxTag(cArguments)); args != nil {
		items, err := decodeTupleItems(args)
		if err != nil {
			return nil, err
		}
		f.Args = items
	}
	if res := e.Find(ctxTag(cResult)); res != nil {
		items, err := decodeTupleItems(res)
		if err != nil {
			return nil, err
		}
		f.Results = items
	}
	if cmd := e.Find(ctxTag(fieldCommand)); cmd != nil {
		inner := cmd.Find(appTag(appCommand))
		if inner != nil {
			c, err := decodeCommand(inner)
			if err != nil {
				return nil, err
			}
			f.Command = c
		}
	}
	return f, nil
}

func decodeCommand(e *ber.Elem) (*Command, error) {
	c := &Command{}
	if numE := e.Find(ctxTag(cmdNumber)); numE != nil {
		n, err := decodeIntField(numE)
		if err != nil {
			return nil, err
		}
		c.Number = int(n)
	}
	if invE := e.Find(ctxTag(cmdInvocation)); invE != nil {
		inv := &Invocation{}
		if idE := invE.Find(ctxTag(invID)); idE != nil {
			n, err := decodeIntField(idE)
			if err != nil {
				return nil, err
			}
			inv.ID = n
		}
		if argsE := invE.Find(ctxTag(invArgs)); argsE != nil {
			for _, a := range argsE.Children {
				v, err := decodeValue(a)
				if err != nil {
					return nil, err
				}
				inv.Args = append(inv.Args, v)
			}
		}
		c.Invocation = inv
	}
	if maskE := e.Find(ctxTag(cmdDirMask)); maskE != nil {
		n, err := decodeIntField(maskE)
		if err != nil {
			return nil, err
		}
		v := int(n)
		c.DirFieldMask = &v
	}
	return c, nil
}

func decodeInvocationResult(e *ber.Elem) (*InvocationResult, error) {
	r := &InvocationResult{}
	if idE := e.Find(ctxTag(invrID)); idE != nil {
		n, err := decodeIntField(idE)
		if err != nil {
			return nil, err
		}
		r.InvocationID = n
	}
	if sE := e.Find(ctxTag(invrSuccess)); sE != nil {
		b, err := decodeBoolField(sE)
		if err != nil {
			return nil, err
		}
		r.Success = b
	}
	if resE := e.Find(ctxTag(invrResult)); resE != nil {
		for _, v := range resE.Children {
			val, err := decodeValue(v)
			if err != nil {
				return nil, err
			}
			r.Result = append(r.Result, val)
		}
	}
	return r, nil
}

func decodeStreamCollection(e *ber.Elem) (*StreamCollection, error) {
	sc := &StreamCollection{}
	for _, entry := range e.FindAll(appTag(appStreamEntry)) {
		var se StreamEntry
		if idE := entry.Find(ctxTag(seStreamID)); idE != nil {
			n, err := decodeIntField(idE)
			if err != nil {
				return nil, err
			}
			se.StreamID = n
		}
		if valE := entry.Find(ctxTag(cValue)); valE != nil {
			v, err := decodeValue(valE)
			if err != nil {
				return nil, err
			}
			se.Raw = v
		}
		sc.Entries = append(sc.Entries, se)
	}
	return sc, nil
}
