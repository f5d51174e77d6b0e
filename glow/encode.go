package glow

import (
	"github.com/magnusoverli/ember-plus-sub000/ber"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

// EncodeRoot renders a Root as one complete Glow BER message, ready for
// s101.EncodeEmber.
func EncodeRoot(r *Root) []byte {
	children := make([][]byte, 0, len(r.Items))
	for _, it := range r.Items {
		children = append(children, encodeItem(it))
	}
	return ber.EncodeConstructed(appTag(appRootElementCollection), children...)
}

func encodeItem(it Item) []byte {
	switch v := it.(type) {
	case *Node:
		return encodeNode(v)
	case *QualifiedNode:
		return encodeQualifiedNode(v)
	case *Parameter:
		return encodeParameter(v)
	case *QualifiedParameter:
		return encodeQualifiedParameter(v)
	case *Matrix:
		return encodeMatrix(v)
	case *QualifiedMatrix:
		return encodeQualifiedMatrix(v)
	case *Function:
		return encodeFunction(v)
	case *QualifiedFunction:
		return encodeQualifiedFunction(v)
	case *Command:
		return encodeCommand(v)
	case *InvocationResult:
		return encodeInvocationResult(v)
	case *StreamCollection:
		return encodeStreamCollection(v)
	default:
		return nil
	}
}

func encodeElementCollection(items []Item) []byte {
	children := make([][]byte, 0, len(items))
	for _, it := range items {
		children = append(children, encodeItem(it))
	}
	return ber.EncodeConstructed(appTag(appElementCollection), children...)
}

func encodeNodeContents(c NodeContents) []byte {
	var fields [][]byte
	if c.Identifier != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIdentifier), ber.EncodeUTF8String(*c.Identifier)))
	}
	if c.Description != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cDescription), ber.EncodeUTF8String(*c.Description)))
	}
	if c.IsOnline != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIsOnline), ber.EncodeBoolean(*c.IsOnline)))
	}
	return ber.EncodeConstructed(ctxTag(fieldContents), fields...)
}

func encodeNode(n *Node) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldNumber), ber.EncodeInteger(int64(n.Number))))
	parts = append(parts, encodeNodeContents(n.Contents))
	if n.Children != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldChildren), encodeElementCollection(n.Children)))
	}
	if n.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(n.Command)))
	}
	return ber.EncodeConstructed(appTag(appNode), parts...)
}

func encodeQualifiedNode(n *QualifiedNode) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldPath), ber.EncodeObjectIdentifier(n.Path)))
	parts = append(parts, encodeNodeContents(n.Contents))
	if n.Children != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldChildren), encodeElementCollection(n.Children)))
	}
	if n.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(n.Command)))
	}
	return ber.EncodeConstructed(appTag(appQualifiedNode), parts...)
}

// encodeValue wraps v's native BER primitive under the context tag, the
// same EXPLICIT convention every other field in this file uses. Enum
// carries no wire type of its own: a Parameter's EnumMap is what tells a
// reader to interpret its INTEGER as an enumerant, per real Ember+ wire
// form, so Enum and Integer encode identically here.
func encodeValue(v model.Value) []byte {
	var data []byte
	switch v.Type {
	case model.TypeInteger, model.TypeEnum:
		data = ber.EncodeInteger(intOf(v))
	case model.TypeReal:
		data = ber.EncodeReal(v.Real)
	case model.TypeString:
		data = ber.EncodeUTF8String(v.Str)
	case model.TypeBoolean:
		data = ber.EncodeBoolean(v.Bool)
	case model.TypeTrigger:
		data = ber.EncodeNull()
	case model.TypeOctets:
		data = ber.EncodeOctetString(v.Octets)
	default:
		data = ber.EncodeNull()
	}
	return ber.EncodeConstructed(ctxTag(cValue), data)
}

func intOf(v model.Value) int64 {
	if v.Type == model.TypeEnum {
		return int64(v.EnumIdx)
	}
	return v.Int
}

func encodeParameterContents(c ParameterContents) []byte {
	var fields [][]byte
	if c.Identifier != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIdentifier), ber.EncodeUTF8String(*c.Identifier)))
	}
	if c.Value != nil {
		fields = append(fields, encodeValue(*c.Value))
	}
	if c.Minimum != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cMinimum), ber.EncodeReal(*c.Minimum)))
	}
	if c.Maximum != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cMaximum), ber.EncodeReal(*c.Maximum)))
	}
	if c.Access != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cAccess), ber.EncodeInteger(int64(*c.Access))))
	}
	if c.Format != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cFormat), ber.EncodeUTF8String(*c.Format)))
	}
	if c.EnumNames != nil {
		var pairs [][]byte
		for i, name := range c.EnumNames {
			code := int32(i)
			if i < len(c.EnumValues) {
				code = c.EnumValues[i]
			}
			pair := ber.EncodeConstructed(appTag(appStringIntegerPair),
				ber.EncodeConstructed(ctxTag(sipName), ber.EncodeUTF8String(name)),
				ber.EncodeConstructed(ctxTag(sipValue), ber.EncodeInteger(int64(code))))
			pairs = append(pairs, pair)
		}
		fields = append(fields, ber.EncodeConstructed(ctxTag(cEnumMap), pairs...))
	}
	if c.Factor != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cFactor), ber.EncodeReal(*c.Factor)))
	}
	if c.StreamID != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cStreamID), ber.EncodeInteger(*c.StreamID)))
	}
	if c.Formula != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cFormula), ber.EncodeUTF8String(*c.Formula)))
	}
	if c.IsOnline != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIsOnline), ber.EncodeBoolean(*c.IsOnline)))
	}
	return ber.EncodeConstructed(ctxTag(fieldContents), fields...)
}

func encodeParameter(p *Parameter) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldNumber), ber.EncodeInteger(int64(p.Number))))
	parts = append(parts, encodeParameterContents(p.Contents))
	if p.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(p.Command)))
	}
	return ber.EncodeConstructed(appTag(appParameter), parts...)
}

func encodeQualifiedParameter(p *QualifiedParameter) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldPath), ber.EncodeObjectIdentifier(p.Path)))
	parts = append(parts, encodeParameterContents(p.Contents))
	if p.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(p.Command)))
	}
	return ber.EncodeConstructed(appTag(appQualifiedParameter), parts...)
}

func encodeMatrixContents(c MatrixContents) []byte {
	var fields [][]byte
	if c.Identifier != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIdentifier), ber.EncodeUTF8String(*c.Identifier)))
	}
	if c.Description != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cDescription), ber.EncodeUTF8String(*c.Description)))
	}
	if c.Type != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cMatrixType), ber.EncodeInteger(int64(*c.Type))))
	}
	if c.TargetCount != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cTargetCount), ber.EncodeInteger(int64(*c.TargetCount))))
	}
	if c.SourceCount != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cSourceCount), ber.EncodeInteger(int64(*c.SourceCount))))
	}
	return ber.EncodeConstructed(ctxTag(fieldContents), fields...)
}

func encodeIntList(tag byte, nums []int) []byte {
	var parts [][]byte
	for _, n := range nums {
		parts = append(parts, ber.EncodeInteger(int64(n)))
	}
	return ber.EncodeConstructed(ctxTag(tag), parts...)
}

func encodeConnections(conns []ConnectionWire) []byte {
	var parts [][]byte
	for _, c := range conns {
		var fields [][]byte
		fields = append(fields, ber.EncodeConstructed(ctxTag(connTarget), ber.EncodeInteger(int64(c.Target))))
		fields = append(fields, encodeIntList(connSources, c.Sources))
		fields = append(fields, ber.EncodeConstructed(ctxTag(connOperation), ber.EncodeInteger(int64(c.Operation))))
		if c.Disposition != nil {
			fields = append(fields, ber.EncodeConstructed(ctxTag(connDisposition), ber.EncodeInteger(int64(*c.Disposition))))
		}
		parts = append(parts, ber.EncodeConstructed(appTag(appConnection), fields...))
	}
	return ber.EncodeConstructed(ctxTag(cConnections), parts...)
}

func encodeMatrix(m *Matrix) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldNumber), ber.EncodeInteger(int64(m.Number))))
	parts = append(parts, encodeMatrixContents(m.Contents))
	if m.Targets != nil {
		parts = append(parts, encodeIntList(cTargets, m.Targets))
	}
	if m.Sources != nil {
		parts = append(parts, encodeIntList(cSources, m.Sources))
	}
	if m.Connections != nil {
		parts = append(parts, encodeConnections(m.Connections))
	}
	if m.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(m.Command)))
	}
	return ber.EncodeConstructed(appTag(appMatrix), parts...)
}

func encodeQualifiedMatrix(m *QualifiedMatrix) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldPath), ber.EncodeObjectIdentifier(m.Path)))
	parts = append(parts, encodeMatrixContents(m.Contents))
	if m.Targets != nil {
		parts = append(parts, encodeIntList(cTargets, m.Targets))
	}
	if m.Sources != nil {
		parts = append(parts, encodeIntList(cSources, m.Sources))
	}
	if m.Connections != nil {
		parts = append(parts, encodeConnections(m.Connections))
	}
	if m.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(m.Command)))
	}
	return ber.EncodeConstructed(appTag(appQualifiedMatrix), parts...)
}

func encodeFunctionContents(c FunctionContents) []byte {
	var fields [][]byte
	if c.Identifier != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cIdentifier), ber.EncodeUTF8String(*c.Identifier)))
	}
	if c.Description != nil {
		fields = append(fields, ber.EncodeConstructed(ctxTag(cDescription), ber.EncodeUTF8String(*c.Description)))
	}
	return ber.EncodeConstructed(ctxTag(fieldContents), fields...)
}

func encodeTupleItems(tag byte, items []TupleItem) []byte {
	var parts [][]byte
	for _, it := range items {
		elem := ber.EncodeConstructed(appTag(appTupleItemDescription),
			ber.EncodeConstructed(ctxTag(tidName), ber.EncodeUTF8String(it.Name)),
			ber.EncodeConstructed(ctxTag(tidType), ber.EncodeInteger(int64(it.Type))))
		parts = append(parts, elem)
	}
	return ber.EncodeConstructed(ctxTag(tag), parts...)
}

func encodeFunction(f *Function) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldNumber), ber.EncodeInteger(int64(f.Number))))
	parts = append(parts, encodeFunctionContents(f.Contents))
	if f.Args != nil {
		parts = append(parts, encodeTupleItems(cArguments, f.Args))
	}
	if f.Results != nil {
		parts = append(parts, encodeTupleItems(cResult, f.Results))
	}
	if f.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(f.Command)))
	}
	return ber.EncodeConstructed(appTag(appFunction), parts...)
}

func encodeQualifiedFunction(f *QualifiedFunction) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(fieldPath), ber.EncodeObjectIdentifier(f.Path)))
	parts = append(parts, encodeFunctionContents(f.Contents))
	if f.Args != nil {
		parts = append(parts, encodeTupleItems(cArguments, f.Args))
	}
	if f.Results != nil {
		parts = append(parts, encodeTupleItems(cResult, f.Results))
	}
	if f.Command != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(fieldCommand), encodeCommand(f.Command)))
	}
	return ber.EncodeConstructed(appTag(appQualifiedFunction), parts...)
}

func encodeCommand(c *Command) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(cmdNumber), ber.EncodeInteger(int64(c.Number))))
	if c.Invocation != nil {
		var invFields [][]byte
		invFields = append(invFields, ber.EncodeConstructed(ctxTag(invID), ber.EncodeInteger(c.Invocation.ID)))
		var argParts [][]byte
		for _, a := range c.Invocation.Args {
			argParts = append(argParts, encodeValue(a))
		}
		invFields = append(invFields, ber.EncodeConstructed(ctxTag(invArgs), argParts...))
		parts = append(parts, ber.EncodeConstructed(ctxTag(cmdInvocation), invFields...))
	}
	if c.DirFieldMask != nil {
		parts = append(parts, ber.EncodeConstructed(ctxTag(cmdDirMask), ber.EncodeInteger(int64(*c.DirFieldMask))))
	}
	return ber.EncodeConstructed(appTag(appCommand), parts...)
}

func encodeInvocationResult(r *InvocationResult) []byte {
	var parts [][]byte
	parts = append(parts, ber.EncodeConstructed(ctxTag(invrID), ber.EncodeInteger(r.InvocationID)))
	parts = append(parts, ber.EncodeConstructed(ctxTag(invrSuccess), ber.EncodeBoolean(r.Success)))
	if r.Result != nil {
		var resParts [][]byte
		for _, v := range r.Result {
			resParts = append(resParts, encodeValue(v))
		}
		parts = append(parts, ber.EncodeConstructed(ctxTag(invrResult), resParts...))
	}
	return ber.EncodeConstructed(appTag(appInvocationResult), parts...)
}

func encodeStreamCollection(sc *StreamCollection) []byte {
	var parts [][]byte
	for _, e := range sc.Entries {
		entry := ber.EncodeConstructed(appTag(appStreamEntry),
			ber.EncodeConstructed(ctxTag(seStreamID), ber.EncodeInteger(e.StreamID)),
			encodeValue(e.Raw))
		parts = append(parts, entry)
	}
	return ber.EncodeConstructed(appTag(appStreamCollection), parts...)
}
