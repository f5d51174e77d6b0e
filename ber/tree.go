package ber

import "github.com/pkg/errors"

// Elem is a materialized BER tree node: a convenience view built from the
// streaming Decoder's flat event sequence, for callers (the glow package)
// that want to walk a parsed message as a tree rather than re-implement
// stack bookkeeping over Events themselves.
type Elem struct {
	Tag      Tag
	Contents []byte  // set when the tag is primitive
	Children []*Elem // set when the tag is constructed
}

// ParseElems decodes data into a sequence of sibling top-level Elems.
func ParseElems(data []byte) ([]*Elem, error) {
	events, err := DecodeOne(data)
	if err != nil {
		return nil, err
	}
	elems, rest, err := buildElems(events)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.New("ber: trailing events after tree build")
	}
	return elems, nil
}

func buildElems(events []Event) ([]*Elem, []Event, error) {
	var out []*Elem
	for len(events) > 0 {
		ev := events[0]
		switch ev.Kind {
		case EventPrimitive:
			out = append(out, &Elem{Tag: ev.Tag, Contents: ev.Contents})
			events = events[1:]
		case EventContainerStart:
			children, rest, err := buildElems(events[1:])
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0].Kind != EventContainerEnd {
				return nil, nil, errors.New("ber: missing container end")
			}
			out = append(out, &Elem{Tag: ev.Tag, Children: children})
			events = rest[1:]
		case EventContainerEnd:
			return out, events, nil
		}
	}
	return out, nil, nil
}

// Find returns the first child whose Tag equals tag.
func (e *Elem) Find(tag Tag) *Elem {
	for _, c := range e.Children {
		if c.Tag.Equal(tag) {
			return c
		}
	}
	return nil
}

// FindAll returns every child whose Tag equals tag.
func (e *Elem) FindAll(tag Tag) []*Elem {
	var out []*Elem
	for _, c := range e.Children {
		if c.Tag.Equal(tag) {
			out = append(out, c)
		}
	}
	return out
}
