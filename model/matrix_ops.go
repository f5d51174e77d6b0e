package model

import "github.com/magnusoverli/ember-plus-sub000/ecos"

// OneToOneRejectOnAmbiguous governs ambiguous OneToOne connects: by
// default a Connect on a OneToOne matrix clears every existing binding of
// the requested sources. Setting this true makes ApplyConnection instead
// reject (return ErrSemantic) a Connect whose source is already bound to
// a different target, for operators targeting devices known to reject
// rather than silently reassign.
var OneToOneRejectOnAmbiguous = false

// ApplyConnection mutates m's connection set for one target according to
// op and the matrix's declared Type. Callers must hold m via
// Store.MutateMatrix so the mutation is atomic.
func ApplyConnection(m *Matrix, target int, sources []int, op ConnectionOperation) error {
	switch op {
	case OpDisconnect:
		for _, src := range sources {
			delete(m.Connections, connKey{Target: target, Source: src})
		}
		return nil

	case OpAbsolute:
		for k := range m.Connections {
			if k.Target == target {
				delete(m.Connections, k)
			}
		}
		for _, src := range sources {
			m.Connections[connKey{Target: target, Source: src}] = Connection{Connected: true, Disposition: DispositionTally}
		}
		return nil

	case OpConnect:
		switch m.Type {
		case MatrixOneToN:
			for k := range m.Connections {
				if k.Target == target {
					delete(m.Connections, k)
				}
			}
		case MatrixOneToOne:
			for k := range m.Connections {
				if k.Target == target {
					delete(m.Connections, k)
				}
			}
			for _, src := range sources {
				for k := range m.Connections {
					if k.Source == src && k.Target != target {
						if OneToOneRejectOnAmbiguous {
							return ecos.NewErrSemantic("source %d already connected to target %d", src, k.Target)
						}
						delete(m.Connections, k)
					}
				}
			}
		case MatrixNToN:
			// no clearing; connections simply accumulate.
		}
		for _, src := range sources {
			m.Connections[connKey{Target: target, Source: src}] = Connection{Connected: true, Disposition: DispositionTally}
		}
		return nil

	default:
		return ecos.NewErrSemantic("unknown connection operation %d", op)
	}
}
