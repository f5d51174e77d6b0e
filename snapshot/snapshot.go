// Package snapshot persists a device tree as JSON, the interchange format
// between a captured consumer session and a provider emulator.
package snapshot

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/magnusoverli/ember-plus-sub000/model"
)

const FormatVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Statistics struct {
	Nodes      int `json:"nodes"`
	Parameters int `json:"parameters"`
	Matrices   int `json:"matrices"`
	Functions  int `json:"functions"`
}

type NodeDoc struct {
	Path        string   `json:"path"`
	Identifier  string   `json:"identifier"`
	Description string   `json:"description"`
	IsOnline    bool     `json:"isOnline"`
	Children    []string `json:"children"`
}

type ParameterDoc struct {
	Path       string   `json:"path"`
	Identifier string   `json:"identifier"`
	Value      ValueDoc `json:"value"`
	Type       int      `json:"type"`
	Access     int      `json:"access"`
	IsOnline   bool     `json:"isOnline"`
	Minimum    *float64 `json:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty"`
	EnumNames  []string `json:"enumOptions,omitempty"`
	EnumValues []int32  `json:"enumValues,omitempty"`
	Format     string   `json:"format,omitempty"`
	Formula    string   `json:"formula,omitempty"`
	Factor     float64  `json:"factor,omitempty"`
	StreamID   int64    `json:"streamIdentifier,omitempty"`
}

// ValueDoc mirrors model.Value losslessly without needing a custom
// (Un)MarshalJSON on the model type itself.
type ValueDoc struct {
	Int    int64  `json:"int,omitempty"`
	Real   float64 `json:"real,omitempty"`
	Str    string `json:"str,omitempty"`
	Bool   bool   `json:"bool,omitempty"`
	Enum   int32  `json:"enum,omitempty"`
	Octets []byte `json:"octets,omitempty"`
}

func valueToDoc(v model.Value) ValueDoc {
	return ValueDoc{Int: v.Int, Real: v.Real, Str: v.Str, Bool: v.Bool, Enum: v.EnumIdx, Octets: v.Octets}
}

func docToValue(t model.ValueType, d ValueDoc) model.Value {
	switch t {
	case model.TypeInteger:
		return model.NewInt(d.Int)
	case model.TypeReal:
		return model.NewReal(d.Real)
	case model.TypeString:
		return model.NewString(d.Str)
	case model.TypeBoolean:
		return model.NewBool(d.Bool)
	case model.TypeEnum:
		return model.NewEnum(d.Enum)
	case model.TypeOctets:
		return model.NewOctets(d.Octets)
	case model.TypeTrigger:
		return model.NewTrigger()
	default:
		return model.Value{}
	}
}

type ConnectionDoc struct {
	Target int `json:"target"`
	Source int `json:"source"`
}

type MatrixDoc struct {
	Path          string            `json:"path"`
	Identifier    string            `json:"identifier"`
	Description   string            `json:"description"`
	Type          int               `json:"type"`
	TargetCount   int               `json:"targetCount"`
	SourceCount   int               `json:"sourceCount"`
	TargetNumbers []int             `json:"targetNumbers"`
	SourceNumbers []int             `json:"sourceNumbers"`
	TargetLabels  map[string]string `json:"targetLabels,omitempty"`
	SourceLabels  map[string]string `json:"sourceLabels,omitempty"`
	Connections   []ConnectionDoc   `json:"connections"`
}

type FunctionDoc struct {
	Path         string   `json:"path"`
	Identifier   string   `json:"identifier"`
	Description  string   `json:"description"`
	ArgNames     []string `json:"argNames"`
	ArgTypes     []int    `json:"argTypes"`
	ResultNames  []string `json:"resultNames"`
	ResultTypes  []int    `json:"resultTypes"`
}

// Snapshot is the top-level persisted document.
type Snapshot struct {
	FormatVersion int            `json:"formatVersion"`
	DeviceName    string         `json:"deviceName"`
	CaptureTime   string         `json:"captureTime"`
	HostAddress   string         `json:"hostAddress"`
	Port          int            `json:"port"`
	Statistics    Statistics     `json:"statistics"`
	RootPaths     []string       `json:"rootPaths"`
	Nodes         []NodeDoc      `json:"nodes"`
	Parameters    []ParameterDoc `json:"parameters"`
	Matrices      []MatrixDoc    `json:"matrices"`
	Functions     []FunctionDoc  `json:"functions"`
}

// FromStore renders every element reachable from store's roots into a
// Snapshot, stamping captureTime with now.
func FromStore(st *model.Store, deviceName, hostAddress string, port int, now time.Time) *Snapshot {
	snap := &Snapshot{
		FormatVersion: FormatVersion,
		DeviceName:    deviceName,
		CaptureTime:   now.UTC().Format(time.RFC3339),
		HostAddress:   hostAddress,
		Port:          port,
	}
	for _, p := range st.IterRoots() {
		snap.RootPaths = append(snap.RootPaths, p.String())
	}
	visited := map[string]bool{}
	var walk func(p model.Path)
	walk = func(p model.Path) {
		key := p.String()
		if visited[key] {
			return
		}
		visited[key] = true
		elem := st.Get(p)
		if elem == nil {
			return
		}
		switch e := elem.(type) {
		case *model.Node:
			var children []string
			for _, c := range e.Children {
				children = append(children, c.String())
			}
			snap.Nodes = append(snap.Nodes, NodeDoc{
				Path: key, Identifier: e.Identifier, Description: e.Description,
				IsOnline: e.IsOnline, Children: children,
			})
			for _, c := range e.Children {
				walk(c)
			}
		case *model.Parameter:
			snap.Parameters = append(snap.Parameters, ParameterDoc{
				Path: key, Identifier: e.Identifier, Value: valueToDoc(e.Value),
				Type: int(e.Value.Type), Access: int(e.Access), IsOnline: e.IsOnline,
				Minimum: e.Minimum, Maximum: e.Maximum,
				EnumNames: e.EnumNames, EnumValues: e.EnumValues,
				Format: e.Format, Formula: e.Formula, Factor: e.Factor, StreamID: e.StreamID,
			})
		case *model.Matrix:
			doc := MatrixDoc{
				Path: key, Identifier: e.Identifier, Description: e.Description,
				Type: int(e.Type), TargetCount: e.TargetCount, SourceCount: e.SourceCount,
				TargetNumbers: append([]int(nil), e.Targets...),
				SourceNumbers: append([]int(nil), e.Sources...),
			}
			if len(e.TargetLabels) > 0 {
				doc.TargetLabels = map[string]string{}
				for k, v := range e.TargetLabels {
					doc.TargetLabels[itoa(k)] = v
				}
			}
			if len(e.SourceLabels) > 0 {
				doc.SourceLabels = map[string]string{}
				for k, v := range e.SourceLabels {
					doc.SourceLabels[itoa(k)] = v
				}
			}
			for _, t := range e.Targets {
				for _, s := range e.SourcesFor(t) {
					doc.Connections = append(doc.Connections, ConnectionDoc{Target: t, Source: s})
				}
			}
			snap.Matrices = append(snap.Matrices, doc)
		case *model.Function:
			var argTypes, resTypes []int
			for _, t := range e.ArgTypes {
				argTypes = append(argTypes, int(t))
			}
			for _, t := range e.ResTypes {
				resTypes = append(resTypes, int(t))
			}
			snap.Functions = append(snap.Functions, FunctionDoc{
				Path: key, Identifier: e.Identifier, Description: e.Description,
				ArgNames: e.ArgNames, ArgTypes: argTypes,
				ResultNames: e.ResNames, ResultTypes: resTypes,
			})
		}
	}
	for _, p := range st.IterRoots() {
		walk(p)
	}
	snap.Statistics = Statistics{
		Nodes: len(snap.Nodes), Parameters: len(snap.Parameters),
		Matrices: len(snap.Matrices), Functions: len(snap.Functions),
	}
	return snap
}

// ToStore rebuilds a Store from a loaded Snapshot.
func ToStore(snap *Snapshot) (*model.Store, error) {
	st := model.NewStore()
	for _, n := range snap.Nodes {
		p, err := model.ParsePath(n.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot: node path %q", n.Path)
		}
		var children []model.Path
		for _, c := range n.Children {
			cp, err := model.ParsePath(c)
			if err != nil {
				return nil, errors.Wrapf(err, "snapshot: child path %q", c)
			}
			children = append(children, cp)
		}
		if err := st.Put(&model.Node{
			Path: p, Identifier: n.Identifier, Description: n.Description,
			IsOnline: n.IsOnline, Children: children,
		}); err != nil {
			return nil, err
		}
	}
	for _, pd := range snap.Parameters {
		p, err := model.ParsePath(pd.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot: parameter path %q", pd.Path)
		}
		vt := model.ValueType(pd.Type)
		if err := st.Put(&model.Parameter{
			Path: p, Identifier: pd.Identifier, Value: docToValue(vt, pd.Value),
			Access: model.Access(pd.Access), IsOnline: pd.IsOnline,
			Minimum: pd.Minimum, Maximum: pd.Maximum,
			EnumNames: pd.EnumNames, EnumValues: pd.EnumValues,
			Format: pd.Format, Formula: pd.Formula, Factor: pd.Factor, StreamID: pd.StreamID,
		}); err != nil {
			return nil, err
		}
	}
	for _, md := range snap.Matrices {
		if err := putMatrix(st, md); err != nil {
			return nil, err
		}
	}
	for _, fd := range snap.Functions {
		p, err := model.ParsePath(fd.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot: function path %q", fd.Path)
		}
		var argTypes, resTypes []model.ValueType
		for _, t := range fd.ArgTypes {
			argTypes = append(argTypes, model.ValueType(t))
		}
		for _, t := range fd.ResultTypes {
			resTypes = append(resTypes, model.ValueType(t))
		}
		if err := st.Put(&model.Function{
			Path: p, Identifier: fd.Identifier, Description: fd.Description,
			ArgNames: fd.ArgNames, ArgTypes: argTypes,
			ResNames: fd.ResultNames, ResTypes: resTypes,
		}); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func itoa(n int) string {
	return model.Path{n}.String()
}

func putMatrix(st *model.Store, md MatrixDoc) error {
	p, err := model.ParsePath(md.Path)
	if err != nil {
		return errors.Wrapf(err, "snapshot: matrix path %q", md.Path)
	}
	m := model.NewMatrix(p, md.Identifier, md.Description, model.MatrixType(md.Type),
		md.TargetCount, md.SourceCount, md.TargetNumbers, md.SourceNumbers)
	for k, v := range md.TargetLabels {
		n, err := parseLabelKey(k)
		if err != nil {
			return err
		}
		m.TargetLabels[n] = v
	}
	for k, v := range md.SourceLabels {
		n, err := parseLabelKey(k)
		if err != nil {
			return err
		}
		m.SourceLabels[n] = v
	}
	if err := st.Put(m); err != nil {
		return err
	}
	byTarget := map[int][]int{}
	var order []int
	for _, c := range md.Connections {
		if _, seen := byTarget[c.Target]; !seen {
			order = append(order, c.Target)
		}
		byTarget[c.Target] = append(byTarget[c.Target], c.Source)
	}
	for _, target := range order {
		sources := byTarget[target]
		if err := st.MutateMatrix(p, func(mx *model.Matrix) error {
			return model.ApplyConnection(mx, target, sources, model.OpAbsolute)
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseLabelKey(s string) (int, error) {
	p, err := model.ParsePath(s)
	if err != nil || len(p) != 1 {
		return 0, errors.Errorf("snapshot: malformed label key %q", s)
	}
	return p[0], nil
}

// Save writes snap as indented JSON to path.
func Save(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "snapshot: marshal")
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and parses a Snapshot from path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: read")
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "snapshot: unmarshal")
	}
	return &snap, nil
}
