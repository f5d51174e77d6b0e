package consumer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/s101"
)

func strp(s string) *string { return &s }
func valp(v model.Value) *model.Value { return &v }

// runFakeProvider answers every GetDirectory command (root-level or
// path-qualified) with whatever handle returns for that path (nil for the
// root), writing the S101-framed reply back on server.
func runFakeProvider(server net.Conn, handle func(path model.Path) *glow.Root) {
	go func() {
		d := s101.NewDeframer()
		buf := make([]byte, 4096)
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			for _, ev := range d.Feed(buf[:n]) {
				if ev.Kind != s101.EventEmberMessage {
					continue
				}
				root, err := glow.DecodeRoot(ev.Ember)
				if err != nil {
					continue
				}
				for _, it := range root.Items {
					var reply *glow.Root
					switch v := it.(type) {
					case *glow.Command:
						if v.Number == glow.CmdGetDirectory {
							reply = handle(nil)
						}
					case *glow.QualifiedNode:
						if v.Command != nil && v.Command.Number == glow.CmdGetDirectory {
							reply = handle(v.Path)
						}
					}
					if reply != nil {
						server.Write(s101.EncodeEmber(glow.EncodeRoot(reply)))
					}
				}
			}
		}
	}()
}

func TestConnectAndRootDirectory(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	runFakeProvider(server, func(path model.Path) *glow.Root {
		return &glow.Root{Items: []glow.Item{&glow.QualifiedNode{
			Path:     model.Path{1},
			Contents: glow.NodeContents{Identifier: strp("device")},
		}}}
	})

	c := New(econfig.Default(), nil)
	c.startWithConn(client)
	defer c.Disconnect()

	var gotConnected, gotNode bool
	timeout := time.After(2 * time.Second)
	for !gotConnected || !gotNode {
		select {
		case ev := <-c.Events():
			switch ev.Kind {
			case EventConnected:
				gotConnected = true
			case EventNode:
				gotNode = true
				if ev.Node.Identifier != "device" {
					t.Fatalf("unexpected identifier: %s", ev.Node.Identifier)
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
	if got := c.Store().Get(model.Path{1}); got == nil {
		t.Fatal("root node not recorded in store")
	}
}

func TestFetchCompleteTree(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	runFakeProvider(server, func(path model.Path) *glow.Root {
		return &glow.Root{Items: []glow.Item{&glow.QualifiedNode{
			Path:     model.Path{1},
			Contents: glow.NodeContents{Identifier: strp("device")},
			Children: []glow.Item{
				&glow.Parameter{Number: 1, Contents: glow.ParameterContents{Identifier: strp("p1"), Value: valp(model.NewInt(1))}},
				&glow.Parameter{Number: 2, Contents: glow.ParameterContents{Identifier: strp("p2"), Value: valp(model.NewInt(2))}},
			},
		}}}
	})

	c := New(econfig.Default(), nil)
	c.startWithConn(client)
	defer c.Disconnect()

	go func() {
		for range c.Events() {
		}
	}()

	progress := make(chan FetchProgress, 16)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.FetchCompleteTree(ctx, []model.Path{{1}}, progress); err != nil {
		t.Fatal(err)
	}
	var last FetchProgress
	for p := range progress {
		last = p
	}
	if last.Completed != last.Total {
		t.Fatalf("incomplete fetch: %+v", last)
	}
	if last.Completed != 3 {
		t.Fatalf("expected 3 completions (root + 2 leaves), got %+v", last)
	}
}

func TestIngestMatrixConnectionAndLabel(t *testing.T) {
	c := New(econfig.Default(), nil)
	mpath := model.Path{2}
	if err := c.store.Put(model.NewMatrix(mpath, "xy", "", model.MatrixOneToN, 2, 2, []int{0, 1}, []int{0, 1})); err != nil {
		t.Fatal(err)
	}

	c.ingestMatrix(mpath, glow.MatrixContents{}, nil, nil, []glow.ConnectionWire{
		{Target: 0, Sources: []int{1}, Operation: model.OpAbsolute},
	})
	select {
	case ev := <-c.events:
		if ev.Kind != EventMatrixConnection {
			t.Fatalf("expected connection event, got %v", ev.Kind)
		}
	default:
		t.Fatal("expected a queued connection event")
	}
	<-c.events // matrix-updated event

	m := c.store.Get(mpath).(*model.Matrix)
	if got := m.SourcesFor(0); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected connections: %+v", m.Connections)
	}

	labelPath := mpath.MatrixTargetsLabelPath().Child(0)
	c.ingestParameter(labelPath, glow.ParameterContents{Value: valp(model.NewString("Input A"))})
	ev := <-c.events
	if ev.Kind != EventMatrixTarget || ev.Label.Label != "Input A" {
		t.Fatalf("unexpected label event: %+v", ev)
	}
	m = c.store.Get(mpath).(*model.Matrix)
	if m.TargetLabels[0] != "Input A" {
		t.Fatalf("label not recorded on matrix: %+v", m.TargetLabels)
	}
}

func TestIngestInvocationResult(t *testing.T) {
	c := New(econfig.Default(), nil)
	path := model.Path{1, 5}
	c.pendingInvocations[7] = path

	c.ingestInvocationResult(&glow.InvocationResult{InvocationID: 7, Success: true, Result: []model.Value{model.NewInt(42)}})
	ev := <-c.events
	if ev.Kind != EventInvocationResult || ev.InvocationResult.Path.String() != path.String() {
		t.Fatalf("unexpected invocation result event: %+v", ev)
	}
	if _, ok := c.pendingInvocations[7]; ok {
		t.Fatal("pending invocation should have been cleared")
	}
}

func TestDivideByFactor(t *testing.T) {
	cases := []struct {
		raw    model.Value
		factor float64
		want   model.Value
	}{
		{model.NewInt(10), 1, model.NewInt(10)},
		{model.NewInt(10), 5, model.NewInt(2)},
		{model.NewInt(10), 3, model.NewReal(10.0 / 3)},
		{model.NewReal(9), 2, model.NewReal(4.5)},
	}
	for _, tc := range cases {
		got := divideByFactor(tc.raw, tc.factor)
		if got.Type != tc.want.Type {
			t.Fatalf("factor %v: type mismatch got %v want %v", tc.factor, got.Type, tc.want.Type)
		}
		switch got.Type {
		case model.TypeInteger:
			if got.Int != tc.want.Int {
				t.Fatalf("factor %v: got %d want %d", tc.factor, got.Int, tc.want.Int)
			}
		case model.TypeReal:
			if got.Real != tc.want.Real {
				t.Fatalf("factor %v: got %v want %v", tc.factor, got.Real, tc.want.Real)
			}
		}
	}
}

// decodeSentRoot drains one S101-framed Glow root off c.outRaw, failing the
// test if nothing was sent.
func decodeSentRoot(t *testing.T, c *Conn) *glow.Root {
	t.Helper()
	select {
	case b := <-c.outRaw:
		d := s101.NewDeframer()
		for _, ev := range d.Feed(b) {
			if ev.Kind != s101.EventEmberMessage {
				t.Fatalf("unexpected frame kind: %v", ev.Kind)
			}
			root, err := glow.DecodeRoot(ev.Ember)
			if err != nil {
				t.Fatalf("decode root: %v", err)
			}
			return root
		}
		t.Fatal("no ember message decoded from sent frame")
	default:
		t.Fatal("expected a sent frame")
	}
	return nil
}

func qualifiedNodePaths(root *glow.Root) []string {
	var out []string
	for _, it := range root.Items {
		if qn, ok := it.(*glow.QualifiedNode); ok {
			out = append(out, qn.Path.String())
		}
	}
	return out
}

// TestExpandSiblingPrefetch exercises scenario 4: expanding one child of an
// already-expanded node batches GetDirectory for every unfetched sibling,
// and a later expand of one of those siblings sends no further
// GetDirectory. Expand's auto-Subscribe frames (QualifiedParameter items)
// are expected alongside and are skipped here.
func TestExpandSiblingPrefetch(t *testing.T) {
	c := New(econfig.Default(), nil)
	parent := model.Path{1}
	if err := c.store.Put(&model.Node{Path: parent, Identifier: "root"}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		child := model.Path{1, i}
		if err := c.store.Put(&model.Node{Path: child, Identifier: "child"}); err != nil {
			t.Fatal(err)
		}
		if err := c.store.Link(parent, child); err != nil {
			t.Fatal(err)
		}
	}
	c.fetched[parent.String()] = true

	c.expandLocked(model.Path{1, 1})

	var batches [][]string
	for len(c.outRaw) > 0 {
		if paths := qualifiedNodePaths(decodeSentRoot(t, c)); len(paths) > 0 {
			batches = append(batches, paths)
		}
	}
	if len(batches) != 1 {
		t.Fatalf("expected exactly one prefetch batch, got %v", batches)
	}
	got := batches[0]
	want := []string{"1.1", "1.2", "1.3"}
	if len(got) != len(want) {
		t.Fatalf("unexpected prefetch batch: got %v want %v", got, want)
	}
	seen := map[string]bool{}
	for _, p := range got {
		seen[p] = true
	}
	for _, p := range want {
		if !seen[p] {
			t.Fatalf("prefetch batch %v missing %s", got, p)
		}
	}

	c.expandLocked(model.Path{1, 2})
	for len(c.outRaw) > 0 {
		if paths := qualifiedNodePaths(decodeSentRoot(t, c)); len(paths) > 0 {
			t.Fatalf("expected no further GetDirectory for an already-fetched sibling, got %v", paths)
		}
	}
}

func TestPathFor(t *testing.T) {
	if got := pathFor(nil, 3); got.String() != "3" {
		t.Fatalf("unexpected root path: %s", got)
	}
	if got := pathFor(model.Path{1, 2}, 3); got.String() != "1.2.3" {
		t.Fatalf("unexpected child path: %s", got)
	}
}
