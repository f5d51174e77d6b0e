package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/snapshot"
)

func buildSampleStore(t *testing.T) *model.Store {
	t.Helper()
	st := model.NewStore()
	root := model.Path{1}
	if err := st.Put(&model.Node{Path: root, Identifier: "device", IsOnline: true}); err != nil {
		t.Fatal(err)
	}
	sys := root.Child(1)
	if err := st.Put(&model.Node{Path: sys, Identifier: "sys", IsOnline: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.Link(root, sys); err != nil {
		t.Fatal(err)
	}
	gain := root.Child(2)
	if err := st.Put(&model.Parameter{
		Path: gain, Identifier: "gain", Value: model.NewReal(0),
		Access: model.AccessReadWrite, IsOnline: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.Link(root, gain); err != nil {
		t.Fatal(err)
	}

	mpath := model.Path{2}
	m := model.NewMatrix(mpath, "xy", "crosspoint", model.MatrixOneToN, 2, 2, []int{0, 1}, []int{0, 1})
	if err := st.Put(m); err != nil {
		t.Fatal(err)
	}
	if err := st.MutateMatrix(mpath, func(mx *model.Matrix) error {
		return model.ApplyConnection(mx, 0, []int{1}, model.OpAbsolute)
	}); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestRoundTrip(t *testing.T) {
	st := buildSampleStore(t)
	snap := snapshot.FromStore(st, "testdev", "127.0.0.1", 9092, time.Unix(0, 0))

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	if err := snapshot.Save(path, snap); err != nil {
		t.Fatal(err)
	}
	loaded, err := snapshot.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DeviceName != "testdev" || loaded.Port != 9092 {
		t.Fatalf("header mismatch: %+v", loaded)
	}
	if len(loaded.Nodes) != 2 || len(loaded.Parameters) != 1 || len(loaded.Matrices) != 1 {
		t.Fatalf("element counts mismatch: %+v", loaded.Statistics)
	}

	st2, err := snapshot.ToStore(loaded)
	if err != nil {
		t.Fatal(err)
	}
	gotGain := st2.Get(model.Path{1, 2}).(*model.Parameter)
	if gotGain.Identifier != "gain" || gotGain.Access != model.AccessReadWrite {
		t.Fatalf("parameter round-trip mismatch: %+v", gotGain)
	}
	gotMatrix := st2.Get(model.Path{2}).(*model.Matrix)
	if len(gotMatrix.SourcesFor(0)) != 1 || gotMatrix.SourcesFor(0)[0] != 1 {
		t.Fatalf("matrix connection round-trip mismatch: %+v", gotMatrix.Connections)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	st := buildSampleStore(t)
	snap := snapshot.FromStore(st, "testdev", "127.0.0.1", 9092, time.Unix(0, 0))

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json.lz4")
	if err := snapshot.SaveCompressed(path, snap); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := snapshot.LoadCompressed(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DeviceName != "testdev" {
		t.Fatalf("compressed round-trip mismatch: %+v", loaded)
	}
}
