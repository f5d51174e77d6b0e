package devcache_test

import (
	"testing"
	"time"

	"github.com/magnusoverli/ember-plus-sub000/devcache"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := devcache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Put("10.0.0.5", 9092, "mixer-1", "1", "1.1"); err != nil {
		t.Fatal(err)
	}
	e, ok, err := c.Get("10.0.0.5", 9092)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if e.DeviceName != "mixer-1" || e.RootPath != "1" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.Valid(time.Now()) {
		t.Fatal("freshly written entry should be valid")
	}
}

func TestStaleEntryReportedNotDeleted(t *testing.T) {
	e := devcache.Entry{DeviceName: "old", LastSeen: time.Now().Add(-48 * time.Hour)}
	if e.Valid(time.Now()) {
		t.Fatal("48h-old entry should be stale")
	}
}

func TestMissingEntry(t *testing.T) {
	c, err := devcache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_, ok, err := c.Get("nowhere", 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no entry")
	}
}
