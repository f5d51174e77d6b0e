// emberd replays a captured device snapshot as a live Ember+ provider, for
// testing consumers against a stable fixture without real hardware.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/nlog"
	"github.com/magnusoverli/ember-plus-sub000/provider"
	"github.com/magnusoverli/ember-plus-sub000/snapshot"
)

const helpMsg = `Build:
	go install emberd.go

Examples:
	emberd -snapshot=mixer.snapshot.json             - serve a captured device on the default port
	emberd -snapshot=mixer.snapshot.json.lz4 -port=9200 - serve a compressed capture on a chosen port
`

var flags struct {
	snapshotPath string
	port         int
	deviceName   string
	help         bool
}

func main() {
	cfg := econfig.Default()
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&flags.snapshotPath, "snapshot", "", "path to a *.snapshot.json[.lz4] capture")
	fs.IntVar(&flags.port, "port", cfg.ProviderPort, "TCP port to listen on")
	fs.StringVar(&flags.deviceName, "name", "", "device name to report (defaults to the snapshot's own)")
	fs.BoolVar(&flags.help, "h", false, "show usage")
	fs.Usage = func() { fmt.Fprint(os.Stderr, helpMsg) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if flags.help || flags.snapshotPath == "" {
		fs.Usage()
		os.Exit(1)
	}

	snap, err := loadSnapshot(flags.snapshotPath)
	if err != nil {
		nlog.Errorf("emberd: %v", err)
		os.Exit(1)
	}
	st, err := snapshot.ToStore(snap)
	if err != nil {
		nlog.Errorf("emberd: rebuilding store from %s: %v", flags.snapshotPath, err)
		os.Exit(1)
	}

	name := flags.deviceName
	if name == "" {
		name = snap.DeviceName
	}

	srv := provider.NewServer(cfg, st, name, provider.NewMetrics(nil))
	addr := fmt.Sprintf(":%d", flags.port)
	nlog.Infof("emberd: serving %q from %s on %s", name, flags.snapshotPath, addr)
	if err := srv.ListenAndServe(addr); err != nil {
		nlog.Errorf("emberd: %v", err)
		os.Exit(1)
	}
}

func loadSnapshot(path string) (*snapshot.Snapshot, error) {
	if len(path) > 4 && path[len(path)-4:] == ".lz4" {
		return snapshot.LoadCompressed(path)
	}
	return snapshot.Load(path)
}
