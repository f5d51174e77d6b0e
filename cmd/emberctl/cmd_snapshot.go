package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/snapshot"
)

var snapshotCmd = cli.Command{
	Name:      "snapshot",
	Usage:     "walk a device's complete tree and save it to a capture file",
	ArgsUsage: "HOST:PORT OUT_FILE",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "compress", Usage: "lz4-compress the capture (OUT_FILE gets a .lz4 suffix)"},
	},
	Action: snapshotAction,
}

func snapshotAction(cliCtx *cli.Context) error {
	if cliCtx.NArg() < 2 {
		return fmt.Errorf("expected HOST:PORT OUT_FILE")
	}
	addr := cliCtx.Args().Get(0)
	outFile := cliCtx.Args().Get(1)
	host, port, err := dialAddr(addr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	c, err := connectConsumer(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	if _, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool { return ev.Kind == consumer.EventNode }); !ok {
		return fmt.Errorf("no root element received from %s", addr)
	}
	roots := c.Store().IterRoots()
	if len(roots) == 0 {
		return fmt.Errorf("device exposed no root elements")
	}
	deviceName := addr
	if n, ok := c.Store().Get(roots[0]).(*model.Node); ok {
		deviceName = n.Identifier
	}

	go func() {
		for range c.Events() {
			// drain background events while the orchestrator runs, so the
			// engine goroutine is never blocked delivering one nobody reads.
		}
	}()

	progress := make(chan consumer.FetchProgress, 64)
	p := mpb.New(mpb.WithWidth(48))
	bar := p.AddBar(1,
		mpb.PrependDecorators(decor.Name("fetching tree")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	done := make(chan error, 1)
	go func() { done <- c.FetchCompleteTree(ctx, roots, progress) }()
	for fp := range progress {
		bar.SetTotal(int64(fp.Total), false)
		bar.SetCurrent(int64(fp.Completed))
	}
	bar.SetTotal(bar.Current(), true)
	p.Wait()
	if err := <-done; err != nil {
		return fmt.Errorf("tree fetch: %w", err)
	}

	snap := snapshot.FromStore(c.Store(), deviceName, host, port, time.Now())
	path := outFile
	if cliCtx.Bool("compress") {
		if !strings.HasSuffix(path, ".lz4") {
			path += ".lz4"
		}
		err = snapshot.SaveCompressed(path, snap)
	} else {
		err = snapshot.Save(path, snap)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%d nodes, %d parameters, %d matrices, %d functions)\n",
		fgreen("saved:"), path, len(snap.Nodes), len(snap.Parameters), len(snap.Matrices), len(snap.Functions))
	return nil
}
