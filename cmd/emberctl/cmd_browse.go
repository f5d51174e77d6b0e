package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

var browseCmd = cli.Command{
	Name:      "browse",
	Usage:     "expand a path one level and print its children (root if no path given)",
	ArgsUsage: "HOST:PORT [PATH]",
	Action:    browseAction,
}

func browseAction(cliCtx *cli.Context) error {
	if cliCtx.NArg() < 1 {
		return fmt.Errorf("missing HOST:PORT")
	}
	var path model.Path
	if cliCtx.NArg() >= 2 {
		p, err := model.ParsePath(cliCtx.Args().Get(1))
		if err != nil {
			return err
		}
		path = p
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := connectConsumer(ctx, cliCtx.Args().Get(0))
	if err != nil {
		return err
	}
	defer c.Disconnect()

	c.Expand(path)
	before := len(c.Store().Children(path))
	ev, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool {
		return len(c.Store().Children(path)) > before || ev.Kind == consumer.EventNode
	})
	if !ok && ev.Kind == consumer.EventDisconnected {
		return fmt.Errorf("disconnected: %s", ev.Reason)
	}
	time.Sleep(150 * time.Millisecond) // let trailing children of the same response land

	for _, child := range c.Store().Children(path) {
		printElement(c.Store(), child)
	}
	return nil
}

func printElement(st *model.Store, path model.Path) {
	indent := strings.Repeat("  ", len(path)-1)
	switch e := st.Get(path).(type) {
	case *model.Node:
		fmt.Printf("%s%s %s\n", indent, fcyan(path.String()), e.Identifier)
	case *model.Parameter:
		fmt.Printf("%s%s %s = %s\n", indent, fcyan(path.String()), e.Identifier, formatValue(e.Value))
	case *model.Matrix:
		fmt.Printf("%s%s %s (matrix, %d targets x %d sources)\n", indent, fcyan(path.String()), e.Identifier, e.TargetCount, e.SourceCount)
	case *model.Function:
		fmt.Printf("%s%s %s()\n", indent, fcyan(path.String()), e.Identifier)
	default:
		fmt.Printf("%s%s %s\n", indent, fcyan(path.String()), fdim("(unresolved)"))
	}
}
