package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

var getCmd = cli.Command{
	Name:      "get",
	Usage:     "print a parameter's current value",
	ArgsUsage: "HOST:PORT PATH",
	Action:    getAction,
}

func getAction(cliCtx *cli.Context) error {
	if cliCtx.NArg() < 2 {
		return fmt.Errorf("expected HOST:PORT PATH")
	}
	path, err := model.ParsePath(cliCtx.Args().Get(1))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := connectConsumer(ctx, cliCtx.Args().Get(0))
	if err != nil {
		return err
	}
	defer c.Disconnect()

	if parent, ok := path.Parent(); ok {
		c.Expand(parent)
	}
	ev, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool {
		return ev.Kind == consumer.EventParameter && ev.Parameter.Path.Equal(path)
	})
	if !ok {
		return fmt.Errorf("timed out waiting for %s", path)
	}
	fmt.Printf("%s %s = %s\n", fcyan(path.String()), ev.Parameter.Identifier, formatValue(ev.Parameter.Value))
	return nil
}

var writeCmd = cli.Command{
	Name:      "write",
	Usage:     "write a parameter's value",
	ArgsUsage: "HOST:PORT PATH VALUE",
	Action:    writeAction,
}

func writeAction(cliCtx *cli.Context) error {
	if cliCtx.NArg() < 3 {
		return fmt.Errorf("expected HOST:PORT PATH VALUE")
	}
	path, err := model.ParsePath(cliCtx.Args().Get(1))
	if err != nil {
		return err
	}
	value := parseValue(cliCtx.Args().Get(2))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := connectConsumer(ctx, cliCtx.Args().Get(0))
	if err != nil {
		return err
	}
	defer c.Disconnect()

	c.Write(path, value)
	ev, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool {
		return ev.Kind == consumer.EventParameter && ev.Parameter.Path.Equal(path)
	})
	if !ok {
		return fmt.Errorf("no confirmation received for write to %s", path)
	}
	fmt.Printf("%s %s now = %s\n", fgreen("written:"), path.String(), formatValue(ev.Parameter.Value))
	return nil
}
