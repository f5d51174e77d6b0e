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

var invokeCmd = cli.Command{
	Name:      "invoke",
	Usage:     "invoke a function, optionally with comma-separated arguments",
	ArgsUsage: "HOST:PORT PATH [ARG,ARG,...]",
	Action:    invokeAction,
}

func invokeAction(cliCtx *cli.Context) error {
	if cliCtx.NArg() < 2 {
		return fmt.Errorf("expected HOST:PORT PATH [ARGS]")
	}
	path, err := model.ParsePath(cliCtx.Args().Get(1))
	if err != nil {
		return err
	}
	var args []model.Value
	if cliCtx.NArg() >= 3 {
		for _, a := range strings.Split(cliCtx.Args().Get(2), ",") {
			args = append(args, parseValue(a))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := connectConsumer(ctx, cliCtx.Args().Get(0))
	if err != nil {
		return err
	}
	defer c.Disconnect()

	id := c.Invoke(path, args)
	ev, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool {
		return ev.Kind == consumer.EventInvocationResult && ev.InvocationResult.InvocationID == id
	})
	if !ok {
		return fmt.Errorf("no invocation result received for %s", path)
	}
	res := ev.InvocationResult
	if !res.Success {
		return fmt.Errorf("invocation failed")
	}
	parts := make([]string, len(res.Result))
	for i, v := range res.Result {
		parts[i] = formatValue(v)
	}
	fmt.Printf("%s %s -> [%s]\n", fgreen("ok:"), path.String(), strings.Join(parts, ", "))
	return nil
}
