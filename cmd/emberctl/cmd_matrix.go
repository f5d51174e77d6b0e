package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

var matrixConnectCmd = cli.Command{
	Name:      "matrix-connect",
	Usage:     "connect one source to one target on a matrix",
	ArgsUsage: "HOST:PORT MATRIX_PATH TARGET SOURCE",
	Action:    matrixAction(true),
}

var matrixDisconnectCmd = cli.Command{
	Name:      "matrix-disconnect",
	Usage:     "disconnect one source from one target on a matrix",
	ArgsUsage: "HOST:PORT MATRIX_PATH TARGET SOURCE",
	Action:    matrixAction(false),
}

func matrixAction(connect bool) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		if cliCtx.NArg() < 4 {
			return fmt.Errorf("expected HOST:PORT MATRIX_PATH TARGET SOURCE")
		}
		path, err := model.ParsePath(cliCtx.Args().Get(1))
		if err != nil {
			return err
		}
		target, err := strconv.Atoi(cliCtx.Args().Get(2))
		if err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}
		source, err := strconv.Atoi(cliCtx.Args().Get(3))
		if err != nil {
			return fmt.Errorf("invalid source: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := connectConsumer(ctx, cliCtx.Args().Get(0))
		if err != nil {
			return err
		}
		defer c.Disconnect()

		c.SetMatrixConnection(path, target, source, connect)
		ev, ok := waitFor(c, 5*time.Second, func(ev consumer.Event) bool {
			return ev.Kind == consumer.EventMatrixConnection && ev.Connection.MatrixPath.Equal(path) && ev.Connection.Target == target
		})
		if !ok {
			return fmt.Errorf("no connection update received for target %d", target)
		}
		verb := "connected"
		if !connect {
			verb = "disconnected"
		}
		fmt.Printf("%s target %d sources now %v\n", fgreen(verb+":"), ev.Connection.Target, ev.Connection.Sources)
		return nil
	}
}
