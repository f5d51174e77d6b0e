package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

var subscribeCmd = cli.Command{
	Name:      "subscribe",
	Usage:     "subscribe to a path and print value/connection updates until interrupted",
	ArgsUsage: "HOST:PORT PATH",
	Action:    subscribeAction,
}

func subscribeAction(cliCtx *cli.Context) error {
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

	c.Subscribe(path)
	fmt.Printf("subscribed to %s, press ctrl-c to stop\n", fcyan(path.String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	for {
		select {
		case ev := <-c.Events():
			printSubscriptionEvent(ev)
		case <-sigCh:
			c.Unsubscribe(path)
			return nil
		}
	}
}

func printSubscriptionEvent(ev consumer.Event) {
	switch ev.Kind {
	case consumer.EventParameter:
		fmt.Printf("%s %s = %s\n", fcyan(ev.Parameter.Path.String()), ev.Parameter.Identifier, formatValue(ev.Parameter.Value))
	case consumer.EventMatrixConnection:
		fmt.Printf("%s target %d -> sources %v\n", fcyan(ev.Connection.MatrixPath.String()), ev.Connection.Target, ev.Connection.Sources)
	case consumer.EventStreamValue:
		fmt.Printf("%s stream %d = %s\n", fdim("stream:"), ev.StreamValue.StreamID, formatValue(ev.StreamValue.Value))
	case consumer.EventDecodeError:
		fmt.Fprintln(os.Stderr, fred("decode error: "+ev.Err.Error()))
	case consumer.EventDisconnected:
		fmt.Fprintln(os.Stderr, fred("disconnected: "+ev.Reason))
	}
}
