// emberctl is a command-line consumer for Ember+ devices: browse a tree,
// read and write parameters, invoke functions, toggle matrix crosspoints,
// and capture a device's complete state to a snapshot file.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/magnusoverli/ember-plus-sub000/consumer"
	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/model"
)

const (
	appName  = "emberctl"
	appUsage = "browse, read, write, and capture Ember+ devices from the command line"
)

// custom cli.AppHelpTemplate, styled after cmd/cli/cli/app.go.
const appHelpTemplate = `NAME:
   {{.Name}}{{if .Usage}} - {{.Usage}}{{end}}

USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}} command [command options] [arguments...]

COMMANDS:{{range .VisibleCommands}}
   {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{if .VisibleFlags}}

GLOBAL OPTIONS:
   {{range $index, $option := .VisibleFlags}}{{if $index}}
   {{end}}{{$option}}{{end}}{{end}}
`

var (
	fcyan  = color.New(color.FgHiCyan).SprintFunc()
	fred   = color.New(color.FgHiRed).SprintFunc()
	fgreen = color.New(color.FgHiGreen).SprintFunc()
	fdim   = color.New(color.Faint).SprintFunc()
)

func main() {
	cli.AppHelpTemplate = appHelpTemplate
	app := cli.NewApp()
	app.Name = appName
	app.Usage = appUsage
	app.Commands = []cli.Command{
		browseCmd,
		getCmd,
		writeCmd,
		invokeCmd,
		matrixConnectCmd,
		matrixDisconnectCmd,
		subscribeCmd,
		snapshotCmd,
		capturesCmd,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, fred("emberctl: "+err.Error()))
		os.Exit(1)
	}
}

// dialAddr splits "host:port" the way every subcommand's first positional
// argument is expected to read.
func dialAddr(addr string) (host string, port int, err error) {
	idx := strings.LastIndexByte(addr, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("expected host:port, got %q", addr)
	}
	port, err = strconv.Atoi(addr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	return addr[:idx], port, nil
}

// connectConsumer dials addr and returns a live Conn; the caller must
// Disconnect it.
func connectConsumer(ctx context.Context, addr string) (*consumer.Conn, error) {
	host, port, err := dialAddr(addr)
	if err != nil {
		return nil, err
	}
	c := consumer.New(econfig.Default(), nil)
	if err := c.Connect(ctx, host, port); err != nil {
		return nil, err
	}
	return c, nil
}

// parseValue turns a CLI string argument into a model.Value, guessing the
// type the way a terminal user expects: integers and floats are numeric,
// "true"/"false" are boolean, anything else is a string.
func parseValue(s string) model.Value {
	if s == "true" || s == "false" {
		return model.NewBool(s == "true")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return model.NewInt(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return model.NewReal(f)
	}
	return model.NewString(s)
}

func formatValue(v model.Value) string {
	switch v.Type {
	case model.TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case model.TypeReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case model.TypeString:
		return v.Str
	case model.TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case model.TypeEnum:
		return fmt.Sprintf("enum(%d)", v.EnumIdx)
	case model.TypeTrigger:
		return "trigger"
	case model.TypeOctets:
		return fmt.Sprintf("%d bytes", len(v.Octets))
	default:
		return fdim("none")
	}
}

// waitFor drains c's event stream until match returns true or timeout
// elapses, printing decode errors as they arrive; a disconnect ends the
// wait with ok=false.
func waitFor(c *consumer.Conn, timeout time.Duration, match func(consumer.Event) bool) (consumer.Event, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == consumer.EventDecodeError {
				fmt.Fprintln(os.Stderr, fred("decode error: "+ev.Err.Error()))
				continue
			}
			if ev.Kind == consumer.EventDisconnected {
				return ev, false
			}
			if match(ev) {
				return ev, true
			}
		case <-deadline:
			return consumer.Event{}, false
		}
	}
}
