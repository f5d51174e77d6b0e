package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/urfave/cli"
)

var capturesCmd = cli.Command{
	Name:      "captures",
	Usage:     "list saved snapshot captures under a directory",
	ArgsUsage: "[DIR]",
	Action:    capturesAction,
}

func capturesAction(cliCtx *cli.Context) error {
	dir := "."
	if cliCtx.NArg() >= 1 {
		dir = cliCtx.Args().Get(0)
	}

	var found []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			name := de.Name()
			if strings.HasSuffix(name, ".snapshot.json") || strings.HasSuffix(name, ".snapshot.json.lz4") {
				found = append(found, path)
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return err
	}
	sort.Strings(found)
	if len(found) == 0 {
		fmt.Fprintln(os.Stderr, fdim("no captures found under "+dir))
		return nil
	}
	for _, f := range found {
		fmt.Println(f)
	}
	return nil
}
