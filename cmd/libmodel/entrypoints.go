package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/libmodel/internal/output"
)

func entryPointsCmd() *cli.Command {
	return &cli.Command{
		Name:      "entrypoints",
		Aliases:   []string{"ep"},
		Usage:     "Detect the application entry points",
		ArgsUsage: "[path...]",
		Description: `Runs the entry-point detector selected by entry_points.framework
(default, android, spring) over the application classes.`,
		Action: runEntryPointsCmd,
	}
}

func runEntryPointsCmd(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	eps, err := svc.EntryPoints(c.Context, getPaths(c))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, []string{ep.Class, ep.Tag, ep.Contract, strings.Join(ep.Methods, "\n")})
	}
	table := output.NewTable(
		"Entry Points",
		[]string{"Class", "Tag", "Contract", "Methods"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", len(eps)),
			"Framework: " + svc.Config().EntryPoints.Framework,
		},
		eps,
	)
	return outputTable(c, table)
}
