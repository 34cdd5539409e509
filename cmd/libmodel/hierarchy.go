package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/libmodel/internal/output"
	"github.com/panbanda/libmodel/internal/service/synthesis"
)

func pathFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Value:   cli.NewStringSlice("."),
		Usage:   "Java sources, universe documents or directories",
	}
}

func hierarchyCmd() *cli.Command {
	return &cli.Command{
		Name:    "hierarchy",
		Aliases: []string{"hier"},
		Usage:   "Query the class hierarchy of the loaded universe",
		Subcommands: []*cli.Command{
			{
				Name:      "subtypes",
				Usage:     "List the transitive subtypes of a class",
				ArgsUsage: "<class>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(c *cli.Context) error {
					return runRelationCmd(c, "Subtypes", func(svc *synthesis.Service) relationQuery { return svc.Subtypes })
				},
			},
			{
				Name:      "supertypes",
				Usage:     "List the superclasses and superinterfaces of a class",
				ArgsUsage: "<class>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(c *cli.Context) error {
					return runRelationCmd(c, "Supertypes", func(svc *synthesis.Service) relationQuery { return svc.Supertypes })
				},
			},
			{
				Name:      "classify",
				Usage:     "Tell application types from library types",
				ArgsUsage: "<class...>",
				Flags:     []cli.Flag{pathFlag()},
				Action:    runClassifyCmd,
			},
		},
	}
}

type relationQuery func(ctx context.Context, paths []string, class string) ([]synthesis.TypeInfo, error)

func runRelationCmd(c *cli.Context, title string, query func(*synthesis.Service) relationQuery) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one class name")
	}
	class := c.Args().First()

	svc, err := newService(c)
	if err != nil {
		return err
	}
	types, err := query(svc)(c.Context, c.StringSlice("path"), class)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, []string{t.Name, t.Kind, t.Provenance, typeFlags(t)})
	}
	table := output.NewTable(
		fmt.Sprintf("%s of %s", title, class),
		[]string{"Type", "Kind", "Provenance", "Flags"},
		rows,
		[]string{fmt.Sprintf("Total: %d", len(types))},
		types,
	)
	return outputTable(c, table)
}

func typeFlags(t synthesis.TypeInfo) string {
	var flags []string
	if t.Abstract {
		flags = append(flags, "abstract")
	}
	if t.Phantom {
		flags = append(flags, "phantom")
	}
	return strings.Join(flags, ",")
}

func runClassifyCmd(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("expected at least one class name")
	}
	svc, err := newService(c)
	if err != nil {
		return err
	}
	res, err := svc.Classify(c.Context, c.StringSlice("path"), c.Args().Slice())
	if err != nil {
		return err
	}

	var rows [][]string
	unknown := 0
	for _, cl := range res {
		if !cl.Known {
			unknown++
			rows = append(rows, []string{cl.Name, "-", "unknown"})
			continue
		}
		rows = append(rows, []string{cl.Name, cl.Kind, cl.Provenance})
	}
	table := output.NewTable(
		"Classification",
		[]string{"Type", "Kind", "Provenance"},
		rows,
		[]string{fmt.Sprintf("Unknown: %d", unknown)},
		res,
	)
	return outputTable(c, table)
}

func outputTable(c *cli.Context, table *output.Table) error {
	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(table)
}
