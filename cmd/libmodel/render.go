package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/libmodel/internal/report"
)

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render an emitted model as a self-contained HTML page",
		ArgsUsage: "<model-dir>",
		Description: `Reads model.yaml (or model.json) from a directory written by generate
and writes an HTML page to --output, or to stdout.`,
		Action: runRenderCmd,
	}
}

func runRenderCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected the model directory")
	}
	dir := c.Args().First()

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}
	if path := c.String("output"); path != "" {
		if err := renderer.RenderToFile(dir, path); err != nil {
			return err
		}
		color.Green("HTML written to %s", path)
		return nil
	}
	return renderer.Render(dir, os.Stdout)
}
