package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/export"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output  string // output file path
	format  string // export format: dot, svg, png
	types   string // comma-separated path-type filter
	labels  bool   // label nodes with anatomical names
	noCache bool   // disable the export cache
}

// graphCommand creates the graph command for exporting connectivity graphs.
func (c *CLI) graphCommand() *cobra.Command {
	flags := &viewerFlags{}
	opts := graphOpts{format: string(export.FormatDOT)}

	cmd := &cobra.Command{
		Use:   "graph [map-id]",
		Short: "Export a map's connectivity as a node-link graph",
		Long: `Export a map's connectivity as a node-link graph.

The graph command builds a Graphviz digraph over the map's paths, with
one node per anatomical feature and one edge per path segment, coloured
by path type. The graph can be written as DOT source or rendered to SVG
or PNG.

Built graphs and rendered artifacts are cached locally, keyed by bundle
content, so repeat exports of an unchanged map are fast.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], flags, &opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout for dot, <map-id>.<format> otherwise)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot (default), svg, png")
	cmd.Flags().StringVarP(&opts.types, "type", "t", "", "path type(s) to include, comma-separated (default: all)")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label nodes with anatomical names")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the export cache")

	return cmd
}

// runGraph loads the map, exports it in the requested format, and writes the
// result to a file or stdout.
func (c *CLI) runGraph(ctx context.Context, mapID string, flags *viewerFlags, opts *graphOpts) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	types, err := parsePathTypes(opts.types)
	if err != nil {
		return err
	}

	m, err := c.loadMap(ctx, mapID, flags)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(newExportCache(opts.noCache))

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Exporting %s graph...", format))
	spinner.Start()
	data, err := exporter.Export(ctx, m.Registry(), m.Annotations(), m.ContentHash(),
		export.Options{Types: types, Labels: opts.labels}, format)
	spinner.Stop()
	if err != nil {
		return err
	}

	path := graphOutputPath(opts.output, mapID, format)
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return err
	}

	if path != "" {
		printSuccess("Exported connectivity graph")
		printFile(path)
		printDetail("%d paths · %d bytes", m.NumPaths(), len(data))
	}
	return nil
}

// parsePathTypes parses a comma-separated path-type filter. Declared names
// such as "motor" normalize onto their catalogue type; names that would land
// on the catch-all bucket are rejected instead of silently matching it.
func parsePathTypes(s string) ([]pathway.PathType, error) {
	if s == "" {
		return nil, nil
	}
	var out []pathway.PathType
	for _, piece := range strings.Split(s, ",") {
		name := strings.TrimSpace(piece)
		if name == "" {
			continue
		}
		t := pathway.PathType(name)
		if !pathway.KnownType(t) {
			t = pathway.NormalizeType(name)
		}
		if t == pathway.PathTypeOther && name != string(pathway.PathTypeOther) {
			return nil, errors.New(errors.ErrCodeInvalidFilter, "unknown path type %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// graphOutputPath resolves the output destination. An empty return means
// stdout; DOT defaults there, rendered formats default to a file named
// after the map.
func graphOutputPath(output, mapID string, format export.Format) string {
	if output != "" {
		return output
	}
	if format == export.FormatDOT {
		return ""
	}
	return mapID + "." + string(format)
}

// nopCloser wraps an io.Writer with a no-op Close method, making os.Stdout
// compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path. An empty path means
// stdout; otherwise the file at path is created, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
