package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// infoCommand creates the info command for inspecting a loaded map.
func (c *CLI) infoCommand() *cobra.Command {
	flags := &viewerFlags{}

	cmd := &cobra.Command{
		Use:   "info [map-id]",
		Short: "Show a map's descriptor, legend, and groupings",
		Long: `Show a map's descriptor, legend, and groupings.

The info command loads the bundle for a map and prints its descriptor,
path and feature counts, the path-type legend with default visibility,
and the derived system, taxon, centreline, and model groupings.

The source may be a bundle directory (default: current directory) or a
map server URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(cmd.Context(), args[0], flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// runInfo loads the map and prints its descriptor and groupings.
func (c *CLI) runInfo(ctx context.Context, mapID string, flags *viewerFlags) error {
	prog := newProgress(loggerFromContext(ctx))
	m, err := c.loadMap(ctx, mapID, flags)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded map %s", mapID))

	index := m.Index()
	printKeyValue("Map", index.ID)
	if index.Name != "" {
		printKeyValue("Name", index.Name)
	}
	printKeyValue("Style", m.Style())
	if index.Taxon != "" {
		printKeyValue("Taxon", index.Taxon)
	}
	if index.Version != "" {
		printKeyValue("Version", index.Version)
	}
	printKeyValue("SCKAN", string(m.SCKANState()))
	printStats(m.NumPaths(), m.NumFeatures(), false)
	printNewline()

	if types := m.PathTypes(); len(types) > 0 {
		fmt.Println(StyleTitle.Render("Path types"))
		for _, t := range types {
			state := StyleDim.Render("·")
			if t.Enabled {
				state = styleIconSuccess.Render(iconSuccess)
			}
			label := t.Label
			if t.Dashed {
				label += " (dashed)"
			}
			fmt.Printf("  %s %s %s %s\n",
				state, swatch(t.Colour), StyleValue.Render(label), StyleDim.Render(string(t.Type)))
		}
		printNewline()
	}

	if systems := m.Systems(); len(systems) > 0 {
		fmt.Println(StyleTitle.Render("Systems"))
		for _, s := range systems {
			fmt.Printf("  %s %s\n",
				StyleValue.Render(s.Name), StyleDim.Render(fmt.Sprintf("%d paths", len(s.PathIDs))))
		}
		printNewline()
	}

	if taxons := m.Taxons(); len(taxons) > 0 {
		printKeyValue("Taxons", strings.Join(taxons, ", "))
	}
	if models := m.ConnectivityModels(); len(models) > 0 {
		printKeyValue("Models", strings.Join(models, ", "))
	}
	if centrelines := m.Centrelines(); len(centrelines) > 0 {
		printKeyValue("Centrelines", fmt.Sprintf("%d", len(centrelines)))
	}

	printNewline()
	printNextStep("Explore interactively", fmt.Sprintf("flatmap view %s --source %s", mapID, flags.source))
	return nil
}
