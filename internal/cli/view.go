package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/anatomaps/flatmap/pkg/flatmap"
)

// viewCommand creates the view command for the interactive legend.
func (c *CLI) viewCommand() *cobra.Command {
	flags := &viewerFlags{}

	cmd := &cobra.Command{
		Use:   "view [map-id]",
		Short: "Explore a map's legend interactively",
		Long: `Explore a map's legend interactively.

The view command loads a map and opens a terminal legend: path types
with their catalogue colours and systems with their path counts.
Toggling a row flips the facet in the live state engine, with the same
reference-counted visibility semantics the control API applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), args[0], flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// runView loads the map and runs the legend TUI until the user quits.
func (c *CLI) runView(ctx context.Context, mapID string, flags *viewerFlags) error {
	m, err := c.loadMap(ctx, mapID, flags)
	if err != nil {
		return err
	}

	p := tea.NewProgram(NewLegendModel(m))

	// Watcher callbacks run on the goroutine that toggled the map, which
	// during TUI use is the update loop itself. The refresh goes through a
	// goroutine so sending never blocks that loop.
	watcherID := m.AddWatcher(func(flatmap.Change) {
		go p.Send(legendRefreshMsg{})
	})
	defer m.RemoveWatcher(watcherID)

	_, err = p.Run()
	return err
}
