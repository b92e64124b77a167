package export

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// Options configures connectivity graph generation.
type Options struct {
	// Types restricts the graph to paths of the given catalogue types.
	// Empty means all types present in the registry.
	Types []pathway.PathType

	// Labels replaces numeric node ids with annotated anatomical names
	// where the annotation table has one.
	Labels bool
}

// typeStrings returns the configured types as sorted strings for cache key
// derivation. Nil in, nil out: an unrestricted graph must key differently
// from one restricted to zero types.
func (o Options) typeStrings() []string {
	if o.Types == nil {
		return nil
	}
	out := make([]string, len(o.Types))
	for i, t := range o.Types {
		out[i] = string(t)
	}
	slices.Sort(out)
	return out
}

func (o Options) includes(t pathway.PathType) bool {
	if len(o.Types) == 0 {
		return true
	}
	return slices.Contains(o.Types, t)
}

// DOT converts the registry's path network to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
//
// Node features become graph nodes; each path chains its node features in
// ascending id order, one edge per consecutive pair, styled per the
// path-type catalogue. Paths with fewer than two node features still
// contribute their nodes so isolated ganglia stay visible.
func DOT(reg *pathway.Registry, table *annotation.Table, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph connectivity {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	nodes := make(map[pathway.FeatureID]bool)
	var edges []string
	for _, id := range reg.PathIDs() {
		p, ok := reg.Path(id)
		if !ok || !opts.includes(p.Type) {
			continue
		}
		chain := p.Nodes.ToArray()
		for _, n := range chain {
			nodes[n] = true
		}
		attrs := edgeAttrs(p)
		for i := 1; i < len(chain); i++ {
			edges = append(edges, fmt.Sprintf("  %d -> %d [%s];\n", chain[i-1], chain[i], attrs))
		}
	}

	for _, n := range sortedNodes(nodes) {
		fmt.Fprintf(&buf, "  %d [label=%q];\n", n, nodeLabel(table, n, opts.Labels))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func sortedNodes(nodes map[pathway.FeatureID]bool) []pathway.FeatureID {
	out := make([]pathway.FeatureID, 0, len(nodes))
	for n := range nodes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func nodeLabel(table *annotation.Table, id pathway.FeatureID, labels bool) string {
	if labels && table != nil {
		if rec, ok := table.Record(id); ok && rec.Name != "" {
			return rec.Name
		}
	}
	return strconv.FormatUint(uint64(id), 10)
}

func edgeAttrs(p *pathway.Path) string {
	// Registry construction normalizes every path onto the catalogue.
	spec, _ := pathway.LookupType(p.Type)
	attrs := []string{
		fmt.Sprintf("color=%q", spec.Colour),
		"penwidth=2",
		fmt.Sprintf("tooltip=%q", p.ID),
	}
	if spec.Dashed {
		attrs = append(attrs, "style=dashed")
	}
	return strings.Join(attrs, ", ")
}
