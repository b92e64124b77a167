// Package export renders a map's path network as a node-link diagram.
//
// # Overview
//
// This package produces directed graph visualizations of the connectivity
// carried by a path registry: node features appear as boxes, and each path
// contributes a chain of edges drawn in its catalogue colour. The output is
// Graphviz DOT, rasterized in-process to SVG or PNG.
//
// # Usage
//
// Build DOT from a registry and annotation table, then render:
//
//	dot := export.DOT(reg, table, export.Options{Labels: true})
//	svg, err := export.RenderSVG(dot)
//
// For repeated exports of the same bundle, [Exporter] caches both the built
// DOT and the rendered artifact:
//
//	exp := export.NewExporter(fileCache)
//	png, err := exp.Export(ctx, reg, table, bundleHash, opts, export.FormatPNG)
//
// # Options
//
// The [Options] struct controls graph generation:
//
//   - Types: restrict the graph to paths of the given catalogue types
//   - Labels: label nodes with their annotated anatomical names
//
// # DOT Format
//
// The [DOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG] or [RenderPNG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// Edges chain each path's node features in ascending feature-id order, so a
// two-node path (the common case) yields a single edge between its end
// nodes. Edge colour and dash style follow the path-type catalogue used by
// the map legend.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering; no external Graphviz installation is required.
package export
