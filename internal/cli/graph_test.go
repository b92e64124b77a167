package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/export"
	"github.com/anatomaps/flatmap/pkg/flatmap"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// writeBundle writes a minimal bundle under root/<mapID>/ with two neuron
// paths sharing node 2.
func writeBundle(t *testing.T, root, mapID string) {
	t.Helper()

	dir := filepath.Join(root, mapID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	documents := map[string]any{
		"index.json": flatmap.Index{ID: mapID, Name: "Test map", Style: "anatomical"},
		"pathways.json": pathway.Document{
			Paths: map[string]pathway.PathRecord{
				"path_sen": {Lines: []uint32{20}, Nodes: []uint32{2, 3}},
				"path_sym": {Lines: []uint32{10}, Nodes: []uint32{1, 2}},
			},
			TypePaths: map[string][]string{
				"sensory":  {"path_sen"},
				"symp-pre": {"path_sym"},
			},
		},
		"annotations.json": annotation.Document{
			"1": {Name: "superior cervical ganglion"},
			"2": {Name: "stellate ganglion"},
		},
	}

	for name, doc := range documents {
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunGraphWritesDOT(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "demo")

	out := filepath.Join(t.TempDir(), "demo.dot")
	c := New(io.Discard, LogInfo)
	flags := &viewerFlags{source: root}
	opts := &graphOpts{output: out, format: "dot", noCache: true}

	if err := c.runGraph(context.Background(), "demo", flags, opts); err != nil {
		t.Fatalf("runGraph() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	dot := string(data)
	for _, want := range []string{"digraph connectivity", "1 -> 2", "2 -> 3"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}
}

func TestRunGraphRejectsUnknownFormat(t *testing.T) {
	c := New(io.Discard, LogInfo)
	flags := &viewerFlags{source: t.TempDir()}
	opts := &graphOpts{format: "tiff"}

	err := c.runGraph(context.Background(), "demo", flags, opts)
	if err == nil {
		t.Fatal("runGraph() with unknown format should error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}

func TestParsePathTypes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []pathway.PathType
		wantErr bool
	}{
		{
			name: "empty means all",
			in:   "",
			want: nil,
		},
		{
			name: "single type",
			in:   "sensory",
			want: []pathway.PathType{pathway.PathTypeSensory},
		},
		{
			name: "multiple with spaces",
			in:   "sensory, arterial",
			want: []pathway.PathType{pathway.PathTypeSensory, pathway.PathTypeArterial},
		},
		{
			name: "motor alias normalizes",
			in:   "motor",
			want: []pathway.PathType{pathway.PathTypeSomatic},
		},
		{
			name: "catch-all requested explicitly",
			in:   "other",
			want: []pathway.PathType{pathway.PathTypeOther},
		},
		{
			name:    "unknown type rejected",
			in:      "bogus",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePathTypes(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parsePathTypes() should error")
				}
				if !errors.Is(err, errors.ErrCodeInvalidFilter) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFilter)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePathTypes(%q) error: %v", tt.in, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("parsePathTypes(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGraphOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		mapID  string
		format export.Format
		want   string
	}{
		{"explicit output wins", "out.svg", "demo", export.FormatPNG, "out.svg"},
		{"dot defaults to stdout", "", "demo", export.FormatDOT, ""},
		{"svg defaults to map file", "", "demo", export.FormatSVG, "demo.svg"},
		{"png defaults to map file", "", "demo", export.FormatPNG, "demo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graphOutputPath(tt.output, tt.mapID, tt.format)
			if got != tt.want {
				t.Errorf("graphOutputPath(%q, %q, %q) = %q, want %q",
					tt.output, tt.mapID, tt.format, got, tt.want)
			}
		})
	}
}
