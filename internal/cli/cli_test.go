package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/anatomaps/flatmap/pkg/flatmap"
)

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".cache", appName)
	if dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	want := filepath.Join("/tmp/custom-cache", appName)
	if dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestOpenSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantHTTP bool
	}{
		{"current directory", ".", false},
		{"relative path", "./bundles", false},
		{"absolute path", "/var/lib/flatmaps", false},
		{"http url", "http://maps.example.org/flatmap", true},
		{"https url", "https://maps.example.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := flatmap.Options{CacheDir: t.TempDir()}
			src, err := openSource(tt.source, opts)
			if err != nil {
				t.Fatalf("openSource(%q) error: %v", tt.source, err)
			}

			_, isHTTP := src.(*flatmap.HTTPSource)
			if isHTTP != tt.wantHTTP {
				t.Errorf("openSource(%q) returned HTTP source = %v, want %v", tt.source, isHTTP, tt.wantHTTP)
			}
		})
	}
}

func TestViewerFlagsOptions(t *testing.T) {
	flags := &viewerFlags{
		sckan:    "valid",
		disabled: []string{"arterial", "venous"},
		refresh:  true,
	}

	opts, err := flags.options(nil)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}

	if opts.SCKAN != "valid" {
		t.Errorf("SCKAN = %q, want %q", opts.SCKAN, "valid")
	}
	if !slices.Equal(opts.DisabledPathTypes, []string{"arterial", "venous"}) {
		t.Errorf("DisabledPathTypes = %v, want [arterial venous]", opts.DisabledPathTypes)
	}
	if !opts.Refresh {
		t.Error("Refresh should be set")
	}
	if opts.CacheDir == "" {
		t.Error("options() should default the bundle cache directory")
	}
}

func TestViewerFlagsOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	content := "sckan = \"none\"\nno_dim = true\ncache_ttl = \"1h\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	flags := &viewerFlags{optionsFile: path}
	opts, err := flags.options(nil)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}

	if opts.SCKAN != "none" {
		t.Errorf("SCKAN = %q, want %q", opts.SCKAN, "none")
	}
	if !opts.NoDim {
		t.Error("NoDim should be set from the options file")
	}

	// A flag override wins over the file value.
	flags.sckan = "all"
	opts, err = flags.options(nil)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}
	if opts.SCKAN != "all" {
		t.Errorf("SCKAN = %q after override, want %q", opts.SCKAN, "all")
	}
}

func TestViewerFlagsOptionsMissingFile(t *testing.T) {
	flags := &viewerFlags{optionsFile: filepath.Join(t.TempDir(), "missing.toml")}
	if _, err := flags.options(nil); err == nil {
		t.Error("options() with a missing file should error")
	}
}
