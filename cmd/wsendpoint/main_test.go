package main

import (
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestFlags(t *testing.T) {
	got := flags()
	if len(got) == 0 {
		t.Fatal("flags() should never be nil or empty")
	}

	want := []string{"pretty-log", "addr", "heartbeat", "close-period", "text-only", "validate-utf8"}
	names := make(map[string]bool, len(got))
	for _, f := range got {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, w := range want {
		if !names[w] {
			t.Errorf("flags() missing %q", w)
		}
	}
}

func TestFlagsAddrDefault(t *testing.T) {
	for _, f := range flags() {
		sf, ok := f.(*cli.StringFlag)
		if ok && sf.Name == "addr" {
			if sf.Value != ":8080" {
				t.Errorf("addr default = %q, want %q", sf.Value, ":8080")
			}
			return
		}
	}
	t.Fatal("addr flag not found")
}

func TestVersionFallsBackToDevWithoutBuildInfo(t *testing.T) {
	if got := version(nil); got != "dev" {
		t.Errorf("version(nil) = %q, want %q", got, "dev")
	}
}

func TestVersionUsesBuildInfoMainVersion(t *testing.T) {
	bi := &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}
	if got := version(bi); got != "v1.2.3" {
		t.Errorf("version(bi) = %q, want %q", got, "v1.2.3")
	}
}

func TestConfigDirAndFile(t *testing.T) {
	d := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", d)

	got := configFile()
	want := filepath.Join(d, ConfigDirName, ConfigFileName)
	if got.SourceURI() != want {
		t.Errorf("configFile() = %q, want %q", got.SourceURI(), want)
	}
}
