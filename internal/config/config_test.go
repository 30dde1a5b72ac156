package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skel.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[atlas]
padding = 0

[render]
size = 256

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Atlas.Padding != 0 || cfg.Atlas.MaxSize != 4096 || cfg.Atlas.ImageFormat != "png" {
		t.Errorf("atlas = %+v", cfg.Atlas)
	}
	if cfg.Render.Size != 256 || cfg.Render.Supersample != 2 || cfg.Render.FPS != 30 {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Log.Level != "debug" || cfg.Server.Addr != ":8080" || cfg.Decode.Scale != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file loaded")
	}
	path := writeConfig(t, "[render]\nsize = \"big\"\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "skel.toml") {
		t.Errorf("type error = %v", err)
	}
	path = writeConfig(t, "[render]\nsized = 3\n")
	if _, err := Load(path); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestResolve(t *testing.T) {
	path := writeConfig(t, "[paths]\nmodels = \"skels\"\noutput = \"/abs/out\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Resolve(Flags{Images: "/tmp/img", Workers: 3, Scale: 0.5, Addr: ":9000"})

	dir := filepath.Dir(path)
	if cfg.Paths.Models != filepath.Join(dir, "skels") {
		t.Errorf("models = %q", cfg.Paths.Models)
	}
	if cfg.Paths.Output != "/abs/out" || cfg.Paths.Images != "/tmp/img" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Render.Workers != 3 || cfg.Decode.Scale != 0.5 || cfg.Server.Addr != ":9000" {
		t.Errorf("flags not applied: %+v", cfg)
	}

	var zero Config
	zero.Resolve(Flags{})
	if zero.Render.Workers != runtime.NumCPU() || zero.Render.Size != 512 || zero.Log.Level != "info" {
		t.Errorf("defaults not filled: %+v", zero)
	}
	if zero.Paths.Models != "" {
		t.Error("empty path resolved")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.Atlas.ImageFormat = "gif"
	if cfg.Validate() == nil {
		t.Error("gif accepted")
	}
	cfg = Default()
	cfg.Atlas.MaxSize = 1000
	if cfg.Validate() == nil {
		t.Error("max_size 1000 accepted")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, buf.String())
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}
	want := Default()
	want.dir = filepath.Dir(path)
	if cfg != want {
		t.Errorf("round trip = %+v", cfg)
	}
}
