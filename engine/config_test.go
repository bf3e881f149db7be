package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: unexpected error:\n%#v", err)
	}
	sm, err := cfg.SystemManagerConfig()
	if err != nil {
		t.Fatalf("SystemManagerConfig: unexpected error:\n%#v", err)
	}
	if _, ok := sm.Textures.DefaultParams.DynamicRange.(metadata.LinearRange); !ok {
		t.Fatalf("DynamicRange:\nhave %v\nwant linear", sm.Textures.DefaultParams.DynamicRange)
	}
	if sm.Assets.NetworkTimeout != 30*time.Second || sm.Assets.UserAgent != "skytex" {
		t.Fatalf("network:\nhave %v %q\nwant 30s \"skytex\"", sm.Assets.NetworkTimeout, sm.Assets.UserAgent)
	}
	if cfg.LogLevel() != core.InfoLevel {
		t.Fatalf("LogLevel:\nhave %v\nwant %v", cfg.LogLevel(), core.InfoLevel)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "skytex.toml", `
[log]
level = "debug"

[textures]
search_paths = ["textures", "/usr/share/skytex/textures"]
watch = true
max_texture_count = 8
allow_rescale = false
filter = "nearest"
wrap = "mirrored-repeat"
mipmaps = true
dynamic_range = "quantile(0.01, 0.99)"

[jobs]
workers = 3
queue_size = 7

[network]
timeout = "5s"
user_agent = "planetarium/1.0"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error:\n%#v", err)
	}
	if cfg.LogLevel() != core.DebugLevel {
		t.Fatalf("LogLevel:\nhave %v\nwant %v", cfg.LogLevel(), core.DebugLevel)
	}

	sm, err := cfg.SystemManagerConfig()
	if err != nil {
		t.Fatalf("SystemManagerConfig: unexpected error:\n%#v", err)
	}
	if len(sm.Assets.SearchPaths) != 2 || sm.Assets.SearchPaths[0] != "textures" || !sm.Assets.Watch {
		t.Fatalf("Assets:\nhave %+v", sm.Assets)
	}
	if sm.Assets.NetworkTimeout != 5*time.Second || sm.Assets.UserAgent != "planetarium/1.0" {
		t.Fatalf("network:\nhave %v %q", sm.Assets.NetworkTimeout, sm.Assets.UserAgent)
	}
	if sm.Jobs.Workers != 3 || sm.Jobs.QueueSize != 7 {
		t.Fatalf("Jobs:\nhave %+v\nwant {3 7}", sm.Jobs)
	}
	tc := sm.Textures
	if tc.MaxTextureCount != 8 || tc.AllowRescale {
		t.Fatalf("Textures:\nhave %+v", tc)
	}
	params := tc.DefaultParams
	if params.Filter != metadata.TextureFilterModeNearest || params.Wrap != metadata.TextureRepeatMirroredRepeat || !params.GenerateMipmaps {
		t.Fatalf("DefaultParams:\nhave %+v", params)
	}
	if q, ok := params.DynamicRange.(metadata.QuantileRange); !ok || q.Low != 0.01 || q.High != 0.99 {
		t.Fatalf("DynamicRange:\nhave %v\nwant quantile(0.01,0.99)", params.DynamicRange)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, "skytex.toml", "[jobs]\nworkers = 1\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error:\n%#v", err)
	}
	def := DefaultConfig()
	if cfg.Jobs.Workers != 1 || cfg.Jobs.QueueSize != def.Jobs.QueueSize || cfg.Textures.MaxTextureCount != def.Textures.MaxTextureCount {
		t.Fatalf("config:\nhave %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown key", "[textures]\ncolour = \"red\"\n", ""},
		{"bad filter", "[textures]\nfilter = \"cubic\"\n", ""},
		{"bad duration", "[network]\ntimeout = \"soon\"\n", ""},
		{"bad dynamic range", "[textures]\ndynamic_range = \"user(5,1)\"\n", "textures.dynamic_range"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"no workers", "[jobs]\nworkers = 0\n", "jobs.workers"},
		{"no textures", "[textures]\nmax_texture_count = 0\n", "textures.max_texture_count"},
	}
	for _, test := range tests {
		_, err := LoadConfig(writeFile(t, "skytex.toml", test.content))
		if err == nil {
			t.Fatalf("%s: unexpected success", test.name)
		}
		if test.field == "" {
			continue
		}
		var ce *core.ConfigError
		if !errors.As(err, &ce) || ce.Field != test.field {
			t.Fatalf("%s:\nhave %v\nwant ConfigError for %s", test.name, err, test.field)
		}
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig(missing):\nhave %v\nwant %v", err, os.ErrNotExist)
	}
}

func TestApplyEnv(t *testing.T) {
	env := writeFile(t, ".env", strings.Join([]string{
		"SKYTEX_USER_AGENT=from-file",
		"SKYTEX_WORKERS=2",
		"SKYTEX_NETWORK_TIMEOUT=250ms",
		"SKYTEX_DYNAMIC_RANGE=greylevel(128)",
	}, "\n"))
	t.Setenv("SKYTEX_USER_AGENT", "from-env")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(env, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("ApplyEnv: unexpected error:\n%#v", err)
	}
	if cfg.Network.UserAgent != "from-env" {
		t.Fatalf("UserAgent:\nhave %q\nwant \"from-env\"", cfg.Network.UserAgent)
	}
	if cfg.Jobs.Workers != 2 || cfg.Network.Timeout.Duration != 250*time.Millisecond {
		t.Fatalf("overrides:\nhave workers=%d timeout=%v", cfg.Jobs.Workers, cfg.Network.Timeout)
	}
	params, err := cfg.TextureParams()
	if err != nil {
		t.Fatalf("TextureParams: unexpected error:\n%#v", err)
	}
	if g, ok := params.DynamicRange.(metadata.GreyLevelRange); !ok || g.Level != 128 {
		t.Fatalf("DynamicRange:\nhave %v\nwant greylevel(128)", params.DynamicRange)
	}

	t.Setenv("SKYTEX_WORKERS", "many")
	var ce *core.ConfigError
	if err := DefaultConfig().ApplyEnv(); !errors.As(err, &ce) || ce.Field != "SKYTEX_WORKERS" {
		t.Fatalf("ApplyEnv(bad workers):\nhave %v\nwant ConfigError", err)
	}
}
