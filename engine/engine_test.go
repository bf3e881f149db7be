package engine

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/headless"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
	"github.com/spaghettifunk/skytex/engine/systems"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func testConfig(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Textures.SearchPaths = []string{dir}
	cfg.Jobs.Workers = 2
	return cfg
}

func TestEngineLifecycle(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "sun.png", 32, 16)

	var textures []*systems.Texture
	var stages []Stage
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:         "engine test",
			Config:       testConfig(dir),
			Capabilities: headless.DefaultCapabilities(),
		},
	}
	var e *Engine
	g.FnBoot = func() error {
		stages = append(stages, e.Stage())
		return nil
	}
	g.FnInitialize = func() error {
		ts := g.SystemManager.TextureSystem()
		textures = append(textures,
			ts.CreateTexture("sun.png", ts.DefaultParams(), metadata.LoadingModeImmediate),
			ts.CreateTexture("sun.png", ts.DefaultParams(), metadata.LoadingModeAsynchronous),
			ts.CreateTexture("moon.png", ts.DefaultParams(), metadata.LoadingModeAsynchronous),
		)
		return nil
	}
	g.FnUpdate = func(float64) error {
		for _, tex := range textures {
			if s := tex.State(); s != metadata.LoadStateLoaded && s != metadata.LoadStateLoadError {
				return nil
			}
		}
		g.Events.Fire(core.EVENT_CODE_APPLICATION_QUIT, g, core.EventContext{})
		return nil
	}
	renders := 0
	g.FnRender = func(float64) error {
		renders++
		return nil
	}

	var err error
	e, err = New(g, nil)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: unexpected error:\n%#v", err)
	}
	if e.Stage() != EngineStageInitialized || len(stages) != 1 || stages[0] != EngineStageBooting {
		t.Fatalf("stages:\nhave %s after %v", e.Stage(), stages)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: unexpected error:\n%#v", err)
	}
	if e.Frames() == 0 || uint64(renders) != e.Frames() {
		t.Fatalf("frames:\nhave %d frames, %d renders", e.Frames(), renders)
	}

	if textures[0].State() != metadata.LoadStateLoaded || textures[1].State() != metadata.LoadStateLoaded {
		t.Fatalf("states:\nhave %s, %s\nwant loaded, loaded", textures[0].State(), textures[1].State())
	}
	if !errors.Is(textures[2].Err(), core.ErrNotFound) {
		t.Fatalf("moon.png Err:\nhave %v\nwant %v", textures[2].Err(), core.ErrNotFound)
	}
	// Two loaded textures plus the default one.
	if n := e.Renderer().LiveTextures(); n != 3 {
		t.Fatalf("LiveTextures:\nhave %d\nwant 3", n)
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: unexpected error:\n%#v", err)
	}
	if n := e.Renderer().LiveTextures(); n != 0 {
		t.Fatalf("LiveTextures after Shutdown:\nhave %d\nwant 0", n)
	}
	if e.Stage() != EngineStageShuttingDown {
		t.Fatalf("Stage:\nhave %s\nwant %s", e.Stage(), EngineStageShuttingDown)
	}
}

func TestEngineUpdateError(t *testing.T) {
	boom := errors.New("boom")
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:         "failing",
			Config:       testConfig(t.TempDir()),
			Capabilities: headless.DefaultCapabilities(),
		},
		FnUpdate: func(float64) error { return boom },
	}
	e, err := New(g, nil)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	if err := e.Run(); err == nil {
		t.Fatal("Run before Initialize: unexpected success")
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: unexpected error:\n%#v", err)
	}
	if err := e.Run(); !errors.Is(err, boom) {
		t.Fatalf("Run:\nhave %v\nwant %v", err, boom)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: unexpected error:\n%#v", err)
	}
}

func TestEngineRejectsBadSetup(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("New(nil): unexpected success")
	}

	cfg := DefaultConfig()
	cfg.Jobs.Workers = 0
	if _, err := New(&Game{ApplicationConfig: &ApplicationConfig{Config: cfg}}, nil); err == nil {
		t.Fatal("New(workers=0): unexpected success")
	}

	// A context with no usable texture size cannot be initialized.
	g := &Game{ApplicationConfig: &ApplicationConfig{Name: "no caps", Config: testConfig(t.TempDir())}}
	e, err := New(g, nil)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	if err := e.Initialize(); !errors.Is(err, core.ErrCapability) {
		t.Fatalf("Initialize:\nhave %v\nwant %v", err, core.ErrCapability)
	}
	e.SystemManager().JobSystem().Shutdown()
}

func TestEngineWithExternalContext(t *testing.T) {
	gfx := headless.New(headless.DefaultCapabilities())
	g := &Game{ApplicationConfig: &ApplicationConfig{Name: "external", Config: testConfig(t.TempDir())}}
	e, err := New(g, gfx)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	// The engine does not make a context it does not own current.
	if err := e.Initialize(); !errors.Is(err, core.ErrNoCurrentContext) {
		t.Fatalf("Initialize:\nhave %v\nwant %v", err, core.ErrNoCurrentContext)
	}
	e.SystemManager().JobSystem().Shutdown()

	gfx.MakeCurrent()
	e, err = New(g, gfx)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: unexpected error:\n%#v", err)
	}
	e.Stop()
	if err := e.Run(); err != nil {
		t.Fatalf("Run: unexpected error:\n%#v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: unexpected error:\n%#v", err)
	}
	if gfx.Live() != 0 || !gfx.IsCurrent() {
		t.Fatalf("external context after Shutdown:\nhave %d live, current %t\nwant 0 live, current true", gfx.Live(), gfx.IsCurrent())
	}
}
