package testbed

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/skytex/engine"
	"github.com/spaghettifunk/skytex/engine/assets"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
	"github.com/spaghettifunk/skytex/engine/systems"
)

// TestGame loads every identifier it is given in each loading mode the
// identifier allows, binds the textures every frame and quits once all of
// them have settled or the timeout has passed.
type TestGame struct {
	*engine.Game
}

type entry struct {
	texture *systems.Texture
	unit    uint32
}

type gameState struct {
	identifiers []string
	timeout     float64

	entries []entry
	elapsed float64
	loaded  int
	failed  int
	done    bool
	report  []string
}

func NewTestGame(appConfig *engine.ApplicationConfig, identifiers []string, timeoutSeconds float64) (*TestGame, error) {
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("func NewTestGame - at least one texture identifier is required")
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: appConfig,
			State: &gameState{
				identifiers: identifiers,
				timeout:     timeoutSeconds,
			},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed with %d textures...", len(g.state().identifiers))
	return nil
}

func (g *TestGame) Initialize() error {
	state := g.state()
	ts := g.SystemManager.TextureSystem()

	g.Events.Register(core.EVENT_CODE_TEXTURE_LOADED, g, g.onLoaded)
	g.Events.Register(core.EVENT_CODE_TEXTURE_LOAD_FAILED, g, g.onFailed)
	g.Events.Register(core.EVENT_CODE_TEXTURE_SOURCE_CHANGED, g, g.onSourceChanged)

	modes := []metadata.LoadingMode{
		metadata.LoadingModeImmediate,
		metadata.LoadingModeAsynchronous,
		metadata.LoadingModeLazyAsynchronous,
	}
	unit := uint32(0)
	for _, id := range state.identifiers {
		for _, mode := range modes {
			if mode == metadata.LoadingModeImmediate && assets.IsNetworkIdentifier(id) {
				continue
			}
			t := ts.CreateTexture(id, ts.DefaultParams(), mode)
			if w, h, ok := t.Dimensions(); ok {
				core.LogDebug("'%s' (%s) reports %dx%d before loading", id, mode, w, h)
			}
			state.entries = append(state.entries, entry{texture: t, unit: unit})
			unit++
		}
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	if state.done {
		return nil
	}
	state.elapsed += deltaTime

	settled := 0
	for _, e := range state.entries {
		switch e.texture.State() {
		case metadata.LoadStateLoaded, metadata.LoadStateLoadError:
			settled++
		}
	}
	if settled < len(state.entries) && (state.timeout <= 0 || state.elapsed < state.timeout) {
		return nil
	}
	if settled < len(state.entries) {
		core.LogWarn("timed out after %.1fs with %d of %d textures settled", state.elapsed, settled, len(state.entries))
	}

	state.done = true
	state.report = g.buildReport()
	for _, line := range state.report {
		core.LogInfo(line)
	}
	g.Events.Fire(core.EVENT_CODE_APPLICATION_QUIT, g, core.EventContext{})
	return nil
}

// Render binds every texture to its own unit, which starts lazy loads and
// falls back to the default texture for the ones that are not ready.
func (g *TestGame) Render(deltaTime float64) error {
	def := g.SystemManager.TextureSystem().DefaultTexture()
	for _, e := range g.state().entries {
		if !e.texture.Bind(e.unit) {
			def.Bind(e.unit)
		}
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	stats := g.SystemManager.TextureSystem().Stats()
	core.LogInfo("textures: %d created, %d loaded, %d failed, %d discarded, average load %.1fms",
		stats.Created, stats.Loaded, stats.Failed, stats.Discarded, stats.AverageLoadMS)
	return nil
}

// Report returns one line per texture, available once all have settled.
func (g *TestGame) Report() []string {
	return g.state().report
}

// Counts returns the number of loaded and failed events received.
func (g *TestGame) Counts() (loaded, failed int) {
	state := g.state()
	return state.loaded, state.failed
}

func (g *TestGame) buildReport() []string {
	lines := make([]string, 0, len(g.state().entries))
	for _, e := range g.state().entries {
		t := e.texture
		var b strings.Builder
		fmt.Fprintf(&b, "%-40s %-17s %-12s", t.Name, t.Mode, t.State())
		if w, h, ok := t.Dimensions(); ok {
			fmt.Fprintf(&b, " %dx%d", w, h)
		}
		if w, h, ok := t.StoredDimensions(); ok {
			fmt.Fprintf(&b, " stored %dx%d", w, h)
		}
		if lum, ok := t.AverageLuminance(); ok {
			fmt.Fprintf(&b, " luminance %.3f", lum)
		}
		if t.HasFlag(metadata.TextureFlagHasTransparency) {
			b.WriteString(" transparent")
		}
		if t.HasFlag(metadata.TextureFlagRescaled) {
			b.WriteString(" rescaled")
		}
		if msg := t.ErrorMessage(); msg != "" {
			fmt.Fprintf(&b, " error: %s", msg)
		}
		lines = append(lines, b.String())
	}
	return lines
}

func (g *TestGame) onLoaded(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	g.state().loaded++
	core.LogDebug("loaded '%s' (%dx%d)", data.Data.C[0], data.Data.U32[0], data.Data.U32[1])
	return false
}

func (g *TestGame) onFailed(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	g.state().failed++
	core.LogDebug("failed '%s': %s", data.Data.C[0], data.Data.C[1])
	return false
}

func (g *TestGame) onSourceChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogInfo("'%s' changed on disk", data.Data.C[0])
	return false
}
