package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer"
	"github.com/spaghettifunk/skytex/engine/renderer/headless"
	"github.com/spaghettifunk/skytex/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	names := [...]string{"uninitialized", "booting", "boot-complete", "initializing", "initialized", "running", "shutting-down"}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}

// Engine owns the graphics context, the event system and the systems. All
// of its methods except Stop run on the graphics thread.
type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     atomic.Bool
	ownedContext  *headless.Context
	renderer      *renderer.Renderer
	events        *core.EventSystem
	systemManager *systems.SystemManager
	clock         *core.Clock
	lastTime      float64
	frameCount    uint64
}

// New wires the engine around backend. With a nil backend the engine
// creates a headless context with the configured capabilities and makes it
// current during Initialize.
func New(g *Game, backend renderer.GraphicsContext) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("func New - game and application config are required")
	}
	if g.ApplicationConfig.Config == nil {
		g.ApplicationConfig.Config = DefaultConfig()
	}
	cfg := g.ApplicationConfig.Config
	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel())

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		events:       core.NewEventSystem(),
		clock:        core.NewClock(),
	}
	if backend == nil {
		e.ownedContext = headless.New(g.ApplicationConfig.Capabilities)
		backend = e.ownedContext
	}
	e.renderer = renderer.New(backend)

	smConfig, err := cfg.SystemManagerConfig()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	sm, err := systems.NewSystemManager(smConfig, e.renderer, e.events)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	e.systemManager = sm
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	if e.ownedContext != nil {
		e.ownedContext.MakeCurrent()
	}

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)

	if err := e.systemManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize systems: %w", err)
	}

	e.gameInstance.SystemManager = e.systemManager
	e.gameInstance.Events = e.events
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized", e.gameInstance.ApplicationConfig.Name)
	return nil
}

// Run ticks frames until Stop is called or the quit event fires. Each
// frame uploads finished texture loads before the game updates.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run in stage %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if fps := e.gameInstance.ApplicationConfig.TargetFPS; fps > 0 {
		targetFrameSeconds = 1.0 / fps
	}

	for e.isRunning.Load() {
		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := time.Now()

		e.systemManager.Update()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				return err
			}
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(delta); err != nil {
				core.LogError("game render failed, shutting down: %s", err)
				e.isRunning.Store(false)
				return err
			}
		}
		e.frameCount++

		// If there is time left, give it back to the OS.
		frameElapsedTime := time.Since(frameStartTime).Seconds()
		if remaining := targetFrameSeconds - frameElapsedTime; remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}

		e.lastTime = currentTime
	}
	return nil
}

// Stop ends Run after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	if e.clock.Running() {
		e.clock.Stop()
	}

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if n := e.renderer.LiveTextures(); n > 0 {
		core.LogWarn("%d textures (%d bytes) still alive at shutdown", n, e.renderer.TextureMemory())
	}
	if err := e.events.Shutdown(); err != nil {
		return err
	}
	if e.ownedContext != nil {
		e.ownedContext.ReleaseCurrent()
	}
	core.LogInfo("%s shut down after %d frames", e.gameInstance.ApplicationConfig.Name, e.frameCount)
	return nil
}

func (e *Engine) Stage() Stage                          { return e.currentStage }
func (e *Engine) Frames() uint64                        { return e.frameCount }
func (e *Engine) Renderer() *renderer.Renderer          { return e.renderer }
func (e *Engine) Events() *core.EventSystem             { return e.events }
func (e *Engine) SystemManager() *systems.SystemManager { return e.systemManager }

func (e *Engine) onQuit(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning.Store(false)
	return true
}
