package engine

import (
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	SystemManager *systems.SystemManager
	Events        *core.EventSystem
	State         interface{}
	FnBoot        Boot
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnShutdown    Shutdown
}

type Boot func() error
type Initialize func() error
type Update func(deltaTime float64) error
type Render func(deltaTime float64) error
type Shutdown func() error
