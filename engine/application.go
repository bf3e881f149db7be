package engine

import (
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

type ApplicationConfig struct {
	// The application name, used in log lines.
	Name string
	// Settings for logging, jobs, assets and textures.
	Config *Config
	// Hardware limits reported by the graphics context the engine renders
	// with. Only read when the engine creates the context itself.
	Capabilities metadata.Capabilities
	// Frames per second the loop is throttled to. Zero runs unthrottled.
	TargetFPS float64
}
