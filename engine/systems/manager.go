package systems

import (
	"github.com/spaghettifunk/skytex/engine/assets"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer"
)

type JobSystemConfig struct {
	Workers   int
	QueueSize int
}

type SystemManagerConfig struct {
	Jobs     JobSystemConfig
	Assets   assets.AssetManagerConfig
	Textures TextureSystemConfig
}

type SystemManager struct {
	jobSystem     *JobSystem
	assetManager  *assets.AssetManager
	decoders      *assets.DecoderRegistry
	textureSystem *TextureSystem
}

func NewSystemManager(config *SystemManagerConfig, gfx renderer.GraphicsContext, events *core.EventSystem) (*SystemManager, error) {
	js, err := NewJobSystem(config.Jobs.Workers, config.Jobs.QueueSize)
	if err != nil {
		return nil, err
	}
	am, err := assets.NewAssetManager(&config.Assets)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	decoders := assets.NewDefaultDecoderRegistry()
	ts, err := NewTextureSystem(&config.Textures, js, am, decoders, gfx, events)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		jobSystem:     js,
		assetManager:  am,
		decoders:      decoders,
		textureSystem: ts,
	}, nil
}

// Initialize must run on the graphics thread with a current context.
func (sm *SystemManager) Initialize() error {
	if err := sm.assetManager.Initialize(); err != nil {
		return err
	}
	return sm.textureSystem.Initialize()
}

// Update runs the per-frame work of every system on the graphics thread.
func (sm *SystemManager) Update() {
	sm.textureSystem.Update()
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.assetManager.Shutdown(); err != nil {
		return err
	}
	return nil
}

func (sm *SystemManager) TextureSystem() *TextureSystem      { return sm.textureSystem }
func (sm *SystemManager) JobSystem() *JobSystem              { return sm.jobSystem }
func (sm *SystemManager) AssetManager() *assets.AssetManager { return sm.assetManager }
func (sm *SystemManager) Decoders() *assets.DecoderRegistry  { return sm.decoders }
