package systems

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/skytex/engine/renderer"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// Texture is the handle the rest of the application holds. Name, Params
// and Mode never change after creation. The state is shared with worker
// goroutines; everything else is guarded by mu or only touched on the
// graphics thread.
type Texture struct {
	ID     uuid.UUID
	Name   string
	Params metadata.TextureParams
	Mode   metadata.LoadingMode

	system *TextureSystem
	state  atomic.Int32
	// Valid while state is Loaded.
	handle atomic.Uint64

	mu            sync.Mutex
	width         int
	height        int
	hasDimensions bool
	storedWidth   int
	storedHeight  int
	err           error
	task          *loadTask
	flags         metadata.TextureFlagBits
	avgLuminance  float32
	stale         bool
	destroyed     bool
}

func newTexture(ts *TextureSystem, identifier string, params metadata.TextureParams, mode metadata.LoadingMode) *Texture {
	if params.DynamicRange == nil {
		params.DynamicRange = metadata.LinearRange{}
	}
	return &Texture{
		Name:         identifier,
		Params:       params,
		Mode:         mode,
		system:       ts,
		avgLuminance: -1,
	}
}

func (t *Texture) loadState() metadata.LoadState {
	return metadata.LoadState(t.state.Load())
}

// Bind binds the texture to the given texture unit and reports whether it
// could. Must be called on the graphics thread. A lazy texture starts
// loading on its first Bind.
func (t *Texture) Bind(unit uint32) bool {
	if t.state.Load() == int32(metadata.LoadStateLoaded) {
		t.system.gfx.BindTexture(renderer.TextureHandle(t.handle.Load()), unit)
		return true
	}
	if t.loadState() == metadata.LoadStateUnloaded && t.Mode == metadata.LoadingModeLazyAsynchronous {
		t.system.scheduleLoad(t)
	}
	return false
}

// State returns the lifecycle state. Both loading phases are reported as
// LoadStateLoadingBytes.
func (t *Texture) State() metadata.LoadState {
	s := t.loadState()
	if s == metadata.LoadStateLoadingImage {
		return metadata.LoadStateLoadingBytes
	}
	return s
}

// Dimensions returns the size of the source image. When the image has not
// been decoded yet the file header is probed; network sources report false
// until they are loaded.
func (t *Texture) Dimensions() (int, int, bool) {
	t.mu.Lock()
	if t.hasDimensions {
		defer t.mu.Unlock()
		return t.width, t.height, true
	}
	t.mu.Unlock()

	w, h, ok := t.system.source.Probe(t.Name)
	if !ok {
		return 0, 0, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasDimensions {
		t.width, t.height, t.hasDimensions = w, h, true
	}
	return t.width, t.height, true
}

// StoredDimensions returns the size of the GPU texture, which differs from
// Dimensions when the source had to be rescaled.
func (t *Texture) StoredDimensions() (int, int, bool) {
	if t.loadState() != metadata.LoadStateLoaded {
		return 0, 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.storedWidth, t.storedHeight, true
}

// Err returns the cause of a LoadError, nil in any other state.
func (t *Texture) Err() error {
	if t.loadState() != metadata.LoadStateLoadError {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Texture) ErrorMessage() string {
	if err := t.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// AverageLuminance returns the mean luminance of the uploaded pixels, from
// 0 (black) to 1 (white).
func (t *Texture) AverageLuminance() (float32, bool) {
	if t.loadState() != metadata.LoadStateLoaded {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.avgLuminance, t.avgLuminance >= 0
}

func (t *Texture) Flags() metadata.TextureFlagBits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

func (t *Texture) HasFlag(flag metadata.TextureFlag) bool {
	return t.Flags()&metadata.TextureFlagBits(flag) != 0
}

// IsStale reports whether the source file changed after the texture was
// loaded. The texture keeps its pixels; recreate it to pick up the change.
func (t *Texture) IsStale() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stale
}

func (t *Texture) isDestroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}
