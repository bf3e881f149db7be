package renderer

import (
	"sync"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

type liveTexture struct {
	width, height int
	format        metadata.PixelFormat
}

// Renderer wraps a backend GraphicsContext and keeps the book on every
// texture it created, so a handle can be deleted only once and leaks are
// visible at shutdown.
type Renderer struct {
	backend GraphicsContext

	mu       sync.Mutex
	textures map[TextureHandle]liveTexture
	bytes    uint64
}

func New(backend GraphicsContext) *Renderer {
	return &Renderer{
		backend:  backend,
		textures: make(map[TextureHandle]liveTexture),
	}
}

func (r *Renderer) IsCurrent() bool { return r.backend.IsCurrent() }

func (r *Renderer) MaxTextureSize() int { return r.backend.MaxTextureSize() }

func (r *Renderer) SupportsNPOT(format metadata.PixelFormat) bool {
	return r.backend.SupportsNPOT(format)
}

func (r *Renderer) SupportsFloatFormat() bool { return r.backend.SupportsFloatFormat() }

func (r *Renderer) UploadTexture2D(req UploadRequest) (TextureHandle, error) {
	h, err := r.backend.UploadTexture2D(req)
	if err != nil {
		return InvalidTextureHandle, err
	}
	r.mu.Lock()
	r.textures[h] = liveTexture{req.Width, req.Height, req.Format}
	r.bytes += textureBytes(req.Width, req.Height, req.Format)
	r.mu.Unlock()
	core.LogDebug("renderer: created texture %d (%dx%d %s)", h, req.Width, req.Height, req.Format)
	return h, nil
}

func (r *Renderer) BindTexture(handle TextureHandle, unit uint32) {
	r.backend.BindTexture(handle, unit)
}

// DeleteTexture releases handle. Unknown or already deleted handles are
// reported and ignored.
func (r *Renderer) DeleteTexture(handle TextureHandle) {
	r.mu.Lock()
	t, ok := r.textures[handle]
	if ok {
		delete(r.textures, handle)
		r.bytes -= textureBytes(t.width, t.height, t.format)
	}
	r.mu.Unlock()
	if !ok {
		core.LogError("renderer: tried to delete invalid texture with handle=%d", handle)
		return
	}
	r.backend.DeleteTexture(handle)
	core.LogDebug("renderer: deleted texture %d", handle)
}

// LiveTextures returns the number of textures created and not yet deleted.
func (r *Renderer) LiveTextures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

// TextureMemory returns the estimated number of bytes held by live textures.
func (r *Renderer) TextureMemory() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

func textureBytes(w, h int, format metadata.PixelFormat) uint64 {
	bpc := 1
	if format.IsFloat() {
		bpc = 4
	}
	return uint64(w) * uint64(h) * uint64(format.Channels()*bpc)
}
