// Package headless implements renderer.GraphicsContext in memory. It is
// used by the demo binary and by tests; nothing is drawn.
package headless

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/skytex/engine/renderer"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

const prefix = "headless: "

// Texture is the record kept for every uploaded texture.
type Texture struct {
	Handle          renderer.TextureHandle
	Width           int
	Height          int
	Format          metadata.PixelFormat
	GenerateMipmaps bool
	Filter          metadata.TextureFilter
	Wrap            metadata.TextureRepeat
	// Pixels is a copy of the uploaded 8-bit samples.
	Pixels []uint8
}

// Context is an in-memory graphics context.
type Context struct {
	caps    metadata.Capabilities
	current atomic.Bool

	mu       sync.Mutex
	next     renderer.TextureHandle
	textures map[renderer.TextureHandle]*Texture
	bound    map[uint32]renderer.TextureHandle
	calls    int
	failWith error
}

// New returns a context with the given limits. It is not current until
// MakeCurrent is called.
func New(caps metadata.Capabilities) *Context {
	return &Context{
		caps:     caps,
		textures: make(map[renderer.TextureHandle]*Texture),
		bound:    make(map[uint32]renderer.TextureHandle),
	}
}

// DefaultCapabilities describes a capable desktop GPU.
func DefaultCapabilities() metadata.Capabilities {
	return metadata.Capabilities{
		MaxTextureSize: 16384,
		NPOT:           true,
		NPOTLuminance:  true,
		FloatTextures:  true,
	}
}

func (c *Context) MakeCurrent()    { c.current.Store(true) }
func (c *Context) ReleaseCurrent() { c.current.Store(false) }

// FailUploads makes every following upload fail with err. A nil err
// restores normal behaviour.
func (c *Context) FailUploads(err error) {
	c.mu.Lock()
	c.failWith = err
	c.mu.Unlock()
}

// IsCurrent reports the flag set by MakeCurrent. The flag is process-wide:
// unlike a GL context it does not tell one goroutine from another.
func (c *Context) IsCurrent() bool { return c.current.Load() }

func (c *Context) MaxTextureSize() int { return c.caps.MaxTextureSize }

func (c *Context) SupportsNPOT(format metadata.PixelFormat) bool {
	return c.caps.AllowsNPOT(format)
}

func (c *Context) SupportsFloatFormat() bool { return c.caps.FloatTextures }

func (c *Context) UploadTexture2D(req renderer.UploadRequest) (renderer.TextureHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if c.failWith != nil {
		return renderer.InvalidTextureHandle, c.failWith
	}
	if err := c.validate(req); err != nil {
		return renderer.InvalidTextureHandle, err
	}

	c.next++
	t := &Texture{
		Handle:          c.next,
		Width:           req.Width,
		Height:          req.Height,
		Format:          req.Format,
		GenerateMipmaps: req.GenerateMipmaps,
		Filter:          req.Filter,
		Wrap:            req.Wrap,
	}
	if req.Pixels != nil {
		t.Pixels = append([]uint8(nil), req.Pixels...)
	}
	c.textures[t.Handle] = t
	return t.Handle, nil
}

func (c *Context) validate(req renderer.UploadRequest) error {
	var reason string
	n := req.Width * req.Height * req.Format.Channels()
	switch {
	case !c.current.Load():
		reason = "context not current"
	case req.Width < 1, req.Height < 1:
		reason = "invalid size"
	case req.Width > c.caps.MaxTextureSize, req.Height > c.caps.MaxTextureSize:
		reason = "size too big"
	case !c.caps.AllowsNPOT(req.Format) && (req.Width&(req.Width-1) != 0 || req.Height&(req.Height-1) != 0):
		reason = "non-power-of-two size not supported for " + req.Format.String()
	case req.Format.IsFloat() && !c.caps.FloatTextures:
		reason = "float formats not supported"
	case req.Format.IsFloat() && len(req.PixelsF) != n:
		reason = fmt.Sprintf("have %d float samples, want %d", len(req.PixelsF), n)
	case !req.Format.IsFloat() && len(req.Pixels) != n:
		reason = fmt.Sprintf("have %d samples, want %d", len(req.Pixels), n)
	default:
		return nil
	}
	return errors.New(prefix + reason)
}

func (c *Context) BindTexture(handle renderer.TextureHandle, unit uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if _, ok := c.textures[handle]; !ok {
		panic(fmt.Sprintf(prefix+"bind of unknown texture %d", handle))
	}
	c.bound[unit] = handle
}

func (c *Context) DeleteTexture(handle renderer.TextureHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if _, ok := c.textures[handle]; !ok {
		panic(fmt.Sprintf(prefix+"double delete of texture %d", handle))
	}
	delete(c.textures, handle)
	for unit, h := range c.bound {
		if h == handle {
			delete(c.bound, unit)
		}
	}
}

// Calls returns the number of upload, bind and delete calls made so far.
func (c *Context) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Texture returns the record for a live handle.
func (c *Context) Texture(handle renderer.TextureHandle) (Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.textures[handle]
	if !ok {
		return Texture{}, false
	}
	return *t, true
}

// Bound returns the handle bound to unit, if any.
func (c *Context) Bound(unit uint32) (renderer.TextureHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.bound[unit]
	return h, ok
}

// Live returns the number of textures not yet deleted.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}
