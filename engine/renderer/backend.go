package renderer

import "github.com/spaghettifunk/skytex/engine/renderer/metadata"

// TextureHandle is the opaque identifier a backend returns for uploaded
// texture memory. The zero value never names a live texture.
type TextureHandle uint64

const InvalidTextureHandle TextureHandle = 0

// UploadRequest carries everything a backend needs to create a 2D texture.
type UploadRequest struct {
	Width           int
	Height          int
	Format          metadata.PixelFormat
	GenerateMipmaps bool
	Filter          metadata.TextureFilter
	Wrap            metadata.TextureRepeat
	// Pixels holds the samples for 8-bit formats, PixelsF for float formats.
	Pixels  []uint8
	PixelsF []float32
}

// GraphicsContext is the slice of a rendering backend the texture pipeline
// consumes. Every method except IsCurrent must be called on the thread that
// owns the context.
type GraphicsContext interface {
	// IsCurrent reports whether the context is current on the calling thread.
	// Implementations without thread-local current state may answer for the
	// whole process; the graphics goroutine then has to hold
	// runtime.LockOSThread and be the only caller while the context is current.
	IsCurrent() bool

	MaxTextureSize() int
	SupportsNPOT(format metadata.PixelFormat) bool
	SupportsFloatFormat() bool

	UploadTexture2D(req UploadRequest) (TextureHandle, error)
	BindTexture(handle TextureHandle, unit uint32)
	DeleteTexture(handle TextureHandle)
}
