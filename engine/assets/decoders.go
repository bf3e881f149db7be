package assets

import (
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/skytex/engine/assets/loaders"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// Decoder turns the raw bytes of an encoded image into a pixel buffer.
type Decoder func(data []byte) (*metadata.PixelBuffer, error)

// DecoderRegistry maps file extensions to decoders. It is safe for
// concurrent use; lookups happen on worker goroutines.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[string]Decoder)}
}

// NewDefaultDecoderRegistry returns a registry with the built-in codecs.
func NewDefaultDecoderRegistry() *DecoderRegistry {
	dr := NewDecoderRegistry()
	dr.Register("png", loaders.DecodePNG)
	dr.Register("jpg", loaders.DecodeJPEG)
	dr.Register("jpeg", loaders.DecodeJPEG)
	dr.Register("bmp", loaders.DecodeBMP)
	dr.Register("tif", loaders.DecodeTIFF)
	dr.Register("tiff", loaders.DecodeTIFF)
	dr.Register("webp", loaders.DecodeWebP)
	return dr
}

// Register installs decoder for ext, replacing any previous one. The
// extension is matched case-insensitively, with or without the dot.
func (dr *DecoderRegistry) Register(ext string, decoder Decoder) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.decoders[normalizeExt(ext)] = decoder
}

// Lookup returns the decoder for the extension of identifier.
func (dr *DecoderRegistry) Lookup(identifier string) (Decoder, bool) {
	ext := Extension(identifier)
	if ext == "" {
		return nil, false
	}
	dr.mu.RLock()
	defer dr.mu.RUnlock()
	d, ok := dr.decoders[ext]
	return d, ok
}

// Extensions returns the registered extensions.
func (dr *DecoderRegistry) Extensions() []string {
	dr.mu.RLock()
	defer dr.mu.RUnlock()
	exts := make([]string, 0, len(dr.decoders))
	for ext := range dr.decoders {
		exts = append(exts, ext)
	}
	return exts
}

// Extension returns the lower-case extension of a path or URL without the
// leading dot. Query strings and fragments of URLs are ignored.
func Extension(identifier string) string {
	p := identifier
	if IsNetworkIdentifier(identifier) {
		if u, err := url.Parse(identifier); err == nil {
			p = u.Path
		}
	}
	return normalizeExt(path.Ext(strings.ReplaceAll(p, "\\", "/")))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
