package metadata

import (
	"fmt"
	"strings"
)

const (
	/** @brief The fallback texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief Edge size, in pixels, of the fallback checkerboard. */
	DEFAULT_TEXTURE_DIMENSION int = 256
)

/**
 * @brief The lifecycle state of a texture resource.
 */
type LoadState int32

const (
	/** @brief Nothing has been requested yet (lazy textures before first bind). */
	LoadStateUnloaded LoadState = iota
	/** @brief Raw bytes are being fetched. */
	LoadStateLoadingBytes
	/** @brief Bytes were handed to a decoder; pixels are on their way to the GPU. */
	LoadStateLoadingImage
	/** @brief The GPU handle is valid. */
	LoadStateLoaded
	/** @brief Loading failed. Terminal. */
	LoadStateLoadError
)

func (s LoadState) IsLoading() bool {
	return s == LoadStateLoadingBytes || s == LoadStateLoadingImage
}

func (s LoadState) String() string {
	switch s {
	case LoadStateUnloaded:
		return "unloaded"
	case LoadStateLoadingBytes:
		return "loading-bytes"
	case LoadStateLoadingImage:
		return "loading-image"
	case LoadStateLoaded:
		return "loaded"
	case LoadStateLoadError:
		return "load-error"
	}
	return fmt.Sprintf("LoadState(%d)", int32(s))
}

/**
 * @brief Determines when the fetch/decode/upload sequence runs.
 */
type LoadingMode int

const (
	/** @brief Fetch, decode and upload before CreateTexture returns. */
	LoadingModeImmediate LoadingMode = iota
	/** @brief Start loading in the background at creation time. */
	LoadingModeAsynchronous
	/** @brief Start loading in the background on first bind. */
	LoadingModeLazyAsynchronous
)

func (m LoadingMode) String() string {
	switch m {
	case LoadingModeImmediate:
		return "immediate"
	case LoadingModeAsynchronous:
		return "asynchronous"
	case LoadingModeLazyAsynchronous:
		return "lazy-asynchronous"
	}
	return fmt.Sprintf("LoadingMode(%d)", int(m))
}

func (m *LoadingMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "immediate":
		*m = LoadingModeImmediate
	case "asynchronous", "async":
		*m = LoadingModeAsynchronous
	case "lazy-asynchronous", "lazy":
		*m = LoadingModeLazyAsynchronous
	default:
		return fmt.Errorf("unknown loading mode %q", b)
	}
	return nil
}

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the pixels were resampled to satisfy hardware limits. */
	TextureFlagRescaled TextureFlag = 0x2
	/** @brief Indicates if the texture is the built-in fallback. */
	TextureFlagIsDefault TextureFlag = 0x4
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

func (f TextureFilter) String() string {
	if f == TextureFilterModeNearest {
		return "nearest"
	}
	return "linear"
}

func (f *TextureFilter) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "nearest":
		*f = TextureFilterModeNearest
	case "linear":
		*f = TextureFilterModeLinear
	default:
		return fmt.Errorf("unknown texture filter %q", b)
	}
	return nil
}

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

func (r TextureRepeat) String() string {
	switch r {
	case TextureRepeatRepeat:
		return "repeat"
	case TextureRepeatMirroredRepeat:
		return "mirrored-repeat"
	case TextureRepeatClampToEdge:
		return "clamp-to-edge"
	case TextureRepeatClampToBorder:
		return "clamp-to-border"
	}
	return fmt.Sprintf("TextureRepeat(%d)", int(r))
}

func (r *TextureRepeat) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "repeat":
		*r = TextureRepeatRepeat
	case "mirrored-repeat":
		*r = TextureRepeatMirroredRepeat
	case "clamp-to-edge", "clamp":
		*r = TextureRepeatClampToEdge
	case "clamp-to-border":
		*r = TextureRepeatClampToBorder
	default:
		return fmt.Errorf("unknown texture wrap mode %q", b)
	}
	return nil
}

/**
 * @brief Per-texture creation parameters.
 */
type TextureParams struct {
	/** @brief Minification and magnification filter. Also selects the resampler used for rescaling. */
	Filter TextureFilter
	/** @brief The wrap mode on both axes. */
	Wrap TextureRepeat
	/** @brief Ask the driver to build a mip chain on upload. */
	GenerateMipmaps bool
	/** @brief How source samples are mapped into the 8-bit range. Nil means LinearRange. */
	DynamicRange DynamicRange
}

// DefaultTextureParams returns linear filtering, edge clamping, no mipmaps
// and an identity dynamic range.
func DefaultTextureParams() TextureParams {
	return TextureParams{
		Filter:          TextureFilterModeLinear,
		Wrap:            TextureRepeatClampToEdge,
		GenerateMipmaps: false,
		DynamicRange:    LinearRange{},
	}
}

// CreateCheckerboardPixels builds the fallback texture: a blue/white
// checkerboard, generated in code to eliminate asset dependencies.
func CreateCheckerboardPixels() *PixelBuffer {
	texDimension := DEFAULT_TEXTURE_DIMENSION
	channels := 4
	pixels := make([]uint8, texDimension*texDimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	// Each pixel.
	for row := 0; row < texDimension; row++ {
		for col := 0; col < texDimension; col++ {
			index := (row * texDimension) + col
			indexBpp := index * channels
			if (row%2 != 0) == (col%2 != 0) {
				// Drop red and green, leaving blue.
				pixels[indexBpp+0] = 0
				pixels[indexBpp+1] = 0
			}
		}
	}

	return &PixelBuffer{
		Width:    texDimension,
		Height:   texDimension,
		Channels: channels,
		BitDepth: BitDepth8,
		Pix:      pixels,
	}
}
