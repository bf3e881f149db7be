package metadata

import "fmt"

/** @brief GPU-side pixel layout of an uploaded texture. */
type PixelFormat int

const (
	PixelFormatLuminance PixelFormat = iota
	PixelFormatLuminanceAlpha
	PixelFormatRGB
	PixelFormatRGBA
	/** @brief Float variants, only used when the source is floating point. */
	PixelFormatLuminance32F
	PixelFormatLuminanceAlpha32F
	PixelFormatRGB32F
	PixelFormatRGBA32F
)

// PixelFormatForChannels maps a channel count to an 8-bit format.
func PixelFormatForChannels(channels int) (PixelFormat, error) {
	switch channels {
	case 1:
		return PixelFormatLuminance, nil
	case 2:
		return PixelFormatLuminanceAlpha, nil
	case 3:
		return PixelFormatRGB, nil
	case 4:
		return PixelFormatRGBA, nil
	}
	return 0, fmt.Errorf("no pixel format for %d channels", channels)
}

// Float returns the floating point counterpart of an 8-bit format.
func (f PixelFormat) Float() PixelFormat {
	if f.IsFloat() {
		return f
	}
	return f + PixelFormatLuminance32F
}

func (f PixelFormat) IsFloat() bool {
	return f >= PixelFormatLuminance32F
}

// IsLuminance reports whether the format stores grey levels rather than colour.
func (f PixelFormat) IsLuminance() bool {
	switch f {
	case PixelFormatLuminance, PixelFormatLuminanceAlpha, PixelFormatLuminance32F, PixelFormatLuminanceAlpha32F:
		return true
	}
	return false
}

func (f PixelFormat) Channels() int {
	switch f {
	case PixelFormatLuminance, PixelFormatLuminance32F:
		return 1
	case PixelFormatLuminanceAlpha, PixelFormatLuminanceAlpha32F:
		return 2
	case PixelFormatRGB, PixelFormatRGB32F:
		return 3
	}
	return 4
}

func (f PixelFormat) String() string {
	names := [...]string{"L8", "LA8", "RGB8", "RGBA8", "L32F", "LA32F", "RGB32F", "RGBA32F"}
	if f >= 0 && int(f) < len(names) {
		return names[f]
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

/**
 * @brief Hardware limits read once from the graphics context.
 * Immutable after the texture system is initialized.
 */
type Capabilities struct {
	/** @brief The largest width or height a 2D texture may have. */
	MaxTextureSize int
	/** @brief Non-power-of-two sizes are allowed for colour formats. */
	NPOT bool
	/** @brief Non-power-of-two sizes are allowed for luminance formats. */
	NPOTLuminance bool
	/** @brief Floating point texture formats are available. */
	FloatTextures bool
}

// AllowsNPOT reports whether non-power-of-two sizes may be used with format.
func (c Capabilities) AllowsNPOT(format PixelFormat) bool {
	if format.IsLuminance() {
		return c.NPOTLuminance
	}
	return c.NPOT
}
