package metadata

import "fmt"

/** @brief Bits per sample of a decoded image. */
type BitDepth uint8

const (
	BitDepth8  BitDepth = 8
	BitDepth16 BitDepth = 16
	/** @brief 32-bit floating point samples. */
	BitDepth32F BitDepth = 32
)

/**
 * @brief Decoded, uncompressed pixel data. Rows are tightly packed,
 * top row first, channels interleaved.
 *
 * Exactly one of Pix, Pix16 or PixF is populated, matching BitDepth.
 */
type PixelBuffer struct {
	/** @brief The width of the image. */
	Width int
	/** @brief The height of the image. */
	Height int
	/** @brief The number of channels: 1 grey, 2 grey+alpha, 3 RGB, 4 RGBA. */
	Channels int
	/** @brief Bits per sample. */
	BitDepth BitDepth
	/** @brief 8-bit samples. */
	Pix []uint8
	/** @brief 16-bit samples. */
	Pix16 []uint16
	/** @brief Floating point samples. */
	PixF []float32
}

// SampleCount returns Width*Height*Channels.
func (pb *PixelBuffer) SampleCount() int {
	return pb.Width * pb.Height * pb.Channels
}

// HasAlpha reports whether the last channel is alpha.
func (pb *PixelBuffer) HasAlpha() bool {
	return pb.Channels == 2 || pb.Channels == 4
}

// Validate checks that the dimensions are positive and the sample slice
// matches them.
func (pb *PixelBuffer) Validate() error {
	if pb.Width <= 0 || pb.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", pb.Width, pb.Height)
	}
	if pb.Channels < 1 || pb.Channels > 4 {
		return fmt.Errorf("invalid channel count %d", pb.Channels)
	}
	n := pb.SampleCount()
	var have int
	switch pb.BitDepth {
	case BitDepth8:
		have = len(pb.Pix)
	case BitDepth16:
		have = len(pb.Pix16)
	case BitDepth32F:
		have = len(pb.PixF)
	default:
		return fmt.Errorf("invalid bit depth %d", pb.BitDepth)
	}
	if have != n {
		return fmt.Errorf("sample count mismatch: have %d, want %d", have, n)
	}
	return nil
}
