package systems

import (
	"fmt"
	"image"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/math"
	"github.com/spaghettifunk/skytex/engine/renderer"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

// targetSize returns the largest size the hardware accepts for a w×h
// texture in format: clamped to the maximum size and, without NPOT
// support, moved to the nearest power of two.
func targetSize(caps metadata.Capabilities, format metadata.PixelFormat, w, h int) (int, int) {
	maxSize := caps.MaxTextureSize
	w = math.Clamp(w, 1, maxSize)
	h = math.Clamp(h, 1, maxSize)
	if !caps.AllowsNPOT(format) {
		limit := math.PrevPowerOf2(maxSize)
		w = math.Clamp(math.NearestPowerOf2(w), 1, limit)
		h = math.Clamp(math.NearestPowerOf2(h), 1, limit)
	}
	return w, h
}

// upload runs on the graphics thread. It selects the pixel format, applies
// the dynamic range, rescales to what the hardware accepts and creates the
// GPU texture. The pixel buffer is released whatever the outcome.
func (ts *TextureSystem) upload(t *Texture, pb *metadata.PixelBuffer) error {
	uploadErr := func(cause error, format string, args ...interface{}) error {
		return &core.UploadError{Identifier: t.Name, Err: fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))}
	}

	if pb == nil {
		return uploadErr(core.ErrEmptyImage, "no pixels")
	}
	defer releasePixels(pb)

	if err := pb.Validate(); err != nil {
		return uploadErr(core.ErrCorruptData, "%s", err)
	}
	format, err := metadata.PixelFormatForChannels(pb.Channels)
	if err != nil {
		return uploadErr(core.ErrUnsupportedFormat, "%s", err)
	}

	srcW, srcH := pb.Width, pb.Height
	req := renderer.UploadRequest{
		GenerateMipmaps: t.Params.GenerateMipmaps,
		Filter:          t.Params.Filter,
		Wrap:            t.Params.Wrap,
	}

	_, linear := t.Params.DynamicRange.(metadata.LinearRange)
	floatW, floatH := targetSize(ts.caps, format.Float(), srcW, srcH)
	if pb.BitDepth == metadata.BitDepth32F && linear && ts.caps.FloatTextures && floatW == srcW && floatH == srcH {
		req.Format = format.Float()
		req.Width, req.Height = srcW, srcH
		req.PixelsF = pb.PixF
	} else {
		pixels, err := remapTo8(pb, t.Params.DynamicRange)
		if err != nil {
			return uploadErr(core.ErrUnsupportedFormat, "%s", err)
		}

		w, h := targetSize(ts.caps, format, srcW, srcH)
		if w != srcW || h != srcH {
			// The built-in fallback is always made to fit.
			if !ts.Config.AllowRescale && !t.HasFlag(metadata.TextureFlagIsDefault) {
				return uploadErr(core.ErrCapability, "%dx%d %s exceeds hardware limits (max %d, npot %t)",
					srcW, srcH, format, ts.caps.MaxTextureSize, ts.caps.AllowsNPOT(format))
			}
			core.LogDebug("texture '%s' rescaled from %dx%d to %dx%d", t.Name, srcW, srcH, w, h)
			pixels = rescale(pixels, w, h, t.Params.Filter)
		}
		req.Format = format
		req.Width, req.Height = w, h
		req.Pixels = pixels.Pix
	}

	var flags metadata.TextureFlagBits
	if req.Width != srcW || req.Height != srcH {
		flags |= metadata.TextureFlagBits(metadata.TextureFlagRescaled)
	}
	if hasTransparency(req) {
		flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	luminance := averageLuminance(req)

	handle, err := ts.gfx.UploadTexture2D(req)
	if err != nil {
		return uploadErr(core.ErrDriver, "%s", err)
	}

	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		// Destroyed from another goroutine while uploading.
		ts.gfx.DeleteTexture(handle)
		return errTaskCancelled
	}
	t.width, t.height, t.hasDimensions = srcW, srcH, true
	t.storedWidth, t.storedHeight = req.Width, req.Height
	t.flags |= flags
	t.avgLuminance = luminance
	t.task = nil
	t.handle.Store(uint64(handle))
	t.state.Store(int32(metadata.LoadStateLoaded))
	t.mu.Unlock()
	return nil
}

func releasePixels(pb *metadata.PixelBuffer) {
	pb.Pix, pb.Pix16, pb.PixF = nil, nil, nil
}

// rescale resamples 8-bit pixels to w×h, nearest or bilinear after filter.
func rescale(pb *metadata.PixelBuffer, w, h int, filter metadata.TextureFilter) *metadata.PixelBuffer {
	src := image.NewNRGBA(image.Rect(0, 0, pb.Width, pb.Height))
	for i, n := 0, pb.Width*pb.Height; i < n; i++ {
		p := pb.Pix[i*pb.Channels : (i+1)*pb.Channels]
		d := src.Pix[i*4 : i*4+4]
		switch pb.Channels {
		case 1:
			d[0], d[1], d[2], d[3] = p[0], p[0], p[0], 255
		case 2:
			d[0], d[1], d[2], d[3] = p[0], p[0], p[0], p[1]
		case 3:
			d[0], d[1], d[2], d[3] = p[0], p[1], p[2], 255
		default:
			copy(d, p)
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	var scaler draw.Interpolator = draw.BiLinear
	if filter == metadata.TextureFilterModeNearest {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := &metadata.PixelBuffer{
		Width:    w,
		Height:   h,
		Channels: pb.Channels,
		BitDepth: metadata.BitDepth8,
		Pix:      make([]uint8, w*h*pb.Channels),
	}
	for i, n := 0, w*h; i < n; i++ {
		s := dst.Pix[i*4 : i*4+4]
		d := out.Pix[i*pb.Channels : (i+1)*pb.Channels]
		switch pb.Channels {
		case 1:
			d[0] = s[0]
		case 2:
			d[0], d[1] = s[0], s[3]
		case 3:
			d[0], d[1], d[2] = s[0], s[1], s[2]
		default:
			copy(d, s)
		}
	}
	return out
}

func hasTransparency(req renderer.UploadRequest) bool {
	channels := req.Format.Channels()
	if channels != 2 && channels != 4 {
		return false
	}
	if req.Format.IsFloat() {
		for i := channels - 1; i < len(req.PixelsF); i += channels {
			if req.PixelsF[i] < 1 {
				return true
			}
		}
		return false
	}
	for i := channels - 1; i < len(req.Pixels); i += channels {
		if req.Pixels[i] < 255 {
			return true
		}
	}
	return false
}

// averageLuminance returns the mean Rec. 601 luma of the upload in [0,1],
// or -1 for float uploads.
func averageLuminance(req renderer.UploadRequest) float32 {
	if req.Format.IsFloat() || len(req.Pixels) == 0 {
		return -1
	}
	channels := req.Format.Channels()
	var sum float64
	for i := 0; i < len(req.Pixels); i += channels {
		p := req.Pixels[i:]
		if channels >= 3 {
			sum += 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		} else {
			sum += float64(p[0])
		}
	}
	n := len(req.Pixels) / channels
	return float32(sum / float64(n) / 255)
}
