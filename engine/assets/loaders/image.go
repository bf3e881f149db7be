package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

type imageDecodeFunc func(r io.Reader) (image.Image, error)

func decodeWith(fn imageDecodeFunc, data []byte) (*metadata.PixelBuffer, error) {
	if len(data) == 0 {
		return nil, core.ErrEmptyImage
	}
	img, err := fn(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptData, err)
	}
	return ImageToPixelBuffer(img)
}

func DecodePNG(data []byte) (*metadata.PixelBuffer, error)  { return decodeWith(png.Decode, data) }
func DecodeJPEG(data []byte) (*metadata.PixelBuffer, error) { return decodeWith(jpeg.Decode, data) }
func DecodeBMP(data []byte) (*metadata.PixelBuffer, error)  { return decodeWith(bmp.Decode, data) }
func DecodeTIFF(data []byte) (*metadata.PixelBuffer, error) { return decodeWith(tiff.Decode, data) }
func DecodeWebP(data []byte) (*metadata.PixelBuffer, error) { return decodeWith(webp.Decode, data) }

type opaquer interface {
	Opaque() bool
}

func isOpaque(img image.Image) bool {
	o, ok := img.(opaquer)
	return ok && o.Opaque()
}

// ImageToPixelBuffer converts a decoded image into tightly packed,
// non-premultiplied samples. Grey images keep one channel, 16-bit sources
// keep their depth and opaque colour images drop the alpha channel.
func ImageToPixelBuffer(img image.Image) (*metadata.PixelBuffer, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, core.ErrEmptyImage
	}

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], src.Pix[y*src.Stride:])
		}
		return &metadata.PixelBuffer{Width: w, Height: h, Channels: 1, BitDepth: metadata.BitDepth8, Pix: pix}, nil

	case *image.Gray16:
		pix := make([]uint16, w*h)
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				pix[y*w+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
		return &metadata.PixelBuffer{Width: w, Height: h, Channels: 1, BitDepth: metadata.BitDepth16, Pix16: pix}, nil

	case *image.NRGBA64, *image.RGBA64:
		return toPixelBuffer16(img, w, h), nil
	}

	return toPixelBuffer8(img, w, h), nil
}

func toPixelBuffer8(img image.Image, w, h int) *metadata.PixelBuffer {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	channels := 4
	if isOpaque(img) {
		channels = 3
	}
	pix := make([]uint8, w*h*channels)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			copy(pix[(y*w+x)*channels:], row[x*4:x*4+channels])
		}
	}
	return &metadata.PixelBuffer{Width: w, Height: h, Channels: channels, BitDepth: metadata.BitDepth8, Pix: pix}
}

func toPixelBuffer16(img image.Image, w, h int) *metadata.PixelBuffer {
	nrgba, ok := img.(*image.NRGBA64)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA64(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	channels := 4
	if isOpaque(img) {
		channels = 3
	}
	pix := make([]uint16, w*h*channels)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				i := x*8 + c*2
				pix[(y*w+x)*channels+c] = uint16(row[i])<<8 | uint16(row[i+1])
			}
		}
	}
	return &metadata.PixelBuffer{Width: w, Height: h, Channels: channels, BitDepth: metadata.BitDepth16, Pix16: pix}
}
