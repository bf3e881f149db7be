package systems

import (
	"fmt"
	gomath "math"
	"slices"

	"github.com/spaghettifunk/skytex/engine/math"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// remapTo8 maps the colour samples of pb into 8 bits according to dr.
// Alpha samples are never remapped: 16-bit alpha keeps its high byte and
// float alpha is read as [0,1]. 8-bit input with a linear range is
// returned as is, 16-bit input is scaled down from [0,65535].
func remapTo8(pb *metadata.PixelBuffer, dr metadata.DynamicRange) (*metadata.PixelBuffer, error) {
	if dr == nil {
		dr = metadata.LinearRange{}
	}
	if _, linear := dr.(metadata.LinearRange); linear && pb.BitDepth == metadata.BitDepth8 {
		return pb, nil
	}

	var lo, hi, scale float64
	switch r := dr.(type) {
	case metadata.LinearRange:
		hi = 255
		if pb.BitDepth == metadata.BitDepth16 {
			hi = 65535
		}
	case metadata.UserRange:
		scale, lo = r.ScaleOffset()
		hi = r.Max
	case metadata.QuantileRange:
		lo, hi = colourQuantiles(pb, r.Low, r.High)
	case metadata.GreyLevelRange:
		lo, hi = 0, 2*r.Level
	case metadata.GreyLevelAutoRange:
		lo, hi = 0, 2*colourMean(pb)
	default:
		return nil, fmt.Errorf("unsupported dynamic range %s", dr)
	}
	if scale == 0 {
		if hi <= lo {
			hi = lo + 1
		}
		scale = 255 / (hi - lo)
	}

	out := &metadata.PixelBuffer{
		Width:    pb.Width,
		Height:   pb.Height,
		Channels: pb.Channels,
		BitDepth: metadata.BitDepth8,
		Pix:      make([]uint8, pb.SampleCount()),
	}
	alpha := -1
	if pb.HasAlpha() {
		alpha = pb.Channels - 1
	}
	for i := range out.Pix {
		v := sample(pb, i)
		if i%pb.Channels == alpha {
			out.Pix[i] = alpha8(pb, v)
			continue
		}
		out.Pix[i] = uint8(gomath.Round(math.Clamp((v-lo)*scale, 0, 255)))
	}
	return out, nil
}

func sample(pb *metadata.PixelBuffer, i int) float64 {
	switch pb.BitDepth {
	case metadata.BitDepth16:
		return float64(pb.Pix16[i])
	case metadata.BitDepth32F:
		return float64(pb.PixF[i])
	}
	return float64(pb.Pix[i])
}

func alpha8(pb *metadata.PixelBuffer, v float64) uint8 {
	switch pb.BitDepth {
	case metadata.BitDepth16:
		return uint8(uint16(v) >> 8)
	case metadata.BitDepth32F:
		return uint8(gomath.Round(math.Clamp(v*255, 0, 255)))
	}
	return uint8(v)
}

func isColourSample(pb *metadata.PixelBuffer, i int) bool {
	return !pb.HasAlpha() || i%pb.Channels != pb.Channels-1
}

func colourMean(pb *metadata.PixelBuffer) float64 {
	var sum float64
	var n int
	for i, count := 0, pb.SampleCount(); i < count; i++ {
		if isColourSample(pb, i) {
			sum += sample(pb, i)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// colourQuantiles returns the sample values at the low and high quantiles
// of the colour channels. Integer depths use a histogram.
func colourQuantiles(pb *metadata.PixelBuffer, low, high float64) (float64, float64) {
	if pb.BitDepth == metadata.BitDepth32F {
		values := make([]float32, 0, pb.SampleCount())
		for i, v := range pb.PixF {
			if isColourSample(pb, i) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return 0, 0
		}
		slices.Sort(values)
		at := func(q float64) float64 {
			return float64(values[int(math.Clamp(q, 0, 1)*float64(len(values)-1))])
		}
		return at(low), at(high)
	}

	bins := 1 << 8
	if pb.BitDepth == metadata.BitDepth16 {
		bins = 1 << 16
	}
	hist := make([]int, bins)
	n := 0
	for i, count := 0, pb.SampleCount(); i < count; i++ {
		if isColourSample(pb, i) {
			hist[int(sample(pb, i))]++
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	at := func(q float64) float64 {
		target := int(math.Clamp(q, 0, 1) * float64(n-1))
		cum := 0
		for v, c := range hist {
			cum += c
			if cum > target {
				return float64(v)
			}
		}
		return float64(bins - 1)
	}
	return at(low), at(high)
}
