package metadata

import "testing"

func TestParseDynamicRange(t *testing.T) {
	tests := []struct {
		in   string
		want DynamicRange
	}{
		{"", LinearRange{}},
		{"linear", LinearRange{}},
		{" Linear ", LinearRange{}},
		{"user(10, 200)", UserRange{Min: 10, Max: 200}},
		{"quantile(0.01,0.99)", QuantileRange{Low: 0.01, High: 0.99}},
		{"greylevel(64)", GreyLevelRange{Level: 64}},
		{"greylevel-auto", GreyLevelAutoRange{}},
	}
	for _, test := range tests {
		have, err := ParseDynamicRange(test.in)
		if err != nil {
			t.Fatalf("ParseDynamicRange(%q): unexpected error:\n%#v", test.in, err)
		}
		if have != test.want {
			t.Fatalf("ParseDynamicRange(%q):\nhave %#v\nwant %#v", test.in, have, test.want)
		}
	}

	for _, in := range []string{
		"log",
		"user(1)",
		"user(5,5)",
		"user(1,2",
		"quantile(0.5,0.1)",
		"quantile(-1,0.5)",
		"greylevel(x)",
		"greylevel(-3)",
		"linear(1)",
	} {
		if _, err := ParseDynamicRange(in); err == nil {
			t.Fatalf("ParseDynamicRange(%q): unexpected success", in)
		}
	}
}

func TestDynamicRangeValidate(t *testing.T) {
	valid := []DynamicRange{
		LinearRange{},
		UserRange{Min: -1, Max: 1},
		QuantileRange{Low: 0, High: 1},
		GreyLevelRange{Level: 0},
		GreyLevelAutoRange{},
	}
	for _, dr := range valid {
		if err := dr.Validate(); err != nil {
			t.Fatalf("%s.Validate(): unexpected error:\n%#v", dr, err)
		}
	}

	invalid := []DynamicRange{
		UserRange{Min: 3, Max: 3},
		QuantileRange{Low: 0, High: 1.5},
		QuantileRange{Low: -0.1, High: 0.5},
		QuantileRange{Low: 0.6, High: 0.5},
		GreyLevelRange{Level: -1},
	}
	for _, dr := range invalid {
		if err := dr.Validate(); err == nil {
			t.Fatalf("%s.Validate(): unexpected success", dr)
		}
	}
}

func TestUserRangeScaleOffset(t *testing.T) {
	scale, offset := UserRange{Min: 100, Max: 355}.ScaleOffset()
	if scale != 1 || offset != 100 {
		t.Fatalf("ScaleOffset:\nhave %v, %v\nwant 1, 100", scale, offset)
	}
}

func TestPixelBufferValidate(t *testing.T) {
	ok := []*PixelBuffer{
		{Width: 2, Height: 2, Channels: 1, BitDepth: BitDepth8, Pix: make([]uint8, 4)},
		{Width: 1, Height: 3, Channels: 4, BitDepth: BitDepth16, Pix16: make([]uint16, 12)},
		{Width: 2, Height: 1, Channels: 3, BitDepth: BitDepth32F, PixF: make([]float32, 6)},
	}
	for i, pb := range ok {
		if err := pb.Validate(); err != nil {
			t.Fatalf("Validate(%d): unexpected error:\n%#v", i, err)
		}
	}

	bad := []*PixelBuffer{
		{Width: 0, Height: 2, Channels: 1, BitDepth: BitDepth8},
		{Width: 2, Height: 2, Channels: 5, BitDepth: BitDepth8, Pix: make([]uint8, 20)},
		{Width: 2, Height: 2, Channels: 1, BitDepth: BitDepth8, Pix: make([]uint8, 3)},
		{Width: 2, Height: 2, Channels: 1, BitDepth: 12, Pix: make([]uint8, 4)},
		{Width: 2, Height: 2, Channels: 1, BitDepth: BitDepth16, Pix: make([]uint8, 4)},
	}
	for i, pb := range bad {
		if err := pb.Validate(); err == nil {
			t.Fatalf("Validate(%d): unexpected success", i)
		}
	}
}

func TestCapabilitiesAllowsNPOT(t *testing.T) {
	caps := Capabilities{MaxTextureSize: 1024, NPOT: true, NPOTLuminance: false}
	tests := []struct {
		format PixelFormat
		want   bool
	}{
		{PixelFormatRGBA, true},
		{PixelFormatRGB, true},
		{PixelFormatLuminance, false},
		{PixelFormatLuminanceAlpha, false},
		{PixelFormatLuminance32F, false},
		{PixelFormatRGBA32F, true},
	}
	for _, test := range tests {
		if have := caps.AllowsNPOT(test.format); have != test.want {
			t.Fatalf("AllowsNPOT(%s):\nhave %t\nwant %t", test.format, have, test.want)
		}
	}
}

func TestPixelFormatForChannels(t *testing.T) {
	for ch, want := range map[int]PixelFormat{
		1: PixelFormatLuminance,
		2: PixelFormatLuminanceAlpha,
		3: PixelFormatRGB,
		4: PixelFormatRGBA,
	} {
		have, err := PixelFormatForChannels(ch)
		if err != nil || have != want {
			t.Fatalf("PixelFormatForChannels(%d):\nhave %s, %v\nwant %s, nil", ch, have, err, want)
		}
		if have.Channels() != ch {
			t.Fatalf("%s.Channels():\nhave %d\nwant %d", have, have.Channels(), ch)
		}
		if f := have.Float(); !f.IsFloat() || f.Channels() != ch {
			t.Fatalf("%s.Float():\nhave %s", have, f)
		}
	}
	if _, err := PixelFormatForChannels(5); err == nil {
		t.Fatal("PixelFormatForChannels(5): unexpected success")
	}
}

func TestUnmarshalText(t *testing.T) {
	var f TextureFilter
	if err := f.UnmarshalText([]byte("nearest")); err != nil || f != TextureFilterModeNearest {
		t.Fatalf("TextureFilter.UnmarshalText:\nhave %v, %v", f, err)
	}
	var r TextureRepeat
	if err := r.UnmarshalText([]byte("mirrored-repeat")); err != nil || r != TextureRepeatMirroredRepeat {
		t.Fatalf("TextureRepeat.UnmarshalText:\nhave %v, %v", r, err)
	}
	var m LoadingMode
	if err := m.UnmarshalText([]byte("lazy")); err != nil || m != LoadingModeLazyAsynchronous {
		t.Fatalf("LoadingMode.UnmarshalText:\nhave %v, %v", m, err)
	}
	if err := f.UnmarshalText([]byte("cubic")); err == nil {
		t.Fatal("TextureFilter.UnmarshalText(cubic): unexpected success")
	}
}

func TestCheckerboard(t *testing.T) {
	pb := CreateCheckerboardPixels()
	if err := pb.Validate(); err != nil {
		t.Fatalf("Validate: unexpected error:\n%#v", err)
	}
	// (0,0) is blue, (0,1) is white.
	if pb.Pix[0] != 0 || pb.Pix[2] != 255 || pb.Pix[4] != 255 {
		t.Fatalf("checkerboard pattern:\nhave %v", pb.Pix[:8])
	}
}

func TestLoadStateIsLoading(t *testing.T) {
	tests := []struct {
		state LoadState
		want  bool
	}{
		{LoadStateUnloaded, false},
		{LoadStateLoadingBytes, true},
		{LoadStateLoadingImage, true},
		{LoadStateLoaded, false},
		{LoadStateLoadError, false},
	}
	for _, test := range tests {
		if have := test.state.IsLoading(); have != test.want {
			t.Fatalf("%s.IsLoading():\nhave %t\nwant %t", test.state, have, test.want)
		}
	}
}
