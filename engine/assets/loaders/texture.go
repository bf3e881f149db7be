package loaders

import (
	"image"
	"os"

	// Header parsers for DecodeConfig.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProbeImage reads only the header of the image at path and returns its
// dimensions and format name.
func ProbeImage(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()

	return image.DecodeConfig(f)
}
