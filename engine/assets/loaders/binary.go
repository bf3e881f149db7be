package loaders

import (
	"io"
	"os"

	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// BinaryLoader reads a file verbatim. params may carry the identifier the
// file was requested with as a string.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	name, _ := params.(string)
	if name == "" {
		name = path
	}

	return &metadata.Resource{
		Name:         name,
		FullPath:     path,
		ResourceType: assetType,
		DataSize:     uint64(len(buf)),
		Data:         buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
		res.DataSize = 0
	}
	return nil
}
