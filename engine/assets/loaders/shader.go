package loaders

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

var ErrInvalidShaderBinary = errors.New("invalid shader binary")

// ShaderLoader reads a precompiled SPIR-V stage. The contents are handed to
// the device untouched; only the word alignment is checked.
type ShaderLoader struct {
	binary BinaryLoader
}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params map[string]string) (*metadata.Resource, error) {
	res, err := sl.binary.Load(path, assetType, params)
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", path, ErrInvalidShaderBinary)
	}
	if len(res.Data)%4 != 0 {
		return nil, fmt.Errorf("%s is %d bytes, not a whole number of 32 bit words: %w", path, len(res.Data), ErrInvalidShaderBinary)
	}

	res.Type = metadata.ResourceTypeShaderBinary
	res.Code = bytesToBytecode(res.Data)
	return res, nil
}

func (sl *ShaderLoader) Unload(r *metadata.Resource) error {
	r.Code = nil
	return sl.binary.Unload(r)
}
