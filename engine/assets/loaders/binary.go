package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

// Namespace of the content derived resource IDs.
var resourceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vkplayground/resource"))

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params map[string]string) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &metadata.Resource{
		ID:       uuid.NewSHA1(resourceNamespace, buf),
		Type:     metadata.ResourceTypeBinary,
		Name:     resourceName(path, params),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

// resourceName prefers the "name" parameter over the file name.
func resourceName(path string, params map[string]string) string {
	if name, ok := params["name"]; ok && name != "" {
		return name
	}
	return filepath.Base(path)
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
