package assets

import "github.com/spaghettifunk/vkplayground/engine/renderer/metadata"

type Loader interface {
	Load(path string, assetType metadata.ResourceType, params map[string]string) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
