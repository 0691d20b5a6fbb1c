package assets

import "github.com/spaghettifunk/shadowproxy/engine/resources"

type Loader interface {
	Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) // `interface{}` here allows loaders to take type specific parameters
	Unload(*resources.Resource) error
}
