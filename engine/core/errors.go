package core

import (
	"errors"
)

var (
	ErrMissingRoot        = errors.New("scene root object not found")
	ErrNoSources          = errors.New("no geometry sources to combine")
	ErrNoCombineInstances = errors.New("merge called with zero combine instances")
	ErrNilMesh            = errors.New("geometry source has no shared mesh")
	ErrBufferReleased     = errors.New("geometry buffer already released")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidAsset       = errors.New("invalid mesh asset")
	ErrUnknown            = errors.New("unknown")
)
