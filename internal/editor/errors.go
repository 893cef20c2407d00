package editor

import "errors"

var (
	ErrVertexNotFound     = errors.New("vertex not found")
	ErrShapeNotFound      = errors.New("shape not found")
	ErrLayerNotFound      = errors.New("layer not found")
	ErrLastLayer          = errors.New("cannot delete the last layer")
	ErrInvalidShapeType   = errors.New("invalid shape type")
	ErrEmptyImport        = errors.New("import contains no usable vertices")
	ErrInvalidDocument    = errors.New("invalid scene document")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrNotTransforming    = errors.New("no transform in progress")
	ErrCommitInProgress   = errors.New("transform commit in progress")
	ErrNothingToTransform = errors.New("nothing selected to transform")
	ErrInvalidMode        = errors.New("invalid transform mode")
)
