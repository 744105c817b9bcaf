package loader

import (
	"errors"
)

// Show file errors
var (
	ErrUnsupportedShowFile = errors.New("unsupported show file format")
	ErrInvalidShowFile     = errors.New("invalid show file")
	ErrInvalidStep         = errors.New("invalid show step")
	ErrInvalidDuration     = errors.New("invalid step duration")
)
