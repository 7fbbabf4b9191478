package protocol

import "errors"

// ErrConfig is returned by NewService for missing collaborators or bad options.
var ErrConfig = errors.New("invalid protocol config")
