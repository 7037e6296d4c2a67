package daemon

import "errors"

var (
	ErrAlreadyRunning    = errors.New("datacap is already running")
	ErrServiceNotFound   = errors.New("service not found. Run 'sudo datacap service install' first")
	ErrUnsupportedSystem = errors.New("unsupported operating system")
)
