package engine

import "errors"

// ErrAlreadyRunning is returned when a launch names a game that already has
// an actively supervised process.
var ErrAlreadyRunning = errors.New("game is already running")
