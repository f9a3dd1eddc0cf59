package stream

import "errors"

// ErrUnknownBaton is returned when a baton is not found, either because it
// was never issued, was already closed, or has been idle-evicted.
var ErrUnknownBaton = errors.New("unknown baton")

// ErrBatonInUse is returned when a baton is redeemed while a concurrent
// request already holds its stream checked out.
var ErrBatonInUse = errors.New("baton already in use")
