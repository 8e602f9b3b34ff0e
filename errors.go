package forkjoin

import "errors"

const Namespace = "forkjoin"

var (
	ErrInvalidConfig  = errors.New(Namespace + ": invalid configuration")
	ErrWorkerPanicked = errors.New(Namespace + ": worker panicked")
	ErrPoolClosed     = errors.New(Namespace + ": worker pool is closed")
	ErrNilFunc        = errors.New(Namespace + ": nil function")
	ErrOutOfRange     = errors.New(Namespace + ": range out of bounds")
)
