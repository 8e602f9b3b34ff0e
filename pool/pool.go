package pool

// Pool is an interface that defines methods on a pool of reusable values.
type Pool[T any] interface {
	// Get returns a value from the pool, creating one if none is available.
	Get() T

	// Put returns a value back to the pool.
	Put(T)
}
