package binding

// Update is a pending change to a bound value: either a literal replacement
// or a function of the previous value. Functions are resolved against the
// latest known value at the moment the update is applied, so several updates
// issued before a store round trip completes all compose.
type Update[T any] struct {
	replace T
	apply   func(prev T) T
	isApply bool
}

// Replace returns an update that sets the value to v.
func Replace[T any](v T) Update[T] {
	return Update[T]{replace: v}
}

// Apply returns an update that computes the next value from the previous one.
// fn must not mutate prev in place; it may share unmodified parts of it.
func Apply[T any](fn func(prev T) T) Update[T] {
	return Update[T]{apply: fn, isApply: true}
}

// Resolve computes the value that results from applying u to prev.
func (u Update[T]) Resolve(prev T) T {
	if u.isApply {
		if u.apply == nil {
			return prev
		}
		return u.apply(prev)
	}
	return u.replace
}

// Then returns an update that applies u and then next.
func (u Update[T]) Then(next Update[T]) Update[T] {
	return Apply(func(prev T) T {
		return next.Resolve(u.Resolve(prev))
	})
}
