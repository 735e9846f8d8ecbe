package main

// Option configures a value of type T. Options are applied in order and the
// first failing one aborts construction.
type Option[T any] interface {
	apply(T) error
}

type optionFunc[T any] struct {
	fn func(T) error
}

func (f optionFunc[T]) apply(target T) error {
	return f.fn(target)
}

func newOption[T any](fn func(T) error) Option[T] {
	return optionFunc[T]{fn: fn}
}

func applyOptions[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}
	return nil
}
