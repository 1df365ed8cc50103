package pulse

import "fmt"

// Step is one stage of a Connection. A step either passes a value on or
// stops the chain for the current notification.
type Step[T any] interface {
	apply(v T) (out T, next bool, err error)
}

type stepFunc[T any] func(T) (T, bool, error)

func (f stepFunc[T]) apply(v T) (T, bool, error) {
	return f(v)
}

// Then transforms the value. A nil or false result stops the chain.
func Then[T any](fn func(T) T) Step[T] {
	return stepFunc[T](func(v T) (T, bool, error) {
		out := fn(v)
		return out, !falsy(out), nil
	})
}

// Filter stops the chain when pred returns false.
func Filter[T any](pred func(T) bool) Step[T] {
	return stepFunc[T](func(v T) (T, bool, error) {
		return v, pred(v), nil
	})
}

// Tap runs fn for its side effect and passes the value on unchanged.
func Tap[T any](fn func(T)) Step[T] {
	return stepFunc[T](func(v T) (T, bool, error) {
		fn(v)
		return v, true, nil
	})
}

// Try transforms the value; a non-nil error is reported and stops the chain.
func Try[T any](fn func(T) (T, error)) Step[T] {
	return stepFunc[T](func(v T) (T, bool, error) {
		out, err := fn(v)
		if err != nil {
			return out, false, err
		}
		return out, true, nil
	})
}

// Into writes the value into sig and continues with sig's current value.
func Into[T any](sig *Signal[T]) Step[T] {
	return stepFunc[T](func(v T) (T, bool, error) {
		sig.Set(v)
		out, _ := sig.Lookup()
		return out, true, nil
	})
}

// Pipeline is a reusable chain of steps.
type Pipeline[T any] struct {
	steps    []Step[T]
	name     string
	reporter Reporter
}

// Pipe builds a pipeline from steps.
func Pipe[T any](steps ...Step[T]) *Pipeline[T] {
	return &Pipeline[T]{
		steps:    steps,
		name:     fmt.Sprintf("pipe-%d", nextID()),
		reporter: LogReporter{},
	}
}

// WithReporter sets where step errors and panics go.
func (p *Pipeline[T]) WithReporter(r Reporter) *Pipeline[T] {
	if r != nil {
		p.reporter = r
	}
	return p
}

// Run threads v through the steps left to right. It returns the final value
// and true when every step passed it on. A step error or panic is reported
// and ends the run; it is never raised to the caller.
func (p *Pipeline[T]) Run(v T) (out T, completed bool) {
	ok := guard(p.reporter, p.name, func() {
		cur := v
		for i, step := range p.steps {
			next, cont, err := step.apply(cur)
			if err != nil {
				p.reporter.Report(p.name, fmt.Errorf("step %d: %w", i, err))
				return
			}
			if !cont {
				return
			}
			cur = next
		}
		out, completed = cur, true
	})
	if !ok {
		var zero T
		return zero, false
	}
	return out, completed
}

// Connect runs the pipeline for every value of src, starting with the
// replayed current value.
func (p *Pipeline[T]) Connect(src Source[T]) *Subscription {
	return src.Subscribe(func(v T) {
		p.Run(v)
	})
}

// Connection subscribes to src and threads every notification through steps.
func Connection[T any](src Source[T], steps ...Step[T]) *Subscription {
	return Pipe(steps...).Connect(src)
}
