package errs

// Result is either a success carrying data or a failure carrying an *Error.
type Result[T any] struct {
	data T
	err  *Error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{data: v}
}

// Fail wraps an error. A nil error is converted to CodeInternal so a Result
// is never both empty and failed.
func Fail[T any](e *Error) Result[T] {
	if e == nil {
		e = New(CodeInternal, GenericApology)
	}
	return Result[T]{err: e}
}

// Success reports whether the result carries data.
func (r Result[T]) Success() bool { return r.err == nil }

// Data returns the value; the zero value on failure.
func (r Result[T]) Data() T { return r.data }

// Err returns the failure, or nil.
func (r Result[T]) Err() *Error { return r.err }

// Unwrap converts the result to Go's (value, error) form.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.data, nil
}
