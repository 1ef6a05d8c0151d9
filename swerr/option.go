package swerr

import "fmt"

// Option is an Error option function
type Option func(*Error)

func WithMessage(msg string) Option { return func(e *Error) { e.Message = msg } }
func WithComponent(path string) Option { return func(e *Error) { e.Component = path } }
func WithCause(err error) Option    { return func(e *Error) { e.Err = err } }

func WithMessagef(format string, args ...interface{}) Option {
	return WithMessage(fmt.Sprintf(format, args...))
}
