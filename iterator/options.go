package iterator

import (
	"github.com/andaru/swecommon/encoding"
	"github.com/go-kit/log"
)

// Option is an Iterator option function
type Option func(*Iterator)

// WithDataHandler sets the structural event handler. The default
// handler does nothing.
func WithDataHandler(h DataHandler) Option { return func(it *Iterator) { it.dataHandler = h } }

// WithRawDataHandler sets the handler codecs pass raw atom data to
func WithRawDataHandler(h RawDataHandler) Option {
	return func(it *Iterator) { it.rawHandler = h }
}

func WithErrorHandler(h ErrorHandler) Option { return func(it *Iterator) { it.errorHandler = h } }

// WithLogger sets the logger; by default nothing is logged.
func WithLogger(l log.Logger) Option { return func(it *Iterator) { it.logger = l } }

// WithMetrics makes the iterator count its work in m.
func WithMetrics(m *Metrics) Option { return func(it *Iterator) { it.metrics = m } }

// WithEncoding sets the data encoding descriptor passed through to the
// codec.
func WithEncoding(enc encoding.Encoding) Option { return func(it *Iterator) { it.enc = enc } }

// WithMaxArraySize limits the implicit and linked array sizes a parsing
// iterator accepts to n. Zero removes the limit. The default is
// DefaultMaxArraySize.
func WithMaxArraySize(n int) Option { return func(it *Iterator) { it.maxArraySize = n } }
