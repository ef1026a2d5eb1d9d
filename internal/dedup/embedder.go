package dedup

import (
	"context"
	"errors"
	"sync"
)

// ErrEmbeddingUnavailable is returned when no embedding model could be loaded.
var ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Noop is the embedder used when no model is configured.
type Noop struct{}

func (Noop) Embed(context.Context, []string) ([][]float64, error) {
	return nil, ErrEmbeddingUnavailable
}

// Disabled marks semantic dedup as switched off by configuration. The
// deduplicator passes candidates through without embedding them and without
// reporting an error.
type Disabled struct{}

func (Disabled) Embed(context.Context, []string) ([][]float64, error) {
	return nil, ErrEmbeddingUnavailable
}

// Lazy builds its embedder on first use and caches it for its lifetime.
// A factory error caches Noop, so construction is attempted only once.
type Lazy struct {
	factory  func() (Embedder, error)
	once     sync.Once
	embedder Embedder
	err      error
}

// NewLazy wraps factory in a Lazy embedder.
func NewLazy(factory func() (Embedder, error)) *Lazy {
	return &Lazy{factory: factory}
}

func (l *Lazy) load() {
	l.once.Do(func() {
		if l.factory == nil {
			l.embedder, l.err = Noop{}, ErrEmbeddingUnavailable
			return
		}
		e, err := l.factory()
		if err != nil || e == nil {
			l.embedder, l.err = Noop{}, errors.Join(ErrEmbeddingUnavailable, err)
			return
		}
		l.embedder = e
	})
}

// Err reports why the embedder could not be constructed, if it was attempted.
func (l *Lazy) Err() error {
	l.load()
	return l.err
}

func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	l.load()
	return l.embedder.Embed(ctx, texts)
}
