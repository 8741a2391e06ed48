// Package loader is the sample/asset boundary. Decoding is an
// external collaborator's job; this package types the contract and
// ships a static in-memory loader for tests and offline rendering.
package loader

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Static for an unknown URL.
var ErrNotFound = errors.New("loader: buffer not found")

// Buffer is a decoded sample buffer. The scheduling core never reads
// sample data; it only needs the duration and hands the buffer on to
// source nodes.
type Buffer struct {
	URL        string
	SampleRate float64
	Frames     int
	Channels   int
}

// Duration implements backend.Buffer.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames) / b.SampleRate
}

// Loader fetches and decodes a sample buffer. Load may fail; failures
// propagate to the caller and are never retried here - retry policy
// belongs to the loader implementation, not the scheduling core.
type Loader interface {
	Load(ctx context.Context, url string) (*Buffer, error)
}

// Static is a map-backed loader for tests and the CLI.
type Static map[string]*Buffer

// Load implements Loader.
func (s Static) Load(_ context.Context, url string) (*Buffer, error) {
	b, ok := s[url]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, url)
	}
	return b, nil
}

// LoadAll fetches every URL in order, failing on the first error.
func LoadAll(ctx context.Context, l Loader, urls []string) ([]*Buffer, error) {
	out := make([]*Buffer, 0, len(urls))
	for _, u := range urls {
		b, err := l.Load(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
