// Package embedding turns template projections and drafting queries into vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyVocabulary is returned by Prepare when the corpus yields no usable terms.
var ErrEmptyVocabulary = errors.New("no tokens found in corpus")

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fitted is implemented by embedders whose vector space is derived from the
// prepared corpus. Every stored vector must be recomputed after the corpus changes.
type Fitted interface {
	Embedder
	Fitted()
}

// IsFitted reports whether e derives its vector space from the corpus.
func IsFitted(e Embedder) bool {
	_, ok := e.(Fitted)
	return ok
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
