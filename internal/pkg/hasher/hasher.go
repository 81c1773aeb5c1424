// Package hasher produces and checks one-way, salted, adaptive-cost hashes
// for passwords and refresh-token secrets.
package hasher

import (
	"context"
	"errors"
	"time"

	"photoshare/internal/pkg/workerpool"
)

var (
	ErrSecretTooLong = errors.New("hasher: secret exceeds algorithm input limit")
	ErrUnknownFormat = errors.New("hasher: unrecognised hash format")
)

// Algorithm is a single adaptive hash scheme. Encoded hashes must carry
// their own salt and cost so Verify needs nothing else.
type Algorithm interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
	Recognizes(encoded string) bool
}

// Observer receives the wall time of every hash and verify call.
type Observer func(op string, elapsed time.Duration)

type Option func(*Service)

// WithFallback registers additional algorithms accepted by Verify, so
// hashes written under a previous configuration keep working.
func WithFallback(algs ...Algorithm) Option {
	return func(s *Service) { s.known = append(s.known, algs...) }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observe = o }
}

// Service hashes with the primary algorithm and runs every call on the
// worker pool.
type Service struct {
	primary Algorithm
	known   []Algorithm
	pool    *workerpool.Pool
	observe Observer
}

func New(primary Algorithm, pool *workerpool.Pool, opts ...Option) *Service {
	s := &Service{
		primary: primary,
		known:   []Algorithm{primary},
		pool:    pool,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Hash(ctx context.Context, secret string) (string, error) {
	var (
		encoded string
		err     error
	)
	if poolErr := s.run(ctx, "hash", func() {
		encoded, err = s.primary.Hash(secret)
	}); poolErr != nil {
		return "", poolErr
	}
	return encoded, err
}

// Verify reports whether secret produced encoded. A mismatch is (false, nil);
// an error means the stored hash could not be interpreted.
func (s *Service) Verify(ctx context.Context, secret, encoded string) (bool, error) {
	alg := s.algorithmFor(encoded)
	if alg == nil {
		return false, ErrUnknownFormat
	}

	var (
		ok  bool
		err error
	)
	if poolErr := s.run(ctx, "verify", func() {
		ok, err = alg.Verify(secret, encoded)
	}); poolErr != nil {
		return false, poolErr
	}
	return ok, err
}

func (s *Service) algorithmFor(encoded string) Algorithm {
	for _, alg := range s.known {
		if alg.Recognizes(encoded) {
			return alg
		}
	}
	return nil
}

func (s *Service) run(ctx context.Context, op string, fn func()) error {
	return s.pool.Do(ctx, func() {
		start := time.Now()
		fn()
		if s.observe != nil {
			s.observe(op, time.Since(start))
		}
	})
}
