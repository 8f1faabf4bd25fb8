// Package provider holds the data-provider contract the scoring core consumes,
// the resilience guard around it and the synthetic provider for simulation runs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"scoring_engine/internal/models"
)

type Kind string

const (
	// KindUnavailable means the provider has no data for the symbol. Skip it.
	KindUnavailable Kind = "unavailable"
	// KindTransient covers network errors, timeouts, rate limits and open breakers.
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

type Error struct {
	Kind     Kind
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s.%s: %s", e.Provider, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s.%s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Unavailable(provider, op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Provider: provider, Op: op, Err: err}
}

func Transient(provider, op string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: provider, Op: op, Err: err}
}

func Permanent(provider, op string, err error) *Error {
	return &Error{Kind: KindPermanent, Provider: provider, Op: op, Err: err}
}

// KindOf classifies err. Errors that are not *Error are treated as transient.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// Result is one provider response. APICalls is what the call cost upstream.
type Result[T any] struct {
	Data      T
	APICalls  int
	Provider  string
	FetchedAt time.Time
	Synthetic bool
}

type DataProvider interface {
	Name() string
	// Capabilities lists the data types this provider can serve.
	Capabilities() []models.DataType
	GetQuote(ctx context.Context, symbol string) (Result[models.Quote], error)
	// GetTechnicalIndicators returns up to bars daily OHLCV bars, oldest first.
	GetTechnicalIndicators(ctx context.Context, symbol string, bars int) (Result[[]models.Bar], error)
	GetFundamentalData(ctx context.Context, symbol string) (Result[models.Fundamentals], error)
	GetSentimentData(ctx context.Context, symbol string) (Result[models.Sentiment], error)
}

// Set is the collection of configured providers, looked up by name.
type Set struct {
	byName map[string]DataProvider
}

func NewSet(providers ...DataProvider) *Set {
	s := &Set{byName: make(map[string]DataProvider, len(providers))}
	for _, p := range providers {
		s.byName[p.Name()] = p
	}
	return s
}

func (s *Set) Get(name string) (DataProvider, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Declarations maps provider name to its declared capabilities.
func (s *Set) Declarations() map[string][]models.DataType {
	out := make(map[string][]models.DataType, len(s.byName))
	for name, p := range s.byName {
		out[name] = p.Capabilities()
	}
	return out
}
