// Package chem_resolver turns species names from lab files into substance
// identities, backed by PubChem.
package chem_resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// ResolverCache is a cross-run store of resolved substances.  Get returns an
// error for a miss; a not-found coded error is treated as a plain miss.
type ResolverCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LookupObserver is told the outcome of every Resolve call.
type LookupObserver interface {
	ObserveLookup(outcome string)
}

// Lookup outcomes reported to LookupObserver.
const (
	OutcomeMemo     = "memo"
	OutcomeCache    = "cache"
	OutcomeRemote   = "pubchem"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

const (
	defaultLookupTimeout = 5 * time.Second
	defaultCacheTTL      = 24 * time.Hour
	cacheKeyPrefix       = "substance:"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables the cross-run cache.  A zero ttl uses 24h.
func WithCache(c ResolverCache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithTimeout bounds each remote lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit caps remote lookups per second.  rps <= 0 disables limiting.
func WithRateLimit(rps int) Option {
	return func(r *Resolver) { r.rps = rps }
}

// WithObserver registers a lookup observer.
func WithObserver(o LookupObserver) Option {
	return func(r *Resolver) { r.observer = o }
}

// Resolver resolves species names.  It is safe for concurrent use; concurrent
// lookups of the same name share one remote call.
type Resolver struct {
	client   PubChemClient
	cache    ResolverCache
	cacheTTL time.Duration
	timeout  time.Duration
	rps      int
	observer LookupObserver
	logger   logging.Logger

	limiter *rateLimiter
	group   singleflight.Group
}

// NewResolver builds a Resolver over client.  Call Close to stop the rate
// limiter.
func NewResolver(client PubChemClient, log logging.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &Resolver{
		client:   client,
		cacheTTL: defaultCacheTTL,
		timeout:  defaultLookupTimeout,
		logger:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rps > 0 {
		r.limiter = newRateLimiter(r.rps)
	}
	return r
}

// Close releases the rate limiter.
func (r *Resolver) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

// Resolve implements reaction.SubstanceResolver.  The result is always a fresh
// copy owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, name string) (*reaction.PureSubstance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "substance name is empty")
	}
	key := cacheKey(name)

	if sub, ok := r.fromCache(ctx, key); ok {
		r.observe(OutcomeCache)
		sub.Name = name
		return sub, nil
	}
	if r.client == nil {
		r.observe(OutcomeNotFound)
		return nil, errors.Newf(errors.ErrCodeSubstanceNotFound, "no lookup configured for %q", name)
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.lookup(ctx, name)
	})
	if err != nil {
		if errors.IsNotFound(err) {
			r.observe(OutcomeNotFound)
		} else {
			r.observe(OutcomeError)
		}
		return nil, err
	}
	r.observe(OutcomeRemote)

	sub := v.(*reaction.PureSubstance).Clone()
	sub.Name = name
	r.toCache(ctx, key, sub)
	return sub, nil
}

func (r *Resolver) lookup(ctx context.Context, name string) (*reaction.PureSubstance, error) {
	if r.limiter != nil {
		if err := r.limiter.Acquire(ctx); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLookupFailed, "rate limiter")
		}
	}
	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	compound, err := r.client.SearchByName(tctx, name)
	if err != nil {
		return nil, err
	}
	if compound == nil {
		return nil, errors.Newf(errors.ErrCodeSubstanceNotFound, "no compound for %q", name)
	}
	return fromCompound(name, compound), nil
}

func (r *Resolver) fromCache(ctx context.Context, key string) (*reaction.PureSubstance, bool) {
	if r.cache == nil {
		return nil, false
	}
	var sub reaction.PureSubstance
	if err := r.cache.Get(ctx, key, &sub); err != nil {
		if !errors.IsNotFound(err) {
			r.logger.Warn("resolver cache read failed", logging.String("key", key), logging.Err(err))
		}
		return nil, false
	}
	return &sub, true
}

func (r *Resolver) toCache(ctx context.Context, key string, sub *reaction.PureSubstance) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, sub, r.cacheTTL); err != nil {
		r.logger.Warn("resolver cache write failed", logging.String("key", key), logging.Err(err))
	}
}

func (r *Resolver) observe(outcome string) {
	if r.observer != nil {
		r.observer.ObserveLookup(outcome)
	}
}

func cacheKey(name string) string {
	return cacheKeyPrefix + strings.ToLower(name)
}

func fromCompound(name string, c *PubChemCompound) *reaction.PureSubstance {
	return &reaction.PureSubstance{
		Name:             name,
		IUPACName:        c.IUPACName,
		MolecularFormula: c.MolecularFormula,
		MolecularMass:    c.MolecularWeight,
		InChI:            c.InChI,
		InChIKey:         c.InChIKey,
		CASNumber:        c.CASNumber,
		SMILES:           c.CanonicalSMILES,
		PubChemCID:       c.CID,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Session
// ─────────────────────────────────────────────────────────────────────────────

type memoEntry struct {
	sub *reaction.PureSubstance
	err error
}

// Session memoizes lookups for the duration of one ingestion pass, failures
// included, so a species repeated across columns is looked up once.
type Session struct {
	resolver reaction.SubstanceResolver
	observer LookupObserver

	mu   sync.Mutex
	memo map[string]memoEntry
}

// NewSession starts a memoized pass over r.
func (r *Resolver) NewSession() *Session {
	return &Session{resolver: r, observer: r.observer, memo: make(map[string]memoEntry)}
}

// NewSessionOver memoizes an arbitrary resolver.
func NewSessionOver(r reaction.SubstanceResolver) *Session {
	return &Session{resolver: r, memo: make(map[string]memoEntry)}
}

// Resolve implements reaction.SubstanceResolver.
func (s *Session) Resolve(ctx context.Context, name string) (*reaction.PureSubstance, error) {
	s.mu.Lock()
	e, ok := s.memo[name]
	s.mu.Unlock()
	if ok {
		if s.observer != nil {
			s.observer.ObserveLookup(OutcomeMemo)
		}
		return e.sub.Clone(), e.err
	}

	sub, err := s.resolver.Resolve(ctx, name)
	s.mu.Lock()
	s.memo[name] = memoEntry{sub: sub.Clone(), err: err}
	s.mu.Unlock()
	return sub, err
}

// Len returns the number of memoized names.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memo)
}
