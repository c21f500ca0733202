// Package advisor runs the agency's AI tools. Roasts and lead qualification
// go through a tiered lookup: in-process cache, recent stored leads, a queued
// model call, and finally a fixed fallback payload.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned by the tools without a fallback payload when
// the provider rejects the call for quota or credential reasons.
var ErrUnavailable = errors.New("advisor: ai service temporarily unavailable")

// Source names the tier that produced a Result.
type Source string

const (
	SourceMemory      Source = "memory"
	SourceStore       Source = "store"
	SourceModel       Source = "model"
	SourceUnavailable Source = "unavailable"
	SourceFallback    Source = "fallback"
)

var sources = []Source{SourceMemory, SourceStore, SourceModel, SourceUnavailable, SourceFallback}

// Result is a structured tool payload and where it came from.
type Result struct {
	Payload json.RawMessage
	Source  Source
}

// Degraded reports whether the payload is a stand-in for model output.
func (r Result) Degraded() bool {
	return r.Source == SourceUnavailable || r.Source == SourceFallback
}

// Stats counts results per source since start.
type Stats struct {
	Results  map[Source]int64 `json:"results"`
	InFlight int64            `json:"inFlight"`
}

// Service composes the shared cache, queue and model gateway.
type Service struct {
	ai     llm.Completer
	queue  *queue.Queue
	cache  *cache.TTL[json.RawMessage]
	leads  leads.Store
	alerts leads.Alerter
	parser *llm.Parser
	opts   Options
	log    *zap.Logger

	group    singleflight.Group
	wg       sync.WaitGroup
	inFlight atomic.Int64
	counts   map[Source]*atomic.Int64
}

// NewService wires the tools. store and alerts may be nil.
func NewService(ai llm.Completer, q *queue.Queue, c *cache.TTL[json.RawMessage], store leads.Store, alerts leads.Alerter, opts ...Option) *Service {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if c == nil {
		c = cache.New[json.RawMessage]()
	}
	counts := make(map[Source]*atomic.Int64, len(sources))
	for _, s := range sources {
		counts[s] = new(atomic.Int64)
	}
	return &Service{
		ai:     ai,
		queue:  q,
		cache:  c,
		leads:  store,
		alerts: alerts,
		parser: llm.NewParser(cfg.Logger),
		opts:   cfg,
		log:    cfg.Logger,
		counts: counts,
	}
}

// Stats returns per-source counters.
func (s *Service) Stats() Stats {
	st := Stats{Results: make(map[Source]int64, len(s.counts)), InFlight: s.inFlight.Load()}
	for src, n := range s.counts {
		st.Results[src] = n.Load()
	}
	return st
}

// Wait blocks until detached lookups and lead alerts have finished.
func (s *Service) Wait() { s.wg.Wait() }

// tiered describes one cached tool invocation.
type tiered struct {
	name     string
	key      string
	criteria leads.Criteria
	fallback json.RawMessage
	// shape returns a value the parsed payload must decode into.
	shape func() any
	// prompt builds the model prompt; it runs only on the model path.
	prompt   func(ctx context.Context) string
	system   string
	callOpts []llm.CallOption
	// record builds the lead persisted for a fresh payload.
	record func(payload json.RawMessage) (leads.Lead, error)
}

func (s *Service) resolve(ctx context.Context, t tiered) Result {
	if v, ok := s.cache.Get(t.key); ok {
		return s.done(Result{Payload: v, Source: SourceMemory})
	}

	// Identical requests share one lookup, which outlives the caller's context.
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	ch := s.group.DoChan(t.key, func() (any, error) {
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		return s.fill(detached, t), nil
	})

	select {
	case r := <-ch:
		s.wg.Done()
		return s.done(r.Val.(Result))
	case <-ctx.Done():
		go func() {
			<-ch
			s.wg.Done()
		}()
		s.log.Info("advisor: caller left before result", zap.String("tool", t.name), zap.Error(ctx.Err()))
		return s.done(Result{Payload: t.fallback, Source: SourceFallback})
	}
}

func (s *Service) fill(ctx context.Context, t tiered) Result {
	if v, ok := s.cache.Get(t.key); ok {
		return Result{Payload: v, Source: SourceMemory}
	}

	if s.leads != nil {
		since := s.opts.Now().Add(-s.opts.Freshness)
		lead, err := s.leads.FindRecent(ctx, t.criteria, since)
		switch {
		case err == nil && len(lead.Details) > 0:
			s.cache.Set(t.key, lead.Details)
			return Result{Payload: lead.Details, Source: SourceStore}
		case err != nil && !errors.Is(err, leads.ErrNotFound):
			s.log.Warn("advisor: stored lookup failed, asking the model", zap.String("tool", t.name), zap.Error(err))
		}
	}

	prompt := t.prompt(ctx)
	reply, err := s.ask(ctx, prompt, t.system, t.callOpts...)
	if err != nil {
		s.log.Error("advisor: model call failed", zap.String("tool", t.name), zap.Error(err))
		return Result{Payload: t.fallback, Source: SourceFallback}
	}

	payload, err := s.decode(reply.Content, t.shape)
	if err != nil {
		return Result{Payload: t.fallback, Source: SourceFallback}
	}
	if reply.Degraded() {
		return Result{Payload: payload, Source: SourceUnavailable}
	}

	s.persist(ctx, t, payload)
	s.cache.Set(t.key, payload)
	return Result{Payload: payload, Source: SourceModel}
}

func (s *Service) persist(ctx context.Context, t tiered, payload json.RawMessage) {
	if s.leads == nil || t.record == nil {
		return
	}
	rec, err := t.record(payload)
	if err != nil {
		s.log.Warn("advisor: build lead", zap.String("tool", t.name), zap.Error(err))
		return
	}
	lead, err := s.leads.Create(ctx, rec)
	if err != nil {
		s.log.Warn("advisor: persist lead", zap.String("tool", t.name), zap.Error(err))
		return
	}
	s.alert(ctx, lead)
}

func (s *Service) alert(ctx context.Context, lead leads.Lead) {
	if s.alerts == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.AlertTimeout)
		defer cancel()
		s.alerts.LeadCaptured(actx, lead)
	}()
}

// ask runs one model call through the shared queue.
func (s *Service) ask(ctx context.Context, prompt, system string, opts ...llm.CallOption) (llm.Reply, error) {
	return queue.Submit(ctx, s.queue, func(ctx context.Context) (llm.Reply, error) {
		return s.ai.Call(ctx, prompt, system, opts...)
	})
}

// decode extracts the JSON object in raw and checks it against shape.
func (s *Service) decode(raw string, shape func() any) (json.RawMessage, error) {
	payload, err := s.parser.Extract(raw)
	if err != nil {
		return nil, err
	}
	if p := bytes.TrimSpace(payload); len(p) == 0 || p[0] != '{' {
		s.log.Warn("advisor: payload is not a json object", zap.String("raw", raw))
		return nil, &llm.ParseError{Raw: raw}
	}
	if shape != nil {
		if err := json.Unmarshal(payload, shape()); err != nil {
			s.log.Warn("advisor: payload has unexpected shape", zap.String("raw", raw), zap.Error(err))
			return nil, &llm.ParseError{Raw: raw}
		}
	}
	return payload, nil
}

func (s *Service) done(r Result) Result {
	s.counts[r.Source].Add(1)
	return r
}
