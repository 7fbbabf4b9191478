package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playgate/cmd/internal/play/session"
	"playgate/cmd/security/token"
	"playgate/cmd/security/wallet"
	v1 "playgate/contracts/play/v1"
)

// Op names a protocol operation in logs, metrics and events.
type Op string

const (
	OpGet      Op = "session_get"
	OpInit     Op = "session_init"
	OpCancel   Op = "session_cancel"
	OpStart    Op = "game_start"
	OpComplete Op = "game_complete"
)

const tracerName = "playgate/protocol"

// MaxIdentityLen bounds identity strings accepted by any operation.
const MaxIdentityLen = 128

// Service runs the session protocol.
type Service struct {
	store    session.Store
	verifier wallet.Verifier
	entropy  token.Generator
	clock    clock.Clock
	policy   session.Policy
	rewards  RewardEngine
	events   EventSink
	metrics  *Metrics
	log      *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithPolicy(p session.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithEntropy overrides the crypto/rand entropy source.
func WithEntropy(g token.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.entropy = g
		}
	}
}

func WithRewardEngine(r RewardEngine) Option {
	return func(s *Service) {
		if r != nil {
			s.rewards = r
		}
	}
}

func WithEventSink(e EventSink) Option {
	return func(s *Service) {
		if e != nil {
			s.events = e
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService wires the protocol over store and verifier.
func NewService(store session.Store, verifier wallet.Verifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfig)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: nil verifier", ErrConfig)
	}

	s := &Service{
		store:    store,
		verifier: verifier,
		clock:    clock.New(),
		policy:   session.DefaultPolicy(),
		rewards:  NoopRewardEngine{},
		events:   NoopEventSink{},
		log:      slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if s.entropy == nil {
		g, err := token.NewRandGenerator(token.DefaultEntropyBytes)
		if err != nil {
			return nil, err
		}
		s.entropy = g
	}
	return s, nil
}

// Policy returns the windows the service enforces.
func (s *Service) Policy() session.Policy { return s.policy }

func (s *Service) now() int64 { return s.clock.Now().Unix() }

func validIdentity(identity string) bool {
	return identity != "" && len(identity) <= MaxIdentityLen
}

func (s *Service) span(ctx context.Context, op Op, identity string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "play."+string(op),
		trace.WithAttributes(
			attribute.String("play.op", string(op)),
			attribute.String("play.identity", identity),
		),
	)
}

func (s *Service) finish(span trace.Span, op Op, r v1.Result, started time.Time) {
	span.SetAttributes(attribute.String("play.result", string(r)))
	span.End()
	s.metrics.observeResult(op, r, started)
}

func (s *Service) publish(identity string, op Op, state v1.SessionState, ts int64) {
	s.events.Publish(Event{Identity: identity, Op: op, State: state, TS: ts})
}
