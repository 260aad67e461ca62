package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/models"
	"github.com/RichardoC/medi-assist/internal/ratelimit"
)

// Limiter is the admission gate consulted before every backend call.
type Limiter interface {
	Admit() error
}

// availability is implemented by backends that can be constructed but not yet usable.
type availability interface {
	Available() bool
}

type Service struct {
	backends     []Backend
	limiter      Limiter
	extractor    *Extractor
	systemPrompt string
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
	secrets      []string
}

type Option func(*Service)

// WithFallback fills the second backend slot. It is only used when the primary is absent.
func WithFallback(b Backend) Option {
	return func(s *Service) { s.backends[1] = b }
}

func WithSystemPrompt(p string) Option {
	return func(s *Service) { s.systemPrompt = p }
}

// WithTimeout bounds each backend call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSecrets lists credentials that must never appear in returned errors or logs.
func WithSecrets(secrets ...string) Option {
	return func(s *Service) { s.secrets = append(s.secrets, secrets...) }
}

func WithExtractor(e *Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func New(primary Backend, limiter Limiter, opts ...Option) *Service {
	s := &Service{
		backends:     []Backend{primary, nil},
		limiter:      limiter,
		extractor:    defaultExtractor,
		systemPrompt: SystemPrompt,
		logger:       zap.NewNop(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New()
	}
	return s
}

// Configured reports whether any backend slot is filled.
func (s *Service) Configured() bool {
	for _, b := range s.backends {
		if b != nil {
			return true
		}
	}
	return false
}

func (s *Service) pickBackend() Backend {
	for _, b := range s.backends {
		if b == nil {
			continue
		}
		if a, ok := b.(availability); ok && !a.Available() {
			continue
		}
		return b
	}
	return nil
}

// Generate runs one message through admission, context assembly, the backend
// and extraction. Every failure is an *Error.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest) (*models.Reply, error) {
	if !s.Configured() {
		return nil, &Error{
			Kind:    KindNotConfigured,
			Message: "Generative AI service not configured. Please check your API key.",
		}
	}

	if err := s.limiter.Admit(); err != nil {
		e := &Error{Kind: KindRateLimited, Message: err.Error(), Err: err}
		var le *ratelimit.LimitError
		if errors.As(err, &le) {
			e.RetryAfter = le.RetryAfter
		}
		s.logger.Warn("Request rejected by rate limiter", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, e
	}

	prompt := BuildContext(s.systemPrompt, req.History, req.UserMessage)

	backend := s.pickBackend()
	if backend == nil {
		return nil, &Error{
			Kind:    KindUnknown,
			Message: "Failed to generate response: No supported generation method available on the AI client",
		}
	}

	// A client going away must not abort a generation that already passed admission.
	callCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
		defer cancel()
	}

	start := s.now()
	raw, err := backend.Complete(callCtx, prompt)
	if err != nil {
		classified := Redact(Classify(err), s.secrets...)
		s.logger.Error("Generation error",
			zap.String("backend", backend.Name()),
			zap.String("kind", string(classified.Kind)),
			zap.Error(classified))
		return nil, classified
	}

	text, ok := s.extractor.Extract(raw)
	if !ok {
		s.logger.Error("Full generation result", zap.String("backend", backend.Name()), zap.Any("result", raw))
		return nil, &Error{Kind: KindEmpty, Message: "No text response from Generative AI"}
	}

	now := s.now()
	s.logger.Debug("Generated reply",
		zap.String("backend", backend.Name()),
		zap.String("user_id", req.UserID),
		zap.Int("history_turns", len(req.History)),
		zap.Duration("elapsed", now.Sub(start)))

	return &models.Reply{
		Text:      strings.TrimSpace(text),
		Timestamp: now,
		ID:        s.newID(),
	}, nil
}
