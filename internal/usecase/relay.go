package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"portfolio-relay/internal/domain"
	"portfolio-relay/internal/integrations/openrouter"
	"portfolio-relay/internal/lib/sl"
	"portfolio-relay/internal/worker"
)

const defaultMaxMessage = 4000

type LLMClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type ChatInput struct {
	Message string
}

type ChatOutput struct {
	Response string
}

// RelayService forwards one user message upstream with the persona prompt
// and returns the cleaned reply. It holds no per-request state.
type RelayService struct {
	llm           LLMClient
	pool          *worker.Pool
	log           *slog.Logger
	maxMessageLen int
}

func NewRelayService(llm LLMClient, pool *worker.Pool, log *slog.Logger, maxMessageLen int) (*RelayService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if pool == nil {
		return nil, errors.New("usecase: worker pool must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessage
	}
	return &RelayService{
		llm:           llm,
		pool:          pool,
		log:           log.With(sl.Module("usecase.relay")),
		maxMessageLen: maxMessageLen,
	}, nil
}

func (s *RelayService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(in.Message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	messages := buildPromptMessages(in.Message)

	started := time.Now()
	raw, err := worker.Submit(ctx, s.pool, func(jobCtx context.Context) (string, error) {
		return s.llm.Chat(jobCtx, messages)
	})
	if err != nil {
		uerr := classifyUpstreamError(err)
		s.log.Warn("upstream call failed",
			slog.String("code", string(uerr.Code)),
			slog.String("reason", uerr.Reason),
			slog.Duration("elapsed", time.Since(started)),
			sl.Err(err),
		)
		return ChatOutput{}, uerr
	}

	s.log.Debug("upstream call complete",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("raw_len", len(raw)),
	)
	return ChatOutput{Response: cleanOutput(raw)}, nil
}

func classifyUpstreamError(err error) *Error {
	var statusErr *openrouter.HTTPStatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Code:           ErrorUpstream,
			Reason:         "openrouter_status",
			UpstreamStatus: statusErr.StatusCode,
			Detail:         statusErr.Body,
			Err:            err,
		}
	}

	var malformed *openrouter.MalformedResponseError
	if errors.As(err, &malformed) {
		return newError(ErrorUpstreamMalformed, "openrouter_malformed_response", err)
	}

	var transportErr *openrouter.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return newError(ErrorUpstreamTimeout, "openrouter_timeout", err)
		}
		return newError(ErrorTransport, "openrouter_unreachable", err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrorUpstreamTimeout, "deadline_exceeded", err)
	case errors.Is(err, context.Canceled):
		return newError(ErrorInternal, "request_cancelled", err)
	case errors.Is(err, worker.ErrPoolClosed):
		return newError(ErrorInternal, "shutting_down", err)
	}
	return newError(ErrorInternal, "unexpected_error", err)
}
