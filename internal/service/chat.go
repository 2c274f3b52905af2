package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relaylabs/chatrelay/internal/events"
	"github.com/relaylabs/chatrelay/internal/llm"
	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/store"
	"github.com/relaylabs/chatrelay/pkg/logger"
	"github.com/relaylabs/chatrelay/pkg/metrics"
)

// ChatService runs one chat exchange end to end: existence check, history
// load, completion, append, persist.
type ChatService struct {
	store     store.Store
	llmClient llm.Client
	publisher *events.Publisher // nil when NATS is not configured
	directive string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	st store.Store,
	llmClient llm.Client,
	publisher *events.Publisher,
	directive string,
	timeout time.Duration,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		store:     st,
		llmClient: llmClient,
		publisher: publisher,
		directive: directive,
		timeout:   timeout,
		logger:    log,
	}
}

// Chat handles one exchange for a user. Classified completion failures
// become the reply text rather than an error: a degraded textual reply
// beats breaking the chat turn. Errors returned here are pre-completion
// lookup failures (store.ErrNotFound for an unknown user) or persistence
// failures, both fatal to the request.
func (s *ChatService) Chat(ctx context.Context, userID, message string) (string, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return "", err
	}

	history, err := s.store.LoadHistory(ctx, userID)
	if err != nil {
		return "", err
	}

	reply := s.complete(ctx, history, message)

	turn := model.Turn{User: message, Assistant: reply}
	if err := s.store.AppendTurn(ctx, userID, turn); err != nil {
		return "", err
	}
	metrics.TurnsAppended.Inc()

	s.publish(ctx, userID, turn)

	return reply, nil
}

// complete makes a single completion attempt, no retry. The classification
// in the llm package is total, so this always yields reply text.
func (s *ChatService) complete(ctx context.Context, history []model.Turn, message string) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Directive: s.directive,
		History:   history,
		Message:   message,
	})
	if err != nil {
		kind := llm.KindOf(err)
		metrics.RecordCompletion(s.llmClient.Name(), kind.String(), time.Since(start).Seconds())
		s.logger.Warn("completion failed",
			zap.String("provider", s.llmClient.Name()),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return llm.ReplyFor(err)
	}

	metrics.RecordCompletion(s.llmClient.Name(), "success", time.Since(start).Seconds())
	metrics.RecordTokens(s.llmClient.Name(), resp.TokensIn, resp.TokensOut)

	return resp.Content
}

// publish emits the completed exchange, best effort.
func (s *ChatService) publish(ctx context.Context, userID string, turn model.Turn) {
	if s.publisher == nil {
		return
	}

	_, err := s.publisher.PublishTurn(ctx, &model.TurnEvent{
		UserID:    userID,
		Message:   turn.User,
		Reply:     turn.Assistant,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish turn event", zap.Error(err))
	}
}
