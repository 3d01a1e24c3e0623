package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"backchannel/domain"
	"backchannel/errors"
	"backchannel/repositories"
)

type MessageService struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewMessageService(repository repositories.IMessageRepository, log *slog.Logger) *MessageService {
	return &MessageService{repository: repository, log: log}
}

// Submit creates a pending message. Content is stored verbatim; the only
// check is that it is not blank, anything further is the UI's concern.
func (s *MessageService) Submit(ctx context.Context, channelID, anonUserID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.Validation(errors.CodeEmptyContent, "Message content cannot be empty")
	}
	message := domain.Message{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		AnonUserID: anonUserID,
		Content:    content,
		Status:     domain.MessagePending,
		SentAt:     time.Now().UTC(),
	}
	if err := s.repository.Create(ctx, message); err != nil {
		return domain.Message{}, errors.Infrastructure(err)
	}
	return message, nil
}

func (s *MessageService) Get(ctx context.Context, id string) (domain.Message, error) {
	message, found, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return domain.Message{}, errors.Infrastructure(err)
	}
	if !found {
		return domain.Message{}, errors.NotFound(errors.CodeMessageNotFound, "Message does not exist")
	}
	return message, nil
}

// Approve transitions a pending message to approved. The store enforces
// the transition atomically, so a duplicate approve or a racing reject
// surfaces as an invalid-state failure instead of a double transition.
func (s *MessageService) Approve(ctx context.Context, id string) (domain.Message, error) {
	message, err := s.repository.Approve(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Message{}, asDomain(err)
	}
	return message, nil
}

// Reject deletes a pending message for good and returns the deleted row so
// the bus can notify the author.
func (s *MessageService) Reject(ctx context.Context, id string) (domain.Message, error) {
	message, err := s.repository.RejectAndDelete(ctx, id)
	if err != nil {
		return domain.Message{}, asDomain(err)
	}
	return message, nil
}

// asDomain passes typed domain errors through and wraps anything else as an
// infrastructure failure.
func asDomain(err error) error {
	var de *errors.Error
	if errors.As(err, &de) {
		return err
	}
	return errors.Infrastructure(err)
}
