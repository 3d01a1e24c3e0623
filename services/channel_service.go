// Package services implements the application operations between the
// transport layers and the repositories: channel management and the message
// lifecycle guards.
package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"backchannel/auth"
	"backchannel/domain"
	"backchannel/errors"
	"backchannel/repositories"
)

const (
	codeAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeRetries  = 5
	maxChannelName  = 100
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{3}-[A-Za-z0-9]{3}$`)

type ChannelService struct {
	repository repositories.IChannelRepository
	log        *slog.Logger
}

func NewChannelService(repository repositories.IChannelRepository, log *slog.Logger) *ChannelService {
	return &ChannelService{repository: repository, log: log}
}

// Create opens a new channel for ownerID with a fresh share code. Code
// collisions are resolved by regenerating, at most maxCodeRetries times;
// the code space is large enough that running out means something is wrong
// with the store, so the caller gets a retryable failure.
func (s *ChannelService) Create(ctx context.Context, ownerID, name string) (domain.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Channel{}, errors.Validation(errors.CodeEmptyContent, "Channel name cannot be empty")
	}
	if len(name) > maxChannelName {
		return domain.Channel{}, errors.Validation(errors.CodeEmptyContent, "Channel name is too long")
	}

	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		channel := domain.Channel{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Name:      name,
			Code:      generateCode(),
			Status:    domain.ChannelOpen,
			CreatedAt: time.Now().UTC(),
		}
		err := s.repository.Create(ctx, channel)
		if stderrors.Is(err, repositories.ErrCodeTaken) {
			s.log.Debug("channel code collision, regenerating", "code", channel.Code)
			continue
		}
		if err != nil {
			return domain.Channel{}, errors.Infrastructure(err)
		}
		return channel, nil
	}
	return domain.Channel{}, &errors.Error{
		Class:   errors.ClassInfrastructure,
		Code:    errors.CodeCodeExhausted,
		Message: "Could not allocate a unique channel code, please retry",
	}
}

func (s *ChannelService) Get(ctx context.Context, id string) (domain.Channel, error) {
	channel, found, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return domain.Channel{}, errors.Infrastructure(err)
	}
	if !found {
		return domain.Channel{}, errors.NotFound(errors.CodeChannelNotFound, "Channel does not exist")
	}
	return channel, nil
}

// Lookup resolves a share code typed in by an audience member.
func (s *ChannelService) Lookup(ctx context.Context, code string) (domain.Channel, error) {
	if !codePattern.MatchString(code) {
		return domain.Channel{}, errors.Validation(errors.CodeChannelNotFound, "Malformed channel code")
	}
	channel, found, err := s.repository.FindByCode(ctx, code)
	if err != nil {
		return domain.Channel{}, errors.Infrastructure(err)
	}
	if !found {
		return domain.Channel{}, errors.NotFound(errors.CodeChannelNotFound, "Channel does not exist")
	}
	return channel, nil
}

func (s *ChannelService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Channel, error) {
	channels, err := s.repository.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Infrastructure(err)
	}
	return channels, nil
}

// SetStatus opens or closes a channel. Closing blocks new submissions but
// never hides existing history.
func (s *ChannelService) SetStatus(ctx context.Context, id string, status domain.ChannelStatus, userID string) (domain.Channel, error) {
	if status != domain.ChannelOpen && status != domain.ChannelClosed {
		return domain.Channel{}, errors.Validation(errors.CodeEmptyContent, "Status must be open or closed")
	}
	channel, err := s.Get(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	if err = auth.AssertOwnsChannel(channel, userID); err != nil {
		return domain.Channel{}, err
	}
	updated, err := s.repository.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Channel{}, errors.Infrastructure(err)
	}
	return updated, nil
}

func generateCode() string {
	part := func() string {
		var b strings.Builder
		for i := 0; i < 3; i++ {
			b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
		}
		return b.String()
	}
	return part() + "-" + part()
}
