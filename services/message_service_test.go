package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"backchannel/domain"
	"backchannel/errors"
	"backchannel/mocks"
)

func TestMessageService_Submit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mockRepo, discardLogger())
	ctx := context.Background()

	t.Run("should persist a pending message verbatim", func(t *testing.T) {
		req := require.New(t)
		var persisted domain.Message

		mockRepo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, message domain.Message) error {
				persisted = message
				return nil
			}).
			Times(1)

		message, err := svc.Submit(ctx, "channel-1", "anon-1", "  what about remote work?  ")

		req.NoError(err)
		req.Equal(persisted, message)
		// Content is stored as typed, not normalized
		req.Equal("  what about remote work?  ", message.Content)
		req.Equal(domain.MessagePending, message.Status)
		req.Equal("channel-1", message.ChannelID)
		req.Equal("anon-1", message.AnonUserID)
		req.Nil(message.ApprovedAt)
	})

	t.Run("should refuse blank content without touching the repository", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Submit(ctx, "channel-1", "anon-1", "   \t\n ")

		req.Error(err)
		req.Equal(errors.ClassValidation, errors.ClassOf(err))
		code, _ := errors.Wire(err)
		req.Equal(errors.CodeEmptyContent, code)
	})
}

func TestMessageService_Approve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mockRepo, discardLogger())
	ctx := context.Background()

	t.Run("should pass through the approved row", func(t *testing.T) {
		req := require.New(t)
		at := time.Now().UTC()
		approved := domain.Message{ID: "message-1", Status: domain.MessageApproved, ApprovedAt: &at}

		mockRepo.EXPECT().
			Approve(ctx, "message-1", gomock.Any()).
			Return(approved, nil).
			Times(1)

		message, err := svc.Approve(ctx, "message-1")

		req.NoError(err)
		req.Equal(approved, message)
	})

	t.Run("should keep typed store failures intact", func(t *testing.T) {
		req := require.New(t)
		refused := errors.InvalidState(errors.CodeNotPending, "Only pending messages can be approved")

		mockRepo.EXPECT().
			Approve(ctx, "message-1", gomock.Any()).
			Return(domain.Message{}, refused).
			Times(1)

		_, err := svc.Approve(ctx, "message-1")

		req.Error(err)
		req.Equal(errors.ClassInvalidState, errors.ClassOf(err))
		code, _ := errors.Wire(err)
		req.Equal(errors.CodeNotPending, code)
	})
}

func TestMessageService_Reject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mockRepo, discardLogger())
	ctx := context.Background()

	t.Run("should return the deleted row for author notification", func(t *testing.T) {
		req := require.New(t)
		deleted := domain.Message{ID: "message-1", AnonUserID: "anon-1", Status: domain.MessagePending}

		mockRepo.EXPECT().
			RejectAndDelete(ctx, "message-1").
			Return(deleted, nil).
			Times(1)

		message, err := svc.Reject(ctx, "message-1")

		req.NoError(err)
		req.Equal("anon-1", message.AnonUserID)
	})

	t.Run("should report a missing message as not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			RejectAndDelete(ctx, "missing").
			Return(domain.Message{}, errors.NotFound(errors.CodeMessageNotFound, "Message does not exist")).
			Times(1)

		_, err := svc.Reject(ctx, "missing")

		req.Error(err)
		req.Equal(errors.ClassNotFound, errors.ClassOf(err))
	})
}
