//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"backchannel/domain"
	"backchannel/errors"
)

// IMessageRepository is the lifecycle-aware message store facade. The
// pending-to-approved and pending-to-deleted transitions are atomic at the
// store: a racing approve and reject on the same message resolve to exactly
// one winner, the loser observes a not-pending failure.
type IMessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	FindByID(ctx context.Context, id string) (domain.Message, bool, error)
	Approve(ctx context.Context, id string, at time.Time) (domain.Message, error)
	RejectAndDelete(ctx context.Context, id string) (domain.Message, error)
	ApprovedNewest(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
	ApprovedBefore(ctx context.Context, channelID, cursor string, limit int) ([]domain.Message, error)
	AllByChannel(ctx context.Context, channelID string) ([]domain.Message, error)
	Count(ctx context.Context) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// Create persists a pending message together with its inbox index entry.
func (r MessageRepository) Create(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(inboxKey(message.ChannelID, message.SentAt, message.ID), []byte(message.ID)); err != nil {
			return err
		}
		return txn.Set(messageKey(message.ID), value)
	})
}

func (r MessageRepository) FindByID(ctx context.Context, id string) (domain.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, false, err
	}
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, messageKey(id), &message)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	return message, true, nil
}

// Approve transitions a pending message to approved and publishes it into
// the feed index. Approving anything else fails without touching state.
func (r MessageRepository) Approve(ctx context.Context, id string, at time.Time) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, messageKey(id), &message); err != nil {
			return err
		}
		if message.Status != domain.MessagePending {
			return errors.InvalidState(errors.CodeNotPending, "Only pending messages can be approved")
		}
		message.Status = domain.MessageApproved
		message.ApprovedAt = &at
		value, err := json.Marshal(message)
		if err != nil {
			return err
		}
		if err = txn.Set(feedKey(message.ChannelID, at, message.ID), []byte(message.ID)); err != nil {
			return err
		}
		return txn.Set(messageKey(id), value)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.NotFound(errors.CodeMessageNotFound, "Message does not exist")
	}
	if stderrors.Is(err, badger.ErrConflict) {
		// The racing transition won; from this side the message is gone
		// or no longer pending.
		return domain.Message{}, errors.InvalidState(errors.CodeNotPending, "Only pending messages can be approved")
	}
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// RejectAndDelete removes a pending message entirely. Rejection is a hard
// delete: the row and its index entries are gone, nothing soft-flags it.
func (r MessageRepository) RejectAndDelete(ctx context.Context, id string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, messageKey(id), &message); err != nil {
			return err
		}
		if message.Status != domain.MessagePending {
			return errors.InvalidState(errors.CodeNotPending, "Only pending messages can be rejected")
		}
		if err := txn.Delete(inboxKey(message.ChannelID, message.SentAt, message.ID)); err != nil {
			return err
		}
		return txn.Delete(messageKey(id))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.NotFound(errors.CodeMessageNotFound, "Message does not exist")
	}
	if stderrors.Is(err, badger.ErrConflict) {
		return domain.Message{}, errors.InvalidState(errors.CodeNotPending, "Only pending messages can be rejected")
	}
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ApprovedNewest returns up to limit approved messages, newest first, by
// reverse iteration over the feed index.
func (r MessageRepository) ApprovedNewest(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.scanFeed(channelID, seekLast(feedPrefix(channelID)), limit)
}

// ApprovedBefore returns up to limit approved messages strictly older than
// the cursor, newest first. The cursor is a padded approval timestamp, so
// appending it to the feed prefix seeks right past every entry at or after
// that instant: feed keys carry a ":uuid" suffix and therefore sort after
// the bare cursor, which reverse iteration then skips.
func (r MessageRepository) ApprovedBefore(ctx context.Context, channelID, cursor string, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seekKey := append(feedPrefix(channelID), []byte(cursor)...)
	return r.scanFeed(channelID, seekKey, limit)
}

func (r MessageRepository) scanFeed(channelID string, seekKey []byte, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := feedPrefix(channelID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var message domain.Message
			if err = getJSON(txn, messageKey(string(id)), &message); err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// AllByChannel returns every live message of a channel ordered by
// submission time. Callers re-sort by effective timestamp for feed views.
func (r MessageRepository) AllByChannel(ctx context.Context, channelID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := inboxPrefix(channelID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var message domain.Message
			if err = getJSON(txn, messageKey(string(id)), &message); err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

func (r MessageRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return countPrefix(r.db, []byte("msg:"))
}
