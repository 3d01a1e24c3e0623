//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"backchannel/domain"
)

// ErrCodeTaken signals a share-code collision; the service retries with a
// fresh code.
var ErrCodeTaken = errors.New("channel code already taken")

type IChannelRepository interface {
	Create(ctx context.Context, channel domain.Channel) error
	FindByID(ctx context.Context, id string) (domain.Channel, bool, error)
	FindByCode(ctx context.Context, code string) (domain.Channel, bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Channel, error)
	UpdateStatus(ctx context.Context, id string, status domain.ChannelStatus) (domain.Channel, error)
	Count(ctx context.Context) (int, error)
}

type ChannelRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChannelRepository(db *badger.DB, log *slog.Logger) ChannelRepository {
	return ChannelRepository{db: db, log: log}
}

// Create persists a channel and claims its share code in the same
// transaction. A concurrent claim on the same code makes exactly one
// transaction win; the loser gets ErrCodeTaken.
func (r ChannelRepository) Create(ctx context.Context, channel domain.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(channel)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(codeKey(channel.Code)); err == nil {
			return ErrCodeTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(codeKey(channel.Code), []byte(channel.ID)); err != nil {
			return err
		}
		if err := txn.Set(ownerKey(channel.OwnerID, channel.CreatedAt, channel.ID), []byte(channel.ID)); err != nil {
			return err
		}
		return txn.Set(channelKey(channel.ID), value)
	})
	if errors.Is(err, badger.ErrConflict) {
		// Two creations raced on the same code; report it as taken.
		return ErrCodeTaken
	}
	return err
}

func (r ChannelRepository) FindByID(ctx context.Context, id string) (domain.Channel, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, false, err
	}
	var channel domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, channelKey(id), &channel)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Channel{}, false, nil
	}
	if err != nil {
		return domain.Channel{}, false, err
	}
	return channel, true, nil
}

func (r ChannelRepository) FindByCode(ctx context.Context, code string) (domain.Channel, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, false, err
	}
	var channel domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(codeKey(code))
		if err != nil {
			return err
		}
		var id []byte
		if id, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return getJSON(txn, channelKey(string(id)), &channel)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Channel{}, false, nil
	}
	if err != nil {
		return domain.Channel{}, false, err
	}
	return channel, true, nil
}

// ListByOwner returns the owner's channels, newest first, by reverse
// iteration over the padded-timestamp owner index.
func (r ChannelRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var channels []domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := ownerPrefix(ownerID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var channel domain.Channel
			if err = getJSON(txn, channelKey(string(id)), &channel); err != nil {
				return err
			}
			channels = append(channels, channel)
		}
		return nil
	})
	return channels, err
}

func (r ChannelRepository) UpdateStatus(ctx context.Context, id string, status domain.ChannelStatus) (domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}
	var channel domain.Channel
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, channelKey(id), &channel); err != nil {
			return err
		}
		channel.Status = status
		value, err := json.Marshal(channel)
		if err != nil {
			return err
		}
		return txn.Set(channelKey(id), value)
	})
	return channel, err
}

func (r ChannelRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return countPrefix(r.db, []byte("channel:"))
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, out)
	})
}

// seekLast positions a reverse iterator at the end of a prefix range.
func seekLast(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}

func countPrefix(db *badger.DB, prefix []byte) (int, error) {
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
