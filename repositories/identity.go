package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"backchannel/domain"
)

type IdentityRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewIdentityRepository(db *badger.DB, log *slog.Logger) IdentityRepository {
	return IdentityRepository{db: db, log: log}
}

func (r IdentityRepository) FindByChannelAndSession(ctx context.Context, channelID, sessionID string) (domain.AnonymousIdentity, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnonymousIdentity{}, false, err
	}
	var identity domain.AnonymousIdentity
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, identityKey(channelID, sessionID), &identity)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.AnonymousIdentity{}, false, nil
	}
	if err != nil {
		return domain.AnonymousIdentity{}, false, err
	}
	return identity, true, nil
}

func (r IdentityRepository) FindByID(ctx context.Context, id string) (domain.AnonymousIdentity, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnonymousIdentity{}, false, err
	}
	var identity domain.AnonymousIdentity
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, identityIDKey(id), &identity)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.AnonymousIdentity{}, false, nil
	}
	if err != nil {
		return domain.AnonymousIdentity{}, false, err
	}
	return identity, true, nil
}

// Create persists a fresh identity unless one already exists for the pair.
// The existence check and the writes share one transaction, so concurrent
// first joins resolve to a single surviving row: the losing transaction
// either sees the winner's row or conflicts and retries the lookup.
func (r IdentityRepository) Create(ctx context.Context, identity domain.AnonymousIdentity) (domain.AnonymousIdentity, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnonymousIdentity{}, err
	}
	identity.ID = uuid.NewString()
	identity.CreatedAt = time.Now().UTC()

	for {
		winner, err := r.tryCreate(identity)
		if errors.Is(err, badger.ErrConflict) {
			if err = ctx.Err(); err != nil {
				return domain.AnonymousIdentity{}, err
			}
			continue
		}
		return winner, err
	}
}

func (r IdentityRepository) tryCreate(identity domain.AnonymousIdentity) (domain.AnonymousIdentity, error) {
	winner := identity
	err := r.db.Update(func(txn *badger.Txn) error {
		key := identityKey(identity.ChannelID, identity.SessionID)
		switch err := getJSON(txn, key, &winner); {
		case err == nil:
			// A concurrent join already created the row; keep it.
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		winner = identity
		value, err := json.Marshal(identity)
		if err != nil {
			return err
		}
		if err = txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(identityIDKey(identity.ID), value)
	})
	if err != nil {
		return domain.AnonymousIdentity{}, err
	}
	return winner, nil
}
