// Package projection builds the read-side views of a channel's feed:
// paginated public history and the merged per-viewer timelines. It only
// reads; the bus and services own all writes.
package projection

import (
	"context"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"backchannel/domain"
	"backchannel/errors"
	"backchannel/repositories"
)

const (
	initialHistoryLimit = 15
	pageLimit           = 10
)

// IdentityResolver looks up the display identity for a message author.
type IdentityResolver interface {
	FindByID(ctx context.Context, id string) (domain.AnonymousIdentity, bool, error)
}

// Page is the synchronous history response shape.
type Page struct {
	Messages []domain.MessageWithIdentity `json:"messages"`
	HasMore  bool                         `json:"hasMore"`
	Cursor   *string                      `json:"cursor"`
}

type Paginator struct {
	messages   repositories.IMessageRepository
	identities IdentityResolver
	log        *slog.Logger
}

func NewPaginator(messages repositories.IMessageRepository, identities IdentityResolver, log *slog.Logger) *Paginator {
	return &Paginator{messages: messages, identities: identities, log: log}
}

// InitialHistory returns the latest approved messages, oldest first. The
// cursor points at the oldest returned message so the next page continues
// strictly before it; a short page means there is nothing older.
func (p *Paginator) InitialHistory(ctx context.Context, channelID string) (Page, error) {
	rows, err := p.messages.ApprovedNewest(ctx, channelID, initialHistoryLimit)
	if err != nil {
		return Page{}, errors.Infrastructure(err)
	}

	hasMore := len(rows) == initialHistoryLimit
	rows = lo.Reverse(rows)

	messages, err := p.withIdentities(ctx, rows)
	if err != nil {
		return Page{}, err
	}

	var cursor *string
	if hasMore {
		cursor = lo.ToPtr(repositories.Cursor(rows[0].EffectiveAt()))
	}
	return Page{Messages: messages, HasMore: hasMore, Cursor: cursor}, nil
}

// PageBefore returns one page of approved messages strictly older than the
// cursor, oldest first. It fetches one row beyond the page size and uses
// the trimmed length to derive hasMore.
func (p *Paginator) PageBefore(ctx context.Context, channelID, cursor string) (Page, error) {
	rows, err := p.messages.ApprovedBefore(ctx, channelID, cursor, pageLimit+1)
	if err != nil {
		return Page{}, errors.Infrastructure(err)
	}

	hasMore := len(rows) == pageLimit+1
	if hasMore {
		rows = rows[:pageLimit]
	}
	rows = lo.Reverse(rows)

	messages, err := p.withIdentities(ctx, rows)
	if err != nil {
		return Page{}, err
	}

	var next *string
	if len(rows) > 0 {
		next = lo.ToPtr(repositories.Cursor(rows[0].EffectiveAt()))
	}
	return Page{Messages: messages, HasMore: hasMore, Cursor: next}, nil
}

// OwnerView returns every pending and approved message of the channel,
// ordered by effective timestamp. Moderation needs the full backlog, so
// there is no pagination ceiling here.
func (p *Paginator) OwnerView(ctx context.Context, channelID string) ([]domain.MessageWithIdentity, error) {
	rows, err := p.messages.AllByChannel(ctx, channelID)
	if err != nil {
		return nil, errors.Infrastructure(err)
	}
	sortByEffective(rows)
	return p.withIdentities(ctx, rows)
}

// AnonymousView returns all approved messages plus the viewer's own pending
// ones, ordered by effective timestamp.
func (p *Paginator) AnonymousView(ctx context.Context, channelID, anonUserID string) ([]domain.MessageWithIdentity, error) {
	rows, err := p.messages.AllByChannel(ctx, channelID)
	if err != nil {
		return nil, errors.Infrastructure(err)
	}
	rows = lo.Filter(rows, func(m domain.Message, _ int) bool {
		return m.Status == domain.MessageApproved ||
			(m.Status == domain.MessagePending && m.AnonUserID == anonUserID)
	})
	sortByEffective(rows)
	return p.withIdentities(ctx, rows)
}

func sortByEffective(rows []domain.Message) {
	slices.SortStableFunc(rows, func(a, b domain.Message) int {
		return a.EffectiveAt().Compare(b.EffectiveAt())
	})
}

// withIdentities joins messages with their authors' display identities,
// caching lookups per call since feeds repeat authors heavily.
func (p *Paginator) withIdentities(ctx context.Context, rows []domain.Message) ([]domain.MessageWithIdentity, error) {
	cards := make(map[string]domain.AuthorCard, len(rows))
	out := make([]domain.MessageWithIdentity, 0, len(rows))
	for _, row := range rows {
		card, ok := cards[row.AnonUserID]
		if !ok {
			identity, found, err := p.identities.FindByID(ctx, row.AnonUserID)
			if err != nil {
				return nil, errors.Infrastructure(err)
			}
			if !found {
				// Identities are never deleted while the channel exists;
				// a miss means the store is inconsistent.
				p.log.Warn("message author has no identity", "anon_user_id", row.AnonUserID)
			}
			card = identity.Card()
			cards[row.AnonUserID] = card
		}
		out = append(out, domain.MessageWithIdentity{Message: row, AnonUser: card})
	}
	return out, nil
}
