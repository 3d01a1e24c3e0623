// Package identity assigns stable anonymous display identities.
//
// Each (channel, session) pair gets exactly one identity, drawn uniformly
// from embedded pools the first time the session joins and returned
// unchanged forever after.
package identity

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"backchannel/domain"
)

//go:embed pools.json
var poolsFile embed.FS

// Background palette for identity icons, mirrored from the web client's
// avatar component.
var backgroundColors = []string{
	"rgb(0,163,187)",
	"rgb(161,60,180)",
	"rgb(166,50,50)",
	"rgb(241,118,167)",
	"rgb(253,87,61)",
	"rgb(255,0,122)",
	"rgb(255,0,26)",
	"rgb(27,136,122)",
	"rgb(31,161,93)",
	"rgb(93,175,221)",
	"rgb(99,120,47)",
}

type pools struct {
	AnimalNames []string `json:"animalNames"`
	IconURLs    []string `json:"iconUrls"`
}

// Repository is the persistence surface the service needs. Create must be
// atomic get-or-create: concurrent first joins on the same pair resolve to
// a single surviving row.
type Repository interface {
	FindByChannelAndSession(ctx context.Context, channelID, sessionID string) (domain.AnonymousIdentity, bool, error)
	Create(ctx context.Context, identity domain.AnonymousIdentity) (domain.AnonymousIdentity, error)
}

type Service struct {
	repository Repository
	pools      pools
}

func NewService(repository Repository) (*Service, error) {
	raw, err := poolsFile.ReadFile("pools.json")
	if err != nil {
		return nil, fmt.Errorf("reading identity pools: %w", err)
	}
	var p pools
	if err = json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing identity pools: %w", err)
	}
	if len(p.AnimalNames) == 0 || len(p.IconURLs) == 0 {
		return nil, fmt.Errorf("identity pools are empty")
	}
	return &Service{repository: repository, pools: p}, nil
}

// GetOrCreate returns the identity for the (channel, session) pair, drawing
// a fresh one on first join. The repository resolves creation races, so the
// returned identity may be the one a concurrent join persisted first.
func (s *Service) GetOrCreate(ctx context.Context, channelID, sessionID string) (domain.AnonymousIdentity, error) {
	existing, found, err := s.repository.FindByChannelAndSession(ctx, channelID, sessionID)
	if err != nil {
		return domain.AnonymousIdentity{}, err
	}
	if found {
		return existing, nil
	}

	fresh := domain.AnonymousIdentity{
		ChannelID:           channelID,
		SessionID:           sessionID,
		Name:                "Anonymous " + pick(s.pools.AnimalNames),
		IconURL:             pick(s.pools.IconURLs),
		IconBackgroundColor: pick(backgroundColors),
	}
	return s.repository.Create(ctx, fresh)
}

func pick(pool []string) string {
	return pool[rand.IntN(len(pool))]
}
