package services

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/types/challenge"
)

var ChallengeKind = collection.Kind[challenge.Challenge]{
	Name: "challenges",
	ID:   func(c challenge.Challenge) string { return c.ID },
}

type ChallengeSynchronizer = collection.Synchronizer[challenge.Challenge, challenge.Type, struct{}]

type ChallengeService struct {
	client *apiclient.Client
}

func NewChallengeService(client *apiclient.Client) *ChallengeService {
	return &ChallengeService{client: client}
}

// List returns the challenges of one type.
func (s *ChallengeService) List(ctx context.Context, typ challenge.Type) ([]challenge.Challenge, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown challenge type %q", typ)
	}
	var resp challenge.ListResponse
	if err := s.client.Get(ctx, "/challenges", "/challenges", url.Values{"type": {string(typ)}}, &resp); err != nil {
		return nil, err
	}
	if resp.Challenges == nil {
		resp.Challenges = []challenge.Challenge{}
	}
	return resp.Challenges, nil
}

func NewChallenges(client *apiclient.Client, logger *zap.Logger) *ChallengeSynchronizer {
	return collection.New[challenge.Challenge, challenge.Type, struct{}](ChallengeKind, NewChallengeService(client), collection.WithLogger(logger))
}
