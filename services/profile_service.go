package services

import (
	"context"
	"errors"
	"strings"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/types/profile"
)

var ErrEmptyUpdate = errors.New("profile update has no fields")

type ProfileService struct {
	client *apiclient.Client
}

func NewProfileService(client *apiclient.Client) *ProfileService {
	return &ProfileService{client: client}
}

func (s *ProfileService) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var p profile.Profile
	if err := s.client.Get(ctx, "/profile", "/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileService) GetStats(ctx context.Context) (*profile.Stats, error) {
	var st profile.Stats
	if err := s.client.Get(ctx, "/profile/stats", "/profile/stats", nil, &st); err != nil {
		return nil, err
	}
	if st.Categories == nil {
		st.Categories = map[string]profile.CategoryCounts{}
	}
	return &st, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, req profile.Update) (*profile.Profile, error) {
	if req.Empty() {
		return nil, ErrEmptyUpdate
	}
	if req.Username != nil {
		trimmed := strings.TrimPrefix(strings.TrimSpace(*req.Username), "@")
		req.Username = &trimmed
	}

	var p profile.Profile
	if err := s.client.Put(ctx, "/profile", "/profile", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
