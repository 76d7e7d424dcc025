package services

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/types/achievement"
	"lifeQuestClient/internal/types/leaderboard"
)

var AchievementKind = collection.Kind[achievement.Achievement]{
	Name: "achievements",
	ID:   func(a achievement.Achievement) string { return a.ID },
}

var LeaderboardKind = collection.Kind[leaderboard.Entry]{
	Name: "leaderboard",
	ID:   func(e leaderboard.Entry) string { return strconv.Itoa(e.Position) },
}

type (
	AchievementSynchronizer = collection.Synchronizer[achievement.Achievement, struct{}, struct{}]
	LeaderboardSynchronizer = collection.Synchronizer[leaderboard.Entry, struct{}, struct{}]
)

type AchievementService struct {
	client *apiclient.Client

	mu          sync.Mutex
	stats       achievement.Stats
	currentUser leaderboard.CurrentUser
}

func NewAchievementService(client *apiclient.Client) *AchievementService {
	return &AchievementService{client: client}
}

// GetAchievements returns achievements with progress clamped to their
// requirement, together with the nested stats.
func (s *AchievementService) GetAchievements(ctx context.Context) ([]achievement.Achievement, achievement.Stats, error) {
	var resp achievement.ListResponse
	if err := s.client.Get(ctx, "/achievements", "/achievements", nil, &resp); err != nil {
		return nil, achievement.Stats{}, err
	}

	items := make([]achievement.Achievement, 0, len(resp.Achievements))
	for _, a := range resp.Achievements {
		items = append(items, a.Normalize())
	}
	stats := resp.Stats.Stats()

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return items, stats, nil
}

// GetLeaderboard rejects pages whose positions are not exactly 1..n.
func (s *AchievementService) GetLeaderboard(ctx context.Context) (leaderboard.Board, error) {
	const path = "/achievements/leaderboard"
	var board leaderboard.Board
	if err := s.client.Get(ctx, path, path, nil, &board); err != nil {
		return leaderboard.Board{}, err
	}
	if board.Entries == nil {
		board.Entries = []leaderboard.Entry{}
	}
	if err := leaderboard.CheckPositions(board.Entries); err != nil {
		return leaderboard.Board{}, &apiclient.DecodeError{Path: path, Err: err}
	}

	s.mu.Lock()
	s.currentUser = board.CurrentUser
	s.mu.Unlock()
	return board, nil
}

// Stats returns the stats of the last successful GetAchievements.
func (s *AchievementService) Stats() achievement.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *AchievementService) CurrentUser() leaderboard.CurrentUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}

type Overview struct {
	Achievements []achievement.Achievement `json:"achievements"`
	Stats        achievement.Stats         `json:"stats"`
	Board        leaderboard.Board         `json:"board"`
}

// Overview loads achievements and the leaderboard concurrently, as the
// achievements screen shows both.
func (s *AchievementService) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, stats, err := s.GetAchievements(ctx)
		if err != nil {
			return err
		}
		out.Achievements, out.Stats = items, stats
		return nil
	})
	g.Go(func() error {
		board, err := s.GetLeaderboard(ctx)
		if err != nil {
			return err
		}
		out.Board = board
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

type achievementSource struct{ svc *AchievementService }

func (a achievementSource) List(ctx context.Context, _ struct{}) ([]achievement.Achievement, error) {
	items, _, err := a.svc.GetAchievements(ctx)
	return items, err
}

type leaderboardSource struct{ svc *AchievementService }

func (l leaderboardSource) List(ctx context.Context, _ struct{}) ([]leaderboard.Entry, error) {
	board, err := l.svc.GetLeaderboard(ctx)
	return board.Entries, err
}

func NewAchievements(svc *AchievementService, logger *zap.Logger) *AchievementSynchronizer {
	return collection.New[achievement.Achievement, struct{}, struct{}](AchievementKind, achievementSource{svc}, collection.WithLogger(logger))
}

func NewLeaderboard(svc *AchievementService, logger *zap.Logger) *LeaderboardSynchronizer {
	return collection.New[leaderboard.Entry, struct{}, struct{}](LeaderboardKind, leaderboardSource{svc}, collection.WithLogger(logger))
}
