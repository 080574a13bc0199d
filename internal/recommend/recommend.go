// Package recommend ranks library items for a user from engagement counters
// and curator bias.
package recommend

import (
	"cmp"
	"context"
	"slices"

	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
)

type Weights struct {
	View   float64 // per view
	Rating float64 // per point of average rating
	Quiz   float64 // per point of average quiz score
}

func DefaultWeights() Weights {
	return Weights{View: 0.2, Rating: 2, Quiz: 1}
}

func WeightsFrom(c config.RecommendConfig) Weights {
	return Weights{View: c.ViewWeight, Rating: c.RatingWeight, Quiz: c.QuizWeight}
}

type Item struct {
	ItemID int64   `json:"item_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Score is the engagement score plus item, team and user bias.
func Score(a model.ItemAggregate, w Weights) float64 {
	auto := float64(a.Views)*w.View + a.AvgRating*w.Rating + a.AvgQuiz*w.Quiz
	return auto + a.ItemBias + a.TeamBias + a.UserBias
}

// Rank scores every aggregate and sorts by score descending, ties by item id.
func Rank(aggs []model.ItemAggregate, w Weights) []Item {
	out := make([]Item, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, Item{ItemID: a.ItemID, Title: a.Title, Score: Score(a, w)})
	}
	slices.SortStableFunc(out, func(x, y Item) int {
		if c := cmp.Compare(y.Score, x.Score); c != 0 {
			return c
		}
		return cmp.Compare(x.ItemID, y.ItemID)
	})
	return out
}

type Service struct {
	repo    repository.RecommendationsRepository
	weights Weights
}

func NewService(repo repository.RecommendationsRepository, w Weights) *Service {
	return &Service{repo: repo, weights: w}
}

// For returns the top limit items for userID; limit <= 0 returns all.
func (s *Service) For(ctx context.Context, userID int64, limit int) ([]Item, error) {
	aggs, err := s.repo.Aggregates(ctx, userID)
	if err != nil {
		return nil, err
	}
	ranked := Rank(aggs, s.weights)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
