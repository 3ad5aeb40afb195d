package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/google/uuid"
)

type Predictions struct{ s *Store }

func (r *Predictions) Create(_ context.Context, l *models.PredictionLog) (*models.PredictionLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l.ID = uuid.NewString()
	c := *l
	r.s.predictions = append(r.s.predictions, &c)
	return l, nil
}

func (r *Predictions) FindRecent(_ context.Context, userID, crop string, since time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := len(r.s.predictions) - 1; i >= 0; i-- {
		l := r.s.predictions[i]
		if l.UserID == userID && l.PredictedCrop == crop && l.CreatedAt.After(since) {
			return l.ID, nil
		}
	}
	return "", common.ErrorNotFound
}

func (r *Predictions) StatisticsForUser(_ context.Context, userID string) (*models.UserPredictionStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &models.UserPredictionStats{UserID: userID}
	counts := make(map[string]int64)
	var sum float64

	for _, l := range r.s.predictions {
		if l.UserID != userID {
			continue
		}
		st.TotalPredictions++
		sum += l.Confidence
		counts[l.PredictedCrop]++

		at := l.CreatedAt
		if st.FirstPredictionAt == nil || at.Before(*st.FirstPredictionAt) {
			st.FirstPredictionAt = &at
		}
		if st.LastPredictionAt == nil || at.After(*st.LastPredictionAt) {
			st.LastPredictionAt = &at
		}
	}
	if st.TotalPredictions > 0 {
		st.AverageConfidence = sum / float64(st.TotalPredictions)
	}
	st.CropDistribution = distribution(counts)

	return st, nil
}

func (r *Predictions) GlobalStats(_ context.Context) (*models.GlobalStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &models.GlobalStats{}
	counts := make(map[string]int64)
	users := make(map[string]struct{})

	for _, l := range r.s.predictions {
		st.TotalPredictions++
		counts[l.PredictedCrop]++
		users[l.UserID] = struct{}{}
	}
	st.TotalUsers = int64(len(users))
	st.CropDistribution = distribution(counts)

	return st, nil
}

// distribution orders buckets by count descending, then by crop name.
func distribution(counts map[string]int64) []models.CropCount {
	out := make([]models.CropCount, 0, len(counts))
	for crop, n := range counts {
		out = append(out, models.CropCount{Crop: crop, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Crop < out[j].Crop
	})
	return out
}
