package app

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// ResultService backs the admin results screen.
type ResultService struct {
	repo   ResultRepository
	logger *zap.Logger
}

func NewResultService(repo ResultRepository, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{repo: repo, logger: logger}
}

// List returns the filtered and sorted view.
func (s *ResultService) List(ctx context.Context, query domain.ResultQuery) ([]domain.Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(all), nil
}

func (s *ResultService) Get(ctx context.Context, id string) (domain.Result, error) {
	return s.repo.Get(ctx, id)
}

func (s *ResultService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("result deleted", zap.String("resultID", id))
	return nil
}

func (s *ResultService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("all results deleted", zap.Int64("count", n))
	return n, nil
}

var exportHeader = []string{"Name", "Email", "Score", "Total", "Percentage", "Tab Changes", "Flagged", "Date"}

// Export writes the same view List returns, as CSV. It never widens the filter.
func (s *ResultService) Export(ctx context.Context, query domain.ResultQuery, w io.Writer) (int, error) {
	view, err := s.List(ctx, query)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, r := range view {
		percentage := 0.0
		if r.Total > 0 {
			percentage = float64(r.Score) * 100 / float64(r.Total)
		}
		record := []string{
			r.User.Name,
			r.User.Email,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.Total),
			strconv.FormatFloat(percentage, 'f', 1, 64),
			strconv.Itoa(r.TabChanges),
			strconv.FormatBool(r.Flagged),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(view), nil
}
