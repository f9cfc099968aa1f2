package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/nitesh/midpoint_service/pkg/models"
)

// Chain asks each searcher in turn and returns the first non-empty result.
// Errors from searchers that were tried are joined and returned alongside it.
type Chain []Searcher

func (c Chain) SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error) {
	var errs []error
	for i, s := range c {
		res, err := s.SearchNearby(ctx, near, radiusMeters, categories)
		if err != nil {
			errs = append(errs, fmt.Errorf("searcher %d: %w", i, err))
		}
		if len(res) > 0 {
			return res, errors.Join(errs...)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
