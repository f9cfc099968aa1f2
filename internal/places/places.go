package places

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nitesh/midpoint_service/internal/geo"
	"github.com/nitesh/midpoint_service/pkg/models"
)

// DefaultMaxResults caps the places returned for one midpoint.
const DefaultMaxResults = 20

// Searcher finds raw candidate places around a point. Implementations may
// return a partial result together with a non-nil error.
type Searcher interface {
	SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error)
}

// Rank annotates each candidate with its distance from midpoint, drops
// duplicate ids (first one wins), sorts nearest first and keeps at most
// maxResults. Candidates without a usable coordinate are skipped.
func Rank(midpoint models.Coordinate, candidates []models.CandidatePlace, maxResults int) []models.RankedPlace {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	out := make([]models.RankedPlace, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		d, err := geo.Distance(midpoint, c.Coordinates)
		if err != nil {
			continue
		}
		key := dedupeKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.RankedPlace{CandidatePlace: c, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func dedupeKey(c models.CandidatePlace) string {
	if c.ID != "" {
		return "id:" + c.ID
	}
	return fmt.Sprintf("anon:%s@%.6f,%.6f", strings.ToLower(c.Name), c.Coordinates.Lat, c.Coordinates.Lng)
}
