// Package cache wraps place search and reverse geocoding with Redis and
// in-process caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nitesh/midpoint_service/internal/metrics"
	"github.com/nitesh/midpoint_service/internal/places"
	"github.com/nitesh/midpoint_service/pkg/models"
)

const DefaultPlacesTTL = 15 * time.Minute

// PlaceSearch caches complete results of the wrapped searcher in Redis.
// Partial results (returned together with an error) are never stored.
type PlaceSearch struct {
	next   places.Searcher
	rc     *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPlaceSearch(next places.Searcher, rc *redis.Client, ttl time.Duration, logger *zap.Logger) *PlaceSearch {
	if ttl <= 0 {
		ttl = DefaultPlacesTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceSearch{next: next, rc: rc, ttl: ttl, logger: logger}
}

func (p *PlaceSearch) SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error) {
	if p.rc == nil {
		return p.next.SearchNearby(ctx, near, radiusMeters, categories)
	}
	key := placesKey(near, radiusMeters, categories)

	s, err := p.rc.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached []models.CandidatePlace
		if jerr := json.Unmarshal([]byte(s), &cached); jerr == nil {
			metrics.CacheHitsTotal.WithLabelValues("places").Inc()
			return cached, nil
		}
		p.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		p.logger.Warn("places cache read failed", zap.String("key", key), zap.Error(err))
	}
	metrics.CacheMissesTotal.WithLabelValues("places").Inc()

	res, err := p.next.SearchNearby(ctx, near, radiusMeters, categories)
	if err != nil || len(res) == 0 {
		return res, err
	}
	b, jerr := json.Marshal(res)
	if jerr != nil {
		return res, nil
	}
	if serr := p.rc.Set(ctx, key, string(b), p.ttl).Err(); serr != nil {
		p.logger.Warn("places cache write failed", zap.String("key", key), zap.Error(serr))
	}
	return res, nil
}

// placesKey rounds the point to ~11 m so nearby requests share an entry.
// Category order does not matter.
func placesKey(near models.Coordinate, radiusMeters int, categories []string) string {
	cats := append([]string(nil), categories...)
	sort.Strings(cats)
	return fmt.Sprintf("places:%.4f:%.4f:%d:%s", near.Lat, near.Lng, radiusMeters, strings.Join(cats, ","))
}
