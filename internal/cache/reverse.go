package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nitesh/midpoint_service/internal/metrics"
	"github.com/nitesh/midpoint_service/pkg/models"
)

// ReverseGeocoder is the collaborator being cached.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error)
}

// ReverseGeocode keeps reverse geocoding answers in process memory.
// Failures are not cached.
type ReverseGeocode struct {
	next  ReverseGeocoder
	cache *gocache.Cache
}

func NewReverseGeocode(next ReverseGeocoder, ttl time.Duration) *ReverseGeocode {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReverseGeocode{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (r *ReverseGeocode) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	key := fmt.Sprintf("%.4f:%.4f", coord.Lat, coord.Lng)
	if v, ok := r.cache.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("reverse_geocode").Inc()
		return v.(string), nil
	}
	metrics.CacheMissesTotal.WithLabelValues("reverse_geocode").Inc()

	addr, err := r.next.ReverseGeocode(ctx, coord)
	if err != nil {
		return "", err
	}
	r.cache.SetDefault(key, addr)
	return addr, nil
}
