package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nitesh/midpoint_service/internal/geo"
	"github.com/nitesh/midpoint_service/internal/maps"
	"github.com/nitesh/midpoint_service/internal/metrics"
	"github.com/nitesh/midpoint_service/internal/places"
	"github.com/nitesh/midpoint_service/pkg/models"
)

// Distance Matrix request limits.
const (
	maxMatrixOrigins  = 25
	maxMatrixElements = 100
)

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinate, error)
}

type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error)
}

type TravelEstimator interface {
	TravelSummaries(ctx context.Context, origins, destinations []models.Coordinate, mode string) ([][]models.TravelSummary, error)
}

type PlaceLookup interface {
	Autocomplete(ctx context.Context, input, sessionToken string) ([]models.PlacePrediction, error)
	Details(ctx context.Context, placeID, sessionToken string) (*models.PlaceDetails, error)
}

type Catalog interface {
	SaveMany(ctx context.Context, places []models.CandidatePlace) error
}

// Deps are the collaborators a Service talks to. Catalog may be nil.
type Deps struct {
	Geocoder Geocoder
	Reverse  ReverseGeocoder
	Searcher places.Searcher
	Travel   TravelEstimator
	Lookup   PlaceLookup
	Catalog  Catalog
}

type Options struct {
	// MaxResults caps ranked places; 0 means places.DefaultMaxResults.
	MaxResults int
	// RadiusMiles fixes the search radius; 0 derives it from the input spread.
	RadiusMiles float64
	// TravelMode is used when a request does not name one.
	TravelMode string
}

type Service struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxResults <= 0 || opts.MaxResults > places.DefaultMaxResults {
		opts.MaxResults = places.DefaultMaxResults
	}
	if !maps.IsTravelMode(opts.TravelMode) {
		opts.TravelMode = maps.DefaultTravelMode
	}
	return &Service{deps: deps, opts: opts, logger: logger}
}

// FindMidpoint computes the meeting point for the request's coordinates and
// ranks nearby places around it.
func (s *Service) FindMidpoint(ctx context.Context, req models.MidpointRequest) (*models.MidpointResponse, error) {
	start := time.Now()
	resp, err := s.findMidpoint(ctx, req)
	metrics.MidpointDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	metrics.MidpointRequestsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	metrics.PlacesReturned.Observe(float64(len(resp.Places)))
	return resp, nil
}

func (s *Service) findMidpoint(ctx context.Context, req models.MidpointRequest) (*models.MidpointResponse, error) {
	points := req.Points()
	mode, err := s.validate(points, req.Filters, req.Mode)
	if err != nil {
		return nil, err
	}

	mid, err := geo.Midpoint(points)
	if err != nil {
		// ErrUndefinedMidpoint: the inputs cancel out on the sphere.
		return nil, invalid("coords: %v", err)
	}
	mid = geo.Correct(mid, points)

	radius := s.radiusMeters(points)
	categories := places.SearchCategories(req.Filters)

	var (
		address    string
		candidates []models.CandidatePlace
		searchErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		address = s.midpointAddress(ctx, mid)
		return nil
	})
	g.Go(func() error {
		candidates, searchErr = s.deps.Searcher.SearchNearby(ctx, mid, radius, categories)
		return nil
	})
	_ = g.Wait()

	// A failed search degrades to fewer (or no) places; the midpoint is
	// still returned.
	if searchErr != nil {
		metrics.DegradedTotal.WithLabelValues("place_search").Inc()
		s.logger.Warn("place search failed",
			zap.Int("candidates", len(candidates)),
			zap.Error(searchErr),
		)
	}

	ranked := places.Rank(mid, candidates, s.opts.MaxResults)
	s.attachTravel(ctx, points, ranked, mode)

	s.logger.Info("midpoint computed",
		zap.Int("inputs", len(points)),
		zap.Float64("lat", mid.Lat),
		zap.Float64("lng", mid.Lng),
		zap.Int("radius_m", radius),
		zap.Int("candidates", len(candidates)),
		zap.Int("places", len(ranked)),
	)

	return &models.MidpointResponse{
		MidpointResult: models.MidpointResult{Midpoint: mid, MidpointAddress: address},
		Places:         ranked,
		RadiusMeters:   radius,
	}, nil
}

// FindMidpointForAddresses geocodes every location and then runs FindMidpoint.
// The first location that cannot be resolved fails the request.
func (s *Service) FindMidpointForAddresses(ctx context.Context, req models.AddressMidpointRequest) (*models.MidpointResponse, error) {
	if len(req.Locations) < 2 {
		return nil, invalid("at least 2 locations are required")
	}
	locations := make([]string, len(req.Locations))
	for i, l := range req.Locations {
		locations[i] = strings.TrimSpace(l)
		if locations[i] == "" {
			return nil, invalid("locations[%d] is empty", i)
		}
	}
	if err := places.ValidateCategories(req.Filters); err != nil {
		return nil, invalid("%v", err)
	}
	if _, err := s.travelMode(req.Mode); err != nil {
		return nil, err
	}

	coords := make([]models.Coordinate, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, addr := range locations {
		g.Go(func() error {
			c, err := s.deps.Geocoder.Geocode(gctx, addr)
			if err != nil {
				return &GeocodeError{Index: i, Address: addr, Err: err}
			}
			coords[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("geocoding failed", zap.Error(err))
		metrics.MidpointRequestsTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	return s.FindMidpoint(ctx, models.MidpointRequest{Coords: coords, Filters: req.Filters, Mode: req.Mode})
}

// Autocomplete returns address predictions for a partial input.
func (s *Service) Autocomplete(ctx context.Context, input, sessionToken string) ([]models.PlacePrediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, invalid("input is required")
	}
	res, err := s.deps.Lookup.Autocomplete(ctx, input, sessionToken)
	if err != nil {
		if errors.Is(err, maps.ErrNotFound) {
			return []models.PlacePrediction{}, nil
		}
		return nil, &UpstreamError{Operation: "autocomplete", Err: err}
	}
	return res, nil
}

// PlaceDetails fetches a single place by its provider id.
func (s *Service) PlaceDetails(ctx context.Context, placeID, sessionToken string) (*models.PlaceDetails, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, invalid("placeId is required")
	}
	d, err := s.deps.Lookup.Details(ctx, placeID, sessionToken)
	if err != nil {
		if errors.Is(err, maps.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlaceNotFound, placeID)
		}
		return nil, &UpstreamError{Operation: "place details", Err: err}
	}
	return d, nil
}

// IngestPlaces validates and upserts places into the catalog and returns how
// many were written.
func (s *Service) IngestPlaces(ctx context.Context, in []models.CandidatePlace) (int, error) {
	if s.deps.Catalog == nil {
		return 0, ErrCatalogDisabled
	}
	for i, p := range in {
		if strings.TrimSpace(p.Name) == "" {
			return 0, invalid("places[%d]: name is required", i)
		}
		if err := geo.Validate(p.Coordinates); err != nil {
			return 0, invalid("places[%d]: %v", i, err)
		}
		if p.Types == nil {
			in[i].Types = []string{}
		}
	}
	if len(in) == 0 {
		return 0, nil
	}
	if err := s.deps.Catalog.SaveMany(ctx, in); err != nil {
		return 0, fmt.Errorf("save places: %w", err)
	}
	s.logger.Info("places ingested", zap.Int("count", len(in)))
	return len(in), nil
}

func (s *Service) validate(points []models.Coordinate, filters []string, mode string) (string, error) {
	if len(points) < 2 {
		return "", invalid("at least 2 coordinates are required, got %d", len(points))
	}
	for i, c := range points {
		if err := geo.Validate(c); err != nil {
			return "", invalid("coords[%d]: %v", i, err)
		}
	}
	if err := places.ValidateCategories(filters); err != nil {
		return "", invalid("%v", err)
	}
	return s.travelMode(mode)
}

func (s *Service) travelMode(mode string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return s.opts.TravelMode, nil
	}
	if !maps.IsTravelMode(mode) {
		return "", invalid("mode: unsupported travel mode %q", mode)
	}
	return mode, nil
}

func (s *Service) radiusMeters(points []models.Coordinate) int {
	if s.opts.RadiusMiles > 0 {
		return geo.ClampRadiusMeters(int(geo.MilesToMeters(s.opts.RadiusMiles)))
	}
	return geo.SearchRadiusMeters(points)
}

// midpointAddress never fails: without a reverse geocoder answer the
// formatted coordinate is used.
func (s *Service) midpointAddress(ctx context.Context, mid models.Coordinate) string {
	if s.deps.Reverse != nil {
		addr, err := s.deps.Reverse.ReverseGeocode(ctx, mid)
		if err == nil && addr != "" {
			return addr
		}
		metrics.DegradedTotal.WithLabelValues("reverse_geocode").Inc()
		s.logger.Warn("reverse geocoding failed, using coordinates", zap.Error(err))
	}
	return geo.FormatCoordinate(mid)
}

// attachTravel fills TravelSummaries in place. Destinations are split so that
// each Distance Matrix call stays under its element limit. Any failure leaves
// the places without summaries.
func (s *Service) attachTravel(ctx context.Context, origins []models.Coordinate, ranked []models.RankedPlace, mode string) {
	if s.deps.Travel == nil || len(ranked) == 0 {
		return
	}
	if len(origins) > maxMatrixOrigins {
		s.logger.Debug("too many origins for travel summaries", zap.Int("origins", len(origins)))
		return
	}
	chunk := max(1, maxMatrixElements/len(origins))

	summaries := make([][]models.TravelSummary, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for lo := 0; lo < len(ranked); lo += chunk {
		hi := min(lo+chunk, len(ranked))
		g.Go(func() error {
			dests := make([]models.Coordinate, 0, hi-lo)
			for _, p := range ranked[lo:hi] {
				dests = append(dests, p.Coordinates)
			}
			res, err := s.deps.Travel.TravelSummaries(gctx, origins, dests, mode)
			if err != nil {
				return err
			}
			if len(res) != len(dests) {
				return fmt.Errorf("travel summaries: got %d rows for %d places", len(res), len(dests))
			}
			copy(summaries[lo:hi], res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.DegradedTotal.WithLabelValues("travel_time").Inc()
		s.logger.Warn("travel summaries unavailable", zap.Error(err))
		return
	}
	for i := range ranked {
		ranked[i].TravelSummaries = summaries[i]
	}
}

func outcome(err error) string {
	var (
		ve *ValidationError
		ge *GeocodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ge) && ge.NotFound():
		return "invalid"
	default:
		return "upstream_error"
	}
}
