package maps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nitesh/midpoint_service/pkg/models"
)

const (
	photoMaxWidth     = 400
	nearbyParallelism = 4
)

type nearbyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []nearbyPlace `json:"results"`
}

type nearbyPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
		Height         int    `json:"height"`
		Width          int    `json:"width"`
	} `json:"photos"`
	Geometry *struct {
		Location models.Coordinate `json:"location"`
	} `json:"geometry"`
}

// SearchNearby runs one Nearby Search per category (the API takes a single
// type per call) and concatenates the results in category order. A category
// that fails does not discard the others: whatever succeeded is returned
// together with the joined errors.
func (c *Client) SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error) {
	if len(categories) == 0 {
		return []models.CandidatePlace{}, nil
	}
	results := make([][]models.CandidatePlace, len(categories))
	errs := make([]error, len(categories))

	var g errgroup.Group
	g.SetLimit(nearbyParallelism)
	for i, category := range categories {
		g.Go(func() error {
			results[i], errs[i] = c.searchCategory(ctx, near, radiusMeters, category)
			return nil
		})
	}
	_ = g.Wait()

	out := []models.CandidatePlace{}
	for i := range categories {
		out = append(out, results[i]...)
		if errs[i] != nil {
			c.logger.Warn("nearby search failed for category",
				zap.String("category", categories[i]),
				zap.Error(errs[i]),
			)
		}
	}
	return out, errors.Join(errs...)
}

func (c *Client) searchCategory(ctx context.Context, near models.Coordinate, radiusMeters int, category string) ([]models.CandidatePlace, error) {
	params := url.Values{}
	params.Set("location", latLng(near.Lat, near.Lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", category)

	var out nearbyResponse
	if err := c.getJSON(ctx, "nearby_search", "/maps/api/place/nearbysearch/json", params, &out); err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}
	if out.Status == "ZERO_RESULTS" {
		return []models.CandidatePlace{}, nil
	}
	if err := checkStatus("nearby_search", out.Status, out.ErrorMessage); err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}

	places := make([]models.CandidatePlace, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Geometry == nil {
			continue
		}
		places = append(places, c.toCandidate(r))
	}
	return places, nil
}

func (c *Client) toCandidate(r nearbyPlace) models.CandidatePlace {
	addr := r.Vicinity
	if addr == "" {
		addr = r.FormattedAddress
	}
	types := r.Types
	if types == nil {
		types = []string{}
	}
	p := models.CandidatePlace{
		ID:               r.PlaceID,
		Name:             r.Name,
		Address:          addr,
		Coordinates:      r.Geometry.Location,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		PriceLevel:       r.PriceLevel,
		Types:            types,
	}
	for _, ph := range r.Photos {
		p.Photos = append(p.Photos, models.Photo{
			Reference: ph.PhotoReference,
			Width:     ph.Width,
			Height:    ph.Height,
			URL:       c.PhotoURL(ph.PhotoReference, photoMaxWidth),
		})
	}
	return p
}

// PhotoURL builds a Place Photo URL for reference.
func (c *Client) PhotoURL(reference string, maxWidth int) string {
	if c.apiKey == "" || reference == "" {
		return ""
	}
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("photo_reference", reference)
	params.Set("key", c.apiKey)
	return c.baseURL + "/maps/api/place/photo?" + params.Encode()
}
