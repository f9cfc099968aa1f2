package maps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nitesh/midpoint_service/pkg/models"
)

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location models.Coordinate `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a free-form address to a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	if strings.TrimSpace(address) == "" {
		return models.Coordinate{}, errors.New("geocode: empty address")
	}
	params := url.Values{}
	params.Set("address", address)

	var out geocodeResponse
	if err := c.getJSON(ctx, "geocode", "/maps/api/geocode/json", params, &out); err != nil {
		return models.Coordinate{}, err
	}
	if err := checkStatus("geocode", out.Status, out.ErrorMessage); err != nil {
		return models.Coordinate{}, err
	}
	if len(out.Results) == 0 {
		return models.Coordinate{}, fmt.Errorf("geocode: %w", ErrNotFound)
	}
	return out.Results[0].Geometry.Location, nil
}

// ReverseGeocode returns the formatted address closest to coord.
func (c *Client) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("latlng", latLng(coord.Lat, coord.Lng))

	var out geocodeResponse
	if err := c.getJSON(ctx, "reverse_geocode", "/maps/api/geocode/json", params, &out); err != nil {
		return "", err
	}
	if err := checkStatus("reverse_geocode", out.Status, out.ErrorMessage); err != nil {
		return "", err
	}
	if len(out.Results) == 0 || out.Results[0].FormattedAddress == "" {
		return "", fmt.Errorf("reverse_geocode: %w", ErrNotFound)
	}
	return out.Results[0].FormattedAddress, nil
}
