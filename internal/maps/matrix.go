package maps

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nitesh/midpoint_service/pkg/models"
)

// DefaultTravelMode is used when a request does not name one.
const DefaultTravelMode = "driving"

var travelModes = map[string]struct{}{
	"driving": {}, "walking": {}, "bicycling": {}, "transit": {},
}

// IsTravelMode reports whether mode is accepted by the Distance Matrix API.
func IsTravelMode(mode string) bool {
	_, ok := travelModes[mode]
	return ok
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

type matrixElement struct {
	Status   string `json:"status"`
	Distance *struct {
		Value int    `json:"value"`
		Text  string `json:"text"`
	} `json:"distance"`
	Duration *struct {
		Value int    `json:"value"`
		Text  string `json:"text"`
	} `json:"duration"`
}

// TravelSummaries asks the Distance Matrix for every origin → destination
// pair. The result is indexed [destination][origin]. Pairs the API could not
// route come back with only OriginIndex and Mode set.
func (c *Client) TravelSummaries(ctx context.Context, origins, destinations []models.Coordinate, mode string) ([][]models.TravelSummary, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return [][]models.TravelSummary{}, nil
	}
	if mode == "" {
		mode = DefaultTravelMode
	}
	params := url.Values{}
	params.Set("origins", joinPoints(origins))
	params.Set("destinations", joinPoints(destinations))
	params.Set("mode", mode)

	var out matrixResponse
	if err := c.getJSON(ctx, "distance_matrix", "/maps/api/distancematrix/json", params, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("distance_matrix", out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	if len(out.Rows) != len(origins) {
		return nil, fmt.Errorf("distance_matrix: got %d rows for %d origins", len(out.Rows), len(origins))
	}

	res := make([][]models.TravelSummary, len(destinations))
	for d := range destinations {
		res[d] = make([]models.TravelSummary, len(origins))
		for o := range origins {
			s := models.TravelSummary{OriginIndex: o, Mode: mode}
			elems := out.Rows[o].Elements
			if d >= len(elems) || elems[d].Status != "OK" {
				c.logger.Debug("no route for pair", zap.Int("origin", o), zap.Int("destination", d))
				res[d][o] = s
				continue
			}
			e := elems[d]
			if e.Distance != nil {
				s.DistanceMeters = &e.Distance.Value
				s.DistanceText = &e.Distance.Text
			}
			if e.Duration != nil {
				s.DurationSeconds = &e.Duration.Value
				s.DurationText = &e.Duration.Text
			}
			res[d][o] = s
		}
	}
	return res, nil
}

func joinPoints(cs []models.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = latLng(c.Lat, c.Lng)
	}
	return strings.Join(parts, "|")
}
