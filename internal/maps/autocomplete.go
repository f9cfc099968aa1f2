package maps

import (
	"context"
	"net/url"
	"strings"

	"github.com/nitesh/midpoint_service/pkg/models"
)

const detailsFields = "place_id,name,formatted_address,geometry,formatted_phone_number,website,rating,types"

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting *struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

// Autocomplete returns address predictions for a partial input. Predictions
// without a description are dropped; a missing main text is derived from the
// description ("Main, rest of address").
func (c *Client) Autocomplete(ctx context.Context, input, sessionToken string) ([]models.PlacePrediction, error) {
	params := url.Values{}
	params.Set("input", input)
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var out autocompleteResponse
	if err := c.getJSON(ctx, "autocomplete", "/maps/api/place/autocomplete/json", params, &out); err != nil {
		return nil, err
	}
	if out.Status == "ZERO_RESULTS" {
		return []models.PlacePrediction{}, nil
	}
	if err := checkStatus("autocomplete", out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}

	res := make([]models.PlacePrediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			continue
		}
		pred := models.PlacePrediction{PlaceID: p.PlaceID, Description: desc}
		if p.StructuredFormatting != nil && p.StructuredFormatting.MainText != "" {
			pred.StructuredFormatting = models.StructuredFormatting{
				MainText:      p.StructuredFormatting.MainText,
				SecondaryText: p.StructuredFormatting.SecondaryText,
			}
		} else {
			pred.StructuredFormatting = splitDescription(desc)
		}
		res = append(res, pred)
	}
	return res, nil
}

func splitDescription(desc string) models.StructuredFormatting {
	main, rest, found := strings.Cut(desc, ",")
	main, rest = strings.TrimSpace(main), strings.TrimSpace(rest)
	if !found || main == "" {
		return models.StructuredFormatting{MainText: desc}
	}
	return models.StructuredFormatting{MainText: main, SecondaryText: rest}
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       *struct {
		PlaceID              string   `json:"place_id"`
		Name                 string   `json:"name"`
		FormattedAddress     string   `json:"formatted_address"`
		FormattedPhoneNumber string   `json:"formatted_phone_number"`
		Website              string   `json:"website"`
		Rating               *float64 `json:"rating"`
		Types                []string `json:"types"`
		Geometry             *struct {
			Location models.Coordinate `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

// Details fetches a single place by id.
func (c *Client) Details(ctx context.Context, placeID, sessionToken string) (*models.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var out detailsResponse
	if err := c.getJSON(ctx, "place_details", "/maps/api/place/details/json", params, &out); err != nil {
		return nil, err
	}
	if err := checkStatus("place_details", out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, checkStatus("place_details", "NOT_FOUND", "")
	}
	r := out.Result
	d := &models.PlaceDetails{
		PlaceID:              r.PlaceID,
		Name:                 r.Name,
		FormattedAddress:     r.FormattedAddress,
		FormattedPhoneNumber: r.FormattedPhoneNumber,
		Website:              r.Website,
		Rating:               r.Rating,
		Types:                r.Types,
	}
	if d.Types == nil {
		d.Types = []string{}
	}
	if r.Geometry != nil {
		loc := r.Geometry.Location
		d.Coordinates = &loc
	}
	return d, nil
}
