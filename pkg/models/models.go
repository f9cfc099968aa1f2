package models

import (
	"encoding/json"
	"errors"
)

var (
	ErrCoordinateNull = errors.New("coordinate must be an object with lat and lng")
	ErrLatRequired    = errors.New("coordinate: lat is required")
	ErrLngRequired    = errors.New("coordinate: lng is required")
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UnmarshalJSON rejects a coordinate whose lat or lng is missing or null,
// so that neither is read as 0.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if string(b) == "null" {
		return ErrCoordinateNull
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.Lat == nil:
		return ErrLatRequired
	case raw.Lng == nil:
		return ErrLngRequired
	}
	c.Lat, c.Lng = *raw.Lat, *raw.Lng
	return nil
}

type Photo struct {
	Reference string `json:"photo_reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	URL       string `json:"url,omitempty"`
}

// TravelSummary describes the trip from one request origin to a place.
// Fields are nil when the travel-time provider had no answer for that pair.
type TravelSummary struct {
	OriginIndex     int     `json:"originIndex"`
	Mode            string  `json:"mode"`
	DistanceMeters  *int    `json:"distanceMeters,omitempty"`
	DistanceText    *string `json:"distanceText,omitempty"`
	DurationSeconds *int    `json:"durationSeconds,omitempty"`
	DurationText    *string `json:"durationText,omitempty"`
}

// CandidatePlace is an unranked point of interest as returned by a place search.
type CandidatePlace struct {
	ID               string     `json:"place_id"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	Coordinates      Coordinate `json:"coordinates"`
	Rating           *float64   `json:"rating,omitempty"`
	UserRatingsTotal *int       `json:"user_ratings_total,omitempty"`
	PriceLevel       *int       `json:"price_level,omitempty"`
	Types            []string   `json:"types"`
	Photos           []Photo    `json:"photos,omitempty"`
}

// RankedPlace is a candidate annotated with its distance (miles) from the midpoint.
type RankedPlace struct {
	CandidatePlace
	Distance        float64         `json:"distance"`
	TravelSummaries []TravelSummary `json:"travel_summaries,omitempty"`
}

// MidpointRequest is the body of POST /api/midpoint.
// Coord1/Coord2 keep older clients that post exactly two points working.
type MidpointRequest struct {
	Coords  []Coordinate `json:"coords"`
	Coord1  *Coordinate  `json:"coord1,omitempty"`
	Coord2  *Coordinate  `json:"coord2,omitempty"`
	Filters []string     `json:"filters"`
	Mode    string       `json:"mode,omitempty"`
}

// Points returns Coords, or the legacy pair when Coords is empty.
func (r MidpointRequest) Points() []Coordinate {
	if len(r.Coords) > 0 {
		return r.Coords
	}
	out := []Coordinate{}
	if r.Coord1 != nil {
		out = append(out, *r.Coord1)
	}
	if r.Coord2 != nil {
		out = append(out, *r.Coord2)
	}
	return out
}

// AddressMidpointRequest is the body of POST /api/midpoint/addresses.
type AddressMidpointRequest struct {
	Locations []string `json:"locations"`
	Filters   []string `json:"filters"`
	Mode      string   `json:"mode,omitempty"`
}

type MidpointResult struct {
	Midpoint        Coordinate `json:"midpoint"`
	MidpointAddress string     `json:"midpointAddress"`
}

type MidpointResponse struct {
	MidpointResult
	Places       []RankedPlace `json:"places"`
	RadiusMeters int           `json:"radiusMeters"`
}

type StructuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

// PlacePrediction is one autocomplete suggestion.
type PlacePrediction struct {
	PlaceID              string               `json:"place_id"`
	Description          string               `json:"description"`
	StructuredFormatting StructuredFormatting `json:"structured_formatting"`
}

type PlaceDetails struct {
	PlaceID              string      `json:"place_id"`
	Name                 string      `json:"name"`
	FormattedAddress     string      `json:"formatted_address"`
	Coordinates          *Coordinate `json:"coordinates,omitempty"`
	FormattedPhoneNumber string      `json:"formatted_phone_number,omitempty"`
	Website              string      `json:"website,omitempty"`
	Rating               *float64    `json:"rating,omitempty"`
	Types                []string    `json:"types"`
}
