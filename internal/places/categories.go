package places

import (
	"fmt"
	"strings"
)

// Category tags understood by the place search.
const (
	Cafe          = "cafe"
	Restaurant    = "restaurant"
	Park          = "park"
	GasStation    = "gas_station"
	ShoppingMall  = "shopping_mall"
	MovieTheater  = "movie_theater"
	Store         = "store"
	AmusementPark = "amusement_park"
	Zoo           = "zoo"
)

var knownCategories = map[string]struct{}{
	Cafe: {}, Restaurant: {}, Park: {}, GasStation: {}, ShoppingMall: {},
	MovieTheater: {}, Store: {}, AmusementPark: {}, Zoo: {},
}

// DefaultCategories is searched when a request carries no filters.
var DefaultCategories = []string{Restaurant, Cafe, Park, GasStation, ShoppingMall, MovieTheater}

var activityCategories = map[string][]string{
	"restaurants":   {Restaurant},
	"cafes":         {Cafe},
	"shopping":      {ShoppingMall, Store},
	"entertainment": {MovieTheater, AmusementPark, Zoo},
}

var fallbackCategories = []string{Restaurant, Cafe}

// CategoriesForActivity maps a UI activity label to category tags.
// Unrecognized activities get restaurants and cafes.
func CategoriesForActivity(activity string) []string {
	cats, ok := activityCategories[strings.ToLower(strings.TrimSpace(activity))]
	if !ok {
		cats = fallbackCategories
	}
	return append([]string(nil), cats...)
}

// IsKnownCategory reports whether tag is a supported category tag.
func IsKnownCategory(tag string) bool {
	_, ok := knownCategories[tag]
	return ok
}

// ValidateCategories returns an error naming the first unsupported tag.
func ValidateCategories(tags []string) error {
	for i, t := range tags {
		if !IsKnownCategory(t) {
			return fmt.Errorf("filters[%d]: unknown category %q", i, t)
		}
	}
	return nil
}

// SearchCategories returns tags deduplicated in order, or DefaultCategories when empty.
func SearchCategories(tags []string) []string {
	if len(tags) == 0 {
		return append([]string(nil), DefaultCategories...)
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
