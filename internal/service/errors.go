package service

import (
	"errors"
	"fmt"

	"github.com/nitesh/midpoint_service/internal/maps"
)

var (
	// ErrPlaceNotFound is returned by PlaceDetails for an unknown id.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrCatalogDisabled is returned by IngestPlaces when no catalog is wired.
	ErrCatalogDisabled = errors.New("place catalog is disabled")
)

// ValidationError is malformed client input. It is always returned before any
// computation or collaborator call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// GeocodeError names the input location that could not be resolved.
type GeocodeError struct {
	Index   int
	Address string
	Err     error
}

func (e *GeocodeError) Error() string {
	if e.NotFound() {
		return fmt.Sprintf("locations[%d]: could not find %q", e.Index, e.Address)
	}
	return fmt.Sprintf("locations[%d]: geocoding %q failed: %v", e.Index, e.Address, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// NotFound reports whether the provider had no match, as opposed to failing.
func (e *GeocodeError) NotFound() bool { return errors.Is(e.Err, maps.ErrNotFound) }

// UpstreamError is a failed pass-through call to the maps provider.
type UpstreamError struct {
	Operation string
	Err       error
}

func (e *UpstreamError) Error() string { return e.Operation + ": " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }
