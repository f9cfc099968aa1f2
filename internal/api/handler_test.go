package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nitesh/midpoint_service/internal/maps"
	"github.com/nitesh/midpoint_service/internal/service"
	"github.com/nitesh/midpoint_service/pkg/models"
)

type fakeSearcher struct {
	res []models.CandidatePlace
	err error
}

func (f *fakeSearcher) SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error) {
	return f.res, f.err
}

type fakeMaps struct {
	geocoded     map[string]models.Coordinate
	geocodeErr   error
	lastToken    string
	predictions  []models.PlacePrediction
	details      map[string]*models.PlaceDetails
	reverseAddr  string
	travelCalled bool
}

func (f *fakeMaps) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	if f.geocodeErr != nil {
		return models.Coordinate{}, f.geocodeErr
	}
	c, ok := f.geocoded[address]
	if !ok {
		return models.Coordinate{}, fmt.Errorf("geocode: %w", maps.ErrNotFound)
	}
	return c, nil
}

func (f *fakeMaps) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	return f.reverseAddr, nil
}

func (f *fakeMaps) TravelSummaries(ctx context.Context, origins, destinations []models.Coordinate, mode string) ([][]models.TravelSummary, error) {
	f.travelCalled = true
	return nil, errors.New("distance_matrix: api status REQUEST_DENIED")
}

func (f *fakeMaps) Autocomplete(ctx context.Context, input, token string) ([]models.PlacePrediction, error) {
	f.lastToken = token
	return f.predictions, nil
}

func (f *fakeMaps) Details(ctx context.Context, placeID, token string) (*models.PlaceDetails, error) {
	f.lastToken = token
	d, ok := f.details[placeID]
	if !ok {
		return nil, fmt.Errorf("place_details: %w", maps.ErrNotFound)
	}
	return d, nil
}

type fakeCatalog struct{ saved []models.CandidatePlace }

func (f *fakeCatalog) SaveMany(ctx context.Context, in []models.CandidatePlace) error {
	f.saved = append(f.saved, in...)
	return nil
}

var (
	sanFrancisco = models.Coordinate{Lat: 37.7749, Lng: -122.4194}
	sanJose      = models.Coordinate{Lat: 37.3382, Lng: -121.8863}
)

type testEnv struct {
	router   *gin.Engine
	searcher *fakeSearcher
	maps     *fakeMaps
	catalog  *fakeCatalog
}

func newTestEnv(t *testing.T, withCatalog bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		searcher: &fakeSearcher{res: []models.CandidatePlace{
			{ID: "belmont", Name: "Belmont Diner", Coordinates: models.Coordinate{Lat: 37.5585, Lng: -122.2711}, Types: []string{"restaurant"}},
			{ID: "fremont", Name: "Fremont Grill", Coordinates: models.Coordinate{Lat: 37.5483, Lng: -122.0586}, Types: []string{"restaurant"}},
			{ID: "belmont", Name: "Belmont Diner", Coordinates: models.Coordinate{Lat: 37.5585, Lng: -122.2711}},
		}},
		maps: &fakeMaps{
			geocoded:    map[string]models.Coordinate{"San Francisco, CA": sanFrancisco, "San Jose, CA": sanJose},
			reverseAddr: "Redwood Shores, CA 94065, USA",
			details:     map[string]*models.PlaceDetails{"abc": {PlaceID: "abc", Name: "Ferry Building", Types: []string{}}},
		},
		catalog: &fakeCatalog{},
	}
	deps := service.Deps{
		Geocoder: env.maps,
		Reverse:  env.maps,
		Searcher: env.searcher,
		Travel:   env.maps,
		Lookup:   env.maps,
	}
	if withCatalog {
		deps.Catalog = env.catalog
	}
	svc := service.NewService(deps, service.Options{}, zap.NewNop())

	env.router = gin.New()
	RegisterRoutes(env.router, NewHandler(svc))
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestMidpointSanFranciscoSanJose(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/midpoint", models.MidpointRequest{
		Coords:  []models.Coordinate{sanFrancisco, sanJose},
		Filters: []string{"restaurant", "cafe"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.MidpointResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.InDelta(t, 37.5568, res.Midpoint.Lat, 0.001)
	assert.InDelta(t, -122.1521, res.Midpoint.Lng, 0.001)
	assert.Equal(t, "Redwood Shores, CA 94065, USA", res.MidpointAddress)
	require.Len(t, res.Places, 2)
	assert.Equal(t, "fremont", res.Places[0].ID)
	assert.Equal(t, "belmont", res.Places[1].ID)
	assert.Less(t, res.Places[0].Distance, res.Places[1].Distance)
	assert.True(t, env.maps.travelCalled)
	assert.Nil(t, res.Places[0].TravelSummaries)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "midpointAddress")
	assert.Contains(t, raw, "radiusMeters")
}

func TestMidpointInvalidLatitude(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/midpoint", `{"coords":[{"lat":91,"lng":0},{"lat":0,"lng":0}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg := decodeMessage(t, w)
	assert.Contains(t, msg, "coords[0]")
	assert.Contains(t, msg, "91")
	assert.NotContains(t, w.Body.String(), "places")
}

func TestMidpointBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"coords":`, "invalid json"},
		{"wrong type", `{"coords":"here"}`, "invalid json"},
		{"single coordinate", `{"coords":[{"lat":1,"lng":1}]}`, "at least 2 coordinates"},
		{"unknown filter", `{"coords":[{"lat":1,"lng":1},{"lat":2,"lng":2}],"filters":["spa"]}`, "unknown category"},
		{"missing lat", `{"coords":[{"lng":-122.4194},{"lat":37.3382,"lng":-121.8863}],"filters":[]}`, "lat is required"},
		{"null lat", `{"coords":[{"lat":37.7749,"lng":-122.4194},{"lat":null,"lng":-121.8863}],"filters":[]}`, "lat is required"},
		{"missing lng", `{"coords":[{"lat":37.7749},{"lat":37.3382,"lng":-121.8863}]}`, "lng is required"},
		{"null coordinate", `{"coords":[{"lat":37.7749,"lng":-122.4194},null]}`, "must be an object"},
		{"legacy pair missing lng", `{"coord1":{"lat":37.7749},"coord2":{"lat":37.3382,"lng":-121.8863}}`, "lng is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			w := env.do(t, http.MethodPost, "/api/midpoint", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeMessage(t, w), tt.want)
			assert.NotContains(t, w.Body.String(), `"places"`)
		})
	}
}

func TestMidpointLegacyShape(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/midpoint",
		`{"coord1":{"lat":37.7749,"lng":-122.4194},"coord2":{"lat":37.3382,"lng":-121.8863}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMidpointSearchUnavailable(t *testing.T) {
	env := newTestEnv(t, false)
	env.searcher.res, env.searcher.err = nil, maps.ErrNoAPIKey

	w := env.do(t, http.MethodPost, "/api/midpoint", models.MidpointRequest{Coords: []models.Coordinate{sanFrancisco, sanJose}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"places":[]`)

	var res models.MidpointResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.InDelta(t, 37.557, res.Midpoint.Lat, 0.01)
	assert.NotZero(t, res.RadiusMeters)
}

func TestMidpointEmptyPlacesIsArray(t *testing.T) {
	env := newTestEnv(t, false)
	env.searcher.res = []models.CandidatePlace{}

	w := env.do(t, http.MethodPost, "/api/midpoint", models.MidpointRequest{Coords: []models.Coordinate{sanFrancisco, sanJose}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"places":[]`)
}

func TestMidpointForAddresses(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/midpoint/addresses", models.AddressMidpointRequest{
		Locations: []string{"San Francisco, CA", "San Jose, CA"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/midpoint/addresses", models.AddressMidpointRequest{
		Locations: []string{"San Francisco, CA", "Atlantis"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeMessage(t, w), "Atlantis")

	env.maps.geocodeErr = errors.New("geocode: request failed: connection refused")
	w = env.do(t, http.MethodPost, "/api/midpoint/addresses", models.AddressMidpointRequest{
		Locations: []string{"San Francisco, CA", "San Jose, CA"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, false)
	tests := map[string][]string{
		"shopping":      {"shopping_mall", "store"},
		"Entertainment": {"movie_theater", "amusement_park", "zoo"},
		"":              {"restaurant", "cafe"},
	}
	for activity, want := range tests {
		w := env.do(t, http.MethodGet, "/api/categories?activity="+activity, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Activity   string   `json:"activity"`
			Categories []string `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, activity, body.Activity)
		assert.Equal(t, want, body.Categories)
	}
}

func TestAutocompleteGeneratesSessionToken(t *testing.T) {
	env := newTestEnv(t, false)
	env.maps.predictions = []models.PlacePrediction{{PlaceID: "a", Description: "Oakland, CA, USA"}}

	w := env.do(t, http.MethodGet, "/api/places/autocomplete?input=oak", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(env.maps.lastToken)
	assert.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/places/autocomplete?input=oak&sessionToken=abc-123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", env.maps.lastToken)

	var preds []models.PlacePrediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preds))
	assert.Len(t, preds, 1)

	w = env.do(t, http.MethodGet, "/api/places/autocomplete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetails(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/places/details?placeId=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ferry Building")

	w = env.do(t, http.MethodGet, "/api/places/details?placeId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/places/ingest", []models.CandidatePlace{
		{Name: "Local Diner", Coordinates: models.Coordinate{Lat: 37.6, Lng: -122.2}},
		{ID: "g-1", Name: "Philz", Coordinates: models.Coordinate{Lat: 37.5, Lng: -122.1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"meta":{"imported":2}}`, w.Body.String())
	assert.Len(t, env.catalog.saved, 2)

	w = env.do(t, http.MethodPost, "/api/places/ingest", `[{"name":"x","coordinates":{"lat":100,"lng":0}}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/places/ingest", `[{"name":"y","coordinates":{"lat":37.5}}]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeMessage(t, w), "lng is required")
	assert.Len(t, env.catalog.saved, 2)
}

func TestIngestWithoutCatalog(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/places/ingest", `[{"name":"x","coordinates":{"lat":1,"lng":1}}]`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{&service.GeocodeError{Err: maps.ErrNotFound}, http.StatusBadRequest},
		{&service.GeocodeError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{&service.UpstreamError{Operation: "autocomplete", Err: errors.New("x")}, http.StatusBadGateway},
		{fmt.Errorf("%w: abc", service.ErrPlaceNotFound), http.StatusNotFound},
		{service.ErrCatalogDisabled, http.StatusServiceUnavailable},
		{errors.New("save places: tx closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
