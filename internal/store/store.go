package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	dbtypes "github.com/nitesh/midpoint_service/internal/db"
	"github.com/nitesh/midpoint_service/internal/geo"
	"github.com/nitesh/midpoint_service/pkg/models"
)

const (
	defaultNearbyLimit = 60
	maxNearbyLimit     = 200
)

// PgStore is the Postgres place catalog. It serves nearby searches the same
// way the remote provider does so it can stand in when that is unavailable.
type PgStore struct {
	db    *sqlx.DB
	limit int
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres"), limit: defaultNearbyLimit}
}

// SetLimit bounds the rows returned by one nearby search.
func (p *PgStore) SetLimit(n int) {
	if n <= 0 || n > maxNearbyLimit {
		n = defaultNearbyLimit
	}
	p.limit = n
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS places(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  rating DOUBLE PRECISION,
  user_ratings_total INTEGER,
  price_level INTEGER,
  types JSONB NOT NULL DEFAULT '[]',
  photos JSONB NOT NULL DEFAULT '[]',
  updated_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_places_lat_lng ON places(latitude, longitude);
-- GIN index for jsonb array search on types
CREATE INDEX IF NOT EXISTS idx_places_types ON places USING GIN (types);
`
	_, err := db.Exec(initSQL)
	return err
}

type placeRow struct {
	ID               string                         `db:"id"`
	Name             string                         `db:"name"`
	Address          sql.NullString                 `db:"address"`
	Latitude         float64                        `db:"latitude"`
	Longitude        float64                        `db:"longitude"`
	Rating           *float64                       `db:"rating"`
	UserRatingsTotal *int                           `db:"user_ratings_total"`
	PriceLevel       *int                           `db:"price_level"`
	Types            dbtypes.StringSlice            `db:"types"`
	Photos           dbtypes.JSONList[models.Photo] `db:"photos"`
	DistanceMi       float64                        `db:"distance_mi"`
}

func (r placeRow) toModel() models.CandidatePlace {
	types := []string(r.Types)
	if types == nil {
		types = []string{}
	}
	return models.CandidatePlace{
		ID:               r.ID,
		Name:             r.Name,
		Address:          r.Address.String,
		Coordinates:      models.Coordinate{Lat: r.Latitude, Lng: r.Longitude},
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		PriceLevel:       r.PriceLevel,
		Types:            types,
		Photos:           []models.Photo(r.Photos),
	}
}

// SaveMany upserts places by id. Places without an id get a fresh uuid,
// written back into the slice.
func (p *PgStore) SaveMany(ctx context.Context, places []models.CandidatePlace) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	stmt := `
INSERT INTO places (id, name, address, latitude, longitude, rating, user_ratings_total, price_level, types, photos)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10::jsonb)
ON CONFLICT (id) DO UPDATE SET
 name=EXCLUDED.name,
 address=EXCLUDED.address,
 latitude=EXCLUDED.latitude,
 longitude=EXCLUDED.longitude,
 rating=EXCLUDED.rating,
 user_ratings_total=EXCLUDED.user_ratings_total,
 price_level=EXCLUDED.price_level,
 types=EXCLUDED.types,
 photos=EXCLUDED.photos,
 updated_at=now();
`

	for i := range places {
		pl := &places[i]
		if pl.ID == "" {
			pl.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, stmt,
			pl.ID,
			pl.Name,
			pl.Address,
			pl.Coordinates.Lat,
			pl.Coordinates.Lng,
			pl.Rating,
			pl.UserRatingsTotal,
			pl.PriceLevel,
			dbtypes.StringSlice(pl.Types),
			dbtypes.JSONList[models.Photo](pl.Photos),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert place id=%s: %w", pl.ID, err)
		}
	}

	return tx.Commit()
}

// SearchNearby returns catalog places within radiusMeters of near whose
// types overlap categories (any type when categories is empty), nearest first.
func (p *PgStore) SearchNearby(ctx context.Context, near models.Coordinate, radiusMeters int, categories []string) ([]models.CandidatePlace, error) {
	radiusMi := float64(radiusMeters) / geo.MetersPerMile
	if categories == nil {
		categories = []string{}
	}

	// Haversine (spherical law of cosines) computed in a subquery to avoid
	// repeating the calculation; the argument is clamped to acos' domain.
	query := `
SELECT id, name, address, latitude, longitude, rating, user_ratings_total, price_level, types, photos, distance_mi
FROM (
  SELECT
    id, name, address, latitude, longitude, rating, user_ratings_total, price_level, types, photos,
    (3959 * acos(least(1, greatest(-1,
        cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2)) +
        sin(radians($1)) * sin(radians(latitude))
    )))) AS distance_mi
  FROM places
  WHERE cardinality($4::text[]) = 0 OR jsonb_exists_any(types, $4::text[])
) AS t
WHERE distance_mi <= $3
ORDER BY distance_mi ASC
LIMIT $5;
`

	rows := []placeRow{}
	if err := p.db.SelectContext(ctx, &rows, query, near.Lat, near.Lng, radiusMi, pq.Array(categories), p.limit); err != nil {
		return nil, fmt.Errorf("catalog nearby: %w", err)
	}
	out := make([]models.CandidatePlace, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
