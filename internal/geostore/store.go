package geostore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
	"wayfinder-backend/internal/assert"
	"wayfinder-backend/internal/db"
	"wayfinder-backend/internal/scrapers/branches"
	"wayfinder-backend/internal/telemetry"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("wayfinder.geostore")

const (
	report_db_query      = "db.query"
	report_save_branches = "save-branches"
)

// Store persists scraped branch locations and the coordinates of known stores.
type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
	// now is swapped out in tests.
	now func() time.Time
}

// NewStore expects database to already carry db.Schema, see Migrate.
func NewStore(database *sql.DB, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(tel)
	return Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		tel:    tel,
		now:    time.Now,
	}
}

// Migrate creates the tables of the store if they do not exist yet.
func Migrate(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SourceKey identifies a branch within its source: the path of its page when it has
// a meaningful one, its name otherwise. An empty key means the branch cannot be saved.
func SourceKey(branch branches.ScrapedBranch) string {
	parsed, err := url.Parse(branch.PageUrl)
	if err == nil && parsed.Path != "" && parsed.Path != "/" {
		return parsed.Path
	}
	return strings.TrimSpace(branch.Name)
}

func keyHash(sourceKey string) string {
	sum := sha256.Sum256([]byte(sourceKey))
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullCoordinates(branch branches.ScrapedBranch) (lat, lng sql.NullFloat64) {
	if branch.Coordinates == nil {
		return lat, lng
	}
	lat = sql.NullFloat64{Float64: branch.Coordinates.Lat, Valid: true}
	lng = sql.NullFloat64{Float64: branch.Coordinates.Lng, Valid: true}
	return lat, lng
}

// SaveBranches upserts every branch of a scrape in one transaction and returns the
// amount of rows written. Saving the same scrape twice leaves a single row per branch.
func (s Store) SaveBranches(ctx context.Context, source string, scraped []branches.ScrapedBranch) (int, error) {
	ctx, span := tracer.Start(ctx, "SaveBranches")
	defer span.End()

	assert.NotEmptyStr(source)

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return 0, err
	}
	defer discard()

	updatedAt := s.now().Unix()
	saved := 0
	for _, branch := range scraped {
		sourceKey := SourceKey(branch)
		if sourceKey == "" {
			s.tel.ReportWarning(
				report_save_branches,
				fmt.Errorf("branch has neither a page path nor a name"),
				branch.PageUrl,
			)
			continue
		}

		lat, lng := nullCoordinates(branch)
		err = tx.UpsertBranchLocation(ctx, db.UpsertBranchLocationParams{
			Source:          source,
			KeyHash:         keyHash(sourceKey),
			SourceKey:       sourceKey,
			Name:            branch.Name,
			ListText:        branch.ListText,
			Description:     nullString(branch.Description),
			PageUrl:         branch.PageUrl,
			MapsUrl:         nullString(branch.MapsUrl),
			ResolvedMapsUrl: nullString(branch.ResolvedMapsUrl),
			Latitude:        lat,
			Longitude:       lng,
			UpdatedAt:       updatedAt,
		})
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "UpsertBranchLocation", source, sourceKey)
			return 0, err
		}
		saved++
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return 0, err
	}
	return saved, nil
}

// Location is a saved branch row.
type Location struct {
	SourceKey string
	Branch    branches.ScrapedBranch
	UpdatedAt time.Time
}

// ListBranches returns the saved branches of source ordered by name.
func (s Store) ListBranches(ctx context.Context, source string) ([]Location, error) {
	rows, err := s.qry.GetBranchLocations(ctx, source)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetBranchLocations", source)
		return nil, err
	}

	out := make([]Location, len(rows))
	for i, row := range rows {
		branch := branches.ScrapedBranch{
			Name:            row.Name,
			ListText:        row.ListText,
			Description:     row.Description.String,
			PageUrl:         row.PageUrl,
			MapsUrl:         row.MapsUrl.String,
			ResolvedMapsUrl: row.ResolvedMapsUrl.String,
		}
		if row.Latitude.Valid && row.Longitude.Valid {
			branch.Coordinates = &branches.LatLng{
				Lat: row.Latitude.Float64,
				Lng: row.Longitude.Float64,
			}
		}
		out[i] = Location{
			SourceKey: row.SourceKey,
			Branch:    branch,
			UpdatedAt: time.Unix(row.UpdatedAt, 0),
		}
	}
	return out, nil
}

// Sources lists every source that has saved branches.
func (s Store) Sources(ctx context.Context) ([]string, error) {
	sources, err := s.qry.GetBranchSources(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetBranchSources")
		return nil, err
	}
	return sources, nil
}
