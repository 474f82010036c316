package geostore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"wayfinder-backend/internal/db"
	"wayfinder-backend/internal/scrapers/branches"
	"wayfinder-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

const DefaultMinSimilarity = 0.92

type MatchOptions struct {
	// Fuzzy matches stores left over by exact name equality against branches with a
	// similar normalized name.
	Fuzzy bool
	// MinSimilarity is the lowest accepted Jaro-Winkler similarity, 0 means
	// DefaultMinSimilarity.
	MinSimilarity float64
}

func (o MatchOptions) minSimilarity() float64 {
	if o.MinSimilarity <= 0 {
		return DefaultMinSimilarity
	}
	return o.MinSimilarity
}

// StoreMatch is a store that received the coordinates of a branch.
type StoreMatch struct {
	Store       string
	Branch      string
	Similarity  float64
	Coordinates branches.LatLng
}

// MatchStores pairs store names with located branches. A store is paired with a branch
// whose name is exactly equal first, with fuzzy matching enabled the remaining stores
// are paired with the most similar remaining branch. Every store and every branch
// appears in at most one match.
func MatchStores(stores []string, scraped []branches.ScrapedBranch, opts MatchOptions) []StoreMatch {
	var located []branches.ScrapedBranch
	for _, b := range scraped {
		if b.Coordinates != nil && b.Name != "" {
			located = append(located, b)
		}
	}

	var result []StoreMatch
	matchedStore := make(map[int]struct{})
	matchedBranch := make(map[int]struct{})

	for si, store := range stores {
		for bi, branch := range located {
			if _, ok := matchedBranch[bi]; ok {
				continue
			}
			if store != branch.Name {
				continue
			}
			result = append(result, StoreMatch{
				Store:       store,
				Branch:      branch.Name,
				Similarity:  1,
				Coordinates: *branch.Coordinates,
			})
			matchedStore[si] = struct{}{}
			matchedBranch[bi] = struct{}{}
			break
		}
	}

	if !opts.Fuzzy {
		return result
	}

	threshold := opts.minSimilarity()
	for si, store := range stores {
		if _, ok := matchedStore[si]; ok {
			continue
		}
		normalizedStore := textutil.NormalizeName(store)

		bestIndex := -1
		var bestSimilarity float64
		for bi, branch := range located {
			if _, ok := matchedBranch[bi]; ok {
				continue
			}
			similarity := matchr.JaroWinkler(normalizedStore, textutil.NormalizeName(branch.Name), false)
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				bestIndex = bi
			}
		}
		if bestIndex < 0 || bestSimilarity < threshold {
			continue
		}

		branch := located[bestIndex]
		result = append(result, StoreMatch{
			Store:       store,
			Branch:      branch.Name,
			Similarity:  bestSimilarity,
			Coordinates: *branch.Coordinates,
		})
		matchedStore[si] = struct{}{}
		matchedBranch[bestIndex] = struct{}{}
	}

	return result
}

// UpdateStoreCoordinates copies the coordinates of scraped branches onto the stores
// they match, see MatchStores. The matches that were written are returned.
func (s Store) UpdateStoreCoordinates(ctx context.Context, scraped []branches.ScrapedBranch, opts MatchOptions) ([]StoreMatch, error) {
	ctx, span := tracer.Start(ctx, "UpdateStoreCoordinates")
	defer span.End()

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return nil, err
	}
	defer discard()

	stores, err := tx.GetAllStores(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetAllStores")
		return nil, err
	}
	names := make([]string, len(stores))
	ids := make(map[string]int64, len(stores))
	for i, store := range stores {
		names[i] = store.Name
		ids[store.Name] = store.ID
	}

	matches := MatchStores(names, scraped, opts)
	for _, m := range matches {
		err = tx.UpdateStoreCoordinates(ctx, db.UpdateStoreCoordinatesParams{
			ID:        ids[m.Store],
			Latitude:  sql.NullFloat64{Float64: m.Coordinates.Lat, Valid: true},
			Longitude: sql.NullFloat64{Float64: m.Coordinates.Lng, Valid: true},
		})
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "UpdateStoreCoordinates", m.Store)
			return nil, err
		}
		if m.Similarity < 1 {
			s.tel.ReportDebug("fuzzy store match", m.Store, m.Branch, m.Similarity)
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return nil, err
	}
	return matches, nil
}

// StoreRecord is a row of the store table.
type StoreRecord struct {
	ID          int64
	Name        string
	Coordinates *branches.LatLng
}

// AddStore registers a store by name, adding an existing name does nothing.
func (s Store) AddStore(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("store name cannot be empty")
	}
	err := s.qry.CreateStore(ctx, name)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CreateStore", name)
		return err
	}
	return nil
}

func (s Store) ListStores(ctx context.Context) ([]StoreRecord, error) {
	rows, err := s.qry.GetAllStores(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetAllStores")
		return nil, err
	}
	out := make([]StoreRecord, len(rows))
	for i, row := range rows {
		out[i] = StoreRecord{
			ID:   row.ID,
			Name: row.Name,
		}
		if row.Latitude.Valid && row.Longitude.Valid {
			out[i].Coordinates = &branches.LatLng{
				Lat: row.Latitude.Float64,
				Lng: row.Longitude.Float64,
			}
		}
	}
	return out, nil
}
