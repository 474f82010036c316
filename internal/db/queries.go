package db

import (
	"context"
	"database/sql"
)

const upsertBranchLocation = `
insert into branch_location (
    source, key_hash, source_key, name, list_text, description, page_url,
    maps_url, resolved_maps_url, latitude, longitude, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (source, key_hash) do update set
    source_key = excluded.source_key,
    name = excluded.name,
    list_text = excluded.list_text,
    description = excluded.description,
    page_url = excluded.page_url,
    maps_url = excluded.maps_url,
    resolved_maps_url = excluded.resolved_maps_url,
    latitude = excluded.latitude,
    longitude = excluded.longitude,
    updated_at = excluded.updated_at
`

type UpsertBranchLocationParams struct {
	Source          string
	KeyHash         string
	SourceKey       string
	Name            string
	ListText        string
	Description     sql.NullString
	PageUrl         string
	MapsUrl         sql.NullString
	ResolvedMapsUrl sql.NullString
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
	UpdatedAt       int64
}

func (q *Queries) UpsertBranchLocation(ctx context.Context, arg UpsertBranchLocationParams) error {
	_, err := q.db.ExecContext(ctx, upsertBranchLocation,
		arg.Source,
		arg.KeyHash,
		arg.SourceKey,
		arg.Name,
		arg.ListText,
		arg.Description,
		arg.PageUrl,
		arg.MapsUrl,
		arg.ResolvedMapsUrl,
		arg.Latitude,
		arg.Longitude,
		arg.UpdatedAt,
	)
	return err
}

const getBranchLocations = `
select source, key_hash, source_key, name, list_text, description, page_url,
    maps_url, resolved_maps_url, latitude, longitude, updated_at
from branch_location
where source = ?
order by name, key_hash
`

func (q *Queries) GetBranchLocations(ctx context.Context, source string) ([]BranchLocation, error) {
	rows, err := q.db.QueryContext(ctx, getBranchLocations, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BranchLocation
	for rows.Next() {
		var i BranchLocation
		if err := rows.Scan(
			&i.Source,
			&i.KeyHash,
			&i.SourceKey,
			&i.Name,
			&i.ListText,
			&i.Description,
			&i.PageUrl,
			&i.MapsUrl,
			&i.ResolvedMapsUrl,
			&i.Latitude,
			&i.Longitude,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getBranchSources = `
select distinct source from branch_location order by source
`

func (q *Queries) GetBranchSources(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getBranchSources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		items = append(items, source)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createStore = `
insert into store (name) values (?)
on conflict (name) do nothing
`

func (q *Queries) CreateStore(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, createStore, name)
	return err
}

const getAllStores = `
select id, name, latitude, longitude from store order by name
`

func (q *Queries) GetAllStores(ctx context.Context) ([]Store, error) {
	rows, err := q.db.QueryContext(ctx, getAllStores)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Store
	for rows.Next() {
		var i Store
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Latitude,
			&i.Longitude,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateStoreCoordinates = `
update store set latitude = ?, longitude = ? where id = ?
`

type UpdateStoreCoordinatesParams struct {
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	ID        int64
}

func (q *Queries) UpdateStoreCoordinates(ctx context.Context, arg UpdateStoreCoordinatesParams) error {
	_, err := q.db.ExecContext(ctx, updateStoreCoordinates, arg.Latitude, arg.Longitude, arg.ID)
	return err
}
