package db

import (
	"database/sql"
)

type BranchLocation struct {
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

type Store struct {
	ID        int64
	Name      string
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
}
