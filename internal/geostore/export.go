package geostore

import (
	"encoding/json"
	"io"
	"wayfinder-backend/internal/scrapers/branches"
)

// WriteJSON writes scraped branches as an indented json array, absent values are
// written as null.
func WriteJSON(w io.Writer, scraped []branches.ScrapedBranch) error {
	if scraped == nil {
		scraped = []branches.ScrapedBranch{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(scraped)
}
