package branches

import (
	"bytes"
	"encoding/json"
)

// BranchCandidate is a link found on a list page that might point to a branch page.
type BranchCandidate struct {
	// Url is always absolute.
	Url         string
	Text        string
	Description string
}

// CandidateSource tells which strategy produced a candidate list.
type CandidateSource int

const (
	SOURCE_NONE CandidateSource = iota
	SOURCE_ANCHORS
	SOURCE_LAUNCHPAD
)

func (s CandidateSource) String() string {
	switch s {
	case SOURCE_ANCHORS:
		return "anchors"
	case SOURCE_LAUNCHPAD:
		return "launchpad"
	default:
		return "none"
	}
}

// LatLng is a coordinate pair in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// ScrapedBranch is the result for a single candidate. Empty strings stand for absent
// values. It is not mutated after Scrape returns it.
type ScrapedBranch struct {
	Name            string
	ListText        string
	Description     string
	PageUrl         string
	MapsUrl         string
	ResolvedMapsUrl string
	// Coordinates is nil when no coordinate could be found, latitude and longitude are
	// therefore always present or absent together.
	Coordinates *LatLng
	// Err describes why the branch could not be fully processed.
	Err string
}

func (b ScrapedBranch) Latitude() (float64, bool) {
	if b.Coordinates == nil {
		return 0, false
	}
	return b.Coordinates.Lat, true
}

func (b ScrapedBranch) Longitude() (float64, bool) {
	if b.Coordinates == nil {
		return 0, false
	}
	return b.Coordinates.Lng, true
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scrapedBranchJSON struct {
	Name            string   `json:"name"`
	ListText        string   `json:"list_text"`
	Description     *string  `json:"description"`
	PageUrl         string   `json:"page_url"`
	MapsUrl         *string  `json:"maps_url"`
	ResolvedMapsUrl *string  `json:"resolved_maps_url"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Error           string   `json:"error,omitempty"`
}

func (b ScrapedBranch) MarshalJSON() ([]byte, error) {
	out := scrapedBranchJSON{
		Name:            b.Name,
		ListText:        b.ListText,
		Description:     nullable(b.Description),
		PageUrl:         b.PageUrl,
		MapsUrl:         nullable(b.MapsUrl),
		ResolvedMapsUrl: nullable(b.ResolvedMapsUrl),
		Error:           b.Err,
	}
	if b.Coordinates != nil {
		lat := b.Coordinates.Lat
		lng := b.Coordinates.Lng
		out.Latitude = &lat
		out.Longitude = &lng
	}

	// urls keep their "&" instead of "\u0026"
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(out)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (b *ScrapedBranch) UnmarshalJSON(data []byte) error {
	var in scrapedBranchJSON
	err := json.Unmarshal(data, &in)
	if err != nil {
		return err
	}
	*b = ScrapedBranch{
		Name:     in.Name,
		ListText: in.ListText,
		PageUrl:  in.PageUrl,
		Err:      in.Error,
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.MapsUrl != nil {
		b.MapsUrl = *in.MapsUrl
	}
	if in.ResolvedMapsUrl != nil {
		b.ResolvedMapsUrl = *in.ResolvedMapsUrl
	}
	if in.Latitude != nil && in.Longitude != nil {
		b.Coordinates = &LatLng{Lat: *in.Latitude, Lng: *in.Longitude}
	}
	return nil
}
