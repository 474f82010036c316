package geostore

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
	"wayfinder-backend/internal/scrapers/branches"
	"wayfinder-backend/internal/telemetry"
	"wayfinder-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (Store, *telemetry.TestingAPI) {
	t.Helper()

	sqlite := testutil.OpenDB(t, "")
	err := Migrate(context.Background(), sqlite)
	if err != nil {
		t.Fatal(err)
	}

	tel := &telemetry.TestingAPI{}
	store := NewStore(sqlite, tel)
	store.now = func() time.Time {
		return time.Unix(1700000000, 0)
	}
	return store, tel
}

var scrapedBranches = []branches.ScrapedBranch{
	{
		Name:        "Zamalek",
		ListText:    "Zamalek",
		Description: "26th of July St.",
		PageUrl:     "https://shop.example.com/branches/zamalek",
		MapsUrl:     "https://maps.app.goo.gl/zmk",
		Coordinates: &branches.LatLng{Lat: 30.0609, Lng: 31.2197},
	},
	{
		Name:    "Maadi",
		PageUrl: "https://shop.example.com/",
		Err:     "fetch https://shop.example.com/maadi: EOF",
	},
	{
		// neither a path nor a name
		PageUrl: "https://shop.example.com",
	},
}

func TestSourceKey(t *testing.T) {
	require.Equal(t, "/branches/zamalek", SourceKey(scrapedBranches[0]))
	require.Equal(t, "Maadi", SourceKey(scrapedBranches[1]))
	require.Equal(t, "", SourceKey(scrapedBranches[2]))
	require.Equal(t, "Giza", SourceKey(branches.ScrapedBranch{Name: " Giza ", PageUrl: "::"}))
}

func TestSaveBranches(t *testing.T) {
	store, tel := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	saved, err := store.SaveBranches(ctx, "shop", scrapedBranches)
	require.NoError(t, err)
	require.Equal(t, 2, saved)
	require.Len(t, tel.Reports("warning", report_save_branches), 1)

	// saving again replaces the rows instead of adding new ones
	updated := append([]branches.ScrapedBranch{}, scrapedBranches...)
	updated[1].Coordinates = &branches.LatLng{Lat: 29.96, Lng: 31.25}
	saved, err = store.SaveBranches(ctx, "shop", updated)
	require.NoError(t, err)
	require.Equal(t, 2, saved)

	_, err = store.SaveBranches(ctx, "other-shop", scrapedBranches[:1])
	require.NoError(t, err)

	locations, err := store.ListBranches(ctx, "shop")
	require.NoError(t, err)

	expected := []Location{
		{
			SourceKey: "Maadi",
			Branch: branches.ScrapedBranch{
				Name:        "Maadi",
				PageUrl:     "https://shop.example.com/",
				Coordinates: &branches.LatLng{Lat: 29.96, Lng: 31.25},
			},
			UpdatedAt: time.Unix(1700000000, 0),
		},
		{
			SourceKey: "/branches/zamalek",
			Branch: branches.ScrapedBranch{
				Name:        "Zamalek",
				ListText:    "Zamalek",
				Description: "26th of July St.",
				PageUrl:     "https://shop.example.com/branches/zamalek",
				MapsUrl:     "https://maps.app.goo.gl/zmk",
				Coordinates: &branches.LatLng{Lat: 30.0609, Lng: 31.2197},
			},
			UpdatedAt: time.Unix(1700000000, 0),
		},
	}
	diff := cmp.Diff(expected, locations)
	if diff != "" {
		t.Fatal(diff)
	}

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"other-shop", "shop"}, sources)

	locations, err = store.ListBranches(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, locations)
}

func TestWriteJSON(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	err := WriteJSON(buf, nil)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	err = WriteJSON(buf, scrapedBranches[:2])
	require.NoError(t, err)

	var decoded []map[string]any
	err = json.Unmarshal(buf.Bytes(), &decoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, 30.0609, decoded[0]["latitude"])
	require.Nil(t, decoded[1]["latitude"])
	require.Nil(t, decoded[1]["longitude"])
	require.Nil(t, decoded[1]["description"])
	require.Equal(t, "fetch https://shop.example.com/maadi: EOF", decoded[1]["error"])
	require.NotContains(t, decoded[0], "error")
	// urls are written as is
	require.Contains(t, buf.String(), `"https://maps.app.goo.gl/zmk"`)
}
