package branches

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLatLng(t *testing.T) {
	testCases := []struct {
		name     string
		link     string
		expected LatLng
		ok       bool
	}{
		{
			name:     "place at segment",
			link:     "https://www.google.com/maps/place/X/@30.0444,31.2357,15z",
			expected: LatLng{Lat: 30.0444, Lng: 31.2357},
			ok:       true,
		},
		{
			name:     "query form",
			link:     "https://maps.google.com/?q=29.9773,31.1325",
			expected: LatLng{Lat: 29.9773, Lng: 31.1325},
			ok:       true,
		},
		{
			name:     "ampersand query form",
			link:     "https://maps.google.com/maps?hl=en&q=-33.8688,151.2093",
			expected: LatLng{Lat: -33.8688, Lng: 151.2093},
			ok:       true,
		},
		{
			name:     "data parameter",
			link:     "https://www.google.com/maps/place/Shop/data=!4m6!3m5!1s0x0:0x0!8m2!3d52.5200!4d13.4050",
			expected: LatLng{Lat: 52.52, Lng: 13.405},
			ok:       true,
		},
		{
			name:     "search api",
			link:     "https://www.google.com/maps/search/?api=1&query=40.7128,-74.0060",
			expected: LatLng{Lat: 40.7128, Lng: -74.006},
			ok:       true,
		},
		{
			name:     "static center encoded comma",
			link:     "https://maps.googleapis.com/maps/api/staticmap?center=48.8566%2C2.3522&zoom=14",
			expected: LatLng{Lat: 48.8566, Lng: 2.3522},
			ok:       true,
		},
		{
			name:     "static markers",
			link:     "https://maps.googleapis.com/maps/api/staticmap?size=400x400&markers=51.5074,-0.1278",
			expected: LatLng{Lat: 51.5074, Lng: -0.1278},
			ok:       true,
		},
		{
			name:     "uppercase parameter",
			link:     "https://maps.google.com/?Q=1.5,2.5",
			expected: LatLng{Lat: 1.5, Lng: 2.5},
			ok:       true,
		},
		{
			name:     "html entities",
			link:     "https://maps.google.com/maps?hl=en&amp;q=25.2048,55.2708",
			expected: LatLng{Lat: 25.2048, Lng: 55.2708},
			ok:       true,
		},
		{
			name:     "unicode escapes",
			link:     `https://www.google.com/maps/search/?api=1\u0026query=24.7136,46.6753`,
			expected: LatLng{Lat: 24.7136, Lng: 46.6753},
			ok:       true,
		},
		{
			name:     "trailing backslash",
			link:     `https://maps.google.com/?q=10,20\\`,
			expected: LatLng{Lat: 10, Lng: 20},
			ok:       true,
		},
		{
			name: "no match",
			link: "https://example.com/contact",
		},
		{
			name: "empty",
			link: "",
		},
		{
			name: "at segment without trailing comma",
			link: "https://example.com/@30.1,31.2",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			coords, ok := ParseLatLng(test.link)
			require.Equal(t, test.ok, ok)
			require.InDelta(t, test.expected.Lat, coords.Lat, 1e-9)
			require.InDelta(t, test.expected.Lng, coords.Lng, 1e-9)
		})
	}
}

func TestParseLatLngPriority(t *testing.T) {
	link := "https://www.google.com/maps/place/X/@30.0444,31.2357,15z?markers=10.5,20.5"
	coords, ok := ParseLatLng(link)
	require.True(t, ok)
	require.Equal(t, LatLng{Lat: 30.0444, Lng: 31.2357}, coords)

	link = "https://maps.googleapis.com/maps/api/staticmap?markers=10.5,20.5&center=1.25,2.25"
	coords, ok = ParseLatLng(link)
	require.True(t, ok)
	require.Equal(t, LatLng{Lat: 1.25, Lng: 2.25}, coords)
}

type fixedExtractor struct {
	coords LatLng
	ok     bool
}

func (e fixedExtractor) TryExtract(string) (LatLng, bool) {
	return e.coords, e.ok
}

func TestParseLatLngExtractorOrder(t *testing.T) {
	coords, ok := parseLatLng("https://example.com", []CoordinateExtractor{
		fixedExtractor{},
		fixedExtractor{coords: LatLng{Lat: 1, Lng: 2}, ok: true},
		fixedExtractor{coords: LatLng{Lat: 3, Lng: 4}, ok: true},
	})
	require.True(t, ok)
	require.Equal(t, LatLng{Lat: 1, Lng: 2}, coords)
}

func TestDecodeUnicodeEscapes(t *testing.T) {
	require.Equal(t, "a&b", decodeUnicodeEscapes(`a\u0026b`))
	// a lone quote makes the literal invalid, the input is kept
	require.Equal(t, `a"\u0026b`, decodeUnicodeEscapes(`a"\u0026b`))
}
