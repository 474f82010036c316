package branches

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"wayfinder-backend/lib/htmlutil"
)

// CoordinateExtractor finds a coordinate pair in one particular url encoding.
type CoordinateExtractor interface {
	TryExtract(link string) (LatLng, bool)
}

// regexExtractor reads the latitude and longitude from the first two capture groups.
type regexExtractor struct {
	name    string
	pattern *regexp.Regexp
}

func (e regexExtractor) TryExtract(link string) (LatLng, bool) {
	groups := e.pattern.FindStringSubmatch(link)
	if len(groups) < 3 {
		return LatLng{}, false
	}
	lat, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return LatLng{}, false
	}
	lng, err := strconv.ParseFloat(groups[2], 64)
	if err != nil {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}

func (e regexExtractor) String() string {
	return e.name
}

const number = `([-+]?\d+(?:\.\d+)?)`

func newRegexExtractor(name, pattern string) regexExtractor {
	return regexExtractor{
		name:    name,
		pattern: regexp.MustCompile("(?i)" + pattern),
	}
}

// DefaultExtractors are tried in order, the first match wins.
var DefaultExtractors = []CoordinateExtractor{
	// .../maps/place/x/@52.5200,13.4050,17z
	newRegexExtractor("at", `@`+number+`,`+number+`,`),
	// ...!3d52.5200!4d13.4050
	newRegexExtractor("data", `!3d`+number+`!4d`+number),
	// ...?q=52.5200,13.4050
	newRegexExtractor("q", `[?&]q=`+number+`,`+number),
	// ...?api=1&query=52.5200,13.4050
	newRegexExtractor("query", `[?&]query=`+number+`,`+number),
	// static maps and embeds
	newRegexExtractor("center", `center=`+number+`(?:,|%2C)`+number),
	newRegexExtractor("markers", `markers=`+number+`(?:,|%2C)`+number),
}

// ParseLatLng reads a coordinate pair out of a maps url. The url may still carry html
// entities or js unicode escapes from the page it was scraped from.
func ParseLatLng(link string) (LatLng, bool) {
	return parseLatLng(link, DefaultExtractors)
}

func parseLatLng(link string, extractors []CoordinateExtractor) (LatLng, bool) {
	link = cleanMapsUrl(link)
	if link == "" {
		return LatLng{}, false
	}
	for _, extractor := range extractors {
		coords, ok := extractor.TryExtract(link)
		if ok {
			return coords, true
		}
	}
	return LatLng{}, false
}

func cleanMapsUrl(link string) string {
	link = htmlutil.UnescapeEntities(link)
	if strings.Contains(link, `\u`) {
		link = decodeUnicodeEscapes(link)
	}
	return strings.TrimRight(link, "\\ \t\r\n")
}

// decodeUnicodeEscapes decodes \uXXXX sequences by reading s as the body of a json
// string literal, s is returned unchanged when it is not one.
func decodeUnicodeEscapes(s string) string {
	var decoded string
	err := json.Unmarshal([]byte(`"`+s+`"`), &decoded)
	if err != nil {
		return s
	}
	return decoded
}
