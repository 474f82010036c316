package branches

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// matches maps links as they appear in markup or inside js strings where "/" may be
// escaped as "\/"
var mapsUrlRegex = regexp.MustCompile(
	`(?i)https?:(?:\\?/){2}(?:www\.)?(?:google\.[a-z.]{2,10}(?:\\?/)maps|maps\.google\.[a-z.]{2,10}|maps\.app\.goo\.gl|goo\.gl(?:\\?/)maps)[^\s"'<>)]*`,
)

// ExtractMapsUrl returns the first maps url found anywhere in the raw html of a page.
func ExtractMapsUrl(html []byte) (string, bool) {
	match := mapsUrlRegex.Find(html)
	if match == nil {
		return "", false
	}
	link := strings.ReplaceAll(string(match), `\/`, "/")
	// a trailing "\" would break the escape decoding
	link = cleanMapsUrl(strings.TrimRight(link, `\`))
	if link == "" {
		return "", false
	}
	return link, true
}

// ExtractLaunchpadTarget returns the target of the first active link button of the
// launchpad payload embedded in a page.
func ExtractLaunchpadTarget(html []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", false
	}
	payload, ok := findLaunchpad(doc)
	if !ok {
		return "", false
	}
	for _, b := range payload.Buttons {
		if !b.isActiveLink() {
			continue
		}
		target, ok := absoluteUrl(b.Target, nil)
		if !ok {
			continue
		}
		return target, true
	}
	return "", false
}
