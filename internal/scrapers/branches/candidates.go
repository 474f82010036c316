package branches

import (
	"bytes"
	"net/url"
	"strings"
	"wayfinder-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// CandidateStrategy is one way of reading branch links off a list page.
type CandidateStrategy interface {
	Source() CandidateSource
	Extract(doc *goquery.Document, base *url.URL) []BranchCandidate
}

// AnchorStrategy reads ordinary <a href> elements.
type AnchorStrategy struct{}

func (AnchorStrategy) Source() CandidateSource {
	return SOURCE_ANCHORS
}

func (AnchorStrategy) Extract(doc *goquery.Document, base *url.URL) []BranchCandidate {
	var out []BranchCandidate
	for _, a := range htmlutil.GetAnchors(doc.Find("a[href]"), base) {
		if a.Url.Scheme != "http" && a.Url.Scheme != "https" {
			continue
		}
		link := a.Url.String()
		if isSocialLink(link) {
			continue
		}
		out = append(out, BranchCandidate{
			Url:  link,
			Text: a.Name,
		})
	}
	return out
}

// LaunchpadStrategy reads the button list of a link hub's embedded json payload.
type LaunchpadStrategy struct{}

func (LaunchpadStrategy) Source() CandidateSource {
	return SOURCE_LAUNCHPAD
}

func (LaunchpadStrategy) Extract(doc *goquery.Document, base *url.URL) []BranchCandidate {
	payload, ok := findLaunchpad(doc)
	if !ok {
		return nil
	}

	var out []BranchCandidate
	for _, b := range payload.Buttons {
		if !b.isActiveLink() {
			continue
		}
		link, ok := absoluteUrl(b.Target, base)
		if !ok || isSocialLink(link) {
			continue
		}
		out = append(out, BranchCandidate{
			Url:         link,
			Text:        htmlutil.NormalizeText(b.Title),
			Description: strings.TrimSpace(b.Description),
		})
	}
	return out
}

// DefaultStrategies are tried in order, the first one producing candidates wins.
var DefaultStrategies = []CandidateStrategy{
	AnchorStrategy{},
	LaunchpadStrategy{},
}

// ExtractCandidates reads the branch candidates of a list page. Malformed markup
// is tolerated, the parser builds whatever tree it can and no diagnostics are kept.
func ExtractCandidates(html []byte, baseUrl string) ([]BranchCandidate, CandidateSource) {
	return extractCandidates(html, baseUrl, DefaultStrategies)
}

func extractCandidates(html []byte, baseUrl string, strategies []CandidateStrategy) ([]BranchCandidate, CandidateSource) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, SOURCE_NONE
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		base = nil
	}

	for _, strategy := range strategies {
		candidates := strategy.Extract(doc, base)
		if len(candidates) > 0 {
			return candidates, strategy.Source()
		}
	}
	return nil, SOURCE_NONE
}

// findLaunchpad returns the first launchpad payload embedded in a <script> of doc.
func findLaunchpad(doc *goquery.Document) (launchpadPayload, bool) {
	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		raw, ok := findLaunchpadJSON(text)
		if !ok {
			continue
		}
		payload, err := parseLaunchpadPayload(raw)
		if err != nil {
			continue
		}
		return payload, true
	}
	return launchpadPayload{}, false
}

func absoluteUrl(target string, base *url.URL) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", false
	}
	if !strings.Contains(target, "://") && !strings.HasPrefix(target, "/") && looksLikeHost(target) {
		target = "https://" + target
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	return parsed.String(), true
}

// looksLikeHost reports whether a scheme-less target starts with a domain name, like
// "bit.ly/abc".
func looksLikeHost(target string) bool {
	host, _, _ := strings.Cut(target, "/")
	if !strings.Contains(host, ".") || strings.ContainsAny(host, ":?#") {
		return false
	}
	for _, ext := range pageExtensions {
		if strings.HasSuffix(strings.ToLower(host), ext) {
			return false
		}
	}
	return true
}

var pageExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx", ".jsp"}
