package branches

import (
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	sameHostScore    = 10
	maxLabelScore    = 5
	labelScoreDivide = 10
)

type scoredCandidate struct {
	candidate BranchCandidate
	score     int
}

func hostOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func scoreCandidate(c BranchCandidate, baseHost string) int {
	score := 0
	if baseHost != "" && hostOf(c.Url) == baseHost {
		score += sameHostScore
	}
	score += min(utf8.RuneCountInString(c.Text)/labelScoreDivide, maxLabelScore)
	return score
}

// Rank orders anchor candidates so that descriptive links on the list page's own site
// come first, then drops repeated urls keeping their best ranked occurrence.
// Candidates with equal scores keep their page order.
func Rank(candidates []BranchCandidate, baseUrl string) []BranchCandidate {
	baseHost := hostOf(baseUrl)

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if isSocialLink(c.Url) {
			continue
		}
		scored = append(scored, scoredCandidate{
			candidate: c,
			score:     scoreCandidate(c, baseHost),
		})
	}

	slices.SortStableFunc(scored, func(a, b scoredCandidate) int {
		return b.score - a.score
	})

	seen := make(map[string]struct{}, len(scored))
	out := make([]BranchCandidate, 0, len(scored))
	for _, s := range scored {
		if _, ok := seen[s.candidate.Url]; ok {
			continue
		}
		seen[s.candidate.Url] = struct{}{}
		out = append(out, s.candidate)
	}
	return out
}
