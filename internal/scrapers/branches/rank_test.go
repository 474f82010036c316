package branches

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	candidates := []BranchCandidate{
		{Url: "https://other.example.org/promo", Text: "Learn more"},
		{Url: "https://shop.example.com/b/1", Text: "Go"},
		{Url: "https://shop.example.com/b/2", Text: "Heliopolis branch, open late"},
		{Url: "https://www.facebook.com/shop", Text: "Follow us on our facebook page for news"},
		{Url: "https://shop.example.com/b/1", Text: "Nasr City branch"},
		{Url: "https://SHOP.example.com/b/3", Text: ""},
		{Url: "https://other.example.org/very-long", Text: "A description long enough to reach the label cap of fifty characters"},
	}

	expected := []BranchCandidate{
		{Url: "https://shop.example.com/b/2", Text: "Heliopolis branch, open late"},
		// the "Go" occurrence of /b/1 scores lower and is dropped
		{Url: "https://shop.example.com/b/1", Text: "Nasr City branch"},
		{Url: "https://SHOP.example.com/b/3", Text: ""},
		{Url: "https://other.example.org/very-long", Text: "A description long enough to reach the label cap of fifty characters"},
		{Url: "https://other.example.org/promo", Text: "Learn more"},
	}

	ranked := Rank(candidates, "https://shop.example.com/branches")
	diff := cmp.Diff(expected, ranked)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestRankDeterministic(t *testing.T) {
	candidates := []BranchCandidate{
		{Url: "https://a.example.com/1", Text: "one"},
		{Url: "https://a.example.com/2", Text: "two"},
		{Url: "https://a.example.com/1", Text: "one again"},
		{Url: "https://a.example.com/3", Text: "three"},
		{Url: "https://b.example.com/4", Text: "four"},
		{Url: "https://a.example.com/2", Text: "two"},
	}

	first := Rank(candidates, "https://a.example.com")
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Rank(candidates, "https://a.example.com"))
	}

	seen := map[string]bool{}
	for _, c := range first {
		require.False(t, seen[c.Url], "duplicate url %s", c.Url)
		seen[c.Url] = true
	}
	require.Len(t, first, 4)
	// ties keep page order
	require.Equal(t, "https://a.example.com/1", first[0].Url)
	require.Equal(t, "https://a.example.com/2", first[1].Url)
	require.Equal(t, "https://a.example.com/3", first[2].Url)
	require.Equal(t, "https://b.example.com/4", first[3].Url)
}

func TestRankExcludesSocial(t *testing.T) {
	candidates := []BranchCandidate{
		{Url: "https://facebook.com/shop", Text: "A very very long and descriptive label for the facebook page"},
		{Url: "https://instagram.com/shop", Text: "Instagram"},
	}
	require.Empty(t, Rank(candidates, "https://facebook.com"))
}

func TestRankCountsCharacters(t *testing.T) {
	// both labels are 11 characters long, the arabic one takes 22 bytes
	candidates := []BranchCandidate{
		{Url: "https://a.example.com/latin", Text: "Nasr City 1"},
		{Url: "https://a.example.com/arabic", Text: "فرعمدينةنصر"},
	}
	ranked := Rank(candidates, "https://a.example.com")
	require.Len(t, ranked, 2)
	require.Equal(t, "https://a.example.com/latin", ranked[0].Url)
	require.Equal(t, "https://a.example.com/arabic", ranked[1].Url)
}
