package branches

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"wayfinder-backend/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, opts FetchOptions) (*Fetcher, *telemetry.TestingAPI) {
	t.Helper()
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	tel := &telemetry.TestingAPI{}
	return NewFetcher(opts, tel), tel
}

func newFetchServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><title>new</title></html>")
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta http-equiv="Refresh" content="0; URL='/old'"></head></html>`)
	})
	mux.HandleFunc("/refresh-broken", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=http://127.0.0.1:1/gone"></head>broken</html>`)
	})
	mux.HandleFunc("/loop-a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<meta http-equiv="refresh" content="0;url=/loop-b">a`)
	})
	mux.HandleFunc("/loop-b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<meta http-equiv="refresh" content="0;url=/loop-a">b`)
	})
	mux.HandleFunc("/self", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<meta http-equiv="refresh" content="30">self`)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "oops")
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.UserAgent())
	})
	return httptest.NewServer(mux)
}

func TestFetchFollowsRedirects(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, _ := newTestFetcher(t, FetchOptions{})

	page, err := fetcher.Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/new", page.EffectiveUrl)
	require.Contains(t, string(page.Body), "<title>new</title>")
}

func TestFetchFollowsMetaRefresh(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, _ := newTestFetcher(t, FetchOptions{})

	page, err := fetcher.Fetch(context.Background(), server.URL+"/refresh")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/new", page.EffectiveUrl)
}

func TestFetchBrokenMetaRefreshDegrades(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, tel := newTestFetcher(t, FetchOptions{})

	page, err := fetcher.Fetch(context.Background(), server.URL+"/refresh-broken")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/refresh-broken", page.EffectiveUrl)
	require.Contains(t, string(page.Body), "broken")
	require.Len(t, tel.Reports("warning", report_fetcher_meta_refresh), 1)
}

func TestFetchMetaRefreshDepth(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, _ := newTestFetcher(t, FetchOptions{})

	page, err := fetcher.Fetch(context.Background(), server.URL+"/loop-a")
	require.NoError(t, err)
	// five refreshes starting from a end on b
	require.Equal(t, server.URL+"/loop-b", page.EffectiveUrl)

	page, err = fetcher.Fetch(context.Background(), server.URL+"/self")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/self", page.EffectiveUrl)
}

func TestFetchErrorStatus(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, tel := newTestFetcher(t, FetchOptions{})

	page, err := fetcher.Fetch(context.Background(), server.URL+"/error")
	require.NoError(t, err)
	require.Equal(t, "oops", string(page.Body))
	require.Len(t, tel.Reports("warning", report_fetcher_fetch), 1)
}

func TestFetchTransportError(t *testing.T) {
	fetcher, _ := newTestFetcher(t, FetchOptions{})
	_, err := fetcher.Fetch(context.Background(), "http://127.0.0.1:1/")
	require.Error(t, err)
}

func TestFetchUserAgent(t *testing.T) {
	server := newFetchServer()
	defer server.Close()

	fetcher, _ := newTestFetcher(t, FetchOptions{})
	page, err := fetcher.Fetch(context.Background(), server.URL+"/ua")
	require.NoError(t, err)
	require.Equal(t, DefaultUserAgent, string(page.Body))

	fetcher, _ = newTestFetcher(t, FetchOptions{UserAgent: "branch-test/1.0"})
	page, err = fetcher.Fetch(context.Background(), server.URL+"/ua")
	require.NoError(t, err)
	require.Equal(t, "branch-test/1.0", string(page.Body))
}

func TestFetchVerifyTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secure")
	}))
	defer server.Close()

	strict, _ := newTestFetcher(t, FetchOptions{VerifyTLS: true})
	_, err := strict.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	lenient, _ := newTestFetcher(t, FetchOptions{VerifyTLS: false})
	page, err := lenient.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "secure", string(page.Body))
}

func TestResolveFinalUrl(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	fetcher, tel := newTestFetcher(t, FetchOptions{})

	link, ok := fetcher.ResolveFinalUrl(context.Background(), server.URL+"/old")
	require.True(t, ok)
	require.Equal(t, server.URL+"/new", link)

	link, ok = fetcher.ResolveFinalUrl(context.Background(), "http://127.0.0.1:1/gone")
	require.False(t, ok)
	require.Empty(t, link)
	require.Len(t, tel.Reports("warning", report_fetcher_resolve_final), 1)
}

func TestFetchOptionsTimeouts(t *testing.T) {
	timeout, connect := FetchOptions{}.timeouts()
	require.Equal(t, DefaultTimeout, timeout)
	require.Equal(t, DefaultConnectTimeout, connect)

	timeout, connect = FetchOptions{Timeout: 3 * time.Second}.timeouts()
	require.Equal(t, 3*time.Second, timeout)
	require.Equal(t, 3*time.Second, connect)

	timeout, connect = FetchOptions{Timeout: 30 * time.Second, ConnectTimeout: time.Second}.timeouts()
	require.Equal(t, 30*time.Second, timeout)
	require.Equal(t, time.Second, connect)
}

func TestMetaRefreshTarget(t *testing.T) {
	testCases := []struct {
		html     string
		base     string
		expected string
		ok       bool
	}{
		{
			html:     `<meta http-equiv="refresh" content="0;url=https://example.com/a">`,
			base:     "https://shop.example.com/",
			expected: "https://example.com/a",
			ok:       true,
		},
		{
			html:     `<META HTTP-EQUIV="REFRESH" CONTENT="5; URL=/branches">`,
			base:     "https://shop.example.com/list/index.html",
			expected: "https://shop.example.com/branches",
			ok:       true,
		},
		{
			html:     `<meta http-equiv="refresh" content='0; url="next.html"'>`,
			base:     "https://shop.example.com/list/index.html",
			expected: "https://shop.example.com/list/next.html",
			ok:       true,
		},
		{
			html:     `<meta http-equiv="refresh" content="0;url=//cdn.example.com/x">`,
			base:     "http://shop.example.com/",
			expected: "http://cdn.example.com/x",
			ok:       true,
		},
		{
			html: `<meta http-equiv="refresh" content="10">`,
			base: "https://shop.example.com/",
		},
		{
			html: `<meta http-equiv="content-type" content="text/html; charset=utf-8">`,
			base: "https://shop.example.com/",
		},
		{
			html: `<meta http-equiv="refresh" content="0;url=javascript:alert(1)">`,
			base: "https://shop.example.com/",
		},
	}

	for _, test := range testCases {
		target, ok := MetaRefreshTarget([]byte(test.html), test.base)
		require.Equal(t, test.ok, ok, test.html)
		require.Equal(t, test.expected, target, test.html)
	}
}
