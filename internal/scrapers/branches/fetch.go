package branches

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"wayfinder-backend/internal/assert"
	"wayfinder-backend/internal/telemetry"
	"wayfinder-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout        = 20 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	maxRedirects        = 10
	maxMetaRefreshDepth = 5
)

type FetchOptions struct {
	// Timeout bounds a whole request including redirects, 0 means DefaultTimeout.
	Timeout time.Duration
	// ConnectTimeout bounds dialing and the TLS handshake, it is capped at Timeout.
	ConnectTimeout time.Duration
	VerifyTLS      bool
	// UserAgent defaults to DefaultUserAgent when empty.
	UserAgent string
	// Retries is the amount of extra attempts made after a transport error.
	Retries int
	// RequestsPerSecond limits outgoing requests across all workers, 0 means unlimited.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with a browser-like TLS fingerprint.
	CloudflareBypass bool
	// Dump receives every http exchange when set.
	Dump restyutil.InstrumentOutput
}

func (o FetchOptions) timeouts() (timeout, connect time.Duration) {
	timeout = o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	connect = o.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	if connect > timeout {
		connect = timeout
	}
	return timeout, connect
}

// Page is a fetched document, EffectiveUrl is the url after every redirect including
// meta refreshes.
type Page struct {
	EffectiveUrl string
	Body         []byte
}

// Fetcher performs the GET requests of a scrape, it is safe for concurrent use.
type Fetcher struct {
	http *resty.Client
	tel  telemetry.API
}

func NewFetcher(opts FetchOptions, tel telemetry.API) *Fetcher {
	assert.NotNil(tel)

	timeout, connectTimeout := opts.timeouts()
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !opts.VerifyTLS,
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := resty.New()
	client.SetTransport(transport)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		// the bypass installs its own tls config on the transport
		if transport.TLSClientConfig != nil {
			transport.TLSClientConfig.InsecureSkipVerify = !opts.VerifyTLS
		}
	}

	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetTimeout(timeout)

	if opts.Retries > 0 {
		client.SetRetryCount(opts.Retries)
		client.SetRetryWaitTime(500 * time.Millisecond)
		client.SetRetryMaxWaitTime(5 * time.Second)
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel)
	restyutil.DumpMessages(client, opts.Dump)

	return &Fetcher{
		http: client,
		tel:  tel,
	}
}

func effectiveUrl(res *resty.Response, requested string) string {
	if res == nil || res.RawResponse == nil || res.RawResponse.Request == nil || res.RawResponse.Request.URL == nil {
		return requested
	}
	return res.RawResponse.Request.URL.String()
}

// Fetch GETs link following http redirects and meta refreshes. Transport failures are
// returned, a failing meta refresh falls back to the page that contained it.
func (f *Fetcher) Fetch(ctx context.Context, link string) (Page, error) {
	return f.fetch(ctx, link, 0)
}

func (f *Fetcher) fetch(ctx context.Context, link string, depth int) (Page, error) {
	res, err := f.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	if res.IsError() {
		f.tel.ReportWarning(
			report_fetcher_fetch,
			fmt.Errorf("unexpected status %s", res.Status()),
			link,
		)
	}

	page := Page{
		EffectiveUrl: effectiveUrl(res, link),
		Body:         res.Body(),
	}
	if depth >= maxMetaRefreshDepth {
		return page, nil
	}

	target, ok := MetaRefreshTarget(page.Body, page.EffectiveUrl)
	if !ok || target == page.EffectiveUrl {
		return page, nil
	}

	f.tel.ReportDebug("following meta refresh", page.EffectiveUrl, target)
	refreshed, err := f.fetch(ctx, target, depth+1)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_meta_refresh, err, target)
		return page, nil
	}
	return refreshed, nil
}

// ResolveFinalUrl follows the redirects of link without reading the response body.
// Every failure is reported as not ok.
func (f *Fetcher) ResolveFinalUrl(ctx context.Context, link string) (string, bool) {
	res, err := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_resolve_final, err, link)
		return "", false
	}
	if body := res.RawBody(); body != nil {
		body.Close()
	}
	return effectiveUrl(res, link), true
}

var refreshContentRegex = regexp.MustCompile(`(?i)^\s*[\d.]*\s*[;,]?\s*url\s*=\s*(.+)$`)

// MetaRefreshTarget finds a <meta http-equiv="refresh"> redirect in body and resolves
// its url against base.
func MetaRefreshTarget(body []byte, base string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var content string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "refresh") {
			return true
		}
		content = s.AttrOr("content", "")
		return false
	})
	if content == "" {
		return "", false
	}

	groups := refreshContentRegex.FindStringSubmatch(content)
	if len(groups) < 2 {
		return "", false
	}
	target := strings.TrimSpace(groups[1])
	target = strings.Trim(target, `'"`)
	target = strings.TrimSpace(target)
	if target == "" {
		return "", false
	}

	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	resolved, err := baseUrl.Parse(target)
	if err != nil {
		return "", false
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return resolved.String(), true
}
