package branches

import (
	"net/url"
	"strings"
)

var socialDomains = []string{
	"facebook.com",
	"fb.com",
	"fb.me",
	"m.me",
	"instagram.com",
	"twitter.com",
	"x.com",
	"tiktok.com",
	"snapchat.com",
	"youtube.com",
	"youtu.be",
	"whatsapp.com",
	"wa.me",
	"linkedin.com",
	"lnkd.in",
	"telegram.org",
	"telegram.me",
	"t.me",
}

var socialSchemes = []string{
	"mailto",
	"tel",
	"sms",
	"whatsapp",
}

// isSocialLink reports whether link points to a social network or a messaging
// scheme, those are never branch pages.
func isSocialLink(link string) bool {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	for _, s := range socialSchemes {
		if scheme == s {
			return true
		}
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return false
	}
	for _, domain := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
