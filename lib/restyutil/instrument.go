package restyutil

import (
	"fmt"
	"net/url"
	"regexp"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// InstrumentOutput receives a readable dump of every http exchange.
type InstrumentOutput interface {
	Write(id string, contents string)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// messageId is ordered by request and names the host to ease browsing a dump.
func messageId(n uint64, rawUrl string) string {
	host := "unknown"
	parsed, err := url.Parse(rawUrl)
	if err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}
	return fmt.Sprintf("%05d-%s.txt", n, unsafeNameChars.ReplaceAllString(host, "_"))
}

// DumpMessages writes every response the client receives to output, a nil output
// leaves the client untouched.
func DumpMessages(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := messageId(atomic.AddUint64(&idcounter, 1), res.Request.URL)
		output.Write(id, formatHttpMessage(res))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		id := messageId(atomic.AddUint64(&idcounter, 1), req.URL)
		output.Write(id, fmt.Sprintf("---- REQUEST ----\n\n%s %s\n\n---- ERROR ----\n\n%s", req.Method, req.URL, err))
	})
}
