package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by TestingAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// TestingAPI records every report so tests can assert on them. It is safe for
// concurrent use.
type TestingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (t *TestingAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, Id: id, Params: params})
}

func (t *TestingAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestingAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestingAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t *TestingAPI) ReportCount(id string, count int64) {
	t.record("count", id, []any{count})
}

// Reports returns the recorded reports of the given kind whose id ends with suffix.
// An empty kind matches every kind.
func (t *TestingAPI) Reports(kind, suffix string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if kind != "" && r.Kind != kind {
			continue
		}
		if !strings.HasSuffix(r.Id, suffix) {
			continue
		}
		out = append(out, r)
	}
	return out
}
