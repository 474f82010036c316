package branches

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"wayfinder-backend/internal/assert"
	"wayfinder-backend/internal/telemetry"
	"wayfinder-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type ScrapeRequest struct {
	SourceUrl string
	// Limit caps the amount of candidates processed, 0 means unlimited.
	Limit int
	// Workers is the amount of branches processed concurrently, 0 means DefaultWorkers.
	Workers int
}

// Scraper turns a list page into one ScrapedBranch per branch it links to.
type Scraper struct {
	fetcher *Fetcher
	tel     telemetry.API
}

func NewScraper(fetcher *Fetcher, tel telemetry.API) Scraper {
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	return Scraper{
		fetcher: fetcher,
		tel:     tel,
	}
}

// Scrape only fails when the list page itself cannot be fetched. Every candidate found
// on it produces a record, possibly without coordinates, in the order the candidates
// were ranked.
//
// When ctx is cancelled candidates that have not been started are skipped, the records
// produced so far are returned along with the context's error.
func (s Scraper) Scrape(ctx context.Context, req ScrapeRequest) ([]ScrapedBranch, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("source_url", req.SourceUrl))

	candidates, err := s.Candidates(ctx, req.SourceUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if req.Limit > 0 && len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}
	s.tel.ReportCount(report_scraper_candidate_count, int64(len(candidates)))

	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	slots := make([]ScrapedBranch, len(candidates))
	done := make([]bool, len(candidates))

	group := errgroup.Group{}
	group.SetLimit(workers)
	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = s.scrapeBranch(ctx, c)
			done[i] = true
			return nil
		})
	}
	group.Wait()

	results := make([]ScrapedBranch, 0, len(slots))
	var located int64
	for i, branch := range slots {
		if !done[i] {
			continue
		}
		if branch.Coordinates != nil {
			located++
		}
		results = append(results, branch)
	}
	s.tel.ReportCount(report_scraper_coordinate_count, located)
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int64("located", located),
	)

	err = ctx.Err()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return results, err
	}
	return results, nil
}

// Candidates fetches the list page and returns the branch candidates found on it,
// anchor candidates are ranked and deduplicated.
func (s Scraper) Candidates(ctx context.Context, sourceUrl string) ([]BranchCandidate, error) {
	page, err := s.fetcher.Fetch(ctx, sourceUrl)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape, err, sourceUrl)
		return nil, fmt.Errorf("fetch list page: %w", err)
	}

	candidates, source := ExtractCandidates(page.Body, page.EffectiveUrl)
	if source == SOURCE_ANCHORS {
		candidates = Rank(candidates, page.EffectiveUrl)
	}
	if source == SOURCE_NONE {
		s.tel.ReportWarning(
			report_scraper_scrape,
			fmt.Errorf("no branch candidates found"),
			page.EffectiveUrl,
		)
	}
	s.tel.ReportDebug("extracted candidates", page.EffectiveUrl, source.String(), len(candidates))
	return candidates, nil
}

func (s Scraper) scrapeBranch(ctx context.Context, candidate BranchCandidate) (branch ScrapedBranch) {
	ctx, span := tracer.Start(ctx, "scrapeBranch")
	defer span.End()
	span.SetAttributes(attribute.String("candidate_url", candidate.Url))

	branch = ScrapedBranch{
		Name:        candidate.Text,
		ListText:    candidate.Text,
		Description: candidate.Description,
		PageUrl:     candidate.Url,
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("panic: %v", r)
		s.tel.ReportBroken(report_scraper_scrape_branch, err, candidate.Url, string(debug.Stack()))
		span.SetStatus(codes.Error, err.Error())
		branch.Coordinates = nil
		branch.Err = err.Error()
	}()

	page, err := s.fetcher.Fetch(ctx, candidate.Url)
	if err != nil {
		s.tel.ReportWarning(report_scraper_scrape_branch, err, candidate.Url)
		span.RecordError(err)
		branch.Err = err.Error()
		return branch
	}
	branch.PageUrl = page.EffectiveUrl
	if branch.Name == "" {
		branch.Name = pageTitle(page.Body)
	}

	coords, ok := ParseLatLng(page.EffectiveUrl)
	if ok {
		branch.Coordinates = &coords
	}

	mapsUrl, found := ExtractMapsUrl(page.Body)
	if found {
		branch.MapsUrl = mapsUrl
	} else {
		mapsUrl, found = ExtractLaunchpadTarget(page.Body)
	}
	if !found {
		return branch
	}

	resolved, resolvedOk := s.fetcher.ResolveFinalUrl(ctx, mapsUrl)
	if resolvedOk {
		branch.ResolvedMapsUrl = resolved
	}
	if branch.Coordinates != nil {
		return branch
	}

	coords, ok = ParseLatLng(mapsUrl)
	if !ok && resolvedOk {
		coords, ok = ParseLatLng(resolved)
	}
	if ok {
		branch.Coordinates = &coords
	}
	return branch
}

func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := doc.Find("title").First()
	if title.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(htmlutil.NormalizeText(title.Text()))
}
