package branches

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("wayfinder.scrapers.branches")

const (
	report_fetcher_fetch            = "fetcher.fetch"
	report_fetcher_meta_refresh     = "fetcher.meta-refresh"
	report_fetcher_resolve_final    = "fetcher.resolve-final-url"
	report_scraper_scrape           = "scraper.scrape"
	report_scraper_scrape_branch    = "scraper.scrape-branch"
	report_scraper_candidate_count  = "scraper.candidate-count"
	report_scraper_coordinate_count = "scraper.coordinate-count"
)
