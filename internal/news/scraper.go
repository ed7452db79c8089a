package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/store"
	"agent-team-trader/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper reads headline listings from configured pages
type Scraper struct {
	sources []store.NewsSource
	timeout time.Duration
}

func NewScraper(sources []store.NewsSource, timeout time.Duration) *Scraper {
	return &Scraper{sources: sources, timeout: timeout}
}

// Scrape collects up to limit headlines for a coin across all sources. A failing
// source is logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, coin string, limit int) []types.NewsHeadline {
	var out []types.NewsHeadline
	for _, src := range s.sources {
		if len(out) >= limit || ctx.Err() != nil {
			break
		}
		items, err := s.scrapeSource(ctx, src, coin, limit-len(out))
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", src.Name, "coin", coin)
			continue
		}
		out = append(out, items...)
	}
	return out
}

func (s *Scraper) scrapeSource(ctx context.Context, src store.NewsSource, coin string, limit int) ([]types.NewsHeadline, error) {
	var items []types.NewsHeadline

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(src.BaseURL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnHTML(src.Item, func(e *colly.HTMLElement) {
		if len(items) >= limit {
			return
		}
		h, ok := headline(e.DOM, src)
		if !ok {
			return
		}
		items = append(items, h)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	pageURL := strings.TrimRight(src.BaseURL, "/") + strings.ReplaceAll(src.SearchPath, "{coin}", url.PathEscape(coin))
	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return items, nil
}

// headline reads one listing entry. The title selector may be empty when the
// item itself is the headline element.
func headline(sel *goquery.Selection, src store.NewsSource) (types.NewsHeadline, bool) {
	titleSel := sel
	if src.Title != "" {
		titleSel = sel.Find(src.Title).First()
	}
	title := strings.Join(strings.Fields(titleSel.Text()), " ")
	if title == "" {
		return types.NewsHeadline{}, false
	}

	linkSel := titleSel
	if src.Link != "" {
		linkSel = sel.Find(src.Link).First()
	}
	link, _ := linkSel.Attr("href")
	if link == "" {
		link, _ = sel.Attr("href")
	}
	if link != "" && !strings.HasPrefix(link, "http") {
		link = strings.TrimRight(src.BaseURL, "/") + "/" + strings.TrimLeft(link, "/")
	}

	h := types.NewsHeadline{Title: title, URL: link, Source: src.Name}
	if src.Published != "" {
		pub := sel.Find(src.Published).First()
		if dt, ok := pub.Attr("datetime"); ok {
			h.PublishedAt = dt
		} else {
			h.PublishedAt = strings.TrimSpace(pub.Text())
		}
	}
	return h, true
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
