package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// NewsScraperClient scrapes Google News as a fallback when the Finnhub news
// feed is unavailable or returns nothing for a listing.
type NewsScraperClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
}

// NewNewsScraperClient creates a new news scraper client.
func NewNewsScraperClient(cacheDir string, cacheEnabled bool) *NewsScraperClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; kstock-dashboard/1.0)")

	return &NewsScraperClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "news_scraper"), 2*time.Hour, cacheEnabled),
		retry:  DefaultRetryConfig(),
	}
}

// SearchNews scrapes Google News for articles matching the query.
func (ns *NewsScraperClient) SearchNews(ctx context.Context, query string, maxResults int) ([]NewsArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	cacheKey := map[string]interface{}{"query": query, "max": maxResults}

	// Check cache first
	var cached []NewsArticle
	if ns.cache.Get("google_news", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=ko&gl=KR&ceid=KR:ko",
		url.QueryEscape(query))

	var result []NewsArticle
	err := WithRetry(ctx, ns.retry, func() error {
		resp, err := ns.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("fetch google news: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching google news", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("parse HTML: %w", err)
		}

		result = parseGoogleNewsHTML(doc)
		if len(result) > maxResults {
			result = result[:maxResults]
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("news", query, err)
	}

	ns.cache.Set("google_news", "search", cacheKey, result)
	return result, nil
}

// parseGoogleNewsHTML extracts articles from a Google News result page.
func parseGoogleNewsHTML(doc *goquery.Document) []NewsArticle {
	var articles []NewsArticle

	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		href, exists := s.Find("a").First().Attr("href")
		if !exists {
			return
		}

		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		timeText := strings.TrimSpace(s.Find("time").Text())

		articles = append(articles, NewsArticle{
			Title:       title,
			Content:     strings.TrimSpace(s.Find("span").Last().Text()),
			URL:         cleanGoogleNewsURL(href),
			Source:      source,
			PublishedAt: parseRelativeTime(timeText),
		})
	})

	return articles
}

// cleanGoogleNewsURL removes the Google News redirect wrapper.
func cleanGoogleNewsURL(googleURL string) string {
	if strings.Contains(googleURL, "url=") {
		parts := strings.Split(googleURL, "url=")
		if len(parts) > 1 {
			if decoded, err := url.QueryUnescape(parts[1]); err == nil {
				return decoded
			}
		}
	}
	if strings.HasPrefix(googleURL, "./") {
		return "https://news.google.com" + googleURL[1:]
	}
	if strings.HasPrefix(googleURL, "/") {
		return "https://news.google.com" + googleURL
	}
	return googleURL
}

var (
	minuteRegex = regexp.MustCompile(`(\d+)\s*minutes?\s*ago`)
	hourRegex   = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	dayRegex    = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
)

// parseRelativeTime converts Google News relative timestamps to actual time.
func parseRelativeTime(timeText string) time.Time {
	now := time.Now()
	timeText = strings.ToLower(strings.TrimSpace(timeText))

	if matches := minuteRegex.FindStringSubmatch(timeText); len(matches) > 1 {
		if minutes := parseNumber(matches[1]); minutes > 0 {
			return now.Add(-time.Duration(minutes) * time.Minute)
		}
	}
	if matches := hourRegex.FindStringSubmatch(timeText); len(matches) > 1 {
		if hours := parseNumber(matches[1]); hours > 0 {
			return now.Add(-time.Duration(hours) * time.Hour)
		}
	}
	if matches := dayRegex.FindStringSubmatch(timeText); len(matches) > 1 {
		if days := parseNumber(matches[1]); days > 0 {
			return now.Add(-time.Duration(days) * 24 * time.Hour)
		}
	}

	// Assume recent when the format is unrecognized.
	return now.Add(-1 * time.Hour)
}

func parseNumber(s string) int {
	var result int
	fmt.Sscanf(s, "%d", &result)
	return result
}
