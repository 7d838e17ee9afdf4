package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/TechNxt05/CyberGuard/internal/config"
)

// Source - один best-effort источник разведданных.
// Search возвращает ошибку только агрегатору; наружу она не выходит.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

const sourceUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ddgClient - клиент HTML-выдачи DuckDuckGo. Без ключей и квот,
// поэтому это общий хребет web/news/site-fallback поиска.
type ddgClient struct {
	httpClient *http.Client
}

func newDDGClient(timeout time.Duration) *ddgClient {
	return &ddgClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ddgResult struct {
	Title   string
	Snippet string
	URL     string
}

func (c *ddgClient) search(ctx context.Context, query string, maxResults int) ([]ddgResult, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", sourceUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing result page: %w", err)
	}

	var results []ddgResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a")
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		results = append(results, ddgResult{Title: title, Snippet: snippet, URL: href})
		return len(results) < maxResults
	})

	return results, nil
}

func formatResults(tag string, results []ddgResult, emptyNote string) string {
	if len(results) == 0 {
		return emptyNote
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- [%s] %s: %s (%s)\n", tag, r.Title, r.Snippet, r.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// WebSource - общий веб-поиск по запросу + скам-маркерам
type WebSource struct {
	ddg *ddgClient
}

func NewWebSource(timeout time.Duration) *WebSource {
	return &WebSource{ddg: newDDGClient(timeout)}
}

func (s *WebSource) Name() string { return "REAL-TIME WEB SEARCH" }

func (s *WebSource) Search(ctx context.Context, query string) (string, error) {
	results, err := s.ddg.search(ctx, query+" scam review fraud check", 5)
	if err != nil {
		return "", err
	}
	return formatResults("WEB", results, "No specific web results."), nil
}

// NewsSource - поиск по новостям и СМИ
type NewsSource struct {
	ddg *ddgClient
}

func NewNewsSource(timeout time.Duration) *NewsSource {
	return &NewsSource{ddg: newDDGClient(timeout)}
}

func (s *NewsSource) Name() string { return "NEWS & MEDIA" }

func (s *NewsSource) Search(ctx context.Context, query string) (string, error) {
	results, err := s.ddg.search(ctx, query+" news", 5)
	if err != nil {
		return "", err
	}
	return formatResults("NEWS", results, "No recent news articles found."), nil
}

// RedditSource - социальные сигналы с Reddit. С кредами ходит в
// официальный API, без кредов деградирует до site:reddit.com поиска.
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	httpClient   *http.Client
	ddg          *ddgClient
}

func NewRedditSource(cfg config.ResearchConfig) *RedditSource {
	return &RedditSource{
		clientID:     cfg.RedditClientID,
		clientSecret: cfg.RedditClientSecret,
		userAgent:    cfg.RedditUserAgent,
		httpClient:   &http.Client{Timeout: cfg.SourceTimeout},
		ddg:          newDDGClient(cfg.SourceTimeout),
	}
}

func (s *RedditSource) Name() string { return "REDDIT" }

func (s *RedditSource) Search(ctx context.Context, query string) (string, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return s.siteFallback(ctx, query)
	}

	text, err := s.apiSearch(ctx, query)
	if err != nil {
		// API сломался - тихо уходим в site:-поиск
		return s.siteFallback(ctx, query)
	}
	return text, nil
}

func (s *RedditSource) apiSearch(ctx context.Context, query string) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	endpoint := "https://oauth.reddit.com/search?limit=5&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit search status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					Title    string `json:"title"`
					Selftext string `json:"selftext"`
					URL      string `json:"url"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, child := range payload.Data.Children {
		body := child.Data.Selftext
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		fmt.Fprintf(&b, "- [REDDIT] %s: %s (%s)\n", child.Data.Title, body, child.Data.URL)
	}
	if b.Len() == 0 {
		return "No results on reddit.com.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *RedditSource) accessToken(ctx context.Context) (string, error) {
	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://www.reddit.com/api/v1/access_token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit token status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("empty reddit access token")
	}
	return payload.AccessToken, nil
}

func (s *RedditSource) siteFallback(ctx context.Context, query string) (string, error) {
	results, err := s.ddg.search(ctx, "site:reddit.com "+query+" scam", 4)
	if err != nil {
		return "", err
	}
	return formatResults("reddit.com Search", results, "No results on reddit.com."), nil
}

// TwitterSource - сигналы из X/Twitter. Bearer token опционален,
// fallback аналогичен Reddit.
type TwitterSource struct {
	bearerToken string
	httpClient  *http.Client
	ddg         *ddgClient
}

func NewTwitterSource(cfg config.ResearchConfig) *TwitterSource {
	return &TwitterSource{
		bearerToken: cfg.TwitterBearerToken,
		httpClient:  &http.Client{Timeout: cfg.SourceTimeout},
		ddg:         newDDGClient(cfg.SourceTimeout),
	}
}

func (s *TwitterSource) Name() string { return "TWITTER/X" }

func (s *TwitterSource) Search(ctx context.Context, query string) (string, error) {
	if s.bearerToken == "" {
		return s.siteFallback(ctx, query)
	}

	text, err := s.apiSearch(ctx, query)
	if err != nil {
		return s.siteFallback(ctx, query)
	}
	return text, nil
}

func (s *TwitterSource) apiSearch(ctx context.Context, query string) (string, error) {
	endpoint := "https://api.twitter.com/2/tweets/search/recent?max_results=10&query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.bearerToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("twitter search status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Data []struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, tweet := range payload.Data {
		fmt.Fprintf(&b, "- [TWITTER] %s\n", tweet.Text)
	}
	if b.Len() == 0 {
		return "No results on twitter.com.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *TwitterSource) siteFallback(ctx context.Context, query string) (string, error) {
	results, err := s.ddg.search(ctx, "site:twitter.com "+query+" scam", 4)
	if err != nil {
		return "", err
	}
	return formatResults("twitter.com Search", results, "No results on twitter.com."), nil
}
