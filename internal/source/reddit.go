package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/crowdecho/crowdecho/internal/types"
)

const (
	redditBaseURL   = "https://www.reddit.com"
	redditUserAgent = "crowdecho/1.0 (comment aggregation; not a browser)"
)

// RedditSource fetches comments through Reddit's public JSON listings.
// It searches for posts matching the query, then pulls each post's
// comment tree one level deep (top-level comments plus their direct
// replies).
//
// No authentication is used; the public endpoints enforce a strict
// per-client rate, so requests go through a 1 req/s limiter.
type RedditSource struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

// NewRedditSource creates a Reddit adapter. An empty userAgent falls
// back to the built-in identifier.
func NewRedditSource(userAgent string) *RedditSource {
	if userAgent == "" {
		userAgent = redditUserAgent
	}
	return &RedditSource{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(1), 2),
		baseURL:   redditBaseURL,
		userAgent: userAgent,
	}
}

// Name returns "reddit".
func (s *RedditSource) Name() string { return "reddit" }

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string `json:"title"`
	Subreddit   string `json:"subreddit"`
	Permalink   string `json:"permalink"`
	NumComments int    `json:"num_comments"`
}

type redditComment struct {
	Author  string          `json:"author"`
	Body    string          `json:"body"`
	Score   int             `json:"score"`
	Created float64         `json:"created_utc"`
	Replies json.RawMessage `json:"replies"`
}

// Fetch searches for posts and collects their comments.
func (s *RedditSource) Fetch(ctx context.Context, query string, limits FetchLimits) ([]types.Comment, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("reddit: %w", err)
	}

	posts, err := s.searchPosts(ctx, query, limits.MaxItems)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("reddit: %w: %q", ErrNoResults, query)
	}

	var items []types.Comment
	for _, p := range posts {
		comments, err := s.postComments(ctx, p, limits.PerItemLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		items = append(items, comments...)
	}
	return items, nil
}

func (s *RedditSource) searchPosts(ctx context.Context, query string, maxPosts int) ([]redditPost, error) {
	if maxPosts > 100 {
		maxPosts = 100
	}
	params := url.Values{
		"q":     {query},
		"limit": {fmt.Sprint(maxPosts)},
		"sort":  {"relevance"},
	}

	var listing redditListing
	if err := s.getJSON(ctx, "/search.json?"+params.Encode(), &listing); err != nil {
		return nil, fmt.Errorf("reddit search: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		var p redditPost
		if err := json.Unmarshal(child.Data, &p); err != nil || p.Permalink == "" {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *RedditSource) postComments(ctx context.Context, post redditPost, maxComments int) ([]types.Comment, error) {
	// A permalink .json fetch returns [post listing, comment listing].
	var pages []redditListing
	path := fmt.Sprintf("%s.json?limit=%d", post.Permalink, maxComments)
	if err := s.getJSON(ctx, path, &pages); err != nil {
		return nil, fmt.Errorf("reddit comments for %s: %w", post.Permalink, err)
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var comments []types.Comment
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue // "more" stubs and non-comment entries
		}
		var rc redditComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			continue
		}
		c := types.Comment{
			Author:             rc.Author,
			Text:               rc.Body,
			LikeCount:          rc.Score,
			PublishedAt:        formatUnix(rc.Created),
			OriginTitle:        post.Title,
			OriginSubcommunity: post.Subreddit,
			Replies:            parseReplies(rc.Replies),
		}
		comments = append(comments, c)
		if len(comments) >= maxComments {
			break
		}
	}
	return comments, nil
}

// parseReplies extracts one level of direct replies. Reddit encodes an
// absent reply tree as the empty string rather than null, so the field
// is raw JSON and anything unparseable means no replies.
func parseReplies(raw json.RawMessage) []types.Reply {
	if len(raw) == 0 || string(raw) == `""` || string(raw) == "null" {
		return nil
	}
	var listing redditListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil
	}
	var replies []types.Reply
	for _, child := range listing.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var rc redditComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			continue
		}
		replies = append(replies, types.Reply{
			Author:      rc.Author,
			Text:        rc.Body,
			LikeCount:   rc.Score,
			PublishedAt: formatUnix(rc.Created),
		})
	}
	return replies
}

func formatUnix(sec float64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}

func (s *RedditSource) getJSON(ctx context.Context, path string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: throttled by provider", ErrQuotaExhausted)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
