package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crowdecho/crowdecho/internal/types"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTubeSource fetches comments from the YouTube Data API v3. It
// searches for videos matching the query, then pages through each
// video's comment threads up to the per-item limit.
//
// API keys rotate through a KeyRing: a quotaExceeded response marks the
// active key exhausted and the request is retried on the next key.
type YouTubeSource struct {
	client  *http.Client
	ring    *KeyRing
	limiter *rate.Limiter
	baseURL string
}

// NewYouTubeSource creates a YouTube adapter from a comma-separated API
// key list.
func NewYouTubeSource(apiKeys string) (*YouTubeSource, error) {
	ring, err := NewKeyRing(apiKeys)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	return &YouTubeSource{
		client: &http.Client{Timeout: 30 * time.Second},
		ring:   ring,
		// The search+commentThreads pair is quota-heavy; 5 req/s keeps a
		// single run well under the default daily unit budget.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		baseURL: youtubeAPIBase,
	}, nil
}

// Name returns "youtube".
func (s *YouTubeSource) Name() string { return "youtube" }

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytCommentSnippet struct {
	AuthorDisplayName     string `json:"authorDisplayName"`
	TextDisplay           string `json:"textDisplay"`
	LikeCount             int    `json:"likeCount"`
	PublishedAt           string `json:"publishedAt"`
	AuthorProfileImageURL string `json:"authorProfileImageUrl"`
}

type ytThreadsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet ytCommentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
			TotalReplyCount int `json:"totalReplyCount"`
		} `json:"snippet"`
		Replies struct {
			Comments []struct {
				Snippet ytCommentSnippet `json:"snippet"`
			} `json:"comments"`
		} `json:"replies"`
	} `json:"items"`
}

// Fetch searches for videos and collects their comment threads.
func (s *YouTubeSource) Fetch(ctx context.Context, query string, limits FetchLimits) ([]types.Comment, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}

	videos, err := s.searchVideos(ctx, query, limits.MaxItems)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("youtube: %w: %q", ErrNoResults, query)
	}

	var items []types.Comment
	for _, v := range videos {
		comments, err := s.videoComments(ctx, v.id, v.title, limits.PerItemLimit)
		if err != nil {
			// A single video with disabled comments or a transient page
			// error should not sink the whole fetch.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		items = append(items, comments...)
	}
	return items, nil
}

type ytVideo struct {
	id    string
	title string
}

func (s *YouTubeSource) searchVideos(ctx context.Context, query string, maxVideos int) ([]ytVideo, error) {
	if maxVideos > 50 {
		maxVideos = 50 // API page cap
	}
	params := url.Values{
		"q":          {query},
		"part":       {"id,snippet"},
		"type":       {"video"},
		"order":      {"relevance"},
		"maxResults": {fmt.Sprint(maxVideos)},
	}

	var resp ytSearchResponse
	if err := s.getJSON(ctx, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]ytVideo, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID == "" {
			continue
		}
		videos = append(videos, ytVideo{id: it.ID.VideoID, title: it.Snippet.Title})
	}
	return videos, nil
}

func (s *YouTubeSource) videoComments(ctx context.Context, videoID, title string, maxComments int) ([]types.Comment, error) {
	var comments []types.Comment
	pageToken := ""

	for len(comments) < maxComments {
		pageSize := maxComments - len(comments)
		if pageSize > 100 {
			pageSize = 100
		}
		params := url.Values{
			"part":       {"snippet,replies"},
			"videoId":    {videoID},
			"order":      {"relevance"},
			"maxResults": {fmt.Sprint(pageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp ytThreadsResponse
		if err := s.getJSON(ctx, "/commentThreads", params, &resp); err != nil {
			return comments, fmt.Errorf("youtube comments for %s: %w", videoID, err)
		}

		for _, it := range resp.Items {
			top := it.Snippet.TopLevelComment.Snippet
			c := types.Comment{
				Author:        top.AuthorDisplayName,
				Text:          top.TextDisplay,
				LikeCount:     top.LikeCount,
				PublishedAt:   top.PublishedAt,
				AuthorProfile: top.AuthorProfileImageURL,
				OriginTitle:   title,
			}
			for _, r := range it.Replies.Comments {
				c.Replies = append(c.Replies, types.Reply{
					Author:        r.Snippet.AuthorDisplayName,
					Text:          r.Snippet.TextDisplay,
					LikeCount:     r.Snippet.LikeCount,
					PublishedAt:   r.Snippet.PublishedAt,
					AuthorProfile: r.Snippet.AuthorProfileImageURL,
				})
			}
			comments = append(comments, c)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return comments, nil
}

// getJSON performs one API GET, rotating keys on quota errors. It tries
// each key at most once before giving up with ErrQuotaExhausted.
func (s *YouTubeSource) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	attempts := s.ring.Len()
	for attempt := 0; attempt <= attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		params.Set("key", s.ring.Current())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusForbidden {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			msg := string(body)
			if strings.Contains(msg, "quotaExceeded") || strings.Contains(msg, "dailyLimitExceeded") {
				if cooldown := s.ring.MarkExhausted(); cooldown > 0 {
					return fmt.Errorf("%w: cooldown %v", ErrQuotaExhausted, cooldown)
				}
				continue
			}
			return fmt.Errorf("api returned 403: %s", msg)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("api returned %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
	return ErrQuotaExhausted
}
