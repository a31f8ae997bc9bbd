package clients

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spacesedan/redditmcp/internal/models"
)

const (
	DEFAULT_SEARCH_COUNT = 25
	DEFAULT_SEARCH_SORT  = "relevance"
)

// SearchParams arrive already validated by the tool boundary.
type SearchParams struct {
	Query     string
	Subreddit string
	Count     int
	Sort      string
}

func (rc *RedditClient) SearchPosts(ctx context.Context, p SearchParams) (models.SearchResult, error) {
	if err := rc.governor.Gate(ctx, ENDPOINT_SEARCH); err != nil {
		return models.SearchResult{}, err
	}

	if p.Count <= 0 {
		p.Count = DEFAULT_SEARCH_COUNT
	}
	if p.Sort == "" {
		p.Sort = DEFAULT_SEARCH_SORT
	}

	queryParams := url.Values{}
	queryParams.Set("q", p.Query)
	queryParams.Set("sort", p.Sort)
	queryParams.Set("limit", strconv.Itoa(p.Count))
	queryParams.Set("t", "all")
	queryParams.Set("restrict_sr", "true")
	queryParams.Set("type", "link")
	queryParams.Set("raw_json", "1")

	var listing models.RedditListing
	err := rc.call(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/r/" + url.PathEscape(p.Subreddit) + "/search",
		query:  queryParams,
	}, &listing)
	if err != nil {
		return models.SearchResult{}, err
	}

	things := listing.Things()
	slog.Info("[RedditClient] Fetched posts",
		slog.String("query", p.Query),
		slog.String("subreddit", p.Subreddit),
		slog.Int("count", len(things)))

	if len(things) == 0 {
		return models.SearchResult{Posts: []models.Post{}, Users: []models.User{}}, nil
	}

	posts := make([]models.Post, 0, len(things))
	for _, thing := range things {
		posts = append(posts, PostFromThing(thing.Data, p.Subreddit))
	}

	return models.SearchResult{Posts: posts, Users: DeriveUsers(things)}, nil
}

// PostFromThing maps one listing child. fallbackSubreddit is used when the
// item does not name its own subreddit.
func PostFromThing(d models.RedditThingData, fallbackSubreddit string) models.Post {
	return models.Post{
		ID:        models.StringOr(d.ID, ""),
		Title:     models.StringOr(d.Title, ""),
		Author:    d.AuthorName(),
		Subreddit: models.StringOr(d.Subreddit, fallbackSubreddit),
		Text:      models.StringOr(d.Selftext, ""),
		URL:       externalURL(d),
		Metrics: models.PostMetrics{
			Upvotes:   models.IntOr(d.Ups, 0),
			Downvotes: models.IntOr(d.Downs, 0),
			Score:     models.IntOr(d.Score, 0),
			Comments:  models.IntOr(d.NumComments, 0),
		},
		CreatedAt: d.CreatedAt(),
	}
}

// externalURL drops the link when it only points back at the post itself.
func externalURL(d models.RedditThingData) string {
	link := models.StringOr(d.URL, "")
	permalink := models.StringOr(d.Permalink, "")
	if link == "" || permalink == "" {
		return link
	}

	normalized := strings.TrimSuffix(link, "/")
	for _, candidate := range []string{
		permalink,
		"https://www.reddit.com" + permalink,
		"https://reddit.com" + permalink,
		"https://old.reddit.com" + permalink,
	} {
		if normalized == strings.TrimSuffix(candidate, "/") {
			return ""
		}
	}
	return link
}

// DeriveUsers returns one User per distinct author name, in order of first
// appearance. An explicit "[deleted]" author is a user like any other; items
// with no author field at all contribute none.
func DeriveUsers(things []models.RedditThing) []models.User {
	users := make([]models.User, 0, len(things))
	seen := make(map[string]struct{}, len(things))

	for _, thing := range things {
		if strings.TrimSpace(models.StringOr(thing.Data.Author, "")) == "" {
			continue
		}
		name := thing.Data.AuthorName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		users = append(users, models.User{
			ID:   models.StringOr(thing.Data.AuthorFullname, name),
			Name: name,
		})
	}
	return users
}
