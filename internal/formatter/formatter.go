// Package formatter turns client results into the positioned SearchResponse
// and renders it as the text block returned to the assistant.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/spacesedan/redditmcp/internal/models"
)

const (
	contentPreviewRunes = 200
	ellipsis            = "..."
	noResultsLine       = "No posts found matching your query."
	postedLayout        = "2006-01-02 15:04:05 UTC"
)

var rule = strings.Repeat("=", 50)

// RedditURL is the canonical in-platform link for a post.
func RedditURL(post models.Post) string {
	return fmt.Sprintf("https://reddit.com/r/%s/comments/%s", post.Subreddit, post.ID)
}

func FormatPost(post models.Post, user models.User, position int) models.FormattedPost {
	return models.FormattedPost{
		Position:  position,
		ID:        post.ID,
		Title:     post.Title,
		Author:    user.Name,
		Subreddit: post.Subreddit,
		Content:   post.Text,
		URL:       post.URL,
		Metrics:   post.Metrics,
		RedditURL: RedditURL(post),
		CreatedAt: post.CreatedAt,
	}
}

// FormatSearchResponse joins posts with their authors. Posts whose author has
// no entry in users are dropped; the survivors are numbered 1..N in input
// order and Count is the number of survivors, not of fetched posts.
func FormatSearchResponse(query, subreddit string, posts []models.Post, users []models.User) models.SearchResponse {
	byName := make(map[string]models.User, len(users))
	for _, u := range users {
		if _, ok := byName[u.Name]; !ok {
			byName[u.Name] = u
		}
	}

	formatted := make([]models.FormattedPost, 0, len(posts))
	for _, post := range posts {
		user, ok := byName[post.Author]
		if !ok {
			continue
		}
		formatted = append(formatted, FormatPost(post, user, len(formatted)+1))
	}

	return models.SearchResponse{
		Query:     query,
		Subreddit: subreddit,
		Count:     len(formatted),
		Posts:     formatted,
	}
}

// ToMCPResponse renders resp as plain text. It is a pure function of resp.
func ToMCPResponse(resp models.SearchResponse) string {
	header := strings.Join([]string{
		"REDDIT SEARCH RESULTS",
		"Query: \"" + resp.Query + "\" in r/" + resp.Subreddit,
		fmt.Sprintf("Found %d posts", resp.Count),
		rule,
	}, "\n")

	if resp.Count == 0 || len(resp.Posts) == 0 {
		return header + "\n" + noResultsLine
	}

	blocks := make([]string, 0, len(resp.Posts)+1)
	blocks = append(blocks, header)
	for _, post := range resp.Posts {
		blocks = append(blocks, renderPost(post))
	}
	return strings.Join(blocks, "\n\n")
}

func renderPost(post models.FormattedPost) string {
	lines := []string{
		fmt.Sprintf("Post #%d", post.Position),
		"Title: " + post.Title,
		"Author: u/" + post.Author,
		"Subreddit: r/" + post.Subreddit,
	}
	if post.Content != "" {
		lines = append(lines, "Content: "+Truncate(post.Content, contentPreviewRunes))
	}
	if post.URL != "" {
		lines = append(lines, "Link: "+post.URL)
	}
	lines = append(lines,
		fmt.Sprintf("Score: %d (%d upvotes, %d downvotes)", post.Metrics.Score, post.Metrics.Upvotes, post.Metrics.Downvotes),
		fmt.Sprintf("Comments: %d", post.Metrics.Comments),
	)
	if post.Sentiment != nil {
		lines = append(lines, fmt.Sprintf("Sentiment: %s (%.2f)", post.Sentiment.Label, post.Sentiment.Score))
	}
	lines = append(lines,
		"Posted: "+humanTime(post.CreatedAt),
		"Reddit URL: "+post.RedditURL,
		rule,
	)
	return strings.Join(lines, "\n")
}

// Truncate keeps the first limit runes of s and marks the cut with an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}

func humanTime(iso string) string {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return iso
	}
	return t.UTC().Format(postedLayout)
}
