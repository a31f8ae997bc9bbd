package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/redditmcp/internal/models"
)

func mockPosts() ([]models.Post, []models.User) {
	posts := []models.Post{
		{
			ID:        "abc123",
			Title:     "How to learn Go in 2024",
			Author:    "testuser1",
			Subreddit: "programming",
			Text:      "Here are some great resources for learning Go...",
			URL:       "https://example.com/go-guide",
			Metrics:   models.PostMetrics{Upvotes: 150, Downvotes: 10, Score: 140, Comments: 25},
			CreatedAt: "2024-01-15T10:30:00.000Z",
		},
		{
			ID:        "def456",
			Title:     "Best practices for channels",
			Author:    "gopher",
			Subreddit: "programming",
			Metrics:   models.PostMetrics{Upvotes: 89, Downvotes: 5, Score: 84, Comments: 12},
			CreatedAt: "2024-01-15T09:30:00.000Z",
		},
	}
	users := []models.User{
		{ID: "user1", Name: "testuser1"},
		{ID: "user2", Name: "gopher"},
	}
	return posts, users
}

func TestFormatSearchResponsePositions(t *testing.T) {
	posts, users := mockPosts()
	resp := FormatSearchResponse("Go", "programming", posts, users)

	assert.Equal(t, "Go", resp.Query)
	assert.Equal(t, "programming", resp.Subreddit)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Posts, 2)
	assert.Equal(t, 1, resp.Posts[0].Position)
	assert.Equal(t, "abc123", resp.Posts[0].ID)
	assert.Equal(t, 2, resp.Posts[1].Position)
	assert.Equal(t, "https://reddit.com/r/programming/comments/def456", resp.Posts[1].RedditURL)
}

func TestFormatSearchResponseDropsUnknownAuthors(t *testing.T) {
	posts, users := mockPosts()
	posts = append([]models.Post{{ID: "gone", Author: models.DeletedAuthor, Subreddit: "programming"}}, posts...)

	resp := FormatSearchResponse("Go", "programming", posts, users[1:])
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "def456", resp.Posts[0].ID)
	assert.Equal(t, 1, resp.Posts[0].Position)
	assert.LessOrEqual(t, resp.Count, len(posts))
}

func TestToMCPResponseLayout(t *testing.T) {
	posts, users := mockPosts()
	text := ToMCPResponse(FormatSearchResponse("Go", "programming", posts, users))

	expected := strings.Join([]string{
		"REDDIT SEARCH RESULTS",
		`Query: "Go" in r/programming`,
		"Found 2 posts",
		rule,
		"",
		"Post #1",
		"Title: How to learn Go in 2024",
		"Author: u/testuser1",
		"Subreddit: r/programming",
		"Content: Here are some great resources for learning Go...",
		"Link: https://example.com/go-guide",
		"Score: 140 (150 upvotes, 10 downvotes)",
		"Comments: 25",
		"Posted: 2024-01-15 10:30:00 UTC",
		"Reddit URL: https://reddit.com/r/programming/comments/abc123",
		rule,
		"",
		"Post #2",
		"Title: Best practices for channels",
		"Author: u/gopher",
		"Subreddit: r/programming",
		"Score: 84 (89 upvotes, 5 downvotes)",
		"Comments: 12",
		"Posted: 2024-01-15 09:30:00 UTC",
		"Reddit URL: https://reddit.com/r/programming/comments/def456",
		rule,
	}, "\n")
	assert.Equal(t, expected, text)
}

func TestToMCPResponseQueryVerbatim(t *testing.T) {
	out := ToMCPResponse(FormatSearchResponse(`say "hi"`, "golang", nil, nil))
	assert.Contains(t, out, "Query: \"say \"hi\"\" in r/golang\n")
	assert.NotContains(t, out, `\"`)
}

func TestToMCPResponseIdempotent(t *testing.T) {
	posts, users := mockPosts()
	first := ToMCPResponse(FormatSearchResponse("Go", "programming", posts, users))
	second := ToMCPResponse(FormatSearchResponse("Go", "programming", posts, users))
	assert.Equal(t, first, second)
}

func TestToMCPResponseEmpty(t *testing.T) {
	text := ToMCPResponse(FormatSearchResponse("nothing", "programming", nil, nil))
	assert.True(t, strings.HasSuffix(text, rule+"\nNo posts found matching your query."))
	assert.Contains(t, text, "Found 0 posts")
}

func TestTruncation(t *testing.T) {
	long := strings.Repeat("a", 250)
	short := strings.Repeat("b", 150)

	assert.Equal(t, strings.Repeat("a", 200)+"...", Truncate(long, 200))
	assert.Equal(t, short, Truncate(short, 200))
	assert.Equal(t, strings.Repeat("é", 200)+"...", Truncate(strings.Repeat("é", 201), 200))

	posts, users := mockPosts()
	posts[0].Text = long
	text := ToMCPResponse(FormatSearchResponse("Go", "programming", posts[:1], users))
	assert.Contains(t, text, "Content: "+strings.Repeat("a", 200)+"...\n")
}

func TestToMCPResponseSentimentLine(t *testing.T) {
	posts, users := mockPosts()
	resp := FormatSearchResponse("Go", "programming", posts[:1], users)
	resp.Posts[0].Sentiment = &models.Sentiment{Score: 0.6249, Label: "positive"}

	assert.Contains(t, ToMCPResponse(resp), "Comments: 25\nSentiment: positive (0.62)\nPosted:")
}

func TestHumanTimeFallsBackToRaw(t *testing.T) {
	assert.Equal(t, "yesterday", humanTime("yesterday"))
}
