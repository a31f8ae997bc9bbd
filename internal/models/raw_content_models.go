package models

import "time"

// RawContent is the envelope search results are published in for downstream
// consumers.
type RawContent struct {
	ContentID string          `json:"content_id"`
	Source    string          `json:"source"`
	Query     string          `json:"query"`
	Title     string          `json:"title"`
	Text      string          `json:"text"`
	Metadata  ContentMetadata `json:"metadata"`
}

type ContentMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Subreddit string    `json:"subreddit,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Score     int       `json:"score"`
	Comments  int       `json:"comments"`
}
