package models

type CommentRequest struct {
	Text      string `json:"text"`
	Subreddit string `json:"subreddit"`
	// ParentID is a fullname (t1_/t3_). Empty means reply to the top hot post.
	ParentID string `json:"parent_id,omitempty"`
}

type PostedComment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	ParentID  string `json:"parent_id,omitempty"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}
