package models

type PostMetrics struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
	Comments  int `json:"comments"`
}

type Post struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Author    string      `json:"author"`
	Subreddit string      `json:"subreddit"`
	Text      string      `json:"text,omitempty"`
	URL       string      `json:"url,omitempty"`
	Metrics   PostMetrics `json:"metrics"`
	CreatedAt string      `json:"created_at"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchResult is what the client hands back before formatting.
type SearchResult struct {
	Posts []Post `json:"posts"`
	Users []User `json:"users"`
}

type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type FormattedPost struct {
	Position  int         `json:"position"`
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Author    string      `json:"author"`
	Subreddit string      `json:"subreddit"`
	Content   string      `json:"content,omitempty"`
	URL       string      `json:"url,omitempty"`
	Metrics   PostMetrics `json:"metrics"`
	RedditURL string      `json:"reddit_url"`
	CreatedAt string      `json:"created_at"`
	Sentiment *Sentiment  `json:"sentiment,omitempty"`
}

type SearchResponse struct {
	Query     string          `json:"query"`
	Subreddit string          `json:"subreddit"`
	Count     int             `json:"count"`
	Posts     []FormattedPost `json:"posts"`
}
