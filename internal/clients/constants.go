package clients

import "time"

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
	REDDIT_WEB_URL  = "https://reddit.com"
	USER_AGENT      = "reddit-mcp-server/1.0.0"

	// Logical endpoint keys for the rate governor.
	ENDPOINT_SEARCH  = "posts/search"
	ENDPOINT_HOT     = "posts/hot"
	ENDPOINT_COMMENT = "comment/create"

	DEFAULT_MIN_INTERVAL = 2 * time.Second
	DEFAULT_TOKEN_MARGIN = 5 * time.Minute
	DEFAULT_HTTP_TIMEOUT = 30 * time.Second

	// Upper bound on how much of an error body is kept for diagnostics.
	maxErrorBodyBytes = 64 << 10
	hotCandidateLimit = 5
)
