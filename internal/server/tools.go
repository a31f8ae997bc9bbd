package server

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacesedan/redditmcp/internal/clients"
	"github.com/spacesedan/redditmcp/internal/models"
)

const (
	TOOL_SEARCH_POSTS = "search_posts"
	TOOL_POST_COMMENT = "post_comment"

	MIN_SEARCH_COUNT = 1
	MAX_SEARCH_COUNT = 100
	MAX_COMMENT_LEN  = 10000
)

var (
	SORT_OPTIONS = []string{"relevance", "hot", "top", "new", "comments"}

	subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	fullnamePattern  = regexp.MustCompile(`^t[13]_[a-z0-9]+$`)
	base36Pattern    = regexp.MustCompile(`^[a-z0-9]+$`)
)

func searchPostsTool() mcp.Tool {
	return mcp.NewTool(TOOL_SEARCH_POSTS,
		mcp.WithDescription("Search for posts within a subreddit"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("subreddit",
			mcp.Required(),
			mcp.Description("Subreddit to search in, without the r/ prefix"),
			mcp.Pattern(subredditPattern.String()),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of posts to return"),
			mcp.Min(MIN_SEARCH_COUNT),
			mcp.Max(MAX_SEARCH_COUNT),
			mcp.DefaultNumber(clients.DEFAULT_SEARCH_COUNT),
		),
		mcp.WithString("sort",
			mcp.Description("Sort order"),
			mcp.Enum(SORT_OPTIONS...),
			mcp.DefaultString(clients.DEFAULT_SEARCH_SORT),
		),
		mcp.WithBoolean("include_sentiment",
			mcp.Description("Annotate each post with a sentiment score"),
			mcp.DefaultBool(false),
		),
	)
}

func postCommentTool() mcp.Tool {
	return mcp.NewTool(TOOL_POST_COMMENT,
		mcp.WithDescription("Post a comment to a subreddit post or reply to a comment"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Comment text, markdown allowed"),
			mcp.MaxLength(MAX_COMMENT_LEN),
		),
		mcp.WithString("subreddit",
			mcp.Required(),
			mcp.Description("Subreddit the target lives in"),
			mcp.Pattern(subredditPattern.String()),
		),
		mcp.WithString("parent_id",
			mcp.Description("Fullname (t3_ post or t1_ comment) or bare post id to reply to. Defaults to the top hot post"),
		),
	)
}

type searchArgs struct {
	params           clients.SearchParams
	includeSentiment bool
}

func parseSearchArgs(args map[string]any) (searchArgs, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return searchArgs{}, err
	}
	subreddit, err := subredditArg(args)
	if err != nil {
		return searchArgs{}, err
	}

	count := clients.DEFAULT_SEARCH_COUNT
	if raw, ok := args["count"]; ok && raw != nil {
		n, ok := raw.(float64)
		if !ok {
			if i, isInt := raw.(int); isInt {
				n, ok = float64(i), true
			}
		}
		if !ok || n != math.Trunc(n) {
			return searchArgs{}, fmt.Errorf("count must be an integer")
		}
		if n < MIN_SEARCH_COUNT || n > MAX_SEARCH_COUNT {
			return searchArgs{}, fmt.Errorf("count must be between %d and %d", MIN_SEARCH_COUNT, MAX_SEARCH_COUNT)
		}
		count = int(n)
	}

	sort := clients.DEFAULT_SEARCH_SORT
	if raw, ok := args["sort"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok || !validSort(s) {
			return searchArgs{}, fmt.Errorf("sort must be one of %s", strings.Join(SORT_OPTIONS, ", "))
		}
		sort = s
	}

	var sentiment bool
	if raw, ok := args["include_sentiment"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return searchArgs{}, fmt.Errorf("include_sentiment must be a boolean")
		}
		sentiment = b
	}

	return searchArgs{
		params: clients.SearchParams{
			Query:     query,
			Subreddit: subreddit,
			Count:     count,
			Sort:      sort,
		},
		includeSentiment: sentiment,
	}, nil
}

func parseCommentArgs(args map[string]any) (models.CommentRequest, error) {
	text, err := requiredString(args, "text")
	if err != nil {
		return models.CommentRequest{}, err
	}
	if utf8.RuneCountInString(text) > MAX_COMMENT_LEN {
		return models.CommentRequest{}, fmt.Errorf("text must be at most %d characters", MAX_COMMENT_LEN)
	}
	subreddit, err := subredditArg(args)
	if err != nil {
		return models.CommentRequest{}, err
	}

	var parent string
	if raw, ok := args["parent_id"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return models.CommentRequest{}, fmt.Errorf("parent_id must be a string")
		}
		if parent, err = normalizeParentID(s); err != nil {
			return models.CommentRequest{}, err
		}
	}

	return models.CommentRequest{Text: text, Subreddit: subreddit, ParentID: parent}, nil
}

// normalizeParentID accepts t1_/t3_ fullnames and bare post ids, which become
// t3_ fullnames. Empty stays empty.
func normalizeParentID(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "", nil
	case fullnamePattern.MatchString(s):
		return s, nil
	case base36Pattern.MatchString(s):
		return "t3_" + s, nil
	default:
		return "", fmt.Errorf("parent_id must be a t1_/t3_ fullname or a post id")
	}
}

func subredditArg(args map[string]any) (string, error) {
	s, err := requiredString(args, "subreddit")
	if err != nil {
		return "", err
	}
	s = strings.TrimPrefix(s, "r/")
	if !subredditPattern.MatchString(s) {
		return "", fmt.Errorf("subreddit may only contain letters, digits and underscores")
	}
	return s, nil
}

func requiredString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}
	return s, nil
}

func validSort(s string) bool {
	for _, opt := range SORT_OPTIONS {
		if s == opt {
			return true
		}
	}
	return false
}
