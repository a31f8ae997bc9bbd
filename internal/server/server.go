// Package server exposes the Reddit client as MCP tools over stdio.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/spacesedan/redditmcp/internal/clients"
	"github.com/spacesedan/redditmcp/internal/formatter"
	"github.com/spacesedan/redditmcp/internal/models"
	"github.com/spacesedan/redditmcp/internal/sentiment"
)

const (
	SERVER_NAME    = "reddit-mcp-server"
	SERVER_VERSION = "1.0.0"

	MSG_RATE_LIMITED   = "Rate limit exceeded. Please wait a moment before trying again."
	MSG_UPSTREAM_ERROR = "Reddit API error (%s). The request could not be completed."
	MSG_INVALID_PARAMS = "Invalid parameters: %s"
)

type RedditAPI interface {
	SearchPosts(ctx context.Context, p clients.SearchParams) (models.SearchResult, error)
	PostComment(ctx context.Context, req models.CommentRequest) (*models.PostedComment, error)
}

// ContentSink receives the raw posts of every successful search.
type ContentSink interface {
	PublishSearch(ctx context.Context, query string, posts []models.Post) error
}

type Server struct {
	api  RedditAPI
	sink ContentSink
	mcp  *mcpserver.MCPServer
}

// New registers both tools. sink may be nil.
func New(api RedditAPI, sink ContentSink) *Server {
	s := &Server{
		api:  api,
		sink: sink,
		mcp: mcpserver.NewMCPServer(SERVER_NAME, SERVER_VERSION,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
	}

	s.mcp.AddTool(searchPostsTool(), s.handleSearchPosts)
	s.mcp.AddTool(postCommentTool(), s.handlePostComment)
	return s
}

func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// Serve blocks until ctx is done or stdin closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("[MCPServer] Listening on stdio", slog.String("name", SERVER_NAME))
	stdio := mcpserver.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleSearchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseSearchArgs(req.GetArguments())
	if err != nil {
		return invalidParams(err), nil
	}

	result, err := s.api.SearchPosts(ctx, args.params)
	if err != nil {
		return toolError(TOOL_SEARCH_POSTS, err), nil
	}

	resp := formatter.FormatSearchResponse(args.params.Query, args.params.Subreddit, result.Posts, result.Users)
	if args.includeSentiment {
		sentiment.Annotate(resp.Posts)
	}

	s.publish(ctx, args.params.Query, result.Posts)

	return mcp.NewToolResultText(formatter.ToMCPResponse(resp)), nil
}

func (s *Server) handlePostComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creq, err := parseCommentArgs(req.GetArguments())
	if err != nil {
		return invalidParams(err), nil
	}

	comment, err := s.api.PostComment(ctx, creq)
	if err != nil {
		return toolError(TOOL_POST_COMMENT, err), nil
	}

	return mcp.NewToolResultText(renderComment(comment)), nil
}

func (s *Server) publish(ctx context.Context, query string, posts []models.Post) {
	if s.sink == nil || len(posts) == 0 {
		return
	}
	if err := s.sink.PublishSearch(ctx, query, posts); err != nil {
		slog.Warn("[MCPServer] Failed to publish search results",
			slog.String("query", query),
			slog.String("error", err.Error()))
	}
}

func renderComment(c *models.PostedComment) string {
	var b strings.Builder
	b.WriteString("Comment posted successfully\n")
	fmt.Fprintf(&b, "ID: %s\n", c.ID)
	fmt.Fprintf(&b, "Subreddit: r/%s\n", c.Subreddit)
	fmt.Fprintf(&b, "Parent: %s\n", c.ParentID)
	if c.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", c.URL)
	}
	fmt.Fprintf(&b, "Posted: %s", c.CreatedAt)
	return b.String()
}

func invalidParams(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(MSG_INVALID_PARAMS, err.Error()))
}

// toolError logs the full error and returns a fixed message. Upstream
// payloads never reach the caller.
func toolError(tool string, err error) *mcp.CallToolResult {
	re := clients.AsRedditError(err)
	slog.Error("[MCPServer] Tool call failed",
		slog.String("tool", tool),
		slog.String("kind", string(re.Kind)),
		slog.Int("status", re.Status),
		slog.String("error", re.Error()))

	if re.Retryable() {
		return mcp.NewToolResultError(MSG_RATE_LIMITED)
	}
	return mcp.NewToolResultError(fmt.Sprintf(MSG_UPSTREAM_ERROR, re.Kind))
}
