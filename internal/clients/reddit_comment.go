package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spacesedan/redditmcp/internal/models"
)

// PostComment submits req.Text as a reply to req.ParentID. Without a parent it
// replies to the first non-stickied hot post of req.Subreddit.
func (rc *RedditClient) PostComment(ctx context.Context, req models.CommentRequest) (*models.PostedComment, error) {
	if err := rc.governor.Gate(ctx, ENDPOINT_COMMENT); err != nil {
		return nil, err
	}

	parent := req.ParentID
	if parent == "" {
		var err error
		parent, err = rc.defaultReplyTarget(ctx, req.Subreddit)
		if err != nil {
			return nil, err
		}
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("text", req.Text)
	form.Set("thing_id", parent)

	var resp models.RedditCommentResponse
	err := rc.call(ctx, apiRequest{
		method:      http.MethodPost,
		path:        "/api/comment",
		form:        form,
		contentType: "application/x-www-form-urlencoded",
	}, &resp)
	if err != nil {
		return nil, err
	}

	comment, err := CommentFromResponse(&resp, req, parent, models.FormatISO(rc.clock.Now()))
	if err != nil {
		return nil, err
	}

	slog.Info("[RedditClient] Comment posted",
		slog.String("id", comment.ID),
		slog.String("subreddit", comment.Subreddit),
		slog.String("parent_id", comment.ParentID))
	return comment, nil
}

func (rc *RedditClient) defaultReplyTarget(ctx context.Context, subreddit string) (string, error) {
	if err := rc.governor.Gate(ctx, ENDPOINT_HOT); err != nil {
		return "", err
	}

	queryParams := url.Values{}
	queryParams.Set("limit", strconv.Itoa(hotCandidateLimit))
	queryParams.Set("raw_json", "1")

	var listing models.RedditListing
	err := rc.call(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/r/" + url.PathEscape(subreddit) + "/hot",
		query:  queryParams,
	}, &listing)
	if err != nil {
		return "", err
	}

	target, ok := pickReplyTarget(listing.Things())
	if !ok {
		return "", newError(KindSubmissionRejected, 0, nil, "no posts found in r/%s to comment on", subreddit)
	}

	fullname := models.StringOr(target.Name, "")
	if fullname == "" {
		id := models.StringOr(target.ID, "")
		if id == "" {
			return "", newError(KindMalformedResponse, 0, nil, "hot post in r/%s has no identifier", subreddit)
		}
		fullname = "t3_" + id
	}

	slog.Info("[RedditClient] No parent given, replying to hot post",
		slog.String("subreddit", subreddit),
		slog.String("parent_id", fullname))
	return fullname, nil
}

func pickReplyTarget(things []models.RedditThing) (models.RedditThingData, bool) {
	if len(things) == 0 {
		return models.RedditThingData{}, false
	}
	for _, thing := range things {
		if !thing.Data.IsStickied() {
			return thing.Data, true
		}
	}
	return things[0].Data, true
}

// CommentFromResponse unpacks the /api/comment envelope. Fields reddit leaves
// out fall back to what was submitted; now is the fallback creation time.
func CommentFromResponse(resp *models.RedditCommentResponse, req models.CommentRequest, parent, now string) (*models.PostedComment, error) {
	if resp.HasErrors() {
		msgs := resp.ErrorMessages()
		msg := "submission rejected"
		if len(msgs) > 0 {
			msg = strings.Join(msgs, "; ")
		}
		slog.Warn("[RedditClient] Comment rejected", slog.String("errors", msg))
		return nil, newError(KindSubmissionRejected, 0, nil, "%s", msg)
	}

	thing, ok := resp.FirstThing()
	if !ok {
		return nil, newError(KindMalformedResponse, 0, nil, "comment response contains neither errors nor a created thing")
	}

	d := thing.Data
	id := models.StringOr(d.ID, strings.TrimPrefix(models.StringOr(d.Name, ""), "t1_"))
	if id == "" {
		return nil, newError(KindMalformedResponse, 0, nil, "created comment has no identifier")
	}

	subreddit := models.StringOr(d.Subreddit, req.Subreddit)
	createdAt := now
	if d.CreatedUTC != nil {
		createdAt = d.CreatedAt()
	}

	return &models.PostedComment{
		ID:        id,
		Text:      models.StringOr(d.Body, req.Text),
		Author:    models.StringOr(d.Author, models.UnknownAuthor),
		Subreddit: subreddit,
		ParentID:  models.StringOr(d.ParentID, parent),
		URL:       commentURL(d, subreddit, parent, id),
		CreatedAt: createdAt,
	}, nil
}

func commentURL(d models.RedditThingData, subreddit, parent, id string) string {
	if permalink := models.StringOr(d.Permalink, ""); permalink != "" {
		if strings.HasPrefix(permalink, "http") {
			return permalink
		}
		return REDDIT_WEB_URL + permalink
	}

	link := models.StringOr(d.LinkID, "")
	if link == "" && strings.HasPrefix(parent, "t3_") {
		link = parent
	}
	if link = strings.TrimPrefix(link, "t3_"); link != "" {
		return fmt.Sprintf("%s/r/%s/comments/%s/_/%s", REDDIT_WEB_URL, subreddit, link, id)
	}
	return fmt.Sprintf("%s/r/%s", REDDIT_WEB_URL, subreddit)
}
