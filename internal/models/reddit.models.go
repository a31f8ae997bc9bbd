package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DeletedAuthor stands in for an author reddit no longer reports.
	DeletedAuthor = "[deleted]"
	UnknownAuthor = "[unknown]"
)

// Everything below mirrors reddit's JSON envelopes. Every field is optional
// upstream, so each one is a pointer with an accessor that supplies the
// fallback.

type RedditListing struct {
	Kind string             `json:"kind"`
	Data *RedditListingData `json:"data"`
}

type RedditListingData struct {
	After    *string       `json:"after"`
	Children []RedditThing `json:"children"`
}

type RedditThing struct {
	Kind string          `json:"kind"`
	Data RedditThingData `json:"data"`
}

type RedditThingData struct {
	ID             *string  `json:"id"`
	Name           *string  `json:"name"`
	Title          *string  `json:"title"`
	Author         *string  `json:"author"`
	AuthorFullname *string  `json:"author_fullname"`
	Subreddit      *string  `json:"subreddit"`
	Selftext       *string  `json:"selftext"`
	Body           *string  `json:"body"`
	URL            *string  `json:"url"`
	Permalink      *string  `json:"permalink"`
	Ups            *float64 `json:"ups"`
	Downs          *float64 `json:"downs"`
	Score          *float64 `json:"score"`
	NumComments    *float64 `json:"num_comments"`
	CreatedUTC     *float64 `json:"created_utc"`
	ParentID       *string  `json:"parent_id"`
	LinkID         *string  `json:"link_id"`
	Stickied       *bool    `json:"stickied"`
}

// Things returns the listing children, or nil when the container is absent.
func (l *RedditListing) Things() []RedditThing {
	if l == nil || l.Data == nil {
		return nil
	}
	return l.Data.Children
}

// RedditCommentResponse is the api_type=json envelope returned by /api/comment.
type RedditCommentResponse struct {
	JSON *struct {
		Errors []any `json:"errors"`
		Data   *struct {
			Things []RedditThing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// ErrorMessages flattens reddit's [[code, message, field], ...] error list.
func (r *RedditCommentResponse) ErrorMessages() []string {
	if r == nil || r.JSON == nil {
		return nil
	}

	var msgs []string
	for _, raw := range r.JSON.Errors {
		switch e := raw.(type) {
		case string:
			if e != "" {
				msgs = append(msgs, e)
			}
		case []any:
			var code, text string
			if len(e) > 0 {
				code, _ = e[0].(string)
			}
			if len(e) > 1 {
				text, _ = e[1].(string)
			}
			switch {
			case code != "" && text != "":
				msgs = append(msgs, fmt.Sprintf("%s: %s", code, text))
			case text != "":
				msgs = append(msgs, text)
			case code != "":
				msgs = append(msgs, code)
			}
		case nil:
		default:
			msgs = append(msgs, fmt.Sprint(e))
		}
	}
	return msgs
}

// HasErrors reports whether the errors array is present and non-empty.
func (r *RedditCommentResponse) HasErrors() bool {
	return r != nil && r.JSON != nil && len(r.JSON.Errors) > 0
}

// FirstThing returns the first created thing, if any.
func (r *RedditCommentResponse) FirstThing() (RedditThing, bool) {
	if r == nil || r.JSON == nil || r.JSON.Data == nil || len(r.JSON.Data.Things) == 0 {
		return RedditThing{}, false
	}
	return r.JSON.Data.Things[0], true
}

func StringOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func IntOr(p *float64, fallback int) int {
	if p == nil {
		return fallback
	}
	return int(*p)
}

// AuthorName substitutes DeletedAuthor for a missing or deleted author.
func (d RedditThingData) AuthorName() string {
	name := strings.TrimSpace(StringOr(d.Author, ""))
	if name == "" || name == DeletedAuthor {
		return DeletedAuthor
	}
	return name
}

func (d RedditThingData) IsStickied() bool {
	return d.Stickied != nil && *d.Stickied
}

// CreatedAt renders created_utc as an ISO-8601 instant, epoch when absent.
func (d RedditThingData) CreatedAt() string {
	secs := 0.0
	if d.CreatedUTC != nil {
		secs = *d.CreatedUTC
	}
	return FormatISO(time.UnixMilli(int64(secs * 1000)))
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

const ISOLayout = "2006-01-02T15:04:05.000Z07:00"
