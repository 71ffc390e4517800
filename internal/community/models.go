// Package community defines the moderated content entities (posts,
// comments, asks), their lifecycle, and the persistence interface the
// moderation workflow runs against.
package community

import "time"

// Status is the moderation lifecycle of a submission. Everything is
// created pending; only an authenticated moderation action moves it,
// and moves are reversible (a published item can be re-hidden and vice
// versa).
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusHidden    Status = "hidden"
)

// Entity names one of the three moderated tables.
type Entity string

const (
	EntityPosts    Entity = "posts"
	EntityComments Entity = "comments"
	EntityAsks     Entity = "asks"
)

// ParseEntity validates an entity name from a request.
func ParseEntity(value string) (Entity, bool) {
	switch Entity(value) {
	case EntityPosts, EntityComments, EntityAsks:
		return Entity(value), true
	}
	return "", false
}

// Action is a moderation decision on a single item.
type Action string

const (
	ActionPublish Action = "publish"
	ActionHide    Action = "hide"
)

// ParseAction validates an action name from a request.
func ParseAction(value string) (Action, bool) {
	switch Action(value) {
	case ActionPublish, ActionHide:
		return Action(value), true
	}
	return "", false
}

// Status returns the status an action deterministically maps to.
func (a Action) Status() Status {
	if a == ActionPublish {
		return StatusPublished
	}
	return StatusHidden
}

// Locales supported by the site.
var Locales = []string{"en", "zh-CN"}

// IsLocale reports whether value is a supported locale code.
func IsLocale(value string) bool {
	for _, locale := range Locales {
		if value == locale {
			return true
		}
	}
	return false
}

// Post is a community board post.
type Post struct {
	ID         string    `json:"id"`
	Locale     string    `json:"locale"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	// Comments is populated only by GetPublishedPost and holds the
	// post's published comments oldest-first.
	Comments []Comment `json:"comments"`
}

// Comment belongs to a post. A comment can only ever be created against
// a post that is published at creation time.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ask is a question submitted through the ask form.
type Ask struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Email     string    `json:"email,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PostPage is one page of posts plus the total match count.
type PostPage struct {
	Items    []Post `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// CommentPage is one page of comments plus the total match count.
type CommentPage struct {
	Items    []Comment `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// AskPage is one page of asks plus the total match count.
type AskPage struct {
	Items    []Ask `json:"items"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// ModerationQueue is the aggregate pending listing the moderation
// console renders: all three queues at once, each paginated
// independently with the same page/pageSize.
type ModerationQueue struct {
	Posts    PostPage    `json:"posts"`
	Comments CommentPage `json:"comments"`
	Asks     AskPage     `json:"asks"`
}

// ActionResult is the terse outcome of a moderation action.
type ActionResult struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}
