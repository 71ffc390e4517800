package community

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an operation targets an entity that does
// not exist in the relevant scope: a missing or non-published parent
// post for a comment, a published post lookup that matches nothing, or
// a moderation action on an unknown id.
var ErrNotFound = errors.New("community: not found")

// Store is the persistence interface for moderated content. The store
// is the sole writer of entity status: inserts always land as pending
// and only ApplyAction moves an item afterwards.
// Implementations must be safe for concurrent use.
type Store interface {
	// InsertPendingPost stores a new post with status pending.
	InsertPendingPost(ctx context.Context, locale, title, body, authorName string) (*Post, error)

	// InsertPendingComment stores a new comment with status pending.
	// It fails with ErrNotFound, storing nothing, unless the referenced
	// post exists and is currently published.
	InsertPendingComment(ctx context.Context, postID, body, authorName string) (*Comment, error)

	// InsertPendingAsk stores a new ask with status pending.
	InsertPendingAsk(ctx context.Context, locale, subject, body, email string) (*Ask, error)

	// ListPublishedPosts returns published posts newest-first,
	// optionally filtered by locale (empty locale means all).
	ListPublishedPosts(ctx context.Context, locale string, page, pageSize int) (*PostPage, error)

	// GetPublishedPost returns a published post with its published
	// comments nested oldest-first, or ErrNotFound.
	GetPublishedPost(ctx context.Context, id, locale string) (*Post, error)

	// PendingQueue returns the pending items of all three entity kinds,
	// each newest-first and paginated with the same page/pageSize.
	PendingQueue(ctx context.Context, page, pageSize int) (*ModerationQueue, error)

	// ApplyAction sets the status an action maps to on exactly one item,
	// or returns ErrNotFound when no item of that kind has the id.
	// Re-applying an action an item already reflects is a no-op success.
	ApplyAction(ctx context.Context, entity Entity, id string, action Action) (*ActionResult, error)

	// Close releases the underlying connection.
	Close() error
}
