package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communityd/internal/community"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CommunityStore implements community.Store on a SQLite database.
type CommunityStore struct {
	db *sql.DB
}

// Ensure CommunityStore implements the interface at compile time.
var _ community.Store = (*CommunityStore)(nil)

func (s *CommunityStore) Close() error {
	return s.db.Close()
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func fromNull(value sql.NullString) string {
	if value.Valid {
		return value.String
	}
	return ""
}

func parseTime(value string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, value)
	return t
}

// ========== Inserts ==========

func (s *CommunityStore) InsertPendingPost(ctx context.Context, locale, title, body, authorName string) (*community.Post, error) {
	post := &community.Post{
		ID:         uuid.NewString(),
		Locale:     locale,
		Title:      title,
		Body:       body,
		AuthorName: authorName,
		Status:     community.StatusPending,
		CreatedAt:  time.Now().UTC(),
		Comments:   []community.Comment{},
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, locale, title, body, author_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, post.ID, post.Locale, post.Title, post.Body, nullable(post.AuthorName), post.Status, post.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *CommunityStore) InsertPendingComment(ctx context.Context, postID, body, authorName string) (*community.Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	defer tx.Rollback()

	// The parent must be published right now; checking inside the
	// insert transaction keeps a concurrent hide from racing past us.
	var one int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM posts WHERE id = ? AND status = ?
	`, postID, community.StatusPublished).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, community.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("validate post %s: %w", postID, err)
	}

	comment := &community.Comment{
		ID:         uuid.NewString(),
		PostID:     postID,
		Body:       body,
		AuthorName: authorName,
		Status:     community.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, body, author_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, comment.ID, comment.PostID, comment.Body, nullable(comment.AuthorName), comment.Status, comment.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *CommunityStore) InsertPendingAsk(ctx context.Context, locale, subject, body, email string) (*community.Ask, error) {
	ask := &community.Ask{
		ID:        uuid.NewString(),
		Locale:    locale,
		Subject:   subject,
		Body:      body,
		Email:     email,
		Status:    community.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asks (id, locale, subject, body, email, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ask.ID, ask.Locale, ask.Subject, ask.Body, nullable(ask.Email), ask.Status, ask.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert ask: %w", err)
	}
	return ask, nil
}

// ========== Public reads ==========

func (s *CommunityStore) ListPublishedPosts(ctx context.Context, locale string, page, pageSize int) (*community.PostPage, error) {
	where := `WHERE status = ?`
	args := []any{community.StatusPublished}
	if locale != "" {
		where += ` AND locale = ?`
		args = append(args, locale)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	query := `
		SELECT id, locale, title, body, author_name, status, created_at
		FROM posts ` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := []community.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return &community.PostPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *CommunityStore) GetPublishedPost(ctx context.Context, id, locale string) (*community.Post, error) {
	query := `
		SELECT id, locale, title, body, author_name, status, created_at
		FROM posts WHERE id = ? AND status = ?`
	args := []any{id, community.StatusPublished}
	if locale != "" {
		query += ` AND locale = ?`
		args = append(args, locale)
	}

	post, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, community.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, body, author_name, status, created_at
		FROM comments
		WHERE post_id = ? AND status = ?
		ORDER BY created_at ASC
	`, id, community.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("get comments for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		post.Comments = append(post.Comments, *comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get comments for %s: %w", id, err)
	}

	return post, nil
}

// ========== Moderation queue ==========

func (s *CommunityStore) PendingQueue(ctx context.Context, page, pageSize int) (*community.ModerationQueue, error) {
	queue := &community.ModerationQueue{}
	limit := pageSize
	offset := (page - 1) * pageSize

	// The three queues are independent; fetch them concurrently.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var total int
		if err := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM posts WHERE status = ?`, community.StatusPending).Scan(&total); err != nil {
			return fmt.Errorf("count pending posts: %w", err)
		}

		rows, err := s.db.QueryContext(gctx, `
			SELECT id, locale, title, body, author_name, status, created_at
			FROM posts WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, community.StatusPending, limit, offset)
		if err != nil {
			return fmt.Errorf("list pending posts: %w", err)
		}
		defer rows.Close()

		items := []community.Post{}
		for rows.Next() {
			post, err := scanPost(rows)
			if err != nil {
				return err
			}
			items = append(items, *post)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list pending posts: %w", err)
		}
		queue.Posts = community.PostPage{Items: items, Total: total, Page: page, PageSize: pageSize}
		return nil
	})

	g.Go(func() error {
		var total int
		if err := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM comments WHERE status = ?`, community.StatusPending).Scan(&total); err != nil {
			return fmt.Errorf("count pending comments: %w", err)
		}

		rows, err := s.db.QueryContext(gctx, `
			SELECT id, post_id, body, author_name, status, created_at
			FROM comments WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, community.StatusPending, limit, offset)
		if err != nil {
			return fmt.Errorf("list pending comments: %w", err)
		}
		defer rows.Close()

		items := []community.Comment{}
		for rows.Next() {
			comment, err := scanComment(rows)
			if err != nil {
				return err
			}
			items = append(items, *comment)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list pending comments: %w", err)
		}
		queue.Comments = community.CommentPage{Items: items, Total: total, Page: page, PageSize: pageSize}
		return nil
	})

	g.Go(func() error {
		var total int
		if err := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM asks WHERE status = ?`, community.StatusPending).Scan(&total); err != nil {
			return fmt.Errorf("count pending asks: %w", err)
		}

		rows, err := s.db.QueryContext(gctx, `
			SELECT id, locale, subject, body, email, status, created_at
			FROM asks WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, community.StatusPending, limit, offset)
		if err != nil {
			return fmt.Errorf("list pending asks: %w", err)
		}
		defer rows.Close()

		items := []community.Ask{}
		for rows.Next() {
			ask, err := scanAsk(rows)
			if err != nil {
				return err
			}
			items = append(items, *ask)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list pending asks: %w", err)
		}
		queue.Asks = community.AskPage{Items: items, Total: total, Page: page, PageSize: pageSize}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return queue, nil
}

// ========== Moderation actions ==========

func (s *CommunityStore) ApplyAction(ctx context.Context, entity community.Entity, id string, action community.Action) (*community.ActionResult, error) {
	var table string
	switch entity {
	case community.EntityPosts:
		table = "posts"
	case community.EntityComments:
		table = "comments"
	case community.EntityAsks:
		table = "asks"
	default:
		return nil, fmt.Errorf("unknown entity %q", entity)
	}

	status := action.Status()
	result, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if affected == 0 {
		return nil, community.ErrNotFound
	}

	return &community.ActionResult{ID: id, Status: status}, nil
}

// ========== Row scanning ==========

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*community.Post, error) {
	var post community.Post
	var author sql.NullString
	var createdAt string

	err := row.Scan(&post.ID, &post.Locale, &post.Title, &post.Body, &author, &post.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}

	post.AuthorName = fromNull(author)
	post.CreatedAt = parseTime(createdAt)
	post.Comments = []community.Comment{}
	return &post, nil
}

func scanComment(row rowScanner) (*community.Comment, error) {
	var comment community.Comment
	var author sql.NullString
	var createdAt string

	err := row.Scan(&comment.ID, &comment.PostID, &comment.Body, &author, &comment.Status, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan comment: %w", err)
	}

	comment.AuthorName = fromNull(author)
	comment.CreatedAt = parseTime(createdAt)
	return &comment, nil
}

func scanAsk(row rowScanner) (*community.Ask, error) {
	var ask community.Ask
	var email sql.NullString
	var createdAt string

	err := row.Scan(&ask.ID, &ask.Locale, &ask.Subject, &ask.Body, &email, &ask.Status, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan ask: %w", err)
	}

	ask.Email = fromNull(email)
	ask.CreatedAt = parseTime(createdAt)
	return &ask, nil
}
