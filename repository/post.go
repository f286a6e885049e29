package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"postable/models"
)

const postColumns = "id, title, content, user_id, created_at, updated_at"

type PostRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostRepository(pool *pgxpool.Pool, log zerolog.Logger) *PostRepository {
	return &PostRepository{
		pool: pool,
		log:  log,
	}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.UserID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns every post owned by the given user, in store order.
func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.log.Error().Err(err).Int64("userId", userID).Msg("post list failed")
		return nil, fmt.Errorf("cannot get those posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot get those posts: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		r.log.Error().Err(err).Int64("userId", userID).Msg("post list failed")
		return nil, fmt.Errorf("cannot get those posts: %w", err)
	}

	return posts, nil
}

// Create inserts a post bound to its owner.
func (r *PostRepository) Create(ctx context.Context, userID int64, in models.PostCreate) (*models.Post, error) {
	query := `
		INSERT INTO posts (title, content, user_id)
		VALUES ($1, $2, $3)
		RETURNING ` + postColumns

	post, err := scanPost(r.pool.QueryRow(ctx, query, in.Title, in.Content, userID))
	if err != nil {
		r.log.Error().Err(err).Int64("userId", userID).Msg("post insert failed")
		return nil, fmt.Errorf("cannot create that post: %w", err)
	}

	return post, nil
}

// Update applies only the fields present in the sparse input. With zero
// present fields it is a no-op that returns the current row.
func (r *PostRepository) Update(ctx context.Context, id int64, in models.PostUpdate) (*models.Post, error) {
	var set updateSet
	if in.Title != nil {
		set.add("title", *in.Title)
	}
	if in.Content != nil {
		set.add("content", *in.Content)
	}

	if set.empty() {
		return r.findByID(ctx, id)
	}
	set.addExpr("updated_at = now()")

	query := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d RETURNING %s`, set.clause(), set.next(), postColumns)

	post, err := scanPost(r.pool.QueryRow(ctx, query, append(set.args, id)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Int64("id", id).Msg("post update failed")
		return nil, fmt.Errorf("cannot update that post: %w", err)
	}

	return post, nil
}

func (r *PostRepository) findByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get that post: %w", err)
	}
	return post, nil
}

// Delete removes the row. Zero rows affected is an outcome, not an error.
func (r *PostRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("post delete failed")
		return 0, fmt.Errorf("cannot delete that post: %w", err)
	}

	return tag.RowsAffected(), nil
}

// IsOwnedBy reports whether the post exists and belongs to the given user,
// in a single predicate. A missing post and a foreign post are the same
// answer. This is the only authorization primitive for posts.
func (r *PostRepository) IsOwnedBy(ctx context.Context, id, userID int64) (bool, error) {
	var owned bool
	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND user_id = $2)`

	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&owned); err != nil {
		r.log.Error().Err(err).Int64("id", id).Int64("userId", userID).Msg("post ownership check failed")
		return false, fmt.Errorf("cannot check post ownership: %w", err)
	}

	return owned, nil
}
