// Package repository holds the parameterized SQL behind the users and posts
// tables. No other package issues queries against them.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"postable/models"
)

const userColumns = "id, email, first_name, last_name, password_digest, picture_url, created_at, updated_at"

type UserRepository struct {
	pool       *pgxpool.Pool
	log        zerolog.Logger
	bcryptCost int
}

func NewUserRepository(pool *pgxpool.Pool, log zerolog.Logger, bcryptCost int) *UserRepository {
	return &UserRepository{
		pool:       pool,
		log:        log,
		bcryptCost: bcryptCost,
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordDigest,
		&u.PictureURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns nil, nil when no user has that id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Int64("id", id).Msg("user lookup failed")
		return nil, fmt.Errorf("cannot get that user: %w", err)
	}

	return user, nil
}

// FindByEmail returns nil, nil when no user has that email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Str("email", email).Msg("user lookup by email failed")
		return nil, fmt.Errorf("cannot get that user: %w", err)
	}

	return user, nil
}

// Create hashes the plaintext password and inserts the row. Uniqueness
// violations surface as a generic persistence error.
func (r *UserRepository) Create(ctx context.Context, in models.UserCreate) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("cannot hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, first_name, last_name, password_digest, picture_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, in.Email, in.FirstName, in.LastName, string(hash), in.PictureURL))
	if err != nil {
		r.log.Error().Err(err).Str("email", in.Email).Msg("user insert failed")
		return nil, fmt.Errorf("cannot create that user: %w", err)
	}

	return user, nil
}

// Authenticate returns the matching user, or nil, nil for both an unknown
// email and a wrong password. The two cases are indistinguishable outward.
func (r *UserRepository) Authenticate(ctx context.Context, creds models.UserCredentials) (*models.User, error) {
	user, err := r.FindByEmail(ctx, creds.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(creds.Password)) != nil {
		return nil, nil
	}

	return user, nil
}

// Update applies only the fields present in the sparse input. With zero
// present fields it is a no-op that returns the current row.
func (r *UserRepository) Update(ctx context.Context, id int64, in models.UserUpdate) (*models.User, error) {
	var set updateSet
	if in.Email != nil {
		set.add("email", *in.Email)
	}
	if in.FirstName != nil {
		set.add("first_name", *in.FirstName)
	}
	if in.LastName != nil {
		set.add("last_name", *in.LastName)
	}
	if in.PictureURL != nil {
		set.add("picture_url", *in.PictureURL)
	}

	if set.empty() {
		return r.FindByID(ctx, id)
	}
	set.addExpr("updated_at = now()")

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, set.clause(), set.next(), userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, append(set.args, id)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Int64("id", id).Msg("user update failed")
		return nil, fmt.Errorf("cannot update that user: %w", err)
	}

	return user, nil
}

// UpdatePassword re-hashes and overwrites the digest. Returns the number of
// rows touched; zero means no such user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, newPassword string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("cannot hash password: %w", err)
	}

	query := `UPDATE users SET password_digest = $1, updated_at = now() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, string(hash), id)
	if err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("password update failed")
		return 0, fmt.Errorf("cannot update that password: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Delete removes the row. Zero rows affected is an outcome, not an error.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("user delete failed")
		return 0, fmt.Errorf("cannot delete that user: %w", err)
	}

	return tag.RowsAffected(), nil
}
