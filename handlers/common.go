// Package handlers maps HTTP requests onto repository operations and shapes
// the responses. Ownership rules are enforced here, not in the repositories.
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"postable/middleware"
	"postable/models"
)

// UserStore is what the user handlers need from the user repository.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, in models.UserCreate) (*models.User, error)
	Authenticate(ctx context.Context, creds models.UserCredentials) (*models.User, error)
	Update(ctx context.Context, id int64, in models.UserUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, newPassword string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// PostStore is what the post handlers need from the post repository.
type PostStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Post, error)
	Create(ctx context.Context, userID int64, in models.PostCreate) (*models.Post, error)
	Update(ctx context.Context, id int64, in models.PostUpdate) (*models.Post, error)
	Delete(ctx context.Context, id int64) (int64, error)
	IsOwnedBy(ctx context.Context, id, userID int64) (bool, error)
}

// isSameUser is the entire authorization policy for user routes: the caller
// may only touch the record their token identifies.
func isSameUser(callerID, ownerID int64) bool {
	return callerID == ownerID
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextUserID)
}

// pathID parses the :id route parameter. A non-numeric id can never match
// any caller, so callers treat a false return like an ownership mismatch.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
