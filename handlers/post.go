package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"postable/models"
)

type PostHandler struct {
	posts PostStore
	log   zerolog.Logger
}

func NewPostHandler(posts PostStore, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts: posts,
		log:   log,
	}
}

// Index lists the caller's own posts.
func (h *PostHandler) Index(c *gin.Context) {
	posts, err := h.posts.ListByUser(c.Request.Context(), callerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	out := make([]models.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, models.NewPostResponse(&posts[i]))
	}

	c.JSON(http.StatusOK, out)
}

func (h *PostHandler) Create(c *gin.Context) {
	var in models.PostCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if in.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "title is required"})
		return
	}
	if in.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "content is required"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), callerID(c), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	c.JSON(http.StatusOK, models.NewPostResponse(post))
}

// Update mutates a post after the single existence+ownership predicate. A
// post that doesn't exist and a post owned by someone else get the same 401.
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another post"})
		return
	}

	ctx := c.Request.Context()

	owned, err := h.posts.IsOwnedBy(ctx, id, callerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if !owned {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another post"})
		return
	}

	var in models.PostUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	post, err := h.posts.Update(ctx, id, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if post == nil {
		// deleted between the ownership check and the update
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another post"})
		return
	}

	c.JSON(http.StatusOK, models.NewPostResponse(post))
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't delete another post"})
		return
	}

	ctx := c.Request.Context()

	owned, err := h.posts.IsOwnedBy(ctx, id, callerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if !owned {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't delete another post"})
		return
	}

	affected, err := h.posts.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if affected == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't delete another post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Post %d deleted", id)})
}
