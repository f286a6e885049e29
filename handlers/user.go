package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"postable/middleware"
	"postable/models"
	"postable/storage"
)

// maxImageSize caps profile picture uploads at 5MB.
const maxImageSize = 5 << 20

type UserHandler struct {
	users     UserStore
	files     storage.Store
	jwtSecret string
	log       zerolog.Logger
}

func NewUserHandler(users UserStore, files storage.Store, jwtSecret string, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		files:     files,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// Create handles sign-up. Required fields are checked one by one, in a fixed
// order, so the first missing one names the 400.
func (h *UserHandler) Create(c *gin.Context) {
	var in models.UserCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}
	if in.FirstName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "firstName is required"})
		return
	}
	if in.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "lastName is required"})
		return
	}
	if in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "password is required"})
		return
	}

	ctx := c.Request.Context()

	existing, err := h.users.FindByEmail(ctx, in.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("User with email %s already exists", in.Email)})
		return
	}

	user, err := h.users.Create(ctx, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	token, err := middleware.SignToken(user.ID, h.jwtSecret)
	if err != nil {
		h.log.Error().Err(err).Msg("token signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "token": token})
}

// Authenticate handles login. An unknown email and a wrong password produce
// the same response, so callers cannot tell the two apart.
func (h *UserHandler) Authenticate(c *gin.Context) {
	var creds models.UserCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), creds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong email or password"})
		return
	}

	token, err := middleware.SignToken(user.ID, h.jwtSecret)
	if err != nil {
		h.log.Error().Err(err).Msg("token signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "token": token})
}

func (h *UserHandler) Show(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't see another user"})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "We don't have that user"})
		return
	}
	if !isSameUser(callerID(c), id) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't see another user"})
		return
	}

	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !isSameUser(callerID(c), id) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another user"})
		return
	}

	var in models.UserUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "We don't have that user"})
		return
	}

	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

func (h *UserHandler) UpdatePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !isSameUser(callerID(c), id) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another user"})
		return
	}

	var in models.PasswordUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if in.OldPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "oldPassword is required"})
		return
	}
	if in.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "newPassword is required"})
		return
	}

	ctx := c.Request.Context()

	user, err := h.users.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "We don't have that user"})
		return
	}

	match, err := h.users.Authenticate(ctx, models.UserCredentials{Email: user.Email, Password: in.OldPassword})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if match == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong password"})
		return
	}

	if _, err := h.users.UpdatePassword(ctx, id, in.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !isSameUser(callerID(c), id) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't delete another user"})
		return
	}

	affected, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "We don't have that user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %d deleted", id)})
}

// UploadImage replaces the user's profile picture: every object under the
// user's prefix is removed before the new one is written, so at most one
// picture exists per user.
func (h *UserHandler) UploadImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !isSameUser(callerID(c), id) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You can't update another user"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "image file is required"})
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": "image must be 5MB or smaller"})
		return
	}

	ctx := c.Request.Context()
	prefix := strconv.FormatInt(id, 10) + "/"

	old, err := h.files.List(ctx, prefix)
	if err != nil {
		h.log.Error().Err(err).Str("prefix", prefix).Msg("listing old images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}
	if err := h.files.Delete(ctx, old); err != nil {
		h.log.Error().Err(err).Str("prefix", prefix).Msg("deleting old images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	key := prefix + filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")

	if err := h.files.Upload(ctx, key, file, header.Size, contentType); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.files.URL(key)})
}
