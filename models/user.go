package models

import "time"

// User mirrors a row of the users table. The password digest is never
// serialized outward.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	PasswordDigest string    `json:"-"`
	PictureURL     *string   `json:"pictureUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type UserCreate struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Password   string  `json:"password"`
	PictureURL *string `json:"pictureUrl,omitempty"`
}

type UserCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is a sparse update: a nil field means "leave the column
// untouched". A present empty string is applied as-is.
type UserUpdate struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	PictureURL *string `json:"pictureUrl"`
}

type PasswordUpdate struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the outward shape of a user record.
type UserResponse struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	PictureURL *string `json:"pictureUrl,omitempty"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		PictureURL: u.PictureURL,
	}
}
