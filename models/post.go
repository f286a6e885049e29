package models

import "time"

// Post is a content record owned by exactly one user. The owner is set at
// creation and never changes.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PostCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PostUpdate is a sparse update, same convention as UserUpdate.
type PostUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type PostResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func NewPostResponse(p *Post) PostResponse {
	return PostResponse{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
	}
}
