package books

import "time"

// Book is a library entry.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	CategoryID  string    `json:"categoryId"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Category groups books.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookInput is the create/update payload.
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	CategoryID  string `json:"categoryId"`
	Description string `json:"description"`
}

// Validate checks the required fields.
func (in BookInput) Validate() error {
	if in.Title == "" {
		return ErrTitleRequired
	}
	if in.Author == "" {
		return ErrAuthorRequired
	}
	if in.CategoryID == "" {
		return ErrCategoryRequired
	}
	return nil
}

// CategoryInput is the category create payload.
type CategoryInput struct {
	Name string `json:"name"`
}
