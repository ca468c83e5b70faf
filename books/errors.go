package books

import "errors"

// Sentinel errors for the book service.
var (
	// ErrNotFound is returned when a book or category does not exist.
	ErrNotFound = errors.New("books: not found")

	// ErrTitleRequired is returned for book input without a title.
	ErrTitleRequired = errors.New("books: title is required")

	// ErrAuthorRequired is returned for book input without an author.
	ErrAuthorRequired = errors.New("books: author is required")

	// ErrCategoryRequired is returned for book input without a category.
	ErrCategoryRequired = errors.New("books: category is required")

	// ErrNameRequired is returned for category input without a name.
	ErrNameRequired = errors.New("books: name is required")
)
