package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Repo persists books and categories in SQLite.
//
// SQLite serializes writers itself, but a single write mutex keeps
// busy-timeout errors out of the picture under concurrent mutations.
type Repo struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// OpenRepo opens (and migrates) the database at filename. An empty
// filename opens a shared in-memory database.
func OpenRepo(filename string) (*Repo, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("books: open db: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			category_id TEXT NOT NULL REFERENCES categories(id),
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS books_category_idx ON books (category_id)`,
		`PRAGMA journal_mode=WAL`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("books: migrate: %w", err)
		}
	}

	return &Repo{db: db}, nil
}

// DB exposes the underlying handle for health probes.
func (r *Repo) DB() *sql.DB { return r.db }

// Close closes the database.
func (r *Repo) Close() error { return r.db.Close() }

// ListBooks returns all books, newest first.
func (r *Repo) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, title, author, category_id, description, created_at, updated_at
		FROM books ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("books: list: %w", err)
	}
	defer rows.Close()

	list := make([]Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// GetBook returns one book by id.
func (r *Repo) GetBook(ctx context.Context, id string) (Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT
		id, title, author, category_id, description, created_at, updated_at
		FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

// CreateBook inserts a new book.
func (r *Repo) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	if err := in.Validate(); err != nil {
		return Book{}, err
	}

	now := time.Now().UTC()
	b := Book{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Author:      in.Author,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, err := r.db.ExecContext(ctx, `INSERT INTO books
		(id, title, author, category_id, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.CategoryID, b.Description,
		b.CreatedAt.Unix(), b.UpdatedAt.Unix())
	if err != nil {
		return Book{}, fmt.Errorf("books: create: %w", err)
	}
	return b, nil
}

// UpdateBook replaces a book's fields.
func (r *Repo) UpdateBook(ctx context.Context, id string, in BookInput) (Book, error) {
	if err := in.Validate(); err != nil {
		return Book{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	res, err := r.db.ExecContext(ctx, `UPDATE books
		SET title = ?, author = ?, category_id = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, in.Author, in.CategoryID, in.Description, time.Now().UTC().Unix(), id)
	if err != nil {
		return Book{}, fmt.Errorf("books: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Book{}, ErrNotFound
	}
	return r.GetBook(ctx, id)
}

// DeleteBook removes a book.
func (r *Repo) DeleteBook(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("books: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns all categories by name.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("books: list categories: %w", err)
	}
	defer rows.Close()

	list := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("books: scan category: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetCategory returns one category by id.
func (r *Repo) GetCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("books: get category: %w", err)
	}
	return c, nil
}

// CreateCategory inserts a new category.
func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	if in.Name == "" {
		return Category{}, ErrNameRequired
	}

	c := Category{ID: uuid.NewString(), Name: in.Name}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name)
	if err != nil {
		return Category{}, fmt.Errorf("books: create category: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var b Book
	var created, updated int64
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.CategoryID, &b.Description, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, err
		}
		return Book{}, fmt.Errorf("books: scan book: %w", err)
	}
	b.CreatedAt = time.Unix(created, 0).UTC()
	b.UpdatedAt = time.Unix(updated, 0).UTC()
	return b, nil
}
