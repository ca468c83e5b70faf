package books

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := OpenRepo(filepath.Join(t.TempDir(), "books.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedCategory(t *testing.T, repo *Repo, name string) Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func TestRepo_BookLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "fiction")

	created, err := repo.CreateBook(ctx, BookInput{
		Title:      "The Dispossessed",
		Author:     "Ursula K. Le Guin",
		CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != created.Title || got.Author != created.Author {
		t.Errorf("get returned %+v, want %+v", got, created)
	}

	updated, err := repo.UpdateBook(ctx, created.ID, BookInput{
		Title:      "The Left Hand of Darkness",
		Author:     created.Author,
		CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "The Left Hand of Darkness" {
		t.Errorf("update did not apply, title = %q", updated.Title)
	}

	if err := repo.DeleteBook(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetBook(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRepo_ListBooks(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "history")

	for _, title := range []string{"one", "two", "three"} {
		if _, err := repo.CreateBook(ctx, BookInput{Title: title, Author: "a", CategoryID: cat.ID}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	list, err := repo.ListBooks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 books, got %d", len(list))
	}
}

func TestRepo_ValidationErrors(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   BookInput
		want error
	}{
		{"missing title", BookInput{Author: "a", CategoryID: "c"}, ErrTitleRequired},
		{"missing author", BookInput{Title: "t", CategoryID: "c"}, ErrAuthorRequired},
		{"missing category", BookInput{Title: "t", Author: "a"}, ErrCategoryRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.CreateBook(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("CreateBook(%+v) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}

	if _, err := repo.CreateCategory(ctx, CategoryInput{}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
}

func TestRepo_UpdateMissingBook(t *testing.T) {
	repo := testRepo(t)
	cat := seedCategory(t, repo, "poetry")

	_, err := repo.UpdateBook(context.Background(), "no-such-id", BookInput{
		Title: "t", Author: "a", CategoryID: cat.ID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_Categories(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	seedCategory(t, repo, "zoology")
	seedCategory(t, repo, "art")

	list, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(list))
	}
	if list[0].Name != "art" {
		t.Errorf("expected name ordering, got %q first", list[0].Name)
	}

	got, err := repo.GetCategory(ctx, list[0].ID)
	if err != nil || got.Name != "art" {
		t.Errorf("GetCategory = %+v, %v", got, err)
	}
	if _, err := repo.GetCategory(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
