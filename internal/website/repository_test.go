package website

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stacksift/api/internal/testutil"
)

func createWebsite(t *testing.T, repo *Repository, title, url, category string, tags ...string) *Website {
	t.Helper()
	w, err := repo.Create(context.Background(), CreateInput{
		Title:       title,
		URL:         url,
		Domain:      title,
		Description: title + " description",
		Category:    category,
		Tags:        tags,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return w
}

func TestRepository_Create(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com", "Owner")
	ctx := context.Background()

	shot := "https://vitejs.dev/og.png"
	w, err := repo.Create(ctx, CreateInput{
		Title:         "Vite",
		URL:           "https://vitejs.dev",
		Domain:        "vitejs.dev",
		Description:   "Next generation frontend tooling",
		Tags:          []string{"bundler"},
		ScreenshotURL: &shot,
		AddedBy:       owner.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if w.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", w.Category, DefaultCategory)
	}

	got, err := repo.GetByID(ctx, w.ID, "")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Approved {
		t.Error("new websites should not be approved")
	}
	if got.AddedBy == nil || *got.AddedBy != owner.ID {
		t.Errorf("AddedBy = %v, want %q", got.AddedBy, owner.ID)
	}
	if got.ScreenshotURL == nil || *got.ScreenshotURL != shot {
		t.Errorf("ScreenshotURL = %v", got.ScreenshotURL)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "bundler" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestRepository_Create_DuplicateURL(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)

	createWebsite(t, repo, "Vite", "https://vitejs.dev", "Development")
	_, err := repo.Create(context.Background(), CreateInput{Title: "Vite again", URL: "https://vitejs.dev", Description: "x"})
	if !errors.Is(err, ErrURLAlreadyExists) {
		t.Errorf("Create() error = %v, want %v", err, ErrURLAlreadyExists)
	}

	exists, err := repo.ExistsByURL(context.Background(), "https://vitejs.dev")
	if err != nil || !exists {
		t.Errorf("ExistsByURL() = %v, %v", exists, err)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewRepository(testutil.TestDB(t))

	if _, err := repo.GetByID(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := repo.View(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("View() error = %v, want %v", err, ErrNotFound)
	}
}

func TestRepository_View_IncrementsAtomically(t *testing.T) {
	repo := NewRepository(testutil.TestDB(t))
	w := createWebsite(t, repo, "Figma", "https://figma.com", "Design")
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.View(ctx, w.ID, ""); err != nil {
				t.Errorf("View() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := repo.GetByID(ctx, w.ID, "")
	if got.Views != n {
		t.Errorf("Views = %d, want %d", got.Views, n)
	}
}

func TestRepository_List(t *testing.T) {
	repo := NewRepository(testutil.TestDB(t))
	ctx := context.Background()

	createWebsite(t, repo, "Figma", "https://figma.com", "Design", "ui", "prototyping")
	createWebsite(t, repo, "Vite", "https://vitejs.dev", "Development", "bundler")
	createWebsite(t, repo, "Docker", "https://docker.com", "DevOps", "containers")
	createWebsite(t, repo, "100%_Real", "https://example.com/weird", "Learning")

	tests := []struct {
		name   string
		params ListParams
		want   []string
	}{
		{"all newest first", ListParams{}, []string{"100%_Real", "Docker", "Vite", "Figma"}},
		{"category exact", ListParams{Category: "Design"}, []string{"Figma"}},
		{"search title case-insensitive", ListParams{Search: "VITE"}, []string{"Vite"}},
		{"search tags", ListParams{Search: "contain"}, []string{"Docker"}},
		{"search description", ListParams{Search: "figma desc"}, []string{"Figma"}},
		{"like wildcards are literal", ListParams{Search: "%_"}, []string{"100%_Real"}},
		{"search and category", ListParams{Search: "vite", Category: "Design"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.params)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			got := make([]string, 0, len(res.Websites))
			for _, w := range res.Websites {
				got = append(got, w.Title)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
			if res.Total != len(tt.want) {
				t.Errorf("Total = %d, want %d", res.Total, len(tt.want))
			}
		})
	}
}

func TestRepository_List_Pagination(t *testing.T) {
	repo := NewRepository(testutil.TestDB(t))
	ctx := context.Background()

	for i := range 25 {
		createWebsite(t, repo, fmt.Sprintf("Tool %02d", i), fmt.Sprintf("https://tool%d.dev", i), "Development")
	}

	res, err := repo.List(ctx, ListParams{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 25 || res.TotalPages != 3 || res.Page != 3 {
		t.Errorf("Total=%d TotalPages=%d Page=%d", res.Total, res.TotalPages, res.Page)
	}
	if len(res.Websites) != 5 || res.Websites[4].Title != "Tool 00" {
		t.Errorf("last page = %d items", len(res.Websites))
	}

	res, _ = repo.List(ctx, ListParams{Limit: 1000})
	if len(res.Websites) != 25 || res.TotalPages != 1 {
		t.Errorf("capped limit returned %d items, %d pages", len(res.Websites), res.TotalPages)
	}

	res, _ = repo.List(ctx, ListParams{Page: -2, Limit: -1})
	if res.Page != 1 || len(res.Websites) != DefaultPageSize {
		t.Errorf("defaults: page=%d items=%d", res.Page, len(res.Websites))
	}
}

func TestRepository_List_ApprovedOnly(t *testing.T) {
	repo := NewRepository(testutil.TestDB(t))
	ctx := context.Background()

	approved := createWebsite(t, repo, "Figma", "https://figma.com", "Design")
	createWebsite(t, repo, "Pending", "https://pending.dev", "Design")

	if err := repo.SetApproved(ctx, approved.ID, true); err != nil {
		t.Fatalf("SetApproved() error = %v", err)
	}

	res, err := repo.List(ctx, ListParams{ApprovedOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(res.Websites) != 1 || res.Websites[0].ID != approved.ID || !res.Websites[0].Approved {
		t.Errorf("approved listing = %+v", res.Websites)
	}

	if err := repo.SetApproved(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetApproved(missing) error = %v, want %v", err, ErrNotFound)
	}
}

func TestRepository_ToggleUpvote(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	alice := testutil.CreateTestUser(t, db, "alice@example.com", "Alice")
	bob := testutil.CreateTestUser(t, db, "bob@example.com", "Bob")
	w := createWebsite(t, repo, "Figma", "https://figma.com", "Design")
	ctx := context.Background()

	steps := []struct {
		userID      string
		wantUpvoted bool
		wantCount   int
	}{
		{alice.ID, true, 1},
		{bob.ID, true, 2},
		{alice.ID, false, 1},
		{alice.ID, true, 2},
	}
	for i, s := range steps {
		upvoted, count, err := repo.ToggleUpvote(ctx, w.ID, s.userID)
		if err != nil {
			t.Fatalf("step %d: ToggleUpvote() error = %v", i, err)
		}
		if upvoted != s.wantUpvoted || count != s.wantCount {
			t.Errorf("step %d: got (%v, %d), want (%v, %d)", i, upvoted, count, s.wantUpvoted, s.wantCount)
		}
	}

	got, _ := repo.GetByID(ctx, w.ID, bob.ID)
	if got.Upvotes != 2 || !got.Upvoted {
		t.Errorf("viewer bob: Upvotes=%d Upvoted=%v", got.Upvotes, got.Upvoted)
	}
	got, _ = repo.GetByID(ctx, w.ID, "")
	if got.Upvoted {
		t.Error("anonymous viewer should not see upvoted")
	}

	if _, _, err := repo.ToggleUpvote(ctx, "missing", alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleUpvote(missing) error = %v, want %v", err, ErrNotFound)
	}
}

func TestRepository_CountByUser(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com", "Owner")

	testutil.CreateTestWebsite(t, db, owner.ID, "Figma", "https://figma.com", "Design")
	testutil.CreateTestWebsite(t, db, owner.ID, "Vite", "https://vitejs.dev", "Development")
	createWebsite(t, repo, "Docker", "https://docker.com", "DevOps")

	n, err := repo.CountByUser(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountByUser() = %d, want 2", n)
	}
}
