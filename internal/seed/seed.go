package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/collection"
	"github.com/stacksift/api/internal/user"
	"github.com/stacksift/api/internal/website"
)

// Password is the plaintext password of every seeded account.
const Password = "password"

type seedWebsite struct {
	title       string
	url         string
	domain      string
	description string
	category    string
	tags        []string
}

var catalog = []seedWebsite{
	{"Figma", "https://www.figma.com", "figma.com", "Collaborative interface design tool that runs in the browser.", "Design", []string{"design", "ui", "prototyping"}},
	{"Penpot", "https://penpot.app", "penpot.app", "Open source design and prototyping platform for cross-domain teams.", "Design", []string{"design", "open-source", "prototyping"}},
	{"Coolors", "https://coolors.co", "coolors.co", "Color palette generator for designers.", "Design", []string{"colors", "palette"}},
	{"Vite", "https://vitejs.dev", "vitejs.dev", "Next generation frontend tooling with instant dev server start.", "Development", []string{"javascript", "bundler", "frontend"}},
	{"Regex101", "https://regex101.com", "regex101.com", "Online regex tester and debugger with explanations.", "Development", []string{"regex", "debugging"}},
	{"Docker", "https://www.docker.com", "docker.com", "Build, share and run containerized applications.", "DevOps", []string{"containers", "deployment"}},
	{"Grafana", "https://grafana.com", "grafana.com", "Observability dashboards for metrics, logs and traces.", "DevOps", []string{"monitoring", "dashboards"}},
	{"Notion", "https://www.notion.so", "notion.so", "All-in-one workspace for notes, docs and project planning.", "Productivity", []string{"notes", "docs", "wiki"}},
	{"Excalidraw", "https://excalidraw.com", "excalidraw.com", "Virtual whiteboard for sketching hand-drawn like diagrams.", "Productivity", []string{"whiteboard", "diagrams"}},
	{"Hugging Face", "https://huggingface.co", "huggingface.co", "Hub for machine learning models, datasets and demos.", "AI", []string{"ml", "models", "datasets"}},
	{"Perplexity", "https://www.perplexity.ai", "perplexity.ai", "Answer engine that cites its sources.", "AI", []string{"search", "llm"}},
	{"Plausible", "https://plausible.io", "plausible.io", "Lightweight privacy-friendly web analytics.", "Marketing", []string{"analytics", "privacy"}},
}

// Run populates the database with seed data for development.
// It is idempotent: if data already exists, it logs and returns nil.
func Run(ctx context.Context, db *sql.DB) error {
	// Idempotency check
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = 'admin@stacksift.dev'`).Scan(&count); err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	slog.Info("seeding database...")

	userRepo := user.NewRepository(db)
	websiteRepo := website.NewRepository(db)
	collectionRepo := collection.NewRepository(db)

	// Hash password once (bcrypt cost 4 for speed)
	hash, err := auth.HashPassword(Password, 4)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// --- Users ---
	seedUsers := []struct {
		email string
		name  string
		admin bool
	}{
		{"admin@stacksift.dev", "StackSift Admin", true},
		{"alice@example.com", "Alice Chen", false},
		{"bob@example.com", "Bob Martinez", false},
		{"carol@example.com", "Carol Williams", false},
	}

	users := make([]*user.User, len(seedUsers))
	for i, su := range seedUsers {
		u, err := userRepo.Create(ctx, user.CreateUserInput{
			Name:         su.name,
			Email:        su.email,
			PasswordHash: &hash,
		})
		if err != nil {
			return fmt.Errorf("create user %s: %w", su.email, err)
		}
		if su.admin {
			if err := userRepo.SetRoles(ctx, u.ID, []string{user.RoleUser, user.RoleAdmin}); err != nil {
				return fmt.Errorf("grant admin %s: %w", su.email, err)
			}
		}
		users[i] = u
		slog.Info("created user", "email", su.email, "admin", su.admin)
	}

	// --- Websites ---
	// Submitters rotate through the non-admin users.
	websites := make([]*website.Website, len(catalog))
	for i, sw := range catalog {
		w, err := websiteRepo.Create(ctx, website.CreateInput{
			Title:       sw.title,
			URL:         sw.url,
			Domain:      sw.domain,
			Description: sw.description,
			Category:    sw.category,
			Tags:        sw.tags,
			AddedBy:     users[1+i%(len(users)-1)].ID,
		})
		if err != nil {
			return fmt.Errorf("create website %s: %w", sw.url, err)
		}
		if err := websiteRepo.SetApproved(ctx, w.ID, true); err != nil {
			return fmt.Errorf("approve website %s: %w", sw.url, err)
		}
		websites[i] = w
	}
	slog.Info("created websites", "count", len(websites))

	// --- Upvotes ---
	rng := rand.New(rand.NewSource(42))
	upvotes := 0
	for _, w := range websites {
		for _, u := range users {
			if rng.Intn(3) == 0 {
				continue
			}
			if _, _, err := websiteRepo.ToggleUpvote(ctx, w.ID, u.ID); err != nil {
				return fmt.Errorf("upvote %s: %w", w.Title, err)
			}
			upvotes++
		}
	}
	slog.Info("created upvotes", "count", upvotes)

	// --- Collections ---
	alice, bob := users[1], users[2]
	folders := []struct {
		owner *user.User
		name  string
		picks []int
	}{
		{alice, "Design kit", []int{0, 1, 2, 8}},
		{alice, "Side project", []int{3, 5, 11}},
		{bob, "Research", []int{9, 10, 4}},
	}
	for _, f := range folders {
		c, err := collectionRepo.Create(ctx, f.owner.ID, f.name)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", f.name, err)
		}
		for _, idx := range f.picks {
			if err := collectionRepo.AddWebsite(ctx, f.owner.ID, c.ID, websites[idx].ID); err != nil {
				return fmt.Errorf("add %s to %s: %w", websites[idx].Title, f.name, err)
			}
		}
	}
	slog.Info("created collections", "count", len(folders))

	slog.Info("seeding complete", "login", "admin@stacksift.dev / "+Password)
	return nil
}
