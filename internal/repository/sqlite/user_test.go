package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/shelfly/internal/domain"
)

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := &domain.User{
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: "hashedpw",
		Phone:        "555-0100",
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == 0 {
		t.Fatal("expected user ID to be set after create")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user1 := &domain.User{Name: "User 1", Email: "dup@example.com", PasswordHash: "hash1"}
	if err := repo.Create(ctx, user1); err != nil {
		t.Fatalf("Create user1: %v", err)
	}

	user2 := &domain.User{Name: "User 2", Email: "dup@example.com", PasswordHash: "hash2"}
	err := repo.Create(ctx, user2)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := &domain.User{Name: "By Email", Email: "byemail@example.com", PasswordHash: "hash", Phone: "555"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByEmail(ctx, "byemail@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}

	if found.ID != user.ID {
		t.Fatalf("expected id %d, got %d", user.ID, found.ID)
	}
	if found.Name != "By Email" || found.Phone != "555" || found.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", found)
	}
	if found.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to round-trip")
	}
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Users().GetByEmail(ctx, "nonexistent@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Update_OnlyTouchesGivenFields(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	seedUser(t, db, "update@example.com")

	name := "Renamed"
	if err := repo.Update(ctx, "update@example.com", &name, nil); err != nil {
		t.Fatalf("Update name: %v", err)
	}

	got, err := repo.GetByEmail(ctx, "update@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("expected name Renamed, got %q", got.Name)
	}
	if got.PasswordHash != "hash" {
		t.Fatalf("expected password hash untouched, got %q", got.PasswordHash)
	}

	hash := "newhash"
	if err := repo.Update(ctx, "update@example.com", nil, &hash); err != nil {
		t.Fatalf("Update password: %v", err)
	}
	got, err = repo.GetByEmail(ctx, "update@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.Name != "Renamed" || got.PasswordHash != "newhash" {
		t.Fatalf("unexpected user after password update: %+v", got)
	}
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	db := newTestDB(t)
	name := "Nobody"

	err := db.Users().Update(context.Background(), "missing@example.com", &name, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Delete_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "gone@example.com")
	seedUser(t, db, "keep@example.com")

	for _, owner := range []string{"gone@example.com", "keep@example.com"} {
		p := &domain.Product{OwnerEmail: owner, Name: "Widget", Quantity: 1, Price: 2}
		if err := db.Products().Create(ctx, p); err != nil {
			t.Fatalf("Create product: %v", err)
		}
	}
	token := &domain.ResetToken{Email: "gone@example.com", Token: "654321", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	if err := db.ResetTokens().Replace(ctx, token); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if err := db.Users().Delete(ctx, "gone@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	products, err := db.Products().ListByOwner(ctx, "gone@example.com")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected products to cascade, got %d", len(products))
	}

	if _, err := db.ResetTokens().Get(ctx, "gone@example.com", "654321"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected reset token to cascade, got %v", err)
	}

	n, err := db.Products().CountByOwner(ctx, "keep@example.com")
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected other owner's product untouched, got %d", n)
	}
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Delete(context.Background(), "missing@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "a@example.com")
	seedUser(t, db, "b@example.com")

	n, err := db.Users().Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}
}
