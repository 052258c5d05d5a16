package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/msomdec/shelfly/internal/domain"
	"github.com/msomdec/shelfly/internal/repository/sqlite"
	"github.com/msomdec/shelfly/internal/service"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAccountService(t *testing.T) (*service.AccountService, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)
	return service.NewAccountService(db.Users(), service.SHA256Hasher{}), db
}

func ptr[T any](v T) *T { return &v }

func TestAccountService_CreateUser_Success(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	user, err := accounts.CreateUser(ctx, "  Ada  ", "  Ada@Example.com ", "secret1", " 555-0100 ")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected user ID to be set")
	}

	got, err := accounts.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil {
		t.Fatal("expected user to be found")
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", got.Email)
	}
	if got.Name != "Ada" || got.Phone != "555-0100" {
		t.Fatalf("expected trimmed name and phone, got %+v", got)
	}
	if got.PasswordHash == "secret1" || got.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", got.PasswordHash)
	}
}

func TestAccountService_CreateUser_InvalidInput(t *testing.T) {
	accounts, db := newTestAccountService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"empty name", "", "a@b.com", "secret1"},
		{"blank name", "   ", "a@b.com", "secret1"},
		{"empty email", "Name", "", "secret1"},
		{"malformed email", "Name", "not-an-email", "secret1"},
		{"email without tld", "Name", "a@b", "secret1"},
		{"empty password", "Name", "a@b.com", ""},
		{"short password", "Name", "a@b.com", "12345"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := accounts.CreateUser(ctx, tc.userName, tc.email, tc.password, "")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	n, err := db.Users().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no users stored, got %d", n)
	}
}

func TestAccountService_CreateUser_DuplicateAfterNormalization(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	if _, err := accounts.CreateUser(ctx, "One", "dup@example.com", "secret1", ""); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}

	for _, email := range []string{"DUP@example.com", "  dup@example.com  ", "Dup@Example.Com"} {
		_, err := accounts.CreateUser(ctx, "Two", email, "secret2", "")
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("%q: expected ErrDuplicateEmail, got %v", email, err)
		}
	}
}

func TestAccountService_GetUserByEmail_Missing(t *testing.T) {
	accounts, _ := newTestAccountService(t)

	user, err := accounts.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestAccountService_ValidateUser(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	created, err := accounts.CreateUser(ctx, "Val", "val@example.com", "secret1", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantUser bool
	}{
		{"correct password", "val@example.com", "secret1", true},
		{"wrong password", "val@example.com", "secret2", false},
		{"password case matters", "val@example.com", "SECRET1", false},
		{"email case ignored", "VAL@Example.COM", "secret1", true},
		{"unknown email", "nobody@example.com", "secret1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, err := accounts.ValidateUser(ctx, tc.email, tc.password)
			if err != nil {
				t.Fatalf("ValidateUser: %v", err)
			}
			if tc.wantUser {
				if user == nil || user.ID != created.ID {
					t.Fatalf("expected user %d, got %+v", created.ID, user)
				}
				return
			}
			if user != nil {
				t.Fatalf("expected nil user, got %+v", user)
			}
		})
	}
}

func TestAccountService_ValidateUser_Bcrypt(t *testing.T) {
	db := newTestDB(t)
	accounts := service.NewAccountService(db.Users(), service.BcryptHasher{Cost: 4})
	ctx := context.Background()

	if _, err := accounts.CreateUser(ctx, "B", "b@example.com", "secret1", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := accounts.ValidateUser(ctx, "b@example.com", "secret1")
	if err != nil || user == nil {
		t.Fatalf("expected match, got %+v, %v", user, err)
	}
	user, err = accounts.ValidateUser(ctx, "b@example.com", "wrong-pass")
	if err != nil || user != nil {
		t.Fatalf("expected no match, got %+v, %v", user, err)
	}
}

func TestAccountService_UpdateUser(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	if _, err := accounts.CreateUser(ctx, "Old Name", "upd@example.com", "secret1", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	err := accounts.UpdateUser(ctx, domain.UserUpdate{Email: "UPD@example.com", Name: ptr("  New Name ")})
	if err != nil {
		t.Fatalf("UpdateUser name: %v", err)
	}
	user, err := accounts.ValidateUser(ctx, "upd@example.com", "secret1")
	if err != nil || user == nil {
		t.Fatalf("expected old password to still work, got %+v, %v", user, err)
	}
	if user.Name != "New Name" {
		t.Fatalf("expected trimmed new name, got %q", user.Name)
	}

	if err := accounts.UpdateUser(ctx, domain.UserUpdate{Email: "upd@example.com", Password: ptr("changed1")}); err != nil {
		t.Fatalf("UpdateUser password: %v", err)
	}
	if user, _ := accounts.ValidateUser(ctx, "upd@example.com", "secret1"); user != nil {
		t.Fatal("old password must stop working")
	}
	if user, _ := accounts.ValidateUser(ctx, "upd@example.com", "changed1"); user == nil {
		t.Fatal("new password must work")
	}
}

func TestAccountService_UpdateUser_Errors(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	if _, err := accounts.CreateUser(ctx, "Err", "err@example.com", "secret1", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name   string
		update domain.UserUpdate
		want   error
	}{
		{"no fields", domain.UserUpdate{Email: "err@example.com"}, domain.ErrInvalidInput},
		{"blank name", domain.UserUpdate{Email: "err@example.com", Name: ptr("  ")}, domain.ErrInvalidInput},
		{"short password", domain.UserUpdate{Email: "err@example.com", Password: ptr("123")}, domain.ErrInvalidInput},
		{"unknown email", domain.UserUpdate{Email: "ghost@example.com", Name: ptr("Ghost")}, domain.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := accounts.UpdateUser(ctx, tc.update)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAccountService_DeleteUser(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	if _, err := accounts.CreateUser(ctx, "Del", "del@example.com", "secret1", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := accounts.DeleteUser(ctx, " DEL@example.com "); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if user, _ := accounts.GetUserByEmail(ctx, "del@example.com"); user != nil {
		t.Fatal("expected user to be gone")
	}

	err := accounts.DeleteUser(ctx, "del@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountService_CountUsers(t *testing.T) {
	accounts, _ := newTestAccountService(t)
	ctx := context.Background()

	for _, email := range []string{"one@example.com", "two@example.com"} {
		if _, err := accounts.CreateUser(ctx, "N", email, "secret1", ""); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	n, err := accounts.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}
