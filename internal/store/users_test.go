package store

import (
	"context"
	"testing"

	"github.com/adiwira/gudang/internal/db"
	"github.com/adiwira/gudang/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "budi@example.com", "hash", "Budi Santoso", "budi", model.RoleStaff)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "budi@example.com" || user.FullName != "Budi Santoso" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.Role != model.RoleStaff {
		t.Errorf("expected role staff, got %q", user.Role)
	}
	if user.Status != model.ProfileActive {
		t.Errorf("expected active status, got %q", user.Status)
	}

	byEmail, err := GetUserByEmail(ctx, database, "budi@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("expected to find user by email, got %+v", byEmail)
	}

	missing, err := GetUserByEmail(ctx, database, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown email, got %+v", missing)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "dup@example.com", "hash", "First", "first", model.RoleStaff)
	if _, err := CreateUser(ctx, database, "dup@example.com", "hash", "Second", "second", model.RoleStaff); err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a@example.com", "hash", "Alice", "alice", model.RoleAdmin)
	CreateUser(ctx, database, "b@example.com", "hash", "Bob", "bob", model.RoleViewer)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestUpdateProfileAndStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "c@example.com", "hash", "Old Name", "old", model.RoleStaff)

	if err := UpdateProfile(ctx, database, user.ID, "New Name", "new"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := SetProfileStatus(ctx, database, user.ID, model.ProfileInactive); err != nil {
		t.Fatalf("SetProfileStatus: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.FullName != "New Name" || got.Username != "new" {
		t.Errorf("expected updated profile, got %+v", got)
	}
	if got.Status != model.ProfileInactive {
		t.Errorf("expected inactive status, got %q", got.Status)
	}
}

func TestSetRoleUpserts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "d@example.com", "hash", "Dewi", "dewi", model.RoleViewer)

	if err := SetRole(ctx, database, user.ID, model.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.Role != model.RoleAdmin {
		t.Errorf("expected role admin, got %q", got.Role)
	}

	if err := SetRole(ctx, database, user.ID, model.RoleStaff); err != nil {
		t.Fatalf("SetRole again: %v", err)
	}
	got, _ = GetUser(ctx, database, user.ID)
	if got.Role != model.RoleStaff {
		t.Errorf("expected role staff after second set, got %q", got.Role)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "e@example.com", "oldhash", "Eka", "eka", model.RoleStaff)

	if err := UpdateUserPassword(ctx, database, user.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected new hash, got %q", got.PasswordHash)
	}
}

func TestSoftDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "f@example.com", "hash", "Fajar", "fajar", model.RoleStaff)

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 listed users after delete, got %d", len(users))
	}

	// The email frees up for a new account.
	if _, err := CreateUser(ctx, database, "f@example.com", "hash", "Replacement", "fajar2", model.RoleStaff); err != nil {
		t.Errorf("expected email reuse after soft delete, got %v", err)
	}
}
