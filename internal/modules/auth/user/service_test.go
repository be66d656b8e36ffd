package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/password"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"gorm.io/gorm"
)

// =============================================================================
// Test Helpers
// =============================================================================

type revocation struct {
	userID string
	keep   string
}

type mockSessions struct {
	calls []revocation
}

func (m *mockSessions) RevokeAllExcept(_ context.Context, userID, keep string) error {
	m.calls = append(m.calls, revocation{userID, keep})
	return nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	users    repository.UserRepository
	sessions *mockSessions
	admin    *models.UserModel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db, users: repository.NewUserRepository(db), sessions: &mockSessions{}}
	f.svc = NewService(f.users, f.sessions, config.SecurityConfig{PasswordMinLength: 8})

	admin, err := f.svc.Create(context.Background(), &CreateUserDTO{
		Username: "root", Email: "root@example.com", Password: "correct-horse-1", Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	f.admin = admin
	return f
}

func ptr[T any](v T) *T { return &v }

func isValidation(err error) bool {
	var ve *apperr.ValidationError
	return errors.As(err, &ve)
}

// =============================================================================
// Validation helpers
// =============================================================================

func TestCheckUsername(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" Alice ", "alice", false},
		{"a.b-c_d", "a.b-c_d", false},
		{"ab", "", true},
		{"-alice", "", true},
		{"has space", "", true},
		{"this-username-is-definitely-too-long", "", true},
	}
	for _, tt := range tests {
		got, err := CheckUsername(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CheckUsername(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCheckEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Bob@Example.COM", "bob@example.com", false},
		{"Bob <bob@example.com>", "", true},
		{"bob", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := CheckEmail(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CheckEmail(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// =============================================================================
// Admin operations
// =============================================================================

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	u, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1", Role: models.RoleAuthor, EmailVerified: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.Role != models.RoleAuthor || u.Status != models.UserActive || u.EmailVerifiedAt == nil {
		t.Errorf("Create() = role %q status %q verified %v", u.Role, u.Status, u.EmailVerifiedAt)
	}
	if err := password.Compare(u.Password, "correct-horse-1"); err != nil {
		t.Errorf("stored password does not match: %v", err)
	}

	if _, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "w2@example.com", Password: "correct-horse-1"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate username error = %v", err)
	}
	if _, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer2", Email: "WRITER@example.com", Password: "correct-horse-1"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate email error = %v", err)
	}
	if _, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer3", Email: "writer3@example.com", Password: "correct-horse-1", Role: "owner"}); !isValidation(err) {
		t.Errorf("bad role error = %v", err)
	}
}

func TestUpdateGuardsOwnAccount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	if _, err := f.svc.Update(ctx, f.admin, f.admin.ID, &UpdateUserDTO{Role: ptr(models.RoleEditor)}); !isValidation(err) {
		t.Errorf("self demote error = %v, want validation error", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, f.admin.ID, &UpdateUserDTO{Status: ptr(models.UserSuspended)}); !isValidation(err) {
		t.Errorf("self suspend error = %v, want validation error", err)
	}
	if err := f.svc.Delete(ctx, f.admin, f.admin.ID); !isValidation(err) {
		t.Errorf("self delete error = %v, want validation error", err)
	}

	u, err := f.svc.Update(ctx, f.admin, f.admin.ID, &UpdateUserDTO{Name: ptr(" Root User ")})
	if err != nil {
		t.Fatalf("Update() own name error = %v", err)
	}
	if u.Name != "Root User" {
		t.Errorf("Name = %q", u.Name)
	}
}

func TestUpdateOtherUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Update(ctx, f.admin, u.ID, &UpdateUserDTO{
		Role:     ptr(models.RoleEditor),
		Status:   ptr(models.UserSuspended),
		Timezone: ptr("Europe/Riga"),
		Password: ptr("another-pass-2"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Role != models.RoleEditor || got.Status != models.UserSuspended || got.Timezone != "Europe/Riga" {
		t.Errorf("Update() = %+v", got)
	}
	if err := password.Compare(got.Password, "another-pass-2"); err != nil {
		t.Errorf("password not changed: %v", err)
	}
	if len(f.sessions.calls) == 0 || f.sessions.calls[0].userID != u.ID {
		t.Errorf("sessions not revoked: %+v", f.sessions.calls)
	}

	if _, err := f.svc.Update(ctx, f.admin, u.ID, &UpdateUserDTO{Timezone: ptr("Mars/Olympus")}); !isValidation(err) {
		t.Errorf("bad timezone error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, u.ID, &UpdateUserDTO{Email: ptr("root@example.com")}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("taken email error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, "missing", &UpdateUserDTO{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing user error = %v", err)
	}
}

func TestDeleteNullsAuthoredContent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, err := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1", Role: models.RoleAuthor})
	if err != nil {
		t.Fatal(err)
	}
	post := &models.PostModel{Title: "Hello", Slug: "hello", Status: models.StatusDraft, AuthorID: &u.ID}
	if err := f.db.Create(post).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Create(&models.UserSession{UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}).Error; err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, f.admin, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var reloaded models.PostModel
	if err := f.db.First(&reloaded, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("post was deleted with its author: %v", err)
	}
	if reloaded.AuthorID != nil {
		t.Errorf("AuthorID = %v, want nil", *reloaded.AuthorID)
	}
	var sessions int64
	f.db.Model(&models.UserSession{}).Where("user_id = ?", u.ID).Count(&sessions)
	if sessions != 0 {
		t.Errorf("sessions left = %d, want 0", sessions)
	}
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, _ := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1"})
	if _, err := f.users.RecordFailedLogin(ctx, u.ID, 1, time.Hour, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Unlock(ctx, u.ID)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if got.LockedUntil != nil || got.FailedLoginAttempts != 0 {
		t.Errorf("Unlock() left locked_until=%v attempts=%d", got.LockedUntil, got.FailedLoginAttempts)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, name := range []string{"anna", "bert", "carl"} {
		if _, err := f.svc.Create(ctx, &CreateUserDTO{Username: name, Email: name + "@example.com", Password: "correct-horse-1", Role: models.RoleAuthor}); err != nil {
			t.Fatal(err)
		}
	}

	users, meta, err := f.svc.List(ctx, ListQuery{Role: models.RoleAuthor}, pagination.New(1, 2))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if meta.Total != 3 || len(users) != 2 || !meta.HasNextPage {
		t.Errorf("List() = %d users, meta %+v", len(users), meta)
	}

	users, _, err = f.svc.List(ctx, ListQuery{Search: "BER"}, pagination.New(1, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "bert" {
		t.Errorf("search = %+v", users)
	}
}

// =============================================================================
// Profile
// =============================================================================

func TestUpdateProfileEmailResetsVerification(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, _ := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1", EmailVerified: true})

	got, err := f.svc.UpdateProfile(ctx, u.ID, &UpdateProfileDTO{Email: ptr("new@example.com"), Bio: ptr("hi")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.Email != "new@example.com" || got.EmailVerifiedAt != nil || got.Bio != "hi" {
		t.Errorf("UpdateProfile() = email %q verified %v bio %q", got.Email, got.EmailVerifiedAt, got.Bio)
	}

	got, err = f.svc.UpdateProfile(ctx, u.ID, &UpdateProfileDTO{Email: ptr("NEW@example.com")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "new@example.com" {
		t.Errorf("Email = %q", got.Email)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, _ := f.svc.Create(ctx, &CreateUserDTO{Username: "writer", Email: "writer@example.com", Password: "correct-horse-1"})

	tests := []struct {
		name string
		dto  ChangePasswordDTO
	}{
		{"wrong current", ChangePasswordDTO{CurrentPassword: "nope-nope-1", NewPassword: "brand-new-pass-2"}},
		{"same as current", ChangePasswordDTO{CurrentPassword: "correct-horse-1", NewPassword: "correct-horse-1"}},
		{"too weak", ChangePasswordDTO{CurrentPassword: "correct-horse-1", NewPassword: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := tt.dto
			if err := f.svc.ChangePassword(ctx, u.ID, "sess-1", &dto); !isValidation(err) {
				t.Errorf("ChangePassword() error = %v, want validation error", err)
			}
		})
	}

	if err := f.svc.ChangePassword(ctx, u.ID, "sess-1", &ChangePasswordDTO{CurrentPassword: "correct-horse-1", NewPassword: "brand-new-pass-2"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	stored, _ := f.users.FindByID(ctx, u.ID)
	if err := password.Compare(stored.Password, "brand-new-pass-2"); err != nil {
		t.Errorf("new password not stored: %v", err)
	}
	if got := f.sessions.calls; len(got) != 1 || got[0] != (revocation{u.ID, "sess-1"}) {
		t.Errorf("revocations = %+v, want keep sess-1", got)
	}
}
