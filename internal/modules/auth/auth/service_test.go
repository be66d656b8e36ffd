package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	jwtpkg "github.com/inkwell-cms/inkwell/internal/pkg/jwt"
	"github.com/inkwell-cms/inkwell/internal/pkg/mail"
	"github.com/inkwell-cms/inkwell/internal/pkg/password"
	"github.com/inkwell-cms/inkwell/internal/pkg/session"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

// =============================================================================
// Test Helpers
// =============================================================================

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return o.err
}

// lastToken pulls the token query parameter out of the newest message.
func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		t.Fatal("no mail sent")
	}
	for _, field := range strings.Fields(o.sent[len(o.sent)-1].Text) {
		if !strings.HasPrefix(field, "http") {
			continue
		}
		u, err := url.Parse(field)
		if err != nil {
			t.Fatalf("parse link %q: %v", field, err)
		}
		if tok := u.Query().Get("token"); tok != "" {
			return tok
		}
	}
	t.Fatal("no token link in mail")
	return ""
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type fixture struct {
	svc      *Service
	users    repository.UserRepository
	sessions *session.Store
	mail     *outbox
	security config.SecurityConfig
}

func testSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		MaxLoginAttempts:     3,
		LockoutMinutes:       15,
		PasswordMinLength:    8,
		AllowRegistration:    true,
		ResetTokenTTLMinutes: 60,
		VerifyTokenTTLHours:  48,
		CookieName:           "inkwell_session",
	}
}

func setup(t *testing.T, mutate ...func(*config.SecurityConfig)) *fixture {
	t.Helper()
	db := dbtest.New(t)
	m, err := jwtpkg.NewManager("this-is-a-test-secret-with-32-bytes!", "test")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	sec := testSecurity()
	for _, fn := range mutate {
		fn(&sec)
	}
	f := &fixture{
		users:    repository.NewUserRepository(db),
		sessions: session.NewStore(db, m, time.Hour),
		mail:     &outbox{},
		security: sec,
	}
	f.svc = NewService(f.users, repository.NewTokenRepository(db), f.sessions, f.mail, sec,
		config.SiteConfig{Title: "Inkwell", URL: "https://blog.example.com/"})
	return f
}

func (f *fixture) addUser(t *testing.T, username, plain, role, status string) *models.UserModel {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	u := &models.UserModel{
		Username: username, Email: username + "@example.com", Password: hash,
		Role: role, Status: status,
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// =============================================================================
// Login
// =============================================================================

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	res, err := f.svc.Login(ctx, "ALICE@example.com", "correct-horse-1", "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("Login() by email error = %v", err)
	}
	if res.Token == "" || res.User.ID != u.ID {
		t.Fatalf("Login() = %+v", res)
	}
	claims, err := f.sessions.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != u.ID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, u.ID)
	}

	stored, _ := f.users.FindByID(ctx, u.ID)
	if stored.LastLoginIP != "10.0.0.1" || stored.LastLoginAt == nil {
		t.Errorf("last login not recorded: %+v", stored)
	}
}

func TestLoginMixedCaseUsername(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u, err := f.svc.Register(ctx, &RegisterDTO{Username: "Alice", Email: "alice@example.com", Password: "correct-horse-1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for _, login := range []string{"Alice", "alice", "ALICE"} {
		res, err := f.svc.Login(ctx, login, "correct-horse-1", "", "")
		if err != nil {
			t.Fatalf("Login(%q) error = %v", login, err)
		}
		if res.User.ID != u.ID {
			t.Errorf("Login(%q) user = %q, want %q", login, res.User.ID, u.ID)
		}
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	f.addUser(t, "sam", "correct-horse-1", models.RoleAuthor, models.UserSuspended)

	tests := []struct {
		name  string
		login string
		pass  string
		want  error
	}{
		{"unknown user", "nobody", "whatever-1", apperr.ErrInvalidCredentials},
		{"wrong password", "alice", "wrong-horse-1", apperr.ErrInvalidCredentials},
		{"suspended", "sam", "correct-horse-1", apperr.ErrAccountDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Login(ctx, tt.login, tt.pass, "", ""); !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	for i := 1; i < f.security.MaxLoginAttempts; i++ {
		if _, err := f.svc.Login(ctx, "alice", "nope-nope-1", "", ""); !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidCredentials", i, err)
		}
	}
	if _, err := f.svc.Login(ctx, "alice", "nope-nope-1", "", ""); !errors.Is(err, apperr.ErrAccountLocked) {
		t.Fatalf("final attempt error = %v, want ErrAccountLocked", err)
	}
	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); !errors.Is(err, apperr.ErrAccountLocked) {
		t.Fatalf("correct password while locked error = %v, want ErrAccountLocked", err)
	}

	// An hour later the lock has lapsed and success clears the counter.
	f.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Login() after lockout error = %v", err)
	}
	stored, _ := f.users.FindByID(ctx, u.ID)
	if stored.FailedLoginAttempts != 0 || stored.LockedUntil != nil {
		t.Errorf("lockout state not cleared: attempts=%d locked_until=%v", stored.FailedLoginAttempts, stored.LockedUntil)
	}
}

func TestLoginFailureAfterLockLapses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	for i := 0; i < f.security.MaxLoginAttempts; i++ {
		_, _ = f.svc.Login(ctx, "alice", "nope-nope-1", "", "")
	}
	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); !errors.Is(err, apperr.ErrAccountLocked) {
		t.Fatalf("Login() while locked error = %v, want ErrAccountLocked", err)
	}

	// Once the lock lapses a single mistake must not relock the account.
	f.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	if _, err := f.svc.Login(ctx, "alice", "nope-nope-1", "", ""); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("Login() after lapse error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Login() with correct password after lapse error = %v", err)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	f := setup(t, func(c *config.SecurityConfig) { c.RequireEmailVerification = true })
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); !errors.Is(err, apperr.ErrEmailNotVerified) {
		t.Fatalf("Login() error = %v, want ErrEmailNotVerified", err)
	}
	if err := f.users.MarkEmailVerified(ctx, u.ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", ""); err != nil {
		t.Fatalf("Login() after verification error = %v", err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	res, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	claims, _ := f.sessions.Verify(ctx, res.Token)
	if err := f.svc.Logout(ctx, claims.UserID, claims.SessionID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := f.sessions.Verify(ctx, res.Token); !errors.Is(err, session.ErrSessionInactive) {
		t.Errorf("Verify() after logout error = %v, want ErrSessionInactive", err)
	}
	if err := f.svc.Logout(ctx, claims.UserID, claims.SessionID); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
}

// =============================================================================
// Register
// =============================================================================

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.svc.Register(ctx, &RegisterDTO{Username: "Owner", Email: "owner@example.com", Password: "correct-horse-1"})
	if err != nil {
		t.Fatalf("Register() first error = %v", err)
	}
	if first.Role != models.RoleAdmin || first.EmailVerifiedAt == nil || first.Username != "owner" {
		t.Errorf("first user = role %q verified %v username %q", first.Role, first.EmailVerifiedAt, first.Username)
	}
	if f.mail.count() != 0 {
		t.Errorf("first user got %d mails, want 0", f.mail.count())
	}

	second, err := f.svc.Register(ctx, &RegisterDTO{Username: "reader", Email: "reader@example.com", Password: "correct-horse-1"})
	if err != nil {
		t.Fatalf("Register() second error = %v", err)
	}
	if second.Role != models.RoleSubscriber || second.EmailVerifiedAt != nil {
		t.Errorf("second user = role %q verified %v", second.Role, second.EmailVerifiedAt)
	}
	if f.mail.count() != 1 {
		t.Fatalf("verification mails = %d, want 1", f.mail.count())
	}

	verified, err := f.svc.VerifyEmail(ctx, f.mail.lastToken(t))
	if err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if verified.EmailVerifiedAt == nil {
		t.Error("EmailVerifiedAt not set")
	}
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "taken", "correct-horse-1", models.RoleAdmin, models.UserActive)

	tests := []struct {
		name  string
		dto   RegisterDTO
		check func(error) bool
	}{
		{"bad username", RegisterDTO{Username: "a", Email: "a@example.com", Password: "correct-horse-1"}, isValidation},
		{"bad email", RegisterDTO{Username: "bob", Email: "not-an-email", Password: "correct-horse-1"}, isValidation},
		{"weak password", RegisterDTO{Username: "bob", Email: "bob@example.com", Password: "short"}, isValidation},
		{"duplicate username", RegisterDTO{Username: "TAKEN", Email: "bob@example.com", Password: "correct-horse-1"}, isDuplicate},
		{"duplicate email", RegisterDTO{Username: "bob", Email: "Taken@Example.com", Password: "correct-horse-1"}, isDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := tt.dto
			if _, err := f.svc.Register(ctx, &dto); !tt.check(err) {
				t.Errorf("Register() error = %v", err)
			}
		})
	}
}

func TestRegisterClosed(t *testing.T) {
	ctx := context.Background()
	f := setup(t, func(c *config.SecurityConfig) { c.AllowRegistration = false })

	if _, err := f.svc.Register(ctx, &RegisterDTO{Username: "owner", Email: "owner@example.com", Password: "correct-horse-1"}); err != nil {
		t.Fatalf("bootstrap Register() error = %v", err)
	}
	_, err := f.svc.Register(ctx, &RegisterDTO{Username: "reader", Email: "reader@example.com", Password: "correct-horse-1"})
	if !errors.Is(err, apperr.ErrRegistrationClosed) {
		t.Errorf("Register() error = %v, want ErrRegistrationClosed", err)
	}
}

func isValidation(err error) bool {
	var ve *apperr.ValidationError
	return errors.As(err, &ve)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}

// =============================================================================
// Password reset
// =============================================================================

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	old, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.users.RecordFailedLogin(ctx, u.ID, 1, time.Hour, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.ForgotPassword(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	token := f.mail.lastToken(t)

	if err := f.svc.ResetPassword(ctx, token, "brand-new-pass-2"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "another-pass-3"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("reused token error = %v, want ErrInvalidToken", err)
	}

	if _, err := f.sessions.Verify(ctx, old.Token); !errors.Is(err, session.ErrSessionInactive) {
		t.Errorf("old session error = %v, want ErrSessionInactive", err)
	}
	if _, err := f.svc.Login(ctx, "alice", "brand-new-pass-2", "", ""); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestForgotPasswordDoesNotEnumerate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "sam", "correct-horse-1", models.RoleAuthor, models.UserSuspended)

	for _, email := range []string{"nobody@example.com", "sam@example.com"} {
		if err := f.svc.ForgotPassword(ctx, email); err != nil {
			t.Errorf("ForgotPassword(%q) error = %v", email, err)
		}
	}
	if f.mail.count() != 0 {
		t.Errorf("mails sent = %d, want 0", f.mail.count())
	}
}

func TestForgotPasswordSwallowsMailFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	f.mail.err = errors.New("smtp down")

	if err := f.svc.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Errorf("ForgotPassword() error = %v, want nil", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	if err := f.svc.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	token := f.mail.lastToken(t)
	f.svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	if err := f.svc.ResetPassword(ctx, token, "brand-new-pass-2"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("ResetPassword() error = %v, want ErrInvalidToken", err)
	}
}

func TestResetPasswordValidatesFirst(t *testing.T) {
	f := setup(t)
	if err := f.svc.ResetPassword(context.Background(), "whatever", "short"); !isValidation(err) {
		t.Errorf("ResetPassword() error = %v, want validation error", err)
	}
}

// =============================================================================
// Verification
// =============================================================================

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	if err := f.svc.ResendVerification(ctx, u.ID); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	first := f.mail.lastToken(t)
	if err := f.svc.ResendVerification(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	second := f.mail.lastToken(t)

	if _, err := f.svc.VerifyEmail(ctx, first); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("superseded token error = %v, want ErrInvalidToken", err)
	}
	if _, err := f.svc.VerifyEmail(ctx, second); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if err := f.svc.ResendVerification(ctx, u.ID); !isValidation(err) {
		t.Errorf("ResendVerification() when verified error = %v, want validation error", err)
	}
}

// =============================================================================
// Sessions
// =============================================================================

func TestSessions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := f.svc.Login(ctx, "alice", "correct-horse-1", "", "")
		if err != nil {
			t.Fatal(err)
		}
		claims, _ := f.sessions.Verify(ctx, res.Token)
		ids = append(ids, claims.SessionID)
	}

	if err := f.svc.RevokeSession(ctx, u.ID, ids[0]); err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}
	if err := f.svc.RevokeSession(ctx, u.ID, ids[0]); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("RevokeSession() twice error = %v, want ErrNotFound", err)
	}
	if err := f.svc.RevokeOtherSessions(ctx, u.ID, ids[2]); err != nil {
		t.Fatal(err)
	}
	active, err := f.svc.Sessions(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != ids[2] {
		t.Errorf("active sessions = %+v, want only %s", active, ids[2])
	}
}
