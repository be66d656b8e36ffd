package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	jwtpkg "github.com/inkwell-cms/inkwell/internal/pkg/jwt"
	"github.com/inkwell-cms/inkwell/internal/pkg/session"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	m, err := jwtpkg.NewManager("this-is-a-test-secret-with-32-bytes!", "test")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return session.NewStore(dbtest.New(t), m, time.Hour)
}

func TestIssueVerifyRevoke(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	token, sess, err := store.Issue(ctx, "user-1", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := store.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", claims.SessionID, sess.ID)
	}

	if err := store.Revoke(ctx, "user-1", sess.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := store.Verify(ctx, token); !errors.Is(err, session.ErrSessionInactive) {
		t.Errorf("Verify() after revoke error = %v, want ErrSessionInactive", err)
	}
}

func TestRevokeAllExcept(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, keep, _ := store.Issue(ctx, "user-1", "", "")
	_, _, _ = store.Issue(ctx, "user-1", "", "")
	_, _, _ = store.Issue(ctx, "user-1", "", "")

	if err := store.RevokeAllExcept(ctx, "user-1", keep.ID); err != nil {
		t.Fatalf("RevokeAllExcept() error = %v", err)
	}
	active, err := store.ListActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("active sessions = %+v, want only %s", active, keep.ID)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, sess, _ := store.Issue(ctx, "user-1", "", "")
	_ = store.Revoke(ctx, "user-1", sess.ID)

	n, err := store.PurgeExpired(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
