package app

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcron "github.com/inkwell-cms/inkwell/internal/pkg/cron"
	"go.uber.org/zap"
)

type fakeJobs struct {
	published  int
	tokenAt    time.Time
	sessionAt  time.Time
	reindexed  int
	publishErr error
}

func (f *fakeJobs) PublishDue(context.Context) (int, error) {
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.published++
	return 2, nil
}

func (f *fakeJobs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.tokenAt = now
	return 1, nil
}

func (f *fakeJobs) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.sessionAt = cutoff
	return 3, nil
}

func (f *fakeJobs) Reindex(context.Context) (int, error) {
	f.reindexed++
	return 10, nil
}

func newCronFixture(reindex bool) (*pkgcron.Scheduler, *fakeJobs, time.Time) {
	f := &fakeJobs{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sched := pkgcron.New(zap.NewNop())
	registerCronJobs(sched, cronDeps{
		posts: f, tokens: f, sessions: f, search: f,
		reindex: reindex,
		now:     func() time.Time { return now },
	}, zap.NewNop())
	return sched, f, now
}

func TestCronJobsRegistered(t *testing.T) {
	sched, _, _ := newCronFixture(false)
	var names []string
	for _, j := range sched.List() {
		names = append(names, j.Name)
	}
	want := []string{"publish_scheduled", "purge_sessions", "purge_tokens"}
	if len(names) != len(want) {
		t.Fatalf("jobs = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("jobs = %v, want %v", names, want)
		}
	}

	sched, _, _ = newCronFixture(true)
	if n := len(sched.List()); n != 4 {
		t.Fatalf("with reindex: %d jobs, want 4", n)
	}
}

func TestCronJobsRun(t *testing.T) {
	sched, f, now := newCronFixture(true)
	ctx := context.Background()

	for _, name := range []string{"publish_scheduled", "purge_tokens", "purge_sessions", "reindex_search"} {
		if err := sched.Run(ctx, name); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}
	if f.published != 1 || f.reindexed != 1 {
		t.Fatalf("published=%d reindexed=%d", f.published, f.reindexed)
	}
	if !f.tokenAt.Equal(now) || !f.sessionAt.Equal(now) {
		t.Fatalf("purge times: tokens=%v sessions=%v", f.tokenAt, f.sessionAt)
	}
}

func TestCronJobFailureIsReported(t *testing.T) {
	sched, f, _ := newCronFixture(false)
	f.publishErr = errors.New("db down")

	if err := sched.Run(context.Background(), "publish_scheduled"); err == nil {
		t.Fatal("expected error")
	}
	for _, j := range sched.List() {
		if j.Name == "publish_scheduled" && j.Status != pkgcron.StatusFailed {
			t.Fatalf("status = %s", j.Status)
		}
	}
	if err := sched.Run(context.Background(), "missing"); !errors.Is(err, pkgcron.ErrJobNotFound) {
		t.Fatalf("err = %v", err)
	}
}
