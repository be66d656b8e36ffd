// Package views counts content views, collapsing repeat hits from the same
// visitor inside a window.
package views

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	redispkg "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	"go.uber.org/zap"
)

// Counter bumps the stored view counter of one row.
type Counter interface {
	IncrementViews(ctx context.Context, id string) error
}

type Service struct {
	rdb      *redispkg.Client
	window   time.Duration
	counters map[string]Counter
	logger   *zap.Logger
	wg       sync.WaitGroup
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ViewService")
		}
	}
}

// NewService builds a view counter. A zero window disables de-duplication.
func NewService(rdb *redispkg.Client, window time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		rdb:      rdb,
		window:   window,
		counters: make(map[string]Counter),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register routes views of kind to counter.
func (s *Service) Register(kind string, counter Counter) {
	s.counters[kind] = counter
}

// Record counts a view of kind/id by visitor. It reports false when the
// visitor was already counted within the window.
func (s *Service) Record(ctx context.Context, kind, id, visitor string) (bool, error) {
	counter, ok := s.counters[kind]
	if !ok {
		return false, fmt.Errorf("views: unknown kind %q", kind)
	}
	if s.window > 0 && visitor != "" {
		first, err := s.rdb.SetNX(ctx, key(kind, id, visitor), 1, s.window)
		if err != nil {
			s.logger.Warn("view de-duplication unavailable", zap.Error(err))
		} else if !first {
			return false, nil
		}
	}
	if err := counter.IncrementViews(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// RecordAsync counts the view off the request path. Wait drains it.
func (s *Service) RecordAsync(ctx context.Context, kind, id, visitor string) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := s.Record(ctx, kind, id, visitor); err != nil {
			s.logger.Warn("record view failed",
				zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		}
	}()
}

// Wait blocks until pending asynchronous views are stored.
func (s *Service) Wait() { s.wg.Wait() }

// Visitor fingerprints a client without storing its address.
func Visitor(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:12])
}

func key(kind, id, visitor string) string {
	return "inkwell:views:" + kind + ":" + id + ":" + visitor
}
