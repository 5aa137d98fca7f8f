package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackbridge/hackbridge/internal/models"
)

type mockSessionStore struct {
	CreateFunc        func(ctx context.Context, s *models.Session) error
	GetFunc           func(ctx context.Context, id string) (*models.Session, error)
	DeleteFunc        func(ctx context.Context, id string) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int, error)
}

func (m *mockSessionStore) Create(ctx context.Context, s *models.Session) error {
	return m.CreateFunc(ctx, s)
}
func (m *mockSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}
func (m *mockSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return m.DeleteExpiredFunc(ctx, now)
}

// syncBuffer guards a bytes.Buffer written by the cleaner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartSessionCleaner_Success(t *testing.T) {
	var calls atomic.Int32
	fixed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &mockSessionStore{
		DeleteExpiredFunc: func(ctx context.Context, now time.Time) (int, error) {
			if !now.Equal(fixed) {
				t.Errorf("DeleteExpired now = %v; want %v", now, fixed)
			}
			calls.Add(1)
			return 3, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSessionCleaner(ctx, store, 10*time.Millisecond, func() time.Time { return fixed }, zap.NewNop())

	time.Sleep(200 * time.Millisecond)
	cancel()

	if calls.Load() == 0 {
		t.Error("expected DeleteExpired to be called")
	}
}

func TestStartSessionCleaner_ErrorLogged(t *testing.T) {
	store := &mockSessionStore{
		DeleteExpiredFunc: func(ctx context.Context, now time.Time) (int, error) {
			return 0, fmt.Errorf("store fail")
		},
	}

	var buf syncBuffer
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(&buf),
		zapcore.ErrorLevel,
	)
	logger := zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSessionCleaner(ctx, store, 10*time.Millisecond, nil, logger)

	time.Sleep(200 * time.Millisecond)
	cancel()

	out := buf.String()
	if !strings.Contains(out, "failed to clean expired sessions") {
		t.Errorf("expected error log, got:\n%s", out)
	}
}

func TestStartSessionCleaner_CancelBeforeTicker(t *testing.T) {
	var calls atomic.Int32
	store := &mockSessionStore{
		DeleteExpiredFunc: func(ctx context.Context, now time.Time) (int, error) {
			calls.Add(1)
			return 0, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	StartSessionCleaner(ctx, store, 100*time.Millisecond, nil, zap.NewNop())
	cancel()

	time.Sleep(50 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("unexpected DeleteExpired calls: %d", n)
	}
}

func TestStartSessionCleaner_DisabledInterval(t *testing.T) {
	store := &mockSessionStore{
		DeleteExpiredFunc: func(ctx context.Context, now time.Time) (int, error) {
			t.Error("cleaner must not run with a zero interval")
			return 0, nil
		},
	}
	StartSessionCleaner(context.Background(), store, 0, nil, zap.NewNop())
	time.Sleep(20 * time.Millisecond)
}
