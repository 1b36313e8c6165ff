package idempotency

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Minute), mr
}

func TestSeen(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	key := s.Key("order.events", 2, 41)
	assert.Equal(t, "idem:order.events:2:41", key)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.Forget(ctx, key))
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(key))
}

func TestMiddlewareReplaysResponse(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var calls atomic.Int32

	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set(HeaderKey, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	second := do()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var calls atomic.Int32

	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(HeaderKey, "retry-me")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestMiddlewareRejectsConcurrentDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	key := "idem:http:POST:/orders:busy"
	ok, err := s.Reserve(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)

	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while key is reserved")
	}))
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderKey, "busy")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMiddlewareSavesWhenClientHangsUp(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var calls atomic.Int32

	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"o-1"}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/orders", nil).WithContext(ctx)
	req.Header.Set(HeaderKey, "hangup")
	h.ServeHTTP(&cancelOnWrite{ResponseRecorder: httptest.NewRecorder(), cancel: cancel}, req)

	retry := httptest.NewRequest(http.MethodPost, "/orders", nil)
	retry.Header.Set(HeaderKey, "hangup")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, retry)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(HeaderReplayed))
	assert.JSONEq(t, `{"orderId":"o-1"}`, rec.Body.String())
}

// cancelOnWrite drops the request context as soon as the response is written.
type cancelOnWrite struct {
	*httptest.ResponseRecorder
	cancel context.CancelFunc
}

func (c *cancelOnWrite) Write(b []byte) (int, error) {
	n, err := c.ResponseRecorder.Write(b)
	c.cancel()
	return n, err
}

func TestMiddlewareReplaysSavedResponseWhileLocked(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	key := "idem:http:POST:/orders:done"
	ok, err := s.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Save(ctx, key, Response{Status: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"orderId":"o-2"}`)}))

	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a finished key")
	}))
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderKey, "done")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(HeaderReplayed))
}

func TestMiddlewarePassThroughWithoutHeader(t *testing.T) {
	s, _ := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var calls atomic.Int32
	h := Middleware(log, s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", nil))
	}
	assert.Equal(t, int32(3), calls.Load())
}
