package idempotency

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware replays the stored response for a repeated Idempotency-Key header.
// Requests without the header pass through. Server errors are not stored, so the
// client may retry them with the same key.
func Middleware(log *slog.Logger, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderKey)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			// Bookkeeping after the handler must survive a client hanging up.
			bg := context.WithoutCancel(ctx)
			key := "idem:http:" + r.Method + ":" + r.URL.Path + ":" + header

			acquired, err := store.Reserve(ctx, key)
			if err != nil {
				log.Error("idempotency reserve failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				// The holder may have finished and saved without releasing yet.
				if resp, ok, err := store.Load(ctx, key); err == nil && ok {
					replay(w, resp)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"A request with this Idempotency-Key is already in progress"}`))
				return
			}
			defer func() {
				if err := store.Release(bg, key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}()

			// Checked under the lock so a finished request is never run twice.
			if resp, ok, err := store.Load(ctx, key); err != nil {
				log.Error("idempotency load failed", "key", key, "err", err)
			} else if ok {
				replay(w, resp)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status != 0 && rec.status < http.StatusInternalServerError {
				resp := Response{Status: rec.status, ContentType: rec.Header().Get("Content-Type"), Body: rec.buf.Bytes()}
				if err := store.Save(bg, key, resp); err != nil {
					log.Error("idempotency save failed", "key", key, "err", err)
				}
			}
		})
	}
}

func replay(w http.ResponseWriter, resp *Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
