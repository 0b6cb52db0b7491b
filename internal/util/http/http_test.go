package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("X-Test")))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		data, err := Fetch(ctx, srv.URL+"/ok", FetchOptions{Headers: map[string]string{"X-Test": "yes"}})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		ua, header, _ := strings.Cut(string(data), "|")
		if !strings.HasPrefix(ua, "swatch/") {
			t.Errorf("User-Agent = %q", ua)
		}
		if header != "yes" {
			t.Errorf("X-Test = %q", header)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := Fetch(ctx, srv.URL+"/missing", FetchOptions{}); err == nil {
			t.Error("Fetch() succeeded for 404")
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Fetch(ctx, srv.URL+"/big", FetchOptions{MaxBytes: 16})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
		}
	})
}
