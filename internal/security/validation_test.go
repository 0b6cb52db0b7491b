package security

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/photo.jpg", false},
		{"https://images.example.org:8443/a.png", false},
		{"", true},
		{"http://example.com/photo.jpg", true},
		{"ftp://example.com/photo.jpg", true},
		{"https:///photo.jpg", true},
		{"https://localhost/photo.jpg", true},
		{"https://127.0.0.1/photo.jpg", true},
		{"https://10.1.2.3/photo.jpg", true},
		{"https://172.20.0.1/photo.jpg", true},
		{"https://192.168.1.10/photo.jpg", true},
		{"https://169.254.169.254/latest/meta-data", true},
		{"https://[::1]/photo.jpg", true},
		{"https://[fd00::1]/photo.jpg", true},
		{"https://0.0.0.0/photo.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateHTTPURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestLimitedReader(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		data, err := io.ReadAll(NewLimitedReader(strings.NewReader("hello"), 10))
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("ReadAll() = %q", data)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		data, err := io.ReadAll(NewLimitedReader(strings.NewReader("hello"), 5))
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("ReadAll() = %q", data)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := io.ReadAll(NewLimitedReader(bytes.NewReader(make([]byte, 100)), 10))
		if !errors.Is(err, ErrSizeLimitExceeded) {
			t.Errorf("ReadAll() error = %v, want ErrSizeLimitExceeded", err)
		}
	})
}
