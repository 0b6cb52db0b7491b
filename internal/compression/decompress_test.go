package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func xzed(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

func TestNewReader(t *testing.T) {
	payload := []byte("not really an image but good enough")

	tests := []struct {
		name   string
		input  []byte
		format Format
	}{
		{"plain", payload, FormatNone},
		{"gzip", gzipped(t, payload), FormatGzip},
		{"xz", xzed(t, payload), FormatXz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, format, err := NewReader(bytes.NewReader(tt.input), 1<<20)
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("payload = %q, want %q", got, payload)
			}
		})
	}
}

func TestNewReaderShortInput(t *testing.T) {
	r, format, err := NewReader(strings.NewReader("ab"), 10)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if format != FormatNone {
		t.Errorf("format = %q, want none", format)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "ab" {
		t.Errorf("payload = %q, want ab", got)
	}
}

func TestNewReaderLimit(t *testing.T) {
	big := bytes.Repeat([]byte{0}, 4096)
	r, _, err := NewReader(bytes.NewReader(xzed(t, big)), 1024)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, err := io.ReadAll(r); err == nil {
		t.Error("expected size limit error for oversized payload")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		header []byte
		want   Format
	}{
		{[]byte{0x1f, 0x8b, 0x08}, FormatGzip},
		{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, FormatXz},
		{[]byte("BZh91AY"), FormatBzip2},
		{[]byte{0x89, 'P', 'N', 'G'}, FormatNone},
		{nil, FormatNone},
	}
	for _, tt := range tests {
		if got := Detect(tt.header); got != tt.want {
			t.Errorf("Detect(%x) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
