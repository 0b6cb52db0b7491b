package session

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/swatch/internal/sampler"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads events until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if match(evt) {
			return evt
		}
	}
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, c)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// oversizedPNG returns just the signature and IHDR of a PNG far beyond the
// decoder's pixel limit.
func oversizedPNG() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 30000)
	binary.BigEndian.PutUint32(ihdr[4:8], 30000)
	ihdr[8] = 8
	chunk := append([]byte("IHDR"), ihdr...)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestServerUploadAndSample(t *testing.T) {
	srv, ts := newTestServer(t, Options{})
	conn := dial(t, ts)

	hello := readUntil(t, conn, func(e Event) bool { return e.Type == EventHello })
	if hello.Session == "" || hello.Hex != DefaultColor {
		t.Fatalf("hello = %+v", hello)
	}
	if _, ok := srv.Hub().Get(hello.Session); !ok {
		t.Fatal("session not registered with hub")
	}

	body := pngBytes(t, 16, 9, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 255})
	resp, err := http.Post(ts.URL+"/upload?session="+hello.Session, "image/png", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var up uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if up.Session != hello.Session || up.Width != 16 || up.Height != 9 {
		t.Errorf("upload response = %+v", up)
	}

	readUntil(t, conn, func(e Event) bool { return e.Type == EventState && e.State == "captured" })

	msg := Message{Type: MsgPointer, Target: TargetImage, X: 80, Y: 45, Phase: "up", Rect: &sampler.Rect{Width: 160, Height: 90}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	final := readUntil(t, conn, func(e Event) bool { return e.Type == EventColor && e.Final })
	if final.Hex != "123456" || final.Source != SourceSample {
		t.Errorf("final colour = %+v, want sampled 123456", final)
	}
}

func TestServerMultipartUpload(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	hello := readUntil(t, conn, func(e Event) bool { return e.Type == EventHello })

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "ignored")
	fw, err := mw.CreateFormFile("image", "swatch.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = fw.Write(pngBytes(t, 3, 2, color.NRGBA{R: 255, A: 255}))
	_ = mw.Close()

	resp, err := http.Post(ts.URL+"/upload?session="+hello.Session, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
}

func TestServerMessageErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	readUntil(t, conn, func(e Event) bool { return e.Type == EventHello })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	evt := readUntil(t, conn, func(e Event) bool { return e.Type == EventError })
	if !strings.Contains(evt.Message, "malformed") {
		t.Errorf("error = %q, want malformed message", evt.Message)
	}

	if err := conn.WriteJSON(Message{Type: "teleport"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	evt = readUntil(t, conn, func(e Event) bool { return e.Type == EventError })
	if !strings.Contains(evt.Message, "unknown message type") {
		t.Errorf("error = %q, want unknown message type", evt.Message)
	}

	// The connection survives rejected messages.
	if err := conn.WriteJSON(Message{Type: MsgHexInput, Text: "00FF00"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	evt = readUntil(t, conn, func(e Event) bool { return e.Type == EventColor })
	if evt.Hex != "00FF00" || evt.Source != SourcePicker {
		t.Errorf("colour = %+v", evt)
	}
}

func TestServerHTTPErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{MaxUploadBytes: 1024})
	conn := dial(t, ts)
	hello := readUntil(t, conn, func(e Event) bool { return e.Type == EventHello })

	// Over the limit before any decoding is attempted.
	big := bytes.Repeat([]byte{0x89}, 4096)

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        []byte
		want        int
	}{
		{"upload wrong method", http.MethodGet, "/upload?session=" + hello.Session, "", nil, http.StatusMethodNotAllowed},
		{"upload missing session", http.MethodPost, "/upload", "image/png", []byte("x"), http.StatusBadRequest},
		{"upload unknown session", http.MethodPost, "/upload?session=nope", "image/png", []byte("x"), http.StatusNotFound},
		{"upload not an image", http.MethodPost, "/upload?session=" + hello.Session, "text/plain", []byte("hello, world"), http.StatusUnsupportedMediaType},
		{"upload too large", http.MethodPost, "/upload?session=" + hello.Session, "image/png", big, http.StatusRequestEntityTooLarge},
		{"upload too many pixels", http.MethodPost, "/upload?session=" + hello.Session, "image/png", oversizedPNG(), http.StatusRequestEntityTooLarge},
		{"websocket without upgrade", http.MethodGet, "/ws", "", nil, http.StatusBadRequest},
		{"websocket wrong method", http.MethodPost, "/ws", "", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, bytes.NewReader(tt.body))
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServerHealthz(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	dial(t, ts)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %+v", resp.StatusCode, body)
	}
}

func TestCheckOrigin(t *testing.T) {
	srv := NewServer(Options{AllowedOrigins: []string{"https://app.example.com"}})

	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "localhost:8787", true},
		{"same host", "http://localhost:8787", "localhost:8787", true},
		{"allowed", "https://app.example.com", "localhost:8787", true},
		{"foreign", "https://evil.example.net", "localhost:8787", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := srv.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
