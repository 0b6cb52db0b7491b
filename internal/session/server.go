package session

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/capture"
	swatchimage "github.com/jmylchreest/swatch/internal/image"
)

// Options configures a Server.
type Options struct {
	// Device is used for live capture. It may be nil when only uploads are used.
	Device capture.Device
	// MaxUploadBytes bounds uploaded images.
	MaxUploadBytes int64
	// AllowedOrigins lists cross-origin websocket origins to accept.
	AllowedOrigins []string
	// Logger receives server logs.
	Logger hclog.Logger
}

// Server exposes sessions over HTTP.
type Server struct {
	opts     Options
	hub      *Hub
	upgrader websocket.Upgrader
	logger   hclog.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = swatchimage.DefaultMaxBytes
	}
	s := &Server{
		opts:   opts,
		hub:    NewHub(opts.Logger.Named("hub")),
		logger: opts.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Hub returns the client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.Healthz)
	mux.HandleFunc("/ws", s.WebSocket)
	mux.HandleFunc("/upload", s.Upload)
	return mux
}

// Shutdown disconnects every client.
func (s *Server) Shutdown() {
	s.hub.Broadcast(Event{Type: EventState, State: "shutdown"})
	s.hub.CloseAll()
}

// Healthz reports liveness.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.hub.Len()})
}

// WebSocket upgrades the request and starts a session.
func (s *Server) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(s.hub, conn, s.logger)
	sess, err := New(s.opts.Device, client.Emit, s.logger)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		_ = conn.Close()
		return
	}
	client.session = sess
	client.logger = s.logger.With("session", sess.ID())

	s.hub.Register(client)
	client.Emit(sess.Hello())
	go client.WritePump()
	go client.ReadPump()
}

// uploadResponse is returned after a successful upload.
type uploadResponse struct {
	Session string `json:"session"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Upload decodes an image posted either as the raw body or as the "image"
// field of a multipart form, and makes it the surface of the named session.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("upload requires POST"))
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		writeErr(w, http.StatusBadRequest, errors.New("session required"))
		return
	}
	client, ok := s.hub.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, errors.New("unknown session"))
		return
	}

	// Multipart framing needs headroom over the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+64*1024)
	body, err := uploadBody(r)
	if err != nil {
		writeErr(w, uploadStatus(err), err)
		return
	}
	defer body.Close()

	img, err := swatchimage.DecodeUpload(body, s.opts.MaxUploadBytes)
	if err != nil {
		s.logger.Debug("upload rejected", "session", id, "error", err)
		writeErr(w, uploadStatus(err), err)
		return
	}
	if err := client.Session().LoadImage(img); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}

	b := img.Bounds()
	s.logger.Info("image uploaded", "session", id, "width", b.Dx(), "height", b.Dy())
	writeJSON(w, http.StatusOK, uploadResponse{Session: id, Width: b.Dx(), Height: b.Dy()})
}

func uploadBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("multipart upload has no image field")
			}
			return nil, err
		}
		if part.FormName() == "image" {
			return part, nil
		}
		_ = part.Close()
	}
}

func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, swatchimage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, swatchimage.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

// checkOrigin accepts same-origin requests, requests without an Origin header,
// and configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.opts.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
