package plugin

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net"
	"net/rpc"
	"testing"
)

// Mock implementations for testing.
type mockFrameSource struct {
	frame      Frame
	metadata   PluginInfo
	flagHelp   []FlagHelp
	openErr    error
	captureErr error
	opened     OpenRequest
	closed     int
}

func (m *mockFrameSource) Open(_ context.Context, req OpenRequest) error {
	m.opened = req
	return m.openErr
}

func (m *mockFrameSource) Capture(_ context.Context) (Frame, error) {
	if m.captureErr != nil {
		return Frame{}, m.captureErr
	}
	return m.frame, nil
}

func (m *mockFrameSource) Close() error {
	m.closed++
	return nil
}

func (m *mockFrameSource) GetMetadata() PluginInfo {
	return m.metadata
}

func (m *mockFrameSource) GetFlagHelp() []FlagHelp {
	return m.flagHelp
}

func testFrame() Frame {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})
	return FrameFromImage(img)
}

// connect serves impl over an in-memory connection and returns a client for it.
func connect(t *testing.T, impl FrameSource) *FrameSourceRPCClient {
	t.Helper()

	server := rpc.NewServer()
	if err := server.RegisterName("Plugin", &FrameSourceRPCServer{Impl: impl}); err != nil {
		t.Fatalf("RegisterName() error = %v", err)
	}
	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = client.Close() })

	raw, err := (&FrameSourceRPC{}).Client(nil, client)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	return raw.(*FrameSourceRPCClient)
}

// TestFrameSourceRPC tests the frame source RPC wrapper.
func TestFrameSourceRPC(t *testing.T) {
	mock := &mockFrameSource{
		metadata: PluginInfo{
			Name:            "test-source",
			Version:         "1.0.0",
			ProtocolVersion: ProtocolVersion,
			Description:     "Test frame source",
		},
	}

	rpcPlugin := &FrameSourceRPC{Impl: mock}

	t.Run("Server", func(t *testing.T) {
		server, err := rpcPlugin.Server(nil)
		if err != nil {
			t.Fatalf("Server() error = %v", err)
		}
		rpcServer, ok := server.(*FrameSourceRPCServer)
		if !ok {
			t.Fatal("Server() returned wrong type")
		}
		if rpcServer.Impl != mock {
			t.Fatal("Server() impl not set correctly")
		}
	})

	t.Run("Client", func(t *testing.T) {
		client, err := rpcPlugin.Client(nil, nil)
		if err != nil {
			t.Fatalf("Client() error = %v", err)
		}
		if client == nil {
			t.Fatal("Client() returned nil client")
		}
	})

	t.Run("PluginMap", func(t *testing.T) {
		m := PluginMap(mock)
		if _, ok := m[FrameSourcePluginName].(*FrameSourceRPC); !ok {
			t.Fatalf("PluginMap() missing %q", FrameSourcePluginName)
		}
	})
}

// TestFrameSourceRPCServer tests the server methods directly.
func TestFrameSourceRPCServer(t *testing.T) {
	t.Run("Capture", func(t *testing.T) {
		server := &FrameSourceRPCServer{Impl: &mockFrameSource{frame: testFrame()}}
		var resp CaptureResponse
		if err := server.Capture(nil, &resp); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if resp.Error != "" {
			t.Fatalf("Capture() response error = %q", resp.Error)
		}
		if resp.Frame.Width != 2 || resp.Frame.Height != 1 {
			t.Errorf("Capture() frame = %dx%d, want 2x1", resp.Frame.Width, resp.Frame.Height)
		}
	})

	t.Run("CaptureErrorKeepsReason", func(t *testing.T) {
		server := &FrameSourceRPCServer{Impl: &mockFrameSource{
			captureErr: &RPCError{Reason: ReasonPermissionDenied, Message: "camera revoked"},
		}}
		var resp CaptureResponse
		if err := server.Capture(nil, &resp); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if resp.Reason != ReasonPermissionDenied || resp.Error != "camera revoked" {
			t.Errorf("Capture() response = %+v", resp.ErrorResponse)
		}
	})

	t.Run("PlainErrorIsUnknown", func(t *testing.T) {
		server := &FrameSourceRPCServer{Impl: &mockFrameSource{openErr: errors.New("boom")}}
		var resp ErrorResponse
		if err := server.Open(OpenRequest{}, &resp); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if resp.Reason != ReasonUnknown {
			t.Errorf("Open() reason = %q, want %q", resp.Reason, ReasonUnknown)
		}
	})

	t.Run("GetFlagHelp", func(t *testing.T) {
		help := []FlagHelp{{Name: "device", Type: "string", Description: "Device path"}}
		server := &FrameSourceRPCServer{Impl: &mockFrameSource{flagHelp: help}}
		var resp []FlagHelp
		if err := server.GetFlagHelp(nil, &resp); err != nil {
			t.Fatalf("GetFlagHelp() error = %v", err)
		}
		if len(resp) != 1 || resp[0].Name != "device" {
			t.Errorf("GetFlagHelp() = %v", resp)
		}
	})
}

// TestFrameSourceRoundTrip exercises the client against a live RPC server.
func TestFrameSourceRoundTrip(t *testing.T) {
	mock := &mockFrameSource{
		frame:    testFrame(),
		metadata: PluginInfo{Name: "pipe-source", ProtocolVersion: ProtocolVersion},
	}
	client := connect(t, mock)
	ctx := context.Background()

	if err := client.Open(ctx, OpenRequest{Protocol: ProtocolVersion, Device: "/dev/video2"}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if mock.opened.Device != "/dev/video2" || mock.opened.Protocol != ProtocolVersion {
		t.Errorf("plugin saw request %+v", mock.opened)
	}

	frame, err := client.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	img, err := frame.Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("pixel (1,0) = %v, want blue", got)
	}

	if info := client.GetMetadata(); info.Name != "pipe-source" {
		t.Errorf("GetMetadata() name = %q", info.Name)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if mock.closed != 1 {
		t.Errorf("plugin closed %d times, want 1", mock.closed)
	}
}

func TestFrameSourceRoundTripErrors(t *testing.T) {
	mock := &mockFrameSource{
		openErr: &RPCError{Reason: ReasonNoDevice, Message: "no camera attached"},
	}
	client := connect(t, mock)

	err := client.Open(context.Background(), OpenRequest{})
	var rerr *RPCError
	if !errors.As(err, &rerr) {
		t.Fatalf("Open() error = %v, want *RPCError", err)
	}
	if rerr.Reason != ReasonNoDevice || rerr.Message != "no camera attached" {
		t.Errorf("Open() error = %+v", rerr)
	}
}

func TestFrameSourceRejectsMalformedFrame(t *testing.T) {
	mock := &mockFrameSource{frame: Frame{Width: 4, Height: 4, Pix: make([]byte, 3)}}
	client := connect(t, mock)

	if _, err := client.Capture(context.Background()); err == nil {
		t.Error("Capture() accepted a frame with short pixel data")
	}
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"valid", testFrame(), false},
		{"zero width", Frame{Width: 0, Height: 1}, true},
		{"negative height", Frame{Width: 1, Height: -1}, true},
		{"short pix", Frame{Width: 2, Height: 2, Pix: make([]byte, 15)}, true},
		{"too large", Frame{Width: MaxFramePixels, Height: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameFromImageNormalisesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.SetRGBA(6, 5, color.RGBA{G: 255, A: 255})

	frame := FrameFromImage(img)
	if frame.Width != 2 || frame.Height != 1 {
		t.Fatalf("frame = %dx%d, want 2x1", frame.Width, frame.Height)
	}
	out, err := frame.Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if got := out.NRGBAAt(1, 0); got != (color.NRGBA{G: 255, A: 255}) {
		t.Errorf("pixel (1,0) = %v, want green", got)
	}
}
