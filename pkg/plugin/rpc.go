// Package plugin provides the public API for swatch frame source plugins.
package plugin

import (
	"context"
	"errors"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// FrameSourceRPC implements the go-plugin Plugin interface for frame sources.
type FrameSourceRPC struct {
	plugin.Plugin
	Impl FrameSource
}

// Server returns an RPC server for this plugin.
func (p *FrameSourceRPC) Server(*plugin.MuxBroker) (any, error) {
	return &FrameSourceRPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *FrameSourceRPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &FrameSourceRPCClient{client: c}, nil
}

// PluginMap returns the plugin set served by a frame source binary.
// Hosts pass PluginMap(nil) since they only need the client side.
func PluginMap(impl FrameSource) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		FrameSourcePluginName: &FrameSourceRPC{Impl: impl},
	}
}

// Serve runs impl as a plugin process. It blocks until the host disconnects.
func Serve(impl FrameSource) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(impl),
	})
}

// ErrorResponse carries a failure across RPC without losing its reason.
type ErrorResponse struct {
	Reason string
	Error  string
}

func errorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	reason := ReasonUnknown
	var rerr *RPCError
	if errors.As(err, &rerr) && rerr.Reason != "" {
		reason = rerr.Reason
	}
	return ErrorResponse{Reason: reason, Error: err.Error()}
}

func (r ErrorResponse) err() error {
	if r.Error == "" {
		return nil
	}
	return &RPCError{Reason: r.Reason, Message: r.Error}
}

// CaptureResponse is the reply to a Capture call.
type CaptureResponse struct {
	Frame Frame
	ErrorResponse
}

// FrameSourceRPCServer is the RPC server implementation for frame sources.
type FrameSourceRPCServer struct {
	Impl FrameSource
}

// Open implements the RPC method for acquiring the device.
func (s *FrameSourceRPCServer) Open(req OpenRequest, resp *ErrorResponse) error {
	*resp = errorResponse(s.Impl.Open(context.Background(), req))
	return nil
}

// Capture implements the RPC method for grabbing a frame.
func (s *FrameSourceRPCServer) Capture(_ any, resp *CaptureResponse) error {
	frame, err := s.Impl.Capture(context.Background())
	resp.ErrorResponse = errorResponse(err)
	if err == nil {
		resp.Frame = frame
	}
	return nil
}

// Close implements the RPC method for releasing the device.
func (s *FrameSourceRPCServer) Close(_ any, resp *ErrorResponse) error {
	*resp = errorResponse(s.Impl.Close())
	return nil
}

// GetMetadata implements the RPC method for fetching plugin metadata.
func (s *FrameSourceRPCServer) GetMetadata(_ any, resp *PluginInfo) error {
	*resp = s.Impl.GetMetadata()
	return nil
}

// GetFlagHelp implements the RPC method for fetching argument help.
func (s *FrameSourceRPCServer) GetFlagHelp(_ any, resp *[]FlagHelp) error {
	*resp = s.Impl.GetFlagHelp()
	return nil
}

// FrameSourceRPCClient is the RPC client implementation for frame sources.
type FrameSourceRPCClient struct {
	client *rpc.Client
}

// Open calls the remote Open method.
func (c *FrameSourceRPCClient) Open(ctx context.Context, req OpenRequest) error {
	var resp ErrorResponse
	if err := c.call(ctx, "Plugin.Open", req, &resp); err != nil {
		return err
	}
	return resp.err()
}

// Capture calls the remote Capture method.
func (c *FrameSourceRPCClient) Capture(ctx context.Context) (Frame, error) {
	var resp CaptureResponse
	if err := c.call(ctx, "Plugin.Capture", new(any), &resp); err != nil {
		return Frame{}, err
	}
	if err := resp.err(); err != nil {
		return Frame{}, err
	}
	if err := resp.Frame.Validate(); err != nil {
		return Frame{}, err
	}
	return resp.Frame, nil
}

// Close calls the remote Close method.
func (c *FrameSourceRPCClient) Close() error {
	var resp ErrorResponse
	if err := c.client.Call("Plugin.Close", new(any), &resp); err != nil {
		return err
	}
	return resp.err()
}

// GetMetadata calls the remote GetMetadata method.
func (c *FrameSourceRPCClient) GetMetadata() PluginInfo {
	var info PluginInfo
	if err := c.client.Call("Plugin.GetMetadata", new(any), &info); err != nil {
		return PluginInfo{}
	}
	return info
}

// GetFlagHelp calls the remote GetFlagHelp method.
func (c *FrameSourceRPCClient) GetFlagHelp() []FlagHelp {
	var help []FlagHelp
	err := c.client.Call("Plugin.GetFlagHelp", new(any), &help)
	if err != nil {
		return []FlagHelp{}
	}
	return help
}

// call issues an RPC that is abandoned when ctx is done.
func (c *FrameSourceRPCClient) call(ctx context.Context, method string, args, reply any) error {
	call := c.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-call.Done:
		return done.Error
	}
}

// RPCError represents an error returned from an RPC call.
type RPCError struct {
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}
