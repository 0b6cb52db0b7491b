package executor

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginapi "github.com/jmylchreest/swatch/pkg/plugin"
)

// Launcher starts a frame source plugin and returns its client together with a
// function that terminates it. This abstraction allows for dependency injection
// and easier testing.
type Launcher interface {
	Launch(ctx context.Context, path string, logger hclog.Logger) (source pluginapi.FrameSource, kill func(), err error)
}

// ProcessLauncher runs plugins as child processes over go-plugin net/rpc.
type ProcessLauncher struct{}

// NewProcessLauncher creates a new process launcher.
func NewProcessLauncher() *ProcessLauncher {
	return &ProcessLauncher{}
}

// Launch starts the plugin at path and dispenses its frame source.
func (l *ProcessLauncher) Launch(ctx context.Context, path string, logger hclog.Logger) (pluginapi.FrameSource, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginapi.Handshake,
		Plugins:          pluginapi.PluginMap(nil),
		Cmd:              exec.Command(path),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           logger,
	})

	// Connect via RPC.
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to get RPC client: %w", err)
	}

	// Request the plugin.
	raw, err := rpcClient.Dispense(pluginapi.FrameSourcePluginName)
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	source, ok := raw.(pluginapi.FrameSource)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin dispensed unexpected type %T", raw)
	}
	return source, client.Kill, nil
}
