package plugins

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is used to verify that the plugin and host are compatible
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "CODEXOMICS_PLUGIN",
	MagicCookieValue: "codexomics-analysis-plugin-v1",
}

// PluginMap is the map of plugins we can dispense
var PluginMap = map[string]plugin.Plugin{
	"analysis": &AnalysisRPCPlugin{},
}

// AnalysisRPCPlugin is the implementation of plugin.Plugin for RPC
type AnalysisRPCPlugin struct {
	Impl AnalysisPlugin
}

func (p *AnalysisRPCPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &AnalysisRPCServer{Impl: p.Impl}, nil
}

func (p *AnalysisRPCPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &AnalysisRPCClient{client: c}, nil
}

// AnalysisRPCServer is the RPC server that AnalysisRPCClient talks to
type AnalysisRPCServer struct {
	Impl AnalysisPlugin
}

// ActivateArgs are the arguments for Activate RPC call
type ActivateArgs struct {
	Config map[string]any
}

func (s *AnalysisRPCServer) Activate(args *ActivateArgs, resp *error) error {
	*resp = s.Impl.Activate(context.Background(), args.Config)
	return nil
}

func (s *AnalysisRPCServer) Deactivate(args interface{}, resp *error) error {
	*resp = s.Impl.Deactivate(context.Background())
	return nil
}

// ExecuteArgs are the arguments for Execute RPC call
type ExecuteArgs struct {
	Name   string
	Params map[string]any
}

// ExecuteResp is the response for Execute RPC call
type ExecuteResp struct {
	Result map[string]any
	Error  error
}

func (s *AnalysisRPCServer) Execute(args *ExecuteArgs, resp *ExecuteResp) error {
	result, err := s.Impl.Execute(context.Background(), args.Name, args.Params)
	resp.Result = result
	resp.Error = err
	return nil
}

// AnalysisRPCClient is the RPC client that talks to AnalysisRPCServer
type AnalysisRPCClient struct {
	client *rpc.Client
}

func (c *AnalysisRPCClient) Activate(ctx context.Context, config map[string]any) error {
	var resp error
	err := c.client.Call("Plugin.Activate", &ActivateArgs{Config: config}, &resp)
	if err != nil {
		return err
	}
	return resp
}

func (c *AnalysisRPCClient) Deactivate(ctx context.Context) error {
	var resp error
	err := c.client.Call("Plugin.Deactivate", new(interface{}), &resp)
	if err != nil {
		return err
	}
	return resp
}

func (c *AnalysisRPCClient) Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	var resp ExecuteResp
	err := c.client.Call("Plugin.Execute", &ExecuteArgs{Name: name, Params: params}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}
