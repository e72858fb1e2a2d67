// Package mcp exposes the widget bridge's debug surface as MCP tools over
// stdio, so development tooling can inspect widgets and synthesize
// interactions without a device in hand.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/pipeline"
)

type Server struct {
	server     *server.MCPServer
	bridge     host.Bridge
	bus        *bus.Bus
	dispatcher *pipeline.Dispatcher
}

func NewServer(bridge host.Bridge, b *bus.Bus, dispatcher *pipeline.Dispatcher) *Server {
	s := &Server{
		server:     server.NewMCPServer("voltra-bridge", "1.0.0"),
		bridge:     bridge,
		bus:        b,
		dispatcher: dispatcher,
	}
	s.registerTools()
	return s
}

func (s *Server) Start() error {
	slog.Info("Started stdio MCP server")
	defer func() {
		slog.Info("Shut down stdio MCP server")
	}()
	return server.ServeStdio(s.server)
}

func (s *Server) registerTools() {
	listWidgets := mcp.NewTool("list_widgets",
		mcp.WithDescription("List the widget instances the native host currently knows"),
	)
	s.server.AddTool(listWidgets, s.handleListWidgets)

	lastAction := mcp.NewTool("last_action",
		mcp.WithDescription("Show the most recently dispatched action event for a widget"),
		mcp.WithString("widgetId",
			mcp.Required(),
			mcp.Description("Widget instance id"),
		),
	)
	s.server.AddTool(lastAction, s.handleLastAction)

	injectAction := mcp.NewTool("inject_action",
		mcp.WithDescription("Synthesize a widget interaction and run it through the dispatch pipeline"),
		mcp.WithString("widgetId",
			mcp.Required(),
			mcp.Description("Widget instance id"),
		),
		mcp.WithString("actionName",
			mcp.Description("Logical action name; defaults from componentId"),
		),
		mcp.WithString("componentId",
			mcp.Description("Id of the component that fired"),
		),
	)
	s.server.AddTool(injectAction, s.handleInjectAction)
}

func (s *Server) handleListWidgets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	widgets, err := s.bridge.ActiveWidgets(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing widgets: %v", err)), err
	}

	result := map[string]any{
		"widgets": widgets,
		"count":   len(widgets),
	}
	resultBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(resultBytes)), nil
}

func (s *Server) handleLastAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	widgetID, err := request.RequireString("widgetId")
	if err != nil {
		return mcp.NewToolResultError("widgetId is required and must be a string"), err
	}

	ev, ok := s.bus.LastEvent(widgetID)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No action dispatched for widget %s yet", widgetID)), nil
	}
	resultBytes, _ := json.Marshal(ev)
	return mcp.NewToolResultText(string(resultBytes)), nil
}

func (s *Server) handleInjectAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	widgetID, err := request.RequireString("widgetId")
	if err != nil {
		return mcp.NewToolResultError("widgetId is required and must be a string"), err
	}
	actionName := request.GetString("actionName", "")
	componentID := request.GetString("componentId", "")

	s.dispatcher.Dispatch(bus.Event{
		WidgetID:    widgetID,
		ActionName:  actionName,
		ComponentID: componentID,
	})

	return mcp.NewToolResultText(fmt.Sprintf("Action dispatched to widget %s", widgetID)), nil
}
