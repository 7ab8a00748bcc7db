package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/adapters/definition"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURIPrefix prefixes the URI of every graph resource.
const GraphURIPrefix = "weave://graphs/"

// GraphSummary is the listing form of a stored graph.
type GraphSummary struct {
	ID          string `json:"id" jsonschema_description:"Graph ID"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Enabled     bool   `json:"enabled"`
	Nodes       int    `json:"nodes" jsonschema_description:"Number of nodes"`
	Edges       int    `json:"edges" jsonschema_description:"Number of edges"`
}

// ListGraphsResponse is returned by list_graphs.
type ListGraphsResponse struct {
	Graphs []GraphSummary `json:"graphs"`
}

// RunResponse is returned by run_graph.
type RunResponse struct {
	Run     *domain.ExecutionState `json:"run" jsonschema_description:"The recorded execution state"`
	Summary string                 `json:"summary" jsonschema_description:"Markdown summary of the run"`
}

// HistoryResponse is returned by get_run_history.
type HistoryResponse struct {
	Runs []*domain.ExecutionState `json:"runs" jsonschema_description:"Recorded runs, oldest first"`
}

// ValidationResponse is returned by validate_definition.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Nodes  int      `json:"nodes,omitempty"`
	Edges  int      `json:"edges,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// ListGraphsArgs are the arguments of list_graphs.
type ListGraphsArgs struct {
	Owner string `json:"owner,omitempty"`
}

// RunGraphArgs are the arguments of run_graph.
type RunGraphArgs struct {
	GraphID string `json:"graph_id"`
	Payload string `json:"payload,omitempty"`
}

// HistoryArgs are the arguments of get_run_history.
type HistoryArgs struct {
	GraphID string  `json:"graph_id"`
	Limit   float64 `json:"limit,omitempty"`
}

// MermaidArgs are the arguments of get_mermaid.
type MermaidArgs struct {
	GraphID string `json:"graph_id"`
	Run     string `json:"run,omitempty"`
}

// ValidateArgs are the arguments of validate_definition.
type ValidateArgs struct {
	Definition string `json:"definition"`
	Format     string `json:"format,omitempty"`
}

// Server exposes a GraphStore and a GraphRunner as an MCP server.
type Server struct {
	store     ports.GraphStore
	runner    ports.GraphRunner
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for tool calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(store ports.GraphStore, runner ports.GraphRunner, opts ...Option) *Server {
	s := &Server{
		store:  store,
		runner: runner,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("weave-mcp", weave.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the stored graphs."),
		mcp.WithString("owner", mcp.Description("Only list graphs created by this owner (optional)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[ListGraphsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListGraphs))

	s.mcpServer.AddTool(mcp.NewTool("run_graph",
		mcp.WithDescription("Run a stored graph and record the run in its history."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the graph to run")),
		mcp.WithString("payload", mcp.Description("JSON object handed to the trigger nodes (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRunGraph))

	s.mcpServer.AddTool(mcp.NewTool("get_run_history",
		mcp.WithDescription("Get the recorded runs of a graph, oldest first."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph ID")),
		mcp.WithNumber("limit", mcp.Description("Return only the most recent runs (optional)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[HistoryResponse](),
	), mcp.NewStructuredToolHandler(s.handleHistory))

	s.mcpServer.AddTool(mcp.NewTool("validate_definition",
		mcp.WithDescription("Compile and validate a graph definition without storing it."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("The definition document")),
		mcp.WithString("format", mcp.Description("yaml (default) or json")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("get_mermaid",
		mcp.WithDescription("Render a stored graph as a Mermaid flowchart."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph ID")),
		mcp.WithString("run", mcp.Description("Overlay the statuses of this run ID, or 'latest' (optional)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(s.handleMermaid))
}

func (s *Server) handleListGraphs(ctx context.Context, _ mcp.CallToolRequest, args ListGraphsArgs) (ListGraphsResponse, error) {
	graphs, err := s.store.List(ctx, args.Owner)
	if err != nil {
		return ListGraphsResponse{}, err
	}
	resp := ListGraphsResponse{Graphs: make([]GraphSummary, 0, len(graphs))}
	for _, g := range graphs {
		resp.Graphs = append(resp.Graphs, GraphSummary{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			Owner:       g.CreatedBy,
			Enabled:     g.Enabled,
			Nodes:       g.NodeCount(),
			Edges:       len(g.Edges),
		})
	}
	return resp, nil
}

func (s *Server) handleRunGraph(ctx context.Context, _ mcp.CallToolRequest, args RunGraphArgs) (RunResponse, error) {
	if args.GraphID == "" {
		return RunResponse{}, errors.New("graph_id is required")
	}
	var payload map[string]any
	if strings.TrimSpace(args.Payload) != "" {
		if err := json.Unmarshal([]byte(args.Payload), &payload); err != nil {
			return RunResponse{}, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}

	state, err := s.runner.Run(ctx, args.GraphID, payload)
	if state == nil {
		return RunResponse{}, err
	}
	if err != nil {
		s.logger.WarnContext(ctx, "mcp run finished with error", "graph_id", args.GraphID, "run_id", state.RunID, "err", err)
	}

	resp := RunResponse{Run: state}
	if g, gerr := s.store.Get(ctx, args.GraphID); gerr == nil {
		resp.Summary = graph.RunSummary(g, state)
	}
	return resp, nil
}

func (s *Server) handleHistory(ctx context.Context, _ mcp.CallToolRequest, args HistoryArgs) (HistoryResponse, error) {
	if _, err := s.store.Get(ctx, args.GraphID); err != nil {
		return HistoryResponse{}, err
	}
	history, err := s.store.History(ctx, args.GraphID)
	if err != nil {
		return HistoryResponse{}, err
	}
	if n := int(args.Limit); n > 0 && n < len(history) {
		history = history[len(history)-n:]
	}
	if history == nil {
		history = []*domain.ExecutionState{}
	}
	return HistoryResponse{Runs: history}, nil
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args ValidateArgs) (ValidationResponse, error) {
	format := definition.Format(strings.ToLower(args.Format))
	if format == "" {
		format = definition.FormatYAML
	}
	def, err := definition.Parse([]byte(args.Definition), format)
	if err != nil {
		return ValidationResponse{Errors: []string{err.Error()}}, nil
	}
	g, err := definition.Compile(def)
	if err != nil {
		resp := ValidationResponse{}
		details := schema.ValidationErrors(err)
		if len(details) == 0 {
			resp.Errors = []string{err.Error()}
		}
		for _, e := range details {
			resp.Errors = append(resp.Errors, e.Error())
		}
		return resp, nil
	}
	return ValidationResponse{Valid: true, Nodes: g.NodeCount(), Edges: len(g.Edges)}, nil
}

func (s *Server) handleMermaid(ctx context.Context, _ mcp.CallToolRequest, args MermaidArgs) (*mcp.CallToolResult, error) {
	g, err := s.store.Get(ctx, args.GraphID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *graph.Overlay
	if args.Run != "" {
		history, err := s.store.History(ctx, args.GraphID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
		}
		state := findRun(history, args.Run)
		if state == nil {
			return mcp.NewToolResultError("run not found: " + args.Run), nil
		}
		overlay = graph.OverlayFromState(state)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, overlay)), nil
}

func findRun(history []*domain.ExecutionState, runID string) *domain.ExecutionState {
	if len(history) == 0 {
		return nil
	}
	if runID == "latest" {
		return history[len(history)-1]
	}
	for _, state := range history {
		if state.RunID == runID {
			return state
		}
	}
	return nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(GraphURIPrefix+"{id}", "Graph",
		mcp.WithTemplateDescription("Exported JSON of a stored graph"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := strings.CutPrefix(uri, GraphURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("unsupported resource uri: %s", uri)
	}
	data, err := s.store.ExportJSON(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to export graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
