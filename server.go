package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/shakram02/go-mcp-db-gateway/internal/creator"
	"github.com/shakram02/go-mcp-db-gateway/internal/export"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
)

// maxLineSize bounds one JSON-RPC message.
const maxLineSize = 16 << 20

// MCPServer handles MCP protocol over stdio
type MCPServer struct {
	gw       *gateway.Gateway
	creator  *creator.Creator
	exporter *export.Exporter
	tools    map[string]toolDef
	order    []string
	log      *slog.Logger

	mu          sync.Mutex
	initialized bool
	out         *json.Encoder
}

// NewMCPServer wires the tool set onto gw. exportDir is where CSV exports go
// when a call names no path.
func NewMCPServer(gw *gateway.Gateway, exportDir string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		gw:       gw,
		creator:  creator.New(gw, logger),
		exporter: export.New(gw, exportDir, logger),
		log:      logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Run reads newline-delimited requests from in and writes responses to out
// until in is exhausted or ctx is done. Requests are handled concurrently;
// Run waits for all of them before returning.
func (s *MCPServer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if resp := s.handleMessage(ctx, []byte(line)); resp != nil {
					s.write(resp)
				}
			}()
		}
	}
}

func (s *MCPServer) write(resp *JSONRPCResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.out.Encode(resp); err != nil {
		s.log.Error("failed to write response", "error", err)
	}
}

func (s *MCPServer) handleMessage(ctx context.Context, data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	return s.handleRequest(ctx, &req)
}

func (s *MCPServer) handleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(ctx, req.Params)
	case "ping":
		result = map[string]any{}
	default:
		if req.ID == nil {
			return nil
		}
		err = &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}
