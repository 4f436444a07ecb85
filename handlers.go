package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
)

var validate = newValidator()

// newValidator reports fields by their JSON argument names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toolHandler runs one tool call and returns its text output.
type toolHandler func(ctx context.Context, args json.RawMessage) (string, error)

type toolDef struct {
	tool    Tool
	handler toolHandler
}

func (s *MCPServer) register(t Tool, h toolHandler) {
	if s.tools == nil {
		s.tools = make(map[string]toolDef)
	}
	s.tools[t.Name] = toolDef{tool: t, handler: h}
	s.order = append(s.order, t.Name)
}

func (s *MCPServer) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	s.log.Info("client initialized", "client", initParams.ClientInfo.Name, "client_version", initParams.ClientInfo.Version)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}, nil
}

func (s *MCPServer) handleListTools() (*ListToolsResult, *Error) {
	tools := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.tools[name].tool)
	}
	return &ListToolsResult{Tools: tools}, nil
}

func (s *MCPServer) handleCallTool(ctx context.Context, params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	def, ok := s.tools[callParams.Name]
	if !ok {
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}

	start := time.Now()
	text, err := def.handler(ctx, callParams.Arguments)
	if err != nil {
		msg := observe.Mask(err.Error())
		s.log.Warn("tool failed", "tool", callParams.Name, "kind", errors.KindOf(err), "error", msg, "took", time.Since(start))
		return errorResult(msg), nil
	}
	s.log.Debug("tool done", "tool", callParams.Name, "took", time.Since(start))
	return textResult(text), nil
}

// decodeArgs unmarshals raw into dst and runs struct validation.
func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Invalid("", "invalid arguments: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Invalid("", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid arguments: " + err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required argument %q", fe.Field())
	case "oneof":
		return fmt.Sprintf("argument %q must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("argument %q is invalid (%s)", fe.Field(), fe.Tag())
	}
}
