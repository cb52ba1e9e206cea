package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxArgLogLen is the maximum length for logged arguments before truncation.
const maxArgLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 10 * time.Second

// LoggingMiddleware returns middleware that logs all requests with timing.
// Tool calls are logged with the tool name and truncated arguments.
func LoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{
				"method", method,
				"duration_ms", duration.Milliseconds(),
			}
			attrs = append(attrs, requestAttrs(req)...)

			if res, ok := result.(*mcp.CallToolResult); ok && res.IsError {
				attrs = append(attrs, "tool_error", true)
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}

			return result, err
		}
	}
}

// requestAttrs extracts loggable parameters from a request.
func requestAttrs(req mcp.Request) []any {
	if req == nil {
		return nil
	}
	switch p := req.GetParams().(type) {
	case nil:
		return nil
	case *mcp.CallToolParamsRaw:
		if p == nil {
			return nil
		}
		return []any{"tool", p.Name, "args", truncate(string(p.Arguments), maxArgLogLen)}
	default:
		return []any{"params", truncate(fmt.Sprintf("%+v", p), maxArgLogLen)}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
