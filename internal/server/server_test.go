package server_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/server"
	"github.com/lblod/entity-linker/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// syncBuffer guards a buffer written by server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type emptyKB struct{}

func (emptyKB) Initialize(context.Context) error { return nil }

func (emptyKB) Search(context.Context, string, []string, []string) ([]models.ScoredDocument, error) {
	return nil, nil
}

func TestServerInMemory(t *testing.T) {
	srv := server.New(&tools.Dependencies{Knowledge: emptyKB{}, Logger: testLogger()}, "0.1.0-test", testLogger())
	srv.Setup()
	require.NotNil(t, srv.MCPServer())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := srv.Connect(ctx)
	require.NoError(t, err, "client should connect successfully")
	defer session.Close()

	initResult := session.InitializeResult()
	require.NotNil(t, initResult, "initialize result should not be nil")
	assert.Equal(t, tools.ServerName, initResult.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", initResult.ServerInfo.Version)
	assert.Equal(t, tools.ServerInstructions, initResult.Instructions)

	// Multiple requests over one session
	for i := 0; i < 3; i++ {
		res, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "request %d should succeed", i)
		assert.Len(t, res.Tools, 3)
	}
}

func TestServerStreamableHTTP(t *testing.T) {
	srv := server.New(&tools.Dependencies{Knowledge: emptyKB{}, Logger: testLogger()}, "0.1.0-test", testLogger())
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: httpSrv.URL}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: tools.ToolSearchDocs,
		Arguments: map[string]any{
			"question":          "Who is the mayor?",
			"potential_classes": []string{},
			"steps":             []string{},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, tools.ResultText(res), "The following 0 documents")
}

func TestLoggingMiddlewareLogsToolCalls(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := server.New(&tools.Dependencies{Logger: testLogger()}, "0.1.0-test", logger)
	srv.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := srv.Connect(ctx)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.ToolSearchLocation,
		Arguments: map[string]any{"query": strings.Repeat("x", 500)},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError, "no geocoder configured")

	out := buf.String()
	assert.Contains(t, out, "method=tools/call")
	assert.Contains(t, out, "tool="+tools.ToolSearchLocation)
	assert.Contains(t, out, "tool_error=true")
	assert.NotContains(t, out, strings.Repeat("x", 300), "arguments are truncated")
}
