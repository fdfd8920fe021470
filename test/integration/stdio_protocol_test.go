package integration_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestStdioProtocolCompliance drives the built binary over stdio with the SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create command with environment
	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = stdioEnv()

	// Spawn server as subprocess using SDK's CommandTransport
	transport := &sdkmcp.CommandTransport{
		Command: cmd,
	}

	// Create client
	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	// Connect and initialize
	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	// Verify initialize response
	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "saraban", initResult.ServerInfo.Name)
		require.Equal(t, "0.1.0", initResult.ServerInfo.Version)
	})

	// Test tools/list
	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")
		require.Greater(t, len(tools.Tools), 10, "Expected at least 10 tools")

		// Verify expected core tools exist
		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}

		expectedTools := []string{
			"ping",
			"create_document",
			"submit_document",
			"apply_decision",
			"get_document",
			"verify_ledger",
			"allocate_number",
			"pending_for_viewer",
		}
		for _, name := range expectedTools {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	// Test calling ping tool
	t.Run("CallPingTool", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name: "ping",
		})
		require.NoError(t, err, "tools/call ping failed")
		require.False(t, result.IsError, "ping returned error: %v", result)
		require.NotEmpty(t, result.Content, "ping returned no content")

		// Verify response contains expected text
		hasText := false
		for _, content := range result.Content {
			if textContent, ok := content.(*sdkmcp.TextContent); ok {
				hasText = true
				require.Contains(t, textContent.Text, "pong", "ping response should contain 'pong'")
			}
		}
		require.True(t, hasText, "ping should return text content")
	})

	t.Run("CallCreateDocument", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name: "create_document",
			Arguments: map[string]any{
				"category":   "order",
				"title":      "Exam timetable",
				"created_by": "clerk",
				"scope_key":  "2568",
			},
		})
		require.NoError(t, err)
		require.False(t, result.IsError, "create_document returned error: %v", result)

		text := result.Content[0].(*sdkmcp.TextContent).Text
		require.Contains(t, text, "ORD 001/2568")
	})

	t.Run("UnknownDocumentIsToolError", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "get_document",
			Arguments: map[string]any{"id": "missing"},
		})
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, result.Content[0].(*sdkmcp.TextContent).Text, "DOCUMENT_NOT_FOUND")
	})
}

// TestStdioProtocol_StdoutHygiene checks that stdout carries only JSON-RPC
// while logs go to stderr.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(stdioEnv(), "SARABAN_LOG_LEVEL=debug")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = io.WriteString(stdin, initReq+"\n")
	require.NoError(t, err)

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var line string
	select {
	case l, ok := <-lines:
		require.True(t, ok, "server closed stdout without answering; stderr: %s", stderr.String())
		line = l
	case <-ctx.Done():
		t.Fatal("timeout waiting for initialize response")
	}

	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int    `json:"id"`
		Result  struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &resp), "stdout line is not JSON: %q", line)
	require.Equal(t, "2.0", resp.JSONRPC)
	require.Equal(t, 1, resp.ID)
	require.Equal(t, "saraban", resp.Result.ServerInfo.Name)
}

func serverBinary(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"./bin/saraban", "../../bin/saraban"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("Server binary not found. Run 'make build' first.")
	return ""
}

func stdioEnv() []string {
	return append(os.Environ(),
		"SARABAN_TRANSPORT=stdio",
		"SARABAN_DB_PATH=:memory:",
		"SARABAN_REDIS_URL=",
		"SARABAN_NATS_URL=",
	)
}
