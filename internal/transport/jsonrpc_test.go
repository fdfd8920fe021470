package transport

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"apply_decision","params":{"decision":"APPROVE"},"id":1}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "apply_decision", req.Method)
	require.Equal(t, json.RawMessage(`{"decision":"APPROVE"}`), req.Params)
	require.False(t, req.IsNotification())
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `{"jsonrpc":`, ErrParse},
		{"wrong version", `{"jsonrpc":"1.0","method":"ping","id":1}`, ErrInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRequest_Notification(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(`{"jsonrpc":"2.0","method":"ping"}`))
	require.NoError(t, err)
	require.True(t, req.IsNotification())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 3, ErrApplication, "not your turn", map[string]string{"code": "NOT_AUTHORIZED"})

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, ErrApplication, resp.Error.Code)
	require.Equal(t, "NOT_AUTHORIZED", resp.Error.Data.(map[string]any)["code"])
}
