package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat42")
	tg.BaseURL = srv.URL
	require.NoError(t, tg.SendText("hello"))
	assert.Equal(t, "chat42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
}

func TestSendTextRequiresCredentials(t *testing.T) {
	tg := &Telegram{}
	assert.Error(t, tg.SendText("x"))
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, Noop{}.SendText("anything"))
}
