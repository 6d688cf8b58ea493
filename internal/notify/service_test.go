package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/pkg/models"
)

func TestAddChannelValidation(t *testing.T) {
	svc := NewService()

	err := svc.AddChannel(Channel{Kind: ChannelWebhook, URL: "https://example.com/hook"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	err = svc.AddChannel(Channel{Name: "bad-url", Kind: ChannelWebhook, URL: "/relative/path"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")

	err = svc.AddChannel(Channel{Name: "no-driver", Kind: "carrier-pigeon", URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no driver registered")
}

func TestAddChannelUpsertsByName(t *testing.T) {
	svc := NewService()

	require.NoError(t, svc.AddChannel(Channel{Name: "default", Kind: ChannelWebhook, URL: "https://one.example.com"}))
	require.NoError(t, svc.AddChannel(Channel{Name: "default", Kind: ChannelWebhook, URL: "https://two.example.com"}))

	channels := svc.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, "https://two.example.com", channels[0].URL)
	assert.True(t, channels[0].Active)
}

func TestChannelsRedactSecrets(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.AddChannel(Channel{
		Name:   "signed",
		Kind:   ChannelWebhook,
		URL:    "https://example.com/hook",
		Secret: "top-secret",
	}))

	channels := svc.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, "****", channels[0].Secret)
}

func TestDispatchWebhookSignsPayload(t *testing.T) {
	const secret = "hook-secret"

	var (
		gotBody []byte
		gotSig  string
		gotType string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-PresentOS-Signature")
		gotType = r.Header.Get("X-PresentOS-Notification")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	svc := NewService()
	require.NoError(t, svc.AddChannel(Channel{Name: "test", Kind: ChannelWebhook, URL: ts.URL, Secret: secret}))

	n := models.Notification{ID: "n-1", Type: "message", Priority: models.PriorityP1, Source: "slack"}
	results := svc.Dispatch(context.Background(), n)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "test", results[0].Channel)

	var delivered models.Notification
	require.NoError(t, json.Unmarshal(gotBody, &delivered))
	assert.Equal(t, "n-1", delivered.ID)
	assert.Equal(t, "message", gotType)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestDispatchNoChannels(t *testing.T) {
	svc := NewService()
	results := svc.Dispatch(context.Background(), models.Notification{ID: "n-1", Type: "message"})
	assert.Empty(t, results)
}
