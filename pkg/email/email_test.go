package email_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blackfile/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Your BlackFile secure link",
		BodyHTML: "<p>hi</p>",
		Tag:      "transfer-issued",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		ok     bool
	}{
		{"valid", func(*email.SendEmailParams) {}, true},
		{"missing recipient", func(p *email.SendEmailParams) { p.SendTo = "" }, false},
		{"bad recipient", func(p *email.SendEmailParams) { p.SendTo = "not-an-email" }, false},
		{"missing subject", func(p *email.SendEmailParams) { p.Subject = " " }, false},
		{"missing body", func(p *email.SendEmailParams) { p.BodyHTML = "" }, false},
		{"tag optional", func(p *email.SendEmailParams) { p.Tag = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			}
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "emails")
	sender := email.NewDevSender(dir)

	require.NoError(t, sender.SendEmail(context.Background(), validParams()))
	require.NoError(t, sender.SendEmail(context.Background(), validParams()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 4, "two emails, html and json each")

	var htmlFound bool
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		if strings.HasSuffix(e.Name(), ".json") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			var meta map[string]string
			require.NoError(t, json.Unmarshal(data, &meta))
			assert.Equal(t, "user@example.com", meta["send_to"])
			assert.Contains(t, e.Name(), "transfer-issued")
		}
		if strings.HasSuffix(e.Name(), ".html") {
			htmlFound = true
		}
	}
	assert.True(t, htmlFound)

	err = sender.SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}

func TestNew(t *testing.T) {
	t.Parallel()

	sender, err := email.New(email.Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, sender)

	_, err = email.New(email.Config{PostmarkServerToken: "server"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestNewPostmarkClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	base := email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	}

	tests := []struct {
		name   string
		mutate func(*email.Config)
	}{
		{"server token", func(c *email.Config) { c.PostmarkServerToken = "" }},
		{"account token", func(c *email.Config) { c.PostmarkAccountToken = "" }},
		{"sender", func(c *email.Config) { c.SenderEmail = "nope" }},
		{"support", func(c *email.Config) { c.SupportEmail = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			_, err := email.NewPostmarkClient(cfg)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
		})
	}

	_, err := email.NewPostmarkClient(base)
	assert.NoError(t, err)
}

func TestPostmarkClient_SendEmail(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(body, &received)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"abc","To":"user@example.com"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := email.NewPostmarkClient(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	}, email.WithPostmarkBaseURL(srv.URL))
	require.NoError(t, err)

	require.NoError(t, client.SendEmail(context.Background(), validParams()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "user@example.com", received["To"])
	assert.Equal(t, "noreply@example.com", received["From"])
	assert.Equal(t, "Your BlackFile secure link", received["Subject"])
	assert.NotEqual(t, true, received["TrackOpens"])
}

func TestPostmarkClient_SendEmail_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := email.NewPostmarkClient(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	}, email.WithPostmarkBaseURL(srv.URL))
	require.NoError(t, err)

	err = client.SendEmail(context.Background(), validParams())
	assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
}
