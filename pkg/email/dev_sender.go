package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// DevSender drops every email into a directory instead of delivering it:
// <stamp>_<seq>_<tag>.html holds the body and a .json twin holds the
// envelope. Files are 0600 because bodies carry one-time codes.
type DevSender struct {
	dir string
	now func() time.Time
	seq atomic.Uint64
}

// NewDevSender creates dir lazily, on the first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	SendTo    string    `json:"send_to"`
	Subject   string    `json:"subject"`
	Tag       string    `json:"tag,omitempty"`
}

func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return fmt.Errorf("%w: dev dir: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	label := params.Tag
	if label == "" {
		label = params.Subject
	}
	base := filepath.Join(d.dir, fmt.Sprintf("%s_%03d_%s", now.Format("20060102_150405"), d.seq.Add(1), slug(label)))

	envelope, err := json.MarshalIndent(devEnvelope{
		Timestamp: now.UTC(),
		SendTo:    params.SendTo,
		Subject:   params.Subject,
		Tag:       params.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	for ext, data := range map[string][]byte{".html": []byte(params.BodyHTML), ".json": envelope} {
		if err := os.WriteFile(base+ext, data, 0o600); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrFailedToSendEmail, ext, err)
		}
	}
	return nil
}

// slug keeps [a-z0-9._-], maps spaces to underscores and drops the rest.
func slug(s string) string {
	const maxLen = 64
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ':
			return '_'
		}
		return -1
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	if s == "" {
		return "email"
	}
	return s
}
