package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"iadetakip/internal"
	"iadetakip/internal/config"
)

// Gmail caps a single list call at 500 ids.
const listPageSize = 500

type Connector struct {
	service *gmail.Service
	query   string
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, query: searchQuery(cfg.ReturnsSubjectKeywords)}, nil
}

// searchQuery narrows the listing to mails with attachments or a
// returns keyword in the subject; detection still runs on every message.
func searchQuery(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return "has:attachment OR subject:(" + strings.Join(keywords, " OR ") + ")"
}

// FetchInbox lists up to max messages under label, newest first, and
// downloads each one in raw form. Envelope fields are read from the raw
// message itself.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	if max <= 0 {
		return nil, nil
	}

	var refs []*gmail.Message
	pageToken := ""
	for len(refs) < max {
		call := c.service.Users.Messages.List("me").
			LabelIds(label).
			MaxResults(int64(min(max-len(refs), listPageSize))).
			Context(ctx)
		if c.query != "" {
			call = call.Q(c.query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("gmail list %s: %w", label, err)
		}
		refs = append(refs, resp.Messages...)
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	out := make([]internal.FetchedMailMessage, 0, len(refs))
	for _, ref := range refs {
		if ref.Id == "" {
			continue
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, toFetched(ref.Id, msg.InternalDate, raw))
	}

	return out, nil
}

// toFetched fills the envelope fields from the message headers. The
// Date header wins over Gmail's internal date when it parses.
func toFetched(id string, internalDate int64, raw []byte) internal.FetchedMailMessage {
	out := internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  id,
		ReceivedAt: time.UnixMilli(internalDate).UTC().Format(time.RFC3339),
		Raw:        raw,
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return out
	}
	out.Subject = env.GetHeader("Subject")
	out.From = env.GetHeader("From")
	if v := strings.Trim(env.GetHeader("Message-ID"), "<> "); v != "" {
		out.MessageID = v
	}
	if t, err := parseMailDate(env.GetHeader("Date")); err == nil {
		out.ReceivedAt = t.UTC().Format(time.RFC3339)
	}
	return out
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}

func parseMailDate(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC, "Mon, 2 Jan 2006 15:04:05 -0700 (MST)"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}
