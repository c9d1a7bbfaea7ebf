package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Credentials are the OAuth2 client and refresh token of the mailbox owner.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Gmail is a Client backed by the Gmail v1 API.
type Gmail struct {
	svc  *gmail.Service
	user string
}

// NewGmail authenticates with a refresh token and returns a client for the
// token owner's mailbox. Access tokens are refreshed automatically.
func NewGmail(ctx context.Context, creds Credentials, opts ...option.ClientOption) (*Gmail, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("gmail: client id, client secret and refresh token are required")
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return NewGmailService(svc), nil
}

// NewGmailService wraps an existing service.
func NewGmailService(svc *gmail.Service) *Gmail {
	return &Gmail{svc: svc, user: "me"}
}

// Unread implements Client.
func (g *Gmail) Unread(ctx context.Context, label string, max int) ([]string, error) {
	call := g.svc.Users.Messages.List(g.user).Q("is:unread label:" + label).Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: list %s: %w", label, err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// Fetch implements Client.
func (g *Gmail) Fetch(ctx context.Context, id string) (*Message, error) {
	m, err := g.svc.Users.Messages.Get(g.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: get %s: %w", id, err)
	}
	return &Message{ID: m.Id, Payload: convertPart(m.Payload)}, nil
}

// MarkProcessed implements Client by removing the UNREAD label.
func (g *Gmail) MarkProcessed(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := g.svc.Users.Messages.Modify(g.user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail: mark %s read: %w", id, err)
	}
	return nil
}

func convertPart(p *gmail.MessagePart) *Part {
	if p == nil {
		return nil
	}
	out := &Part{MimeType: p.MimeType}
	for _, h := range p.Headers {
		out.Headers = append(out.Headers, Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		out.Data = p.Body.Data
	}
	for _, c := range p.Parts {
		out.Parts = append(out.Parts, convertPart(c))
	}
	return out
}
