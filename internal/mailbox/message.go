// Package mailbox is the boundary to the mail service: it lists unread
// order mails, fetches them as MIME part trees and marks them processed.
package mailbox

import (
	"context"
	"strings"

	gomail "github.com/emersion/go-message/mail"

	"github.com/ppiankov/orderprint/internal/textnorm"
)

// Header is one message or part header.
type Header struct {
	Name  string
	Value string
}

// Part is a node of a message's MIME tree. Leaf parts carry their body as
// base64url text in Data; container parts carry children in Parts.
type Part struct {
	MimeType string
	Headers  []Header
	Data     string
	Parts    []*Part
}

// Message is one fetched mail.
type Message struct {
	ID      string
	Payload *Part
}

// Client is the mail collaborator the poller depends on.
type Client interface {
	// Unread returns up to max ids of unread messages carrying label.
	Unread(ctx context.Context, label string, max int) ([]string, error)
	// Fetch returns the full message.
	Fetch(ctx context.Context, id string) (*Message, error)
	// MarkProcessed clears the unread marker so the message is not
	// returned by Unread again.
	MarkProcessed(ctx context.Context, id string) error
}

// FindPart walks the tree depth first and returns the first part for which
// match is true.
func FindPart(root *Part, match func(*Part) bool) *Part {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	for _, c := range root.Parts {
		if p := FindPart(c, match); p != nil {
			return p
		}
	}
	return nil
}

// PartText returns the decoded body of the first part with the given MIME
// type, or "" when there is none.
func PartText(root *Part, mimeType string) string {
	p := FindPart(root, func(p *Part) bool {
		return strings.EqualFold(p.MimeType, mimeType) && p.Data != ""
	})
	if p == nil {
		return ""
	}
	return textnorm.DecodeBase64URL(p.Data)
}

// Header returns the first top-level header with the given name.
func (m *Message) Header(name string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Sender returns the bare address of the From header, or "" when it is
// missing or unparsable.
func (m *Message) Sender() string {
	from := m.Header("From")
	if from == "" {
		return ""
	}
	addr, err := gomail.ParseAddress(from)
	if err != nil {
		return ""
	}
	return strings.ToLower(addr.Address)
}
