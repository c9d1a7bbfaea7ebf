package mailbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	htmlcharset "golang.org/x/net/html/charset"
)

// maxDepth bounds multipart nesting.
const maxDepth = 16

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

// ParseEML reads an RFC 5322 message into the same part tree the Gmail API
// returns: transfer encodings are undone, text bodies are converted to UTF-8
// and leaf bodies are stored as base64url.
func ParseEML(raw []byte) (*Message, error) {
	e, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("parse email: %w", err)
	}
	if e.Header.Len() == 0 {
		return nil, fmt.Errorf("parse email: no headers")
	}
	root, err := readEntity(e, 0)
	if err != nil {
		return nil, err
	}
	return &Message{ID: e.Header.Get("Message-Id"), Payload: root}, nil
}

// tolerable reports errors that still leave a usable entity: the body is
// passed through undecoded.
func tolerable(err error) bool {
	return gomessage.IsUnknownCharset(err) || gomessage.IsUnknownEncoding(err)
}

func readEntity(e *gomessage.Entity, depth int) (*Part, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("parse email: multipart nested deeper than %d", maxDepth)
	}

	mediaType, params, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType, params = "text/plain", nil
	}
	p := &Part{MimeType: strings.ToLower(mediaType), Headers: headerList(e.Header)}

	if strings.HasPrefix(p.MimeType, "multipart/") {
		if params["boundary"] == "" {
			return nil, fmt.Errorf("parse email: %s without boundary", p.MimeType)
		}
		mr := e.MultipartReader()
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !tolerable(err) {
				return nil, fmt.Errorf("parse email: read part: %w", err)
			}
			cp, err := readEntity(child, depth+1)
			if err != nil {
				return nil, err
			}
			p.Parts = append(p.Parts, cp)
		}
		return p, nil
	}

	data, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("parse email: read body: %w", err)
	}
	p.Data = base64.URLEncoding.EncodeToString(data)
	return p, nil
}

// headerList keeps headers in the order they appear in the message.
func headerList(h gomessage.Header) []Header {
	var out []Header
	fields := h.Fields()
	for fields.Next() {
		out = append(out, Header{Name: fields.Key(), Value: fields.Value()})
	}
	return out
}
