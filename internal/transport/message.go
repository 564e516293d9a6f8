package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// BuildMessage assembles the RFC 5322 bytes for a send request. Line endings
// are CRLF throughout and the core header order is fixed, so the bytes the
// signer hashes are exactly the bytes the transport ships. Extra headers
// (List-Unsubscribe and friends) are appended in sorted key order.
func BuildMessage(req domain.SendRequest, from, messageID string, extraHeaders map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	date := req.RequestedAt
	if date.IsZero() {
		date = time.Now().UTC()
	}

	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", req.Recipient)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", req.RenderedSubject))
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", messageID, addressDomain(from)))
	writeHeader(&buf, "MIME-Version", "1.0")

	keys := make([]string, 0, len(extraHeaders))
	for k := range extraHeaders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&buf, k, extraHeaders[k])
	}

	switch {
	case req.RenderedHTML != "" && req.RenderedText != "":
		mw := multipart.NewWriter(&buf)
		writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
		buf.WriteString("\r\n")
		if err := writePart(mw, "text/plain", req.RenderedText); err != nil {
			return nil, err
		}
		if err := writePart(mw, "text/html", req.RenderedHTML); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("close multipart body: %w", err)
		}
	case req.RenderedHTML != "":
		if err := writeBody(&buf, "text/html", req.RenderedHTML); err != nil {
			return nil, err
		}
	default:
		if err := writeBody(&buf, "text/plain", req.RenderedText); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

// writePart adds one quoted-printable part to a multipart/alternative body.
// The plain part must be written before the HTML part; clients pick the last
// alternative they can render.
func writePart(mw *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType+"; charset=utf-8")
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	return encodeQP(part, body)
}

func writeBody(buf *bytes.Buffer, contentType, body string) error {
	fmt.Fprintf(buf, "Content-Type: %s; charset=utf-8\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	return encodeQP(buf, body)
}

func encodeQP(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	return qp.Close()
}

func addressDomain(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return strings.TrimSuffix(strings.TrimSpace(addr[i+1:]), ">")
	}
	return "localhost"
}
