package httpmessage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response is one origin or proxy response, held fully in memory. The
// serialized form produced by Bytes is the unit stored in the cache and
// written to clients, so ReadResponse and Write must be exact inverses:
// status, header order, header spelling and body all survive a round
// trip.
type Response struct {
	Proto      string // "HTTP/1.1"
	StatusCode int
	Reason     string // reason phrase, may be empty
	Header     Header
	Body       []byte
}

// NewResponse builds a proxy-generated response carrying the standard
// reason phrase for code. Synthesized responses always declare their
// length and announce the connection close.
func NewResponse(code int, body []byte) *Response {
	res := &Response{
		Proto:      "HTTP/1.1",
		StatusCode: code,
		Reason:     http.StatusText(code),
		Body:       body,
	}
	res.Header.Add("Content-Length", strconv.Itoa(len(body)))
	res.Header.Add("Connection", "close")
	return res
}

// ReadResponse reads one complete response from r. The body is read to
// the declared Content-Length, or to EOF when no usable length is
// declared.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	res := &Response{}
	if res.Proto, res.StatusCode, res.Reason, err = parseStatusLine(line); err != nil {
		return nil, err
	}
	if err := readHeaders(r, &res.Header); err != nil {
		return nil, err
	}
	if n, ok := res.Header.ContentLength(); ok {
		var body bytes.Buffer
		if _, err := io.CopyN(&body, r, n); err != nil {
			return nil, fmt.Errorf("short body: %w", err)
		}
		res.Body = body.Bytes()
	} else {
		if res.Body, err = io.ReadAll(r); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseStatusLine(line string) (proto string, code int, reason string, err error) {
	proto, rest, found := strings.Cut(line, " ")
	if !found || !strings.HasPrefix(proto, "HTTP/") {
		return "", 0, "", fmt.Errorf("malformed status line %q", line)
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err = strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 599 {
		return "", 0, "", fmt.Errorf("malformed status line %q", line)
	}
	return proto, code, reason, nil
}

// Write writes the exact wire form: status line, header fields in stored
// order, blank line, body. Nothing is added, removed or reordered.
func (res *Response) Write(w io.Writer) error {
	var b bytes.Buffer
	b.WriteString(res.Proto)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(res.StatusCode))
	if res.Reason != "" {
		b.WriteByte(' ')
		b.WriteString(res.Reason)
	}
	b.WriteString("\r\n")
	for _, f := range res.Header {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(res.Body)
	_, err := w.Write(b.Bytes())
	return err
}

// Bytes returns the full wire form of the response.
func (res *Response) Bytes() []byte {
	var b bytes.Buffer
	res.Write(&b)
	return b.Bytes()
}
