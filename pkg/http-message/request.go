package httpmessage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Parse failures for a client request, one sentinel per way a request can
// be refused. The proxy answers all of these with an error response of its
// own; anything else coming out of ReadRequest is a real I/O error and the
// connection is not worth responding on.
var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrInvalidURI           = errors.New("invalid request uri")
	ErrUnsupportedVersion   = errors.New("unsupported protocol version")
)

// Request is a parsed proxy request: everything needed to contact the
// origin and derive the cache key. Host is lower-cased, Port defaults to
// 80 and Path to "/".
type Request struct {
	Method     string
	Host       string
	Port       int
	Path       string
	Query      string
	ProtoMajor int
	ProtoMinor int
	Header     Header
}

// ReadRequest reads and parses one request head from r: the request line,
// then header lines up to the terminating blank line. It never reads a
// body. The target is accepted in absolute form; a relative target works
// too as long as a Host header names the origin.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	method, target, version := strings.ToUpper(parts[0]), parts[1], parts[2]
	if method != http.MethodGet {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, parts[0])
	}
	req := &Request{Method: method}
	if req.ProtoMajor, req.ProtoMinor, err = parseVersion(version); err != nil {
		return nil, err
	}
	// Headers come before target resolution: a relative target leans on
	// the Host header.
	if err := readHeaders(r, &req.Header); err != nil {
		return nil, err
	}
	if err := req.resolveTarget(target); err != nil {
		return nil, err
	}
	return req, nil
}

// parseVersion parses an HTTP-version token such as "HTTP/1.1" or
// "HTTP/1". Versions above 1.1 are refused.
func parseVersion(s string) (major, minor int, err error) {
	if !strings.HasPrefix(s, "HTTP/") {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
	num := strings.TrimPrefix(s, "HTTP/")
	majorStr, minorStr, hasMinor := strings.Cut(num, ".")
	if !isDigits(majorStr) || (hasMinor && !isDigits(minorStr)) {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
	major, _ = strconv.Atoi(majorStr)
	if hasMinor {
		minor, _ = strconv.Atoi(minorStr)
	}
	if major > 1 || (major == 1 && minor > 1) {
		return 0, 0, fmt.Errorf("%w: HTTP/%d.%d", ErrUnsupportedVersion, major, minor)
	}
	return major, minor, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveTarget fills in Host, Port, Path and Query from the request
// target, falling back to the Host header when the target has no host of
// its own.
func (req *Request) resolveTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURI, target)
	}
	host, port := u.Hostname(), u.Port()
	if host == "" {
		if host, port, err = splitHostHeader(req.Header.Get("Host")); err != nil {
			return fmt.Errorf("%w: no host in %q", ErrInvalidURI, target)
		}
	}
	req.Host = strings.ToLower(host)
	req.Port = 80
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("%w: port %q", ErrInvalidURI, port)
		}
		req.Port = n
	}
	req.Path = u.Path
	if req.Path == "" {
		req.Path = "/"
	}
	req.Query = u.RawQuery
	return nil
}

// splitHostHeader splits a Host header value into host and optional port.
func splitHostHeader(value string) (host, port string, err error) {
	if value == "" {
		return "", "", errors.New("no host header")
	}
	if strings.Contains(value, ":") {
		if host, port, err = net.SplitHostPort(value); err != nil {
			return "", "", err
		}
		return host, port, nil
	}
	return value, "", nil
}

// Addr returns the origin dial address, host:port.
func (req *Request) Addr() string {
	return net.JoinHostPort(req.Host, strconv.Itoa(req.Port))
}

// RequestURI returns the origin-form target, path plus query.
func (req *Request) RequestURI() string {
	if req.Query == "" {
		return req.Path
	}
	return req.Path + "?" + req.Query
}

func (req *Request) hostHeader() string {
	if req.Port == 80 {
		return req.Host
	}
	return net.JoinHostPort(req.Host, strconv.Itoa(req.Port))
}

// Write writes the wire form of the request to forward: an origin-form
// request line, a Host header, and Connection: close so the origin
// delimits its response by closing. Client headers are not relayed.
func (req *Request) Write(w io.Writer) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", req.Method, req.RequestURI())
	fmt.Fprintf(&b, "Host: %s\r\n", req.hostHeader())
	b.WriteString("Connection: close\r\n\r\n")
	_, err := w.Write(b.Bytes())
	return err
}

// readLine reads one CRLF- or LF-terminated line, without the terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readHeaders reads header lines into h until the blank line. Lines
// without a colon or without a name are skipped, never fatal.
func readHeaders(r *bufio.Reader, h *Header) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		h.Add(name, strings.TrimSpace(value))
	}
}
