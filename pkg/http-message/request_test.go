package httpmessage

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func readRequestString(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	return ReadRequest(bufio.NewReader(strings.NewReader(raw)))
}

func TestReadRequestAbsoluteForm(t *testing.T) {
	req, err := readRequestString(t, "GET http://Example.COM:8080/a/b?x=1 HTTP/1.1\r\nAccept: */*\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if req.Method != "GET" {
		t.Fatalf("Method is %s", req.Method)
	}
	if req.Host != "example.com" {
		t.Fatalf("Host is %s", req.Host)
	}
	if req.Port != 8080 {
		t.Fatalf("Port is %d", req.Port)
	}
	if req.Path != "/a/b" || req.Query != "x=1" {
		t.Fatalf("Target is %s", req.RequestURI())
	}
	if req.ProtoMajor != 1 || req.ProtoMinor != 1 {
		t.Fatalf("Version is %d.%d", req.ProtoMajor, req.ProtoMinor)
	}
}

func TestReadRequestDefaultsPortAndPath(t *testing.T) {
	req, err := readRequestString(t, "GET http://example.com HTTP/1.0\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if req.Port != 80 {
		t.Fatalf("Port is %d", req.Port)
	}
	if req.Path != "/" {
		t.Fatalf("Path is %s", req.Path)
	}
	if req.ProtoMinor != 0 {
		t.Fatalf("Minor version is %d", req.ProtoMinor)
	}
}

func TestReadRequestHostHeaderFallback(t *testing.T) {
	req, err := readRequestString(t, "GET /a HTTP/1.1\r\nHost: Example.com:8081\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if req.Host != "example.com" || req.Port != 8081 {
		t.Fatalf("Origin is %s", req.Addr())
	}
	if req.Path != "/a" {
		t.Fatalf("Path is %s", req.Path)
	}
}

func TestReadRequestNormalizesMethodCase(t *testing.T) {
	req, err := readRequestString(t, "get http://example.com/ HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if req.Method != "GET" {
		t.Fatalf("Method is %s", req.Method)
	}
}

func TestReadRequestMalformedRequestLine(t *testing.T) {
	for _, raw := range []string{
		"GET /only-two-tokens\r\n\r\n",
		"GET / HTTP/1.1 extra\r\n\r\n",
		"\r\n\r\n",
	} {
		if _, err := readRequestString(t, raw); !errors.Is(err, ErrMalformedRequestLine) {
			t.Fatalf("Error for %q is %v", raw, err)
		}
	}
}

func TestReadRequestRejectsNonGet(t *testing.T) {
	for _, method := range []string{"POST", "put", "DELETE", "HEAD"} {
		raw := method + " http://example.com/ HTTP/1.1\r\n\r\n"
		if _, err := readRequestString(t, raw); !errors.Is(err, ErrUnsupportedMethod) {
			t.Fatalf("Error for %s is %v", method, err)
		}
	}
}

func TestReadRequestRejectsUnsupportedVersions(t *testing.T) {
	for _, version := range []string{"HTTP/2.0", "HTTP/1.2", "HTTP/2", "http/1.1", "HTTP/x", "SPDY/1"} {
		raw := "GET http://example.com/ " + version + "\r\n\r\n"
		if _, err := readRequestString(t, raw); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("Error for %s is %v", version, err)
		}
	}
}

func TestReadRequestAcceptsOldVersions(t *testing.T) {
	for _, version := range []string{"HTTP/1.1", "HTTP/1.0", "HTTP/1", "HTTP/0.9"} {
		raw := "GET http://example.com/ " + version + "\r\n\r\n"
		if _, err := readRequestString(t, raw); err != nil {
			t.Fatalf("Error for %s: %v", version, err)
		}
	}
}

func TestReadRequestInvalidURI(t *testing.T) {
	for _, raw := range []string{
		"GET /no-host-anywhere HTTP/1.1\r\n\r\n",
		"GET http://example.com:99999/ HTTP/1.1\r\n\r\n",
		"GET http://example.com:bad/ HTTP/1.1\r\n\r\n",
	} {
		if _, err := readRequestString(t, raw); !errors.Is(err, ErrInvalidURI) {
			t.Fatalf("Error for %q is %v", raw, err)
		}
	}
}

func TestReadRequestSkipsMalformedHeaders(t *testing.T) {
	req, err := readRequestString(t,
		"GET http://example.com/ HTTP/1.1\r\nGood: yes\r\nthis line has no colon\r\n: nameless\r\nAlso-Good:  padded \r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if len(req.Header) != 2 {
		t.Fatalf("Headers are %v", req.Header)
	}
	if req.Header.Get("also-good") != "padded" {
		t.Fatalf("Also-Good is %q", req.Header.Get("also-good"))
	}
}

func TestRequestWriteWireForm(t *testing.T) {
	req, err := readRequestString(t, "GET http://example.com:8080/a?x=1 HTTP/1.1\r\nCookie: secret\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		t.Fatalf("Error: %v", err)
	}
	want := "GET /a?x=1 HTTP/1.1\r\nHost: example.com:8080\r\nConnection: close\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("Wire form is %q", buf.String())
	}
}

func TestRequestWriteOmitsDefaultPort(t *testing.T) {
	req, err := readRequestString(t, "GET http://example.com/a HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		t.Fatalf("Error: %v", err)
	}
	want := "GET /a HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("Wire form is %q", buf.String())
	}
}
