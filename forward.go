package webproxy

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	httpmessage "github.com/thoresonjd/web-proxy/pkg/http-message"
)

// Typed origin failures. The session answers every one of them with a
// synthesized 500; the distinction only matters for logs.
var (
	ErrConnectFailure = errors.New("origin connect failure")
	ErrOriginTimeout  = errors.New("origin timeout")
	ErrOriginReset    = errors.New("origin reset")
)

// fetch contacts the origin and reads one complete response into memory.
// The origin connection is never reused: the forwarded request announces
// Connection: close and the connection is closed once the response has
// been read. The timeout covers dialing and, as an absolute deadline,
// the request write and response read.
func fetch(req *httpmessage.Request, timeout time.Duration) (*httpmessage.Response, error) {
	conn, err := net.DialTimeout("tcp", req.Addr(), timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailure, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))
	if err := req.Write(conn); err != nil {
		return nil, classifyOriginError(err)
	}
	res, err := httpmessage.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		return nil, classifyOriginError(err)
	}
	return res, nil
}

// classifyOriginError wraps an origin I/O or parse failure into the
// closed set above. A response the origin garbled or cut short counts as
// a reset.
func classifyOriginError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrOriginTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrOriginReset, err)
}
