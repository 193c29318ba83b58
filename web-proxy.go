package webproxy

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thoresonjd/web-proxy/cache"
	cachekey "github.com/thoresonjd/web-proxy/pkg/cache-key"
	httpmessage "github.com/thoresonjd/web-proxy/pkg/http-message"
)

const (
	defaultOriginTimeout = 30 * time.Second
	defaultClientTimeout = 10 * time.Second

	// cap on the request head; requests carry no body, so anything
	// beyond this is noise
	maxRequestBytes = 64 << 10
)

type Config struct {
	// Storage for cache entries.
	// An in-memory provider is used if nil.
	Cache cache.CacheProvider
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// How long the origin gets, covering dial, request write and
	// response read.
	OriginTimeout time.Duration
	// How long the client gets to send its request and to accept the
	// response.
	ClientTimeout time.Duration
}

// Proxy is a caching forward proxy for plain HTTP GET requests. Every
// client connection carries exactly one request and is closed after the
// response, whatever the Connection header says. Only 200 responses are
// stored; a stored response is replayed byte for byte.
type Proxy struct {
	cache         cache.CacheProvider
	log           zerolog.Logger
	originTimeout time.Duration
	clientTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
}

// New initializes a proxy instance, filling in defaults for anything not
// set in config.
func New(config Config) *Proxy {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	p := &Proxy{
		cache:         config.Cache,
		log:           logger,
		originTimeout: config.OriginTimeout,
		clientTimeout: config.ClientTimeout,
	}
	if p.cache == nil {
		p.cache = cache.NewMemCache()
	}
	if p.originTimeout == 0 {
		p.originTimeout = defaultOriginTimeout
	}
	if p.clientTimeout == 0 {
		p.clientTimeout = defaultClientTimeout
	}
	return p
}

// ListenAndServe listens on addr and serves until Close.
func (p *Proxy) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return p.Serve(ln)
}

// Serve accepts connections on ln, handling each in its own goroutine.
// It returns nil once the listener is closed via Close.
func (p *Proxy) Serve(ln net.Listener) error {
	p.mu.Lock()
	p.listener = ln
	p.mu.Unlock()
	p.log.Info().Str("addr", ln.Addr().String()).Msg("Proxy listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			p.log.Warn().Err(err).Msg("Could not accept connection")
			continue
		}
		go p.handleConn(conn)
	}
}

// Addr returns the listen address, nil before Serve.
func (p *Proxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Close stops the accept loop. Sessions already running are left to
// finish on their own.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Close()
}

// handleConn runs one client session through its lifecycle: parse the
// request, check the cache, forward to the origin on a miss, cache a
// 200, respond, close. The connection is closed on every path and never
// carries a second request.
func (p *Proxy) handleConn(conn net.Conn) {
	defer conn.Close()
	start := time.Now()
	logger := p.log.With().
		Str("session", uuid.NewString()).
		Str("client", conn.RemoteAddr().String()).
		Logger()

	conn.SetReadDeadline(time.Now().Add(p.clientTimeout))
	req, err := httpmessage.ReadRequest(bufio.NewReader(io.LimitReader(conn, maxRequestBytes)))
	if err != nil {
		if isParseError(err) {
			logger.Debug().Err(err).Msg("Refusing unparseable request")
			p.respond(conn, &logger, httpmessage.NewResponse(http.StatusNotFound, nil).Bytes())
		} else {
			logger.Debug().Err(err).Msg("Could not read request")
		}
		return
	}

	key := cachekey.Key(req.Method, req.Host, req.Port, req.Path, req.Query)
	logger = logger.With().Str("key", key).Logger()
	var cs CacheStatus

	if raw, res := p.lookup(key, &cs, &logger); raw != nil {
		cs.Hit()
		p.respond(conn, &logger, raw)
		p.logRequest(&logger, req, res.StatusCode, &cs, start)
		return
	}

	res, err := fetch(req, p.originTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("Origin fetch failed")
		p.respond(conn, &logger, httpmessage.NewResponse(http.StatusInternalServerError, nil).Bytes())
		p.logRequest(&logger, req, http.StatusInternalServerError, &cs, start)
		return
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusInternalServerError:
		// passed through as-is, never cached
	default:
		// out of contract: the client gets a plain 500
		logger.Debug().Int("originStatus", res.StatusCode).Msg("Normalizing unsupported origin status")
		res = httpmessage.NewResponse(http.StatusInternalServerError, nil)
	}

	raw := res.Bytes()
	if res.StatusCode == http.StatusOK {
		// best effort: a failed write must not affect the response
		if err := p.cache.Put(key, raw); err != nil {
			logger.Error().Err(err).Msg("Could not write response to cache")
		} else {
			cs.Stored()
			logger.Trace().Msg("Response cached")
		}
	}
	p.respond(conn, &logger, raw)
	p.logRequest(&logger, req, res.StatusCode, &cs, start)
}

// lookup returns the raw cache entry for key together with its parsed
// form. A provider error or an entry that no longer parses counts as a
// miss; corrupt entries are purged so the next session stores a fresh
// copy.
func (p *Proxy) lookup(key string, cs *CacheStatus, logger *zerolog.Logger) ([]byte, *httpmessage.Response) {
	raw, ok, err := p.cache.Get(key)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache read failed")
		cs.Forward(CacheStatusFwdMiss)
		cs.Detail("read-error")
		return nil, nil
	}
	if !ok {
		cs.Forward(CacheStatusFwdUriMiss)
		return nil, nil
	}
	res, err := httpmessage.ReadResponse(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		logger.Warn().Err(err).Msg("Purging corrupt cache entry")
		if err := p.cache.Purge(key); err != nil {
			logger.Warn().Err(err).Msg("Could not purge cache entry")
		}
		cs.Forward(CacheStatusFwdMiss)
		cs.Detail("corrupt")
		return nil, nil
	}
	return raw, res
}

// respond writes raw response bytes to the client, exactly as stored or
// serialized, with no transformation.
func (p *Proxy) respond(conn net.Conn, logger *zerolog.Logger, raw []byte) {
	conn.SetWriteDeadline(time.Now().Add(p.clientTimeout))
	if _, err := conn.Write(raw); err != nil {
		logger.Error().Err(err).Msg("Could not write response to client")
	}
}

// isParseError reports whether err is one of the request parse
// sentinels, i.e. whether the client deserves a response at all.
func isParseError(err error) bool {
	return errors.Is(err, httpmessage.ErrMalformedRequestLine) ||
		errors.Is(err, httpmessage.ErrUnsupportedMethod) ||
		errors.Is(err, httpmessage.ErrInvalidURI) ||
		errors.Is(err, httpmessage.ErrUnsupportedVersion)
}

func (p *Proxy) logRequest(logger *zerolog.Logger, req *httpmessage.Request, status int, cs *CacheStatus, start time.Time) {
	isHit := 0
	if cs.IsHit() {
		isHit = 1
	}
	logger.Info().
		Str("method", req.Method).
		Str("url", req.Addr()+req.RequestURI()).
		Int("status", status).
		Str("cache", cs.String()).
		Int("hit", isHit).
		Dur("elapsed", time.Since(start)).
		Msg("Sending response to client")
}
