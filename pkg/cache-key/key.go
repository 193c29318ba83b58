package cachekey

import (
	"strconv"
)

const methodSeparator = " "

// Key returns the canonical cache key for a request identity. The key is
// built from the method, host, port, path and query alone, so it is
// deterministic across connections and indifferent to header order,
// header spelling and protocol version. Any differing component yields a
// different key. Callers pass normalized fields: method upper-cased, host
// lower-cased, port and path defaulted.
func Key(method, host string, port int, path, query string) string {
	key := method + methodSeparator + host + ":" + strconv.Itoa(port) + path
	if query != "" {
		key += "?" + query
	}
	return key
}
