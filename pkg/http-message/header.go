package httpmessage

import (
	"strconv"
	"strings"
)

// Field is a single header field as it appeared on the wire.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields. Unlike a map keyed on
// canonicalized names, it keeps the original field order and spelling, so
// a parsed message serializes back to the exact same bytes. Duplicate
// names are allowed and kept in order. Lookups are case-insensitive.
type Header []Field

// Add appends a field, keeping wire order.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Get returns the value of the first field named name, or "".
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether a field named name is present.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces the value of the first field named name in place, keeping
// its position, or appends the field if it is absent.
func (h *Header) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Value = value
			return
		}
	}
	h.Add(name, value)
}

// ContentLength returns the declared Content-Length. A missing, negative
// or non-numeric declaration returns ok == false, in which case the body
// is delimited by the connection close instead.
func (h Header) ContentLength() (int64, bool) {
	v := h.Get("Content-Length")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
