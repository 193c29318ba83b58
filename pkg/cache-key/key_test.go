package cachekey

import (
	"testing"
)

func TestKeyIsDeterministic(t *testing.T) {
	a := Key("GET", "example.com", 80, "/a", "")
	b := Key("GET", "example.com", 80, "/a", "")
	if a != b {
		t.Fatalf("same identity produced different keys: %q vs %q", a, b)
	}
}

func TestKeyDiffersPerComponent(t *testing.T) {
	base := Key("GET", "example.com", 80, "/a", "x=1")
	variants := []string{
		Key("GET", "example.org", 80, "/a", "x=1"),
		Key("GET", "example.com", 8080, "/a", "x=1"),
		Key("GET", "example.com", 80, "/b", "x=1"),
		Key("GET", "example.com", 80, "/a", "x=2"),
		Key("GET", "example.com", 80, "/a", ""),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collides with base key %q", i, base)
		}
	}
}
