package cache

import (
	"strconv"
	"strings"
)

// Key returns the normalized cache identity for a resource.
// Two requests for the same host, port and path+query share a key.
func Key(host string, port int, path string) string {
	if path == "" {
		path = "/"
	}
	return strings.ToLower(host) + ":" + strconv.Itoa(port) + path
}
