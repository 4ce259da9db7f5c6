// Package httpmsg implements a minimal HTTP/1.1 message codec for the proxy.
// It parses requests and responses off raw byte streams and serializes them
// back deterministically, preserving header order.
package httpmsg

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered collection of header fields.
// Lookups are case-insensitive, but the original spelling and the insertion
// order are kept so that re-serialization is a transparent passthrough.
type Header struct {
	fields []Field
}

// Get returns the value of the first field with the given name.
func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether a field with the given name exists.
func (h *Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces the first field with the given name, keeping its position,
// and removes any duplicates. The field is appended if absent.
func (h *Header) Set(name, value string) {
	out := h.fields[:0]
	replaced := false
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			if replaced {
				continue
			}
			f.Value = value
			f.Name = name
			replaced = true
		}
		out = append(out, f)
	}
	h.fields = out
	if !replaced {
		h.fields = append(h.fields, Field{Name: name, Value: value})
	}
}

// Add appends a field without touching existing ones.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Del removes all fields with the given name.
func (h *Header) Del(name string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Fields returns the fields in insertion order.
func (h *Header) Fields() []Field {
	return h.fields
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.fields)
}

func (h *Header) write(w io.Writer) error {
	for _, f := range h.fields {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", f.Name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Request is a parsed HTTP request. Only GET requests are representable,
// since the codec rejects everything else at parse time.
type Request struct {
	Method string
	// Target is the request target exactly as received (origin-form or
	// absolute-form).
	Target string
	// Host and Port identify the origin server. Port defaults to 80.
	Host string
	Port int
	// Path is the origin-form path plus query used when forwarding.
	Path   string
	Proto  string
	Header Header
}

// Write serializes the request in origin-form, headers in original order.
func (r *Request) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\r\n", r.Method, r.Path, r.Proto); err != nil {
		return err
	}
	if err := r.Header.write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// Response is a parsed HTTP response with its full body.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Header     Header
	Body       []byte
}

// Write serializes the response, headers in original order, body last.
func (r *Response) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %d %s\r\n", r.Proto, r.StatusCode, r.Reason); err != nil {
		return err
	}
	if err := r.Header.write(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	_, err := w.Write(r.Body)
	return err
}

// Bytes returns the serialized response. This is the form stored in the
// response cache.
func (r *Response) Bytes() []byte {
	buf := &bytes.Buffer{}
	r.Write(buf)
	return buf.Bytes()
}
