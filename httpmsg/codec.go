package httpmsg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRequest means the request could not be parsed.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrMalformedResponse means the origin response could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrMethodNotSupported means the request used a method other than GET.
	// It matches ErrMalformedRequest in errors.Is checks.
	ErrMethodNotSupported = fmt.Errorf("method not supported: %w", ErrMalformedRequest)
)

// ReadRequest reads a request line and headers terminated by an empty line.
// Only GET requests are accepted, so no body is ever read.
// The origin host and port are resolved from an absolute-form target or the
// Host header; a request naming neither is malformed.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return nil, fmt.Errorf("request line %q: %w", line, ErrMalformedRequest)
	}
	req := &Request{
		Method: tokens[0],
		Target: tokens[1],
		Proto:  tokens[2],
	}
	if req.Method != "GET" {
		return nil, fmt.Errorf("%q: %w", req.Method, ErrMethodNotSupported)
	}
	if req.Header, err = readHeader(r); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedRequest)
	}
	if err := resolveTarget(req); err != nil {
		return nil, err
	}
	return req, nil
}

// resolveTarget fills in Host, Port and Path from the request target,
// falling back to the Host header for origin-form targets.
func resolveTarget(req *Request) error {
	if strings.Contains(req.Target, "://") {
		u, err := url.Parse(req.Target)
		if err != nil {
			return fmt.Errorf("request target %q: %w", req.Target, ErrMalformedRequest)
		}
		req.Host = u.Hostname()
		req.Port = 80
		if p := u.Port(); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("request target port %q: %w", p, ErrMalformedRequest)
			}
			req.Port = port
		}
		req.Path = u.RequestURI()
	} else {
		host, port, err := splitHostPort(req.Header.Get("Host"))
		if err != nil {
			return err
		}
		req.Host = host
		req.Port = port
		req.Path = req.Target
	}
	if req.Host == "" {
		return fmt.Errorf("no host in request: %w", ErrMalformedRequest)
	}
	if req.Path == "" {
		req.Path = "/"
	}
	// make sure the forwarded request names the origin
	if req.Header.Get("Host") == "" {
		req.Header.Set("Host", net.JoinHostPort(req.Host, strconv.Itoa(req.Port)))
	}
	return nil
}

func splitHostPort(hostport string) (string, int, error) {
	if !strings.Contains(hostport, ":") {
		return hostport, 80, nil
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, fmt.Errorf("host %q: %w", hostport, ErrMalformedRequest)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("host port %q: %w", portStr, ErrMalformedRequest)
	}
	return host, port, nil
}

// ReadResponse reads a status line and headers, then the body. The body is
// exactly Content-Length bytes when the header is present, otherwise
// everything until the origin closes the connection.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, wrapResponseErr(err)
	}
	proto, rest, found := strings.Cut(line, " ")
	if !found || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("status line %q: %w", line, ErrMalformedResponse)
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, fmt.Errorf("status code %q: %w", codeStr, ErrMalformedResponse)
	}
	res := &Response{
		Proto:      proto,
		StatusCode: code,
		Reason:     reason,
	}
	if res.Header, err = readHeader(r); err != nil {
		return nil, wrapResponseErr(err)
	}
	if cl := res.Header.Get("Content-Length"); cl != "" {
		length, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || length < 0 {
			return nil, fmt.Errorf("content length %q: %w", cl, ErrMalformedResponse)
		}
		res.Body = make([]byte, length)
		if _, err := io.ReadFull(r, res.Body); err != nil {
			return nil, wrapResponseErr(err)
		}
	} else {
		// connection-close framing
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, wrapResponseErr(err)
		}
		res.Body = body
	}
	return res, nil
}

// wrapResponseErr classifies an error hit while reading a response.
// Network errors, read deadlines included, pass through so callers can
// tell a slow origin from a broken one; everything else means the
// message itself was malformed or truncated.
func wrapResponseErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("read response: %w", err)
	}
	return fmt.Errorf("%v: %w", err, ErrMalformedResponse)
}

// readHeader reads CRLF-terminated "Name: value" lines up to an empty line.
func readHeader(r *bufio.Reader) (Header, error) {
	var h Header
	for {
		line, err := readLine(r)
		if err != nil {
			return h, err
		}
		if line == "" {
			return h, nil
		}
		name, value, found := strings.Cut(line, ":")
		if !found || name == "" || strings.ContainsAny(name, " \t") {
			return h, fmt.Errorf("header line %q", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
