package webproxy

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/webcache/webproxy/httpmsg"
)

var (
	// ErrOriginUnreachable means the origin refused the connection or
	// could not be resolved.
	ErrOriginUnreachable = errors.New("origin unreachable")
	// ErrOriginTimeout means the origin did not answer within the
	// configured bounds.
	ErrOriginTimeout = errors.New("origin timeout")
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultResponseTimeout = 15 * time.Second
)

// Fetcher opens a fresh TCP connection to the origin for every fetch.
// Origin connections are never kept alive across client requests.
type Fetcher struct {
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// ResponseTimeout bounds writing the request and reading the
	// complete response.
	ResponseTimeout time.Duration
}

// Fetch sends the request to the origin named by it and decodes the
// response. The request is forwarded with connection-close framing so the
// end of a body without Content-Length is unambiguous.
func (f *Fetcher) Fetch(req *httpmsg.Request) (*httpmsg.Response, error) {
	addr := net.JoinHostPort(req.Host, strconv.Itoa(req.Port))

	dialTimeout := f.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("dial %s: %w", addr, ErrOriginTimeout)
		}
		return nil, fmt.Errorf("dial %s: %v: %w", addr, err, ErrOriginUnreachable)
	}
	defer conn.Close()

	responseTimeout := f.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = defaultResponseTimeout
	}
	conn.SetDeadline(time.Now().Add(responseTimeout))

	req.Header.Set("Connection", "close")
	if err := req.Write(conn); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("write to %s: %w", addr, ErrOriginTimeout)
		}
		return nil, fmt.Errorf("write to %s: %v: %w", addr, err, ErrOriginUnreachable)
	}

	res, err := httpmsg.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("read from %s: %w", addr, ErrOriginTimeout)
		}
		return nil, err
	}
	return res, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
