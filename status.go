package webproxy

import (
	"io"
	"strconv"

	"github.com/webcache/webproxy/httpmsg"
)

// statusResponse builds a minimal error response for the client.
func statusResponse(code int, reason string) *httpmsg.Response {
	body := []byte(reason + "\n")
	res := &httpmsg.Response{
		Proto:      "HTTP/1.1",
		StatusCode: code,
		Reason:     reason,
		Body:       body,
	}
	res.Header.Set("Content-Type", "text/plain; charset=utf-8")
	res.Header.Set("Content-Length", strconv.Itoa(len(body)))
	res.Header.Set("Connection", "close")
	return res
}

func writeStatus(w io.Writer, code int, reason string) error {
	return statusResponse(code, reason).Write(w)
}
