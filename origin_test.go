package webproxy

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/webcache/webproxy/httpmsg"
)

func getRequest(t *testing.T, addr net.Addr) *httpmsg.Request {
	t.Helper()
	tcpAddr := addr.(*net.TCPAddr)
	return &httpmsg.Request{
		Method: "GET",
		Host:   tcpAddr.IP.String(),
		Port:   tcpAddr.Port,
		Path:   "/",
		Proto:  "HTTP/1.1",
	}
}

func TestFetchSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// drain the request headers before answering
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
	}()

	f := &Fetcher{}
	res, err := f.Fetch(getRequest(t, ln.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != 200 || string(res.Body) != "hello" {
		t.Fatalf("got %d with body %q", res.StatusCode, res.Body)
	}
}

func TestFetchSendsConnectionClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	headers := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var sb strings.Builder
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
			sb.WriteString(line)
		}
		headers <- sb.String()
		conn.Write([]byte("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"))
	}()

	f := &Fetcher{}
	if _, err := f.Fetch(getRequest(t, ln.Addr())); err != nil {
		t.Fatal(err)
	}
	if got := <-headers; !strings.Contains(strings.ToLower(got), "connection: close") {
		t.Fatalf("forwarded headers were %q", got)
	}
}

func TestFetchOriginRefused(t *testing.T) {
	// bind a port, then close it so the connection is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	req := getRequest(t, ln.Addr())
	ln.Close()

	f := &Fetcher{DialTimeout: time.Second}
	_, err = f.Fetch(req)
	if !errors.Is(err, ErrOriginUnreachable) {
		t.Fatalf("error is %v", err)
	}
}

func TestFetchOriginSilent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		// accept and never answer
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(time.Second)
	}()

	f := &Fetcher{ResponseTimeout: 50 * time.Millisecond}
	start := time.Now()
	_, err = f.Fetch(getRequest(t, ln.Addr()))
	if !errors.Is(err, ErrOriginTimeout) {
		t.Fatalf("error is %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("fetch did not respect the response timeout, took %s", time.Since(start))
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// drain the request headers before answering
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		conn.Write([]byte("this is not http\r\n\r\n"))
		conn.Close()
	}()

	f := &Fetcher{}
	_, err = f.Fetch(getRequest(t, ln.Addr()))
	if !errors.Is(err, httpmsg.ErrMalformedResponse) {
		t.Fatalf("error is %v", err)
	}
}
