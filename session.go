package webproxy

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/webcache/webproxy/cache"
	"github.com/webcache/webproxy/httpmsg"
)

// session handles one client connection from accept to close.
// It owns the client socket for its lifetime and runs strictly
// sequentially: parse, lookup or fetch, respond.
type session struct {
	conn          io.ReadWriteCloser
	cache         cache.CacheProvider
	fetcher       *Fetcher
	defaultMaxAge time.Duration
	log           zerolog.Logger
}

func (s *session) serve() {
	defer s.conn.Close()

	req, err := httpmsg.ReadRequest(bufio.NewReader(s.conn))
	if err != nil {
		s.reject(err)
		return
	}

	key := cache.Key(req.Host, req.Port, req.Path)
	log := s.log.With().Str("key", key).Logger()

	if bytes, ok, err := s.cache.Get(key); err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
	} else if ok {
		log.Debug().Int("hit", 1).Msg("Serving cached response")
		if _, err := s.conn.Write(bytes); err != nil {
			log.Error().Err(err).Msg("Could not write response body to client")
		}
		return
	}

	log.Trace().Msg("Forwarding to origin")
	res, err := s.fetcher.Fetch(req)
	if err != nil {
		s.bail(log, err)
		return
	}

	if cache.Storable(res) {
		expires := cache.Freshness(res, time.Now(), s.defaultMaxAge)
		if err := s.cache.Put(key, expires, res.Bytes()); err != nil {
			log.Error().Err(err).Msg("Could not write to cache")
		} else {
			log.Trace().Time("expiry", expires).Msg("Cache write")
		}
	} else {
		log.Trace().Int("http-status", res.StatusCode).Msg("Non-cacheable response")
	}

	log.Debug().Int("hit", 0).Int("http-status", res.StatusCode).Msg("Sending response to client")
	if err := res.Write(s.conn); err != nil {
		log.Error().Err(err).Msg("Could not write response body to client")
	}
}

// reject answers a request that never parsed. A client that simply went
// away gets no answer at all.
func (s *session) reject(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		s.log.Trace().Msg("Client disconnected before sending a request")
		return
	}
	code, reason := 400, "Bad Request"
	if errors.Is(err, httpmsg.ErrMethodNotSupported) {
		code, reason = 405, "Method Not Allowed"
	}
	s.log.Debug().Err(err).Int("http-status", code).Msg("Rejecting request")
	writeStatus(s.conn, code, reason)
}

// bail answers the client after a failed origin fetch.
func (s *session) bail(log zerolog.Logger, err error) {
	code, reason := 502, "Bad Gateway"
	if errors.Is(err, ErrOriginTimeout) {
		code, reason = 504, "Gateway Timeout"
	}
	log.Debug().Err(err).Int("http-status", code).Msg("Origin fetch failed")
	writeStatus(s.conn, code, reason)
}
