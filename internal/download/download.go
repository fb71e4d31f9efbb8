package download

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rpanzer-aviatrix/speedtest/internal/client"
)

const bufferSize = 32 * 1024

// Chunk reports the cumulative state of a transfer after one read from the
// body.
type Chunk struct {
	Downloaded int64 // cumulative bytes received so far
	Total      int64 // declared Content-Length, -1 when the server sent none
}

// Stream is a lazy, finite, non-restartable sequence of chunks, consumed
// scanner-style:
//
//	st, err := download.Start(ctx, url, c)
//	for st.Next() {
//	    chunk := st.Chunk()
//	    ...
//	}
//	err = st.Err()
//
// Next, Chunk and Err must all be called from the same goroutine.
type Stream struct {
	body  io.ReadCloser
	buf   []byte
	chunk Chunk
	err   error
	done  bool
}

// Start issues the GET request and returns a Stream over the response body.
// It returns before any body bytes are read. Non-2xx responses fail with
// ErrBadStatus; transport failures are classified before being returned.
func Start(ctx context.Context, url string, c *client.Client) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating GET request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		log.Debug().Str("component", "download").Err(err).Msg("GET request failed")
		return nil, Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return &Stream{
		body:  resp.Body,
		buf:   make([]byte, bufferSize),
		chunk: Chunk{Total: resp.ContentLength},
	}, nil
}

// Next advances the stream by one chunk. It returns false once the stream is
// exhausted; Err tells a clean end apart from a failure. After the body is
// drained or fails the underlying connection is closed, so exactly one of the
// two terminal outcomes is observed.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.chunk.Downloaded += int64(n)
		}
		if err == nil {
			if n == 0 {
				// Read is allowed to return (0, nil); don't surface an
				// empty chunk.
				continue
			}
			return true
		}
		s.done = true
		s.body.Close()
		if err == io.EOF {
			return n > 0
		}
		log.Debug().Str("component", "download").Err(err).Msg("body read failed")
		s.err = Classify(err)
		return false
	}
}

// Chunk returns the state recorded by the last successful Next.
func (s *Stream) Chunk() Chunk {
	return s.chunk
}

// Err returns the terminal error, or nil if the stream completed cleanly or
// is still in progress.
func (s *Stream) Err() error {
	return s.err
}

// Close aborts the transfer. It is idempotent and safe to call after the
// stream has already ended.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}
