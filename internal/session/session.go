package session

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpanzer-aviatrix/speedtest/internal/client"
	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/download"
)

// Session is one complete speed-test lifecycle: it owns its own measurement
// client and its own sink, shares nothing with concurrent sessions, and is
// discarded after the terminal event.
type Session struct {
	ID        uuid.UUID
	Spec      config.FileSpec
	StartedAt time.Time

	client *client.Client
	log    zerolog.Logger
}

func New(spec config.FileSpec, clientCfg client.Config) *Session {
	id := uuid.New()
	return &Session{
		ID:     id,
		Spec:   spec,
		client: client.New(clientCfg),
		log: log.With().
			Str("component", "session").
			Str("id", id.String()).
			Str("file", spec.Key).
			Logger(),
	}
}

// Run drives one measurement to its terminal event. Each chunk received from
// the driver synchronously produces the matching progress push before the
// next chunk is read, so events reach the sink in strict chronological order
// with non-decreasing byte counts.
//
// Run returns ctx.Err() when the subscriber disconnects mid-transfer; in that
// case the in-flight download is aborted and no further events are sent.
func (s *Session) Run(ctx context.Context, sink Sink) error {
	defer s.client.CloseIdleConnections()

	if err := sink.Send(Event{Type: EventStarted, FileSize: s.Spec.Key, URL: s.Spec.URL}); err != nil {
		return err
	}
	s.StartedAt = time.Now()

	st, err := download.Start(ctx, s.Spec.URL, s.client)
	if err != nil {
		return s.fail(ctx, sink, err)
	}
	defer st.Close()

	for st.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sink.Send(s.progressEvent(st.Chunk())); err != nil {
			return err
		}
	}
	if err := st.Err(); err != nil {
		return s.fail(ctx, sink, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.complete(sink, st.Chunk().Downloaded)
}

// fail emits the single error event, unless the session was canceled, in
// which case nothing further may be pushed.
func (s *Session) fail(ctx context.Context, sink Sink, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	s.log.Error().Err(err).Msg("speed test failed")
	return sink.Send(Event{Type: EventError, Message: err.Error()})
}

func (s *Session) progressEvent(c download.Chunk) Event {
	elapsed := time.Since(s.StartedAt).Seconds()
	ev := Event{
		Type:            EventProgress,
		DownloadedBytes: c.Downloaded,
		ElapsedSeconds:  round2(elapsed),
	}
	if c.Total > 0 {
		ev.TotalBytes = c.Total
		pct := int(math.Round(100 * float64(c.Downloaded) / float64(c.Total)))
		// A server that under-declares its length must not push the
		// percentage past 100.
		ev.Percentage = clampPct(pct)
	}
	if elapsed > 0 {
		ev.ThroughputMbps = mbps(c.Downloaded, elapsed)
	}
	return ev
}

// complete emits the single completed event. The final byte count doubles as
// the total so that transfers without a declared length still finish at 100%.
func (s *Session) complete(sink Sink, downloaded int64) error {
	elapsed := time.Since(s.StartedAt).Seconds()
	ev := Event{
		Type:            EventCompleted,
		Percentage:      clampPct(100),
		DownloadedBytes: downloaded,
		TotalBytes:      downloaded,
		ElapsedSeconds:  round2(elapsed),
	}
	if elapsed > 0 {
		ev.ThroughputMbps = mbps(downloaded, elapsed)
	}
	s.log.Info().
		Int64("bytes", downloaded).
		Float64("seconds", ev.ElapsedSeconds).
		Float64("mbps", ev.ThroughputMbps).
		Msg("speed test completed")
	return sink.Send(ev)
}

// mbps reports throughput in binary megabits (1024*1024 bits) per second,
// rounded to two decimals.
func mbps(bytes int64, elapsed float64) float64 {
	return round2(float64(bytes) * 8 / (1024 * 1024 * elapsed))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPct(pct int) *int {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return &pct
}
