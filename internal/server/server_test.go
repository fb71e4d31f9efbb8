package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpanzer-aviatrix/speedtest/internal/client"
	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/session"
)

// newTestServer mounts the API on an httptest server with the small file
// pointing at upstreamURL.
func newTestServer(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	t.Setenv("SPEEDTEST_URL_SMALL", upstreamURL)
	cfg, err := config.Load("")
	require.NoError(t, err)

	api := httptest.NewServer(New(":0", cfg, client.Config{}).Handler())
	t.Cleanup(api.Close)
	return api
}

func readEvents(t *testing.T, r *bufio.Scanner) []session.Event {
	t.Helper()
	var events []session.Event
	for r.Scan() {
		line := r.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev session.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestFilesEndpoint(t *testing.T) {
	api := newTestServer(t, "http://unused.invalid")

	resp, err := http.Get(api.URL + "/api/files")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var files []config.FileSpec
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&files))
	require.Len(t, files, 3)
	require.Equal(t, "small", files[0].Key)
}

func TestHealthz(t *testing.T) {
	api := newTestServer(t, "http://unused.invalid")

	resp, err := http.Get(api.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidSelectorRejectedBeforeStreaming(t *testing.T) {
	api := newTestServer(t, "http://unused.invalid")

	resp, err := http.Get(api.URL + "/api/speedtest?file=huge")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body["error"], "invalid file selection")
}

func TestSpeedtestStreamsOrderedEvents(t *testing.T) {
	payload := bytes.Repeat([]byte("p"), 128*1024)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer upstream.Close()
	api := newTestServer(t, upstream.URL)

	resp, err := http.Get(api.URL + "/api/speedtest?file=small")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, bufio.NewScanner(resp.Body))
	require.NotEmpty(t, events)
	require.Equal(t, session.EventStarted, events[0].Type)

	last := events[len(events)-1]
	require.Equal(t, session.EventCompleted, last.Type)
	require.NotNil(t, last.Percentage)
	require.Equal(t, 100, *last.Percentage)
	require.Equal(t, int64(len(payload)), last.DownloadedBytes)
	require.Equal(t, last.DownloadedBytes, last.TotalBytes)

	for _, ev := range events[1 : len(events)-1] {
		require.Equal(t, session.EventProgress, ev.Type)
	}
}

func TestSpeedtestUpstreamFailureYieldsErrorEvent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()
	api := newTestServer(t, upstream.URL)

	resp, err := http.Get(api.URL + "/api/speedtest?file=small")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, bufio.NewScanner(resp.Body))
	require.Len(t, events, 2)
	require.Equal(t, session.EventStarted, events[0].Type)
	require.Equal(t, session.EventError, events[1].Type)
	require.NotEmpty(t, events[1].Message)
}

func TestSubscriberDisconnectAbortsUpstreamTransfer(t *testing.T) {
	aborted := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1<<30))
		flusher := w.(http.Flusher)
		chunk := bytes.Repeat([]byte("q"), 32*1024)
		for {
			if _, err := w.Write(chunk); err != nil {
				close(aborted)
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				close(aborted)
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}))
	defer upstream.Close()
	api := newTestServer(t, upstream.URL)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.URL+"/api/speedtest?file=small", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// wait for the stream to produce something, then walk away
	buf := make([]byte, 256)
	_, err = resp.Body.Read(buf)
	require.NoError(t, err)
	cancel()

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream transfer was not aborted after subscriber disconnect")
	}
}
