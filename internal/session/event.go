package session

// Event types pushed to the subscriber, in the order they can occur within
// one session: started, zero or more progress, then exactly one of completed
// or error.
const (
	EventStarted   = "started"
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventError     = "error"
)

// Event is one frame of the push channel. Fields not meaningful for a given
// type are omitted from the JSON encoding; Percentage is a pointer so that an
// unknown total omits it rather than reporting zero.
type Event struct {
	Type            string  `json:"type"`
	FileSize        string  `json:"fileSize,omitempty"`
	URL             string  `json:"url,omitempty"`
	Percentage      *int    `json:"percentage,omitempty"`
	DownloadedBytes int64   `json:"downloadedBytes,omitempty"`
	TotalBytes      int64   `json:"totalBytes,omitempty"`
	ThroughputMbps  float64 `json:"throughputMbps,omitempty"`
	ElapsedSeconds  float64 `json:"elapsedSeconds,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// Sink receives the events of one session in order. A Send error means the
// subscriber is gone; the session stops without attempting further delivery.
type Sink interface {
	Send(Event) error
}
