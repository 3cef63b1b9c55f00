package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// AccessLog writes one line per request in spec §6's format:
// "<peer>$$<elapsed_ms>$$<status>$$<method>$$<path>$$<headers_json>". A
// single writer is shared across goroutines, so writes are serialized to
// keep lines from interleaving.
type AccessLog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAccessLog wraps w. Passing io.Discard disables logging without the
// caller having to special-case a nil AccessLog everywhere.
func NewAccessLog(w io.Writer) *AccessLog {
	if w == nil {
		w = io.Discard
	}
	return &AccessLog{w: w}
}

// Write formats and emits one access-log line. headers is logged verbatim
// as a JSON object, matching the listener worker's case-preserved header
// map.
func (a *AccessLog) Write(peer string, elapsedMS int64, status int, method, path string, headers map[string][]string) {
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		headersJSON = []byte("{}")
	}
	line := fmt.Sprintf("%s$$%s$$%s$$%s$$%s$$%s\n",
		peer, strconv.FormatInt(elapsedMS, 10), strconv.Itoa(status), method, path, headersJSON)

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = io.WriteString(a.w, line)
}
