package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// newSSEEmitter returns a canonical.Event sink that writes each event as
// one "event: <type>\ndata: <json>\n\n" frame, flushing after every write
// so the client sees each block as it is produced rather than buffered
// behind Go's default response buffering.
func newSSEEmitter(w http.ResponseWriter, flusher http.Flusher) func(canonical.Event) {
	return func(e canonical.Event) {
		body, err := json.Marshal(e.Payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\n", e.Type)
		fmt.Fprintf(w, "data: %s\n\n", body)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func dispatchErrorPayload(err error) map[string]any {
	relErr, ok := relayerr.As(err)
	if !ok {
		return map[string]any{"type": "api_error", "message": err.Error()}
	}
	return map[string]any{"type": relErr.Kind.String(), "message": relErr.Message}
}
