package ws

import "github.com/gorilla/websocket"

// Message type values on the wire. Clients send start/stop; the engine
// answers with status and pushes partial/final/error/log.
const (
	TypeStart   = "start"
	TypeStop    = "stop"
	TypeStatus  = "status"
	TypePartial = "partial"
	TypeFinal   = "final"
	TypeError   = "error"
	TypeLog     = "log"
)

// Message is the single envelope for every frame exchanged with clients.
type Message struct {
	Type        string                 `json:"type"`
	Text        string                 `json:"text,omitempty"`
	Translation string                 `json:"translation,omitempty"`
	IsFinal     bool                   `json:"is_final,omitempty"`
	Timestamp   float64                `json:"timestamp,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Level       string                 `json:"level,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// Close codes the read loop treats as ordinary disconnects.
var ExpectedCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

// IsUnexpectedCloseError reports whether err is a websocket close error
// outside the expected set.
func IsUnexpectedCloseError(err error) bool {
	return websocket.IsUnexpectedCloseError(err, ExpectedCloseCodes...)
}
