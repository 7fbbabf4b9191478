// Package v1 defines the Playgate game-run session protocol v1 contract.
//
// It is shared between the server, the CLI and clients so the wire format and
// the signed canonical messages stay authoritative in one place.
package v1

import "encoding/json"

// Route paths (wire-stable).
const (
	PathPrefix = "/play"

	PathSessionGet    = PathPrefix + "/session_get"
	PathSessionInit   = PathPrefix + "/session_init"
	PathSessionCancel = PathPrefix + "/session_cancel"
	PathGameStart     = PathPrefix + "/game_start"
	PathGameComplete  = PathPrefix + "/game_complete"
	PathEvents        = PathPrefix + "/ws"
)

// Result is the discriminator carried by every mutating response.
type Result string

const (
	ResultSuccess                      Result = "Success"
	ResultErrorGameActive              Result = "ErrorGameActive"
	ResultErrorNoSuchSession           Result = "ErrorNoSuchSession"
	ResultErrorRequestDataDoesNotMatch Result = "ErrorRequestDataDoesNotMatch"
	ResultErrorSignatureInvalid        Result = "ErrorSignatureInvalid"
	ResultErrorUnexpected              Result = "ErrorUnexpected"
)

// SessionState is the state reported by session_get.
type SessionState string

const (
	SessionStateNone    SessionState = "None"
	SessionStateExpired SessionState = "Expired"
	SessionStateActive  SessionState = "Active"
)

type SessionGetRequest struct {
	Identity string `json:"identity"`
}

type SessionGetResponse struct {
	State   SessionState `json:"state"`
	Entropy string       `json:"entropy,omitempty"`
}

type SessionInitRequest struct {
	Identity string `json:"identity"`
}

type SessionInitResponse struct {
	Result  Result `json:"result"`
	Entropy string `json:"entropy,omitempty"`
}

type SessionCancelRequest struct {
	Identity  string `json:"identity"`
	Signature string `json:"signature"`
}

type SessionCancelResponse struct {
	Result Result `json:"result"`
}

type GameStartRequest struct {
	Identity  string `json:"identity"`
	Entropy   string `json:"entropy"`
	Signature string `json:"signature"`
}

type GameStartResponse struct {
	Result Result `json:"result"`
}

type GameCompleteRequest struct {
	Identity  string          `json:"identity"`
	Entropy   string          `json:"entropy"`
	NFTList   []string        `json:"nftList,omitempty"`
	Replay    json.RawMessage `json:"replay"`
	Signature string          `json:"signature"`
}

type GameCompleteResponse struct {
	Result Result          `json:"result"`
	Reward json.RawMessage `json:"reward,omitempty"`
}

// Event feed.

// EventsSubprotocol is the websocket subprotocol negotiated on PathEvents.
const EventsSubprotocol = "playgate.events.v1"

// TypeSessionEvent marks a session transition notification (server -> client).
const TypeSessionEvent = "session_event"

// SessionEvent is pushed to subscribers after a successful transition.
// It never carries entropy.
type SessionEvent struct {
	Type     string       `json:"type"`
	Identity string       `json:"identity"`
	Op       string       `json:"op"`
	State    SessionState `json:"state"`
	TS       int64        `json:"ts"`
}
