// Package api defines the wire contract between browser clients and the signaler.
//
// Each message is a JSON-encoded "packet" of the following structure:
//
//	id - (optional) a packet id used for request tracking;
//	 t - (required) one of the predefined unique packet types;
//	 p - (optional) packet payload with arbitrary data.
//
// The packets differentiate by their predefined types with which it is
// possible to unwrap the payload into distinct request/response structures.
// WebRTC handshake payloads (the signal field) are opaque blobs produced and
// consumed by the browser endpoints; the server relays them without
// interpretation.
//
// Example:
//
//	{"t":100,"p":{"user_to_signal":"cfv68irdrc3ifu3jn6bg","caller_id":"cfv68isdrc3ifu3jn6c0","signal":{...}}}
package api

import (
	"fmt"

	"github.com/goccy/go-json"
)

type PT uint8

type In struct {
	Id      string          `json:"id,omitempty"`
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	Id      string `json:"id,omitempty"`
	T       PT     `json:"t"`
	Payload any    `json:"p,omitempty"`
}

// Packet codes:
//
//	x - session codes
//	1xx - signaling relay codes
//	2xx - room event codes
const (
	JoinRoom   PT = 1
	LeaveRoom  PT = 2
	Roster     PT = 3
	UserJoined PT = 4
	UserLeft   PT = 5
	JoinError  PT = 6

	SendSignal     PT = 100
	ReturnSignal   PT = 101
	IncomingSignal PT = 102
	ReturnedSignal PT = 103

	SendChat    PT = 200
	ChatMessage PT = 201
	SendDraw    PT = 210
	Drawing     PT = 211
	CanvasPush  PT = 220
	CanvasState PT = 221
)

func (p PT) String() string {
	switch p {
	case JoinRoom:
		return "JoinRoom"
	case LeaveRoom:
		return "LeaveRoom"
	case Roster:
		return "Roster"
	case UserJoined:
		return "UserJoined"
	case UserLeft:
		return "UserLeft"
	case JoinError:
		return "JoinError"
	case SendSignal:
		return "SendSignal"
	case ReturnSignal:
		return "ReturnSignal"
	case IncomingSignal:
		return "IncomingSignal"
	case ReturnedSignal:
		return "ReturnedSignal"
	case SendChat:
		return "SendChat"
	case ChatMessage:
		return "ChatMessage"
	case SendDraw:
		return "SendDraw"
	case Drawing:
		return "Drawing"
	case CanvasPush:
		return "CanvasPush"
	case CanvasState:
		return "CanvasState"
	default:
		return "Unknown"
	}
}

var (
	ErrForbidden = fmt.Errorf("forbidden")
	ErrMalformed = fmt.Errorf("malformed")
)

func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}
