package api

import "github.com/goccy/go-json"

type (
	// JoinRoomRequest registers the connection in a room.
	// Both ids are client-supplied; the user id is neither authenticated
	// nor guaranteed unique.
	JoinRoomRequest struct {
		RoomId string `json:"room_id"`
		UserId string `json:"user_id"`
	}
	// RosterUser is one entry of the room roster sent to a joiner.
	RosterUser struct {
		Id     string `json:"id"`
		UserId string `json:"user_id"`
	}
	JoinErrorResponse struct {
		Reason string `json:"reason"`
	}

	// SendSignalRequest carries a WebRTC offer from the initiator
	// to the user_to_signal handle.
	SendSignalRequest struct {
		UserToSignal string          `json:"user_to_signal"`
		CallerId     string          `json:"caller_id"`
		Signal       json.RawMessage `json:"signal"`
	}
	// ReturnSignalRequest carries the answer back to the original caller.
	ReturnSignalRequest struct {
		CallerId string          `json:"caller_id"`
		Signal   json.RawMessage `json:"signal"`
	}
	IncomingSignalResponse struct {
		Signal   json.RawMessage `json:"signal"`
		CallerId string          `json:"caller_id"`
	}
	ReturnedSignalResponse struct {
		Signal json.RawMessage `json:"signal"`
		Id     string          `json:"id"`
	}

	// RoomScoped extracts the room id from any room event payload,
	// the rest of the payload stays opaque.
	RoomScoped struct {
		RoomId string `json:"room_id"`
	}
	// DrawStroke is a single whiteboard line segment
	// with coordinates normalized to 0..1.
	DrawStroke struct {
		RoomId string  `json:"room_id"`
		X0     float64 `json:"x0"`
		Y0     float64 `json:"y0"`
		X1     float64 `json:"x1"`
		Y1     float64 `json:"y1"`
		Color  string  `json:"color"`
		Size   float64 `json:"size"`
	}
)
