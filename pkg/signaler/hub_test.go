package signaler

import (
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/openhuddle/huddle/pkg/api"
	"github.com/openhuddle/huddle/pkg/com"
	"github.com/openhuddle/huddle/pkg/config"
	"github.com/openhuddle/huddle/pkg/logger"
)

// fakePeer captures deliveries instead of writing to a socket.
type fakePeer struct {
	mu   sync.Mutex
	sent []api.Out
	gone bool
}

func (f *fakePeer) Notify(t api.PT, data any) {
	f.mu.Lock()
	f.sent = append(f.sent, api.Out{T: t, Payload: data})
	f.mu.Unlock()
}

func (f *fakePeer) Disconnect() {
	f.mu.Lock()
	f.gone = true
	f.mu.Unlock()
}

func (f *fakePeer) byType(t api.PT) (out []api.Out) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.sent {
		if p.T == t {
			out = append(out, p)
		}
	}
	return
}

func newTestHub() *Hub {
	return NewHub(config.Signaler{Rooms: config.Rooms{EchoChat: true}}, logger.Default())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func join(t *testing.T, h *Hub, room, user string) (*Session, *fakePeer) {
	t.Helper()
	p := &fakePeer{}
	s := NewSession(com.NewUid(), p, logger.Default())
	h.HandleJoin(s, mustJSON(t, api.JoinRoomRequest{RoomId: room, UserId: user}))
	return s, p
}

func TestJoinRosterAndAnnounce(t *testing.T) {
	h := newTestHub()

	a, ap := join(t, h, "abc123", "Alice")
	rosters := ap.byType(api.Roster)
	if len(rosters) != 1 {
		t.Fatalf("expected one roster, got %v", len(rosters))
	}
	if users := rosters[0].Payload.([]api.RosterUser); len(users) != 0 {
		t.Errorf("expected an empty roster for the first joiner, got %+v", users)
	}

	b, bp := join(t, h, "abc123", "Bob")
	rosters = bp.byType(api.Roster)
	if len(rosters) != 1 {
		t.Fatalf("expected one roster, got %v", len(rosters))
	}
	users := rosters[0].Payload.([]api.RosterUser)
	if len(users) != 1 || users[0].Id != a.Id().String() || users[0].UserId != "Alice" {
		t.Errorf("expected exactly the first participant, got %+v", users)
	}

	joins := ap.byType(api.UserJoined)
	if len(joins) != 1 {
		t.Fatalf("expected exactly one peer-joined, got %v", len(joins))
	}
	if j := joins[0].Payload.(api.RosterUser); j.Id != b.Id().String() || j.UserId != "Bob" {
		t.Errorf("unexpected peer-joined payload %+v", j)
	}
	if got := bp.byType(api.UserJoined); len(got) != 0 {
		t.Errorf("the joiner should not be told about itself, got %+v", got)
	}
}

func TestMalformedJoinRejected(t *testing.T) {
	h := newTestHub()
	p := &fakePeer{}
	s := NewSession(com.NewUid(), p, logger.Default())

	h.HandleJoin(s, mustJSON(t, api.JoinRoomRequest{RoomId: "abc123"}))
	h.HandleJoin(s, []byte(`}{`))

	if errs := p.byType(api.JoinError); len(errs) != 2 {
		t.Errorf("expected two join errors, got %v", len(errs))
	}
	if rooms, participants := h.registry.Counts(); rooms != 0 || participants != 0 {
		t.Errorf("expected nothing registered, got %v rooms %v participants", rooms, participants)
	}
}

func TestRoomFullRejected(t *testing.T) {
	h := NewHub(config.Signaler{Rooms: config.Rooms{EchoChat: true, MaxParticipants: 1}}, logger.Default())
	join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")
	if errs := bp.byType(api.JoinError); len(errs) != 1 {
		t.Errorf("expected a join error, got %v", len(errs))
	}
	if size := h.registry.RoomSize("room"); size != 1 {
		t.Errorf("expected the room to stay at the cap, got %v", size)
	}
}

func TestOfferAnswerRelay(t *testing.T) {
	h := newTestHub()
	a, ap := join(t, h, "room", "Alice")
	b, bp := join(t, h, "room", "Bob")

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.HandleSendSignal(b, mustJSON(t, api.SendSignalRequest{
		UserToSignal: a.Id().String(), CallerId: b.Id().String(), Signal: offer,
	}))

	in := ap.byType(api.IncomingSignal)
	if len(in) != 1 {
		t.Fatalf("expected one incoming signal, got %v", len(in))
	}
	rq := in[0].Payload.(api.IncomingSignalResponse)
	if rq.CallerId != b.Id().String() {
		t.Errorf("expected the origin handle %v, got %v", b.Id(), rq.CallerId)
	}
	if string(rq.Signal) != string(offer) {
		t.Errorf("the offer blob was altered: %s", rq.Signal)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	h.HandleReturnSignal(a, mustJSON(t, api.ReturnSignalRequest{
		CallerId: b.Id().String(), Signal: answer,
	}))

	back := bp.byType(api.ReturnedSignal)
	if len(back) != 1 {
		t.Fatalf("expected one returned signal, got %v", len(back))
	}
	rp := back[0].Payload.(api.ReturnedSignalResponse)
	if rp.Id != a.Id().String() {
		t.Errorf("expected the answering handle %v, got %v", a.Id(), rp.Id)
	}
	if string(rp.Signal) != string(answer) {
		t.Errorf("the answer blob was altered: %s", rp.Signal)
	}
}

func TestRelayToDepartedSilentlyDrops(t *testing.T) {
	h := newTestHub()
	a, _ := join(t, h, "room", "Alice")
	b, bp := join(t, h, "room", "Bob")

	h.Teardown(b)
	h.HandleSendSignal(a, mustJSON(t, api.SendSignalRequest{
		UserToSignal: b.Id().String(), Signal: json.RawMessage(`{}`),
	}))

	if got := bp.byType(api.IncomingSignal); len(got) != 0 {
		t.Errorf("expected no delivery to the departed handle, got %v", len(got))
	}
}

func TestChatEchoesToWholeRoom(t *testing.T) {
	h := newTestHub()
	a, ap := join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")
	_, cp := join(t, h, "room", "Carol")

	h.HandleChat(a, []byte(`{"room_id":"room","text":"hi"}`))

	for i, p := range []*fakePeer{ap, bp, cp} {
		msgs := p.byType(api.ChatMessage)
		if len(msgs) != 1 {
			t.Fatalf("participant %v: expected one chat message, got %v", i, len(msgs))
		}
		data := msgs[0].Payload.(map[string]any)
		if data["text"] != "hi" {
			t.Errorf("participant %v: unexpected text %v", i, data["text"])
		}
		if _, ok := data["ts"]; !ok {
			t.Errorf("participant %v: expected a server timestamp", i)
		}
	}
}

func TestChatWithoutEcho(t *testing.T) {
	h := NewHub(config.Signaler{Rooms: config.Rooms{EchoChat: false}}, logger.Default())
	a, ap := join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")

	h.HandleChat(a, []byte(`{"room_id":"room","text":"hi"}`))

	if got := ap.byType(api.ChatMessage); len(got) != 0 {
		t.Errorf("expected no echo to the sender, got %v", len(got))
	}
	if got := bp.byType(api.ChatMessage); len(got) != 1 {
		t.Errorf("expected one delivery, got %v", len(got))
	}
}

func TestChatOutsideJoinedRoomDropped(t *testing.T) {
	h := newTestHub()
	a, _ := join(t, h, "room", "Alice")
	_, bp := join(t, h, "other", "Bob")

	h.HandleChat(a, []byte(`{"room_id":"other","text":"hi"}`))

	if got := bp.byType(api.ChatMessage); len(got) != 0 {
		t.Errorf("expected no cross-room delivery, got %v", len(got))
	}
}

func TestDrawExcludesSenderAndKeepsOrder(t *testing.T) {
	h := newTestHub()
	a, ap := join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")

	strokes := []string{
		`{"room_id":"room","x0":0.1,"y0":0.1,"x1":0.2,"y1":0.2,"color":"#000","size":2}`,
		`{"room_id":"room","x0":0.2,"y0":0.2,"x1":0.3,"y1":0.3,"color":"#000","size":2}`,
		`{"room_id":"room","x0":0.3,"y0":0.3,"x1":0.4,"y1":0.4,"color":"#000","size":2}`,
	}
	for _, stroke := range strokes {
		h.HandleDraw(a, []byte(stroke))
	}

	if got := ap.byType(api.Drawing); len(got) != 0 {
		t.Errorf("expected the sender to be excluded, got %v", len(got))
	}
	got := bp.byType(api.Drawing)
	if len(got) != len(strokes) {
		t.Fatalf("expected %v strokes, got %v", len(strokes), len(got))
	}
	for i, p := range got {
		if string(p.Payload.(json.RawMessage)) != strokes[i] {
			t.Errorf("stroke %v out of order or altered: %s", i, p.Payload.(json.RawMessage))
		}
	}
}

func TestCanvasPushExcludesSender(t *testing.T) {
	h := newTestHub()
	a, ap := join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")

	blob := `{"room_id":"room","snapshot":"deadbeef"}`
	h.HandleCanvasPush(a, []byte(blob))

	if got := ap.byType(api.CanvasState); len(got) != 0 {
		t.Errorf("expected the sender to be excluded, got %v", len(got))
	}
	got := bp.byType(api.CanvasState)
	if len(got) != 1 || string(got[0].Payload.(json.RawMessage)) != blob {
		t.Errorf("unexpected canvas delivery %+v", got)
	}
}

func TestTeardownBroadcastsOnce(t *testing.T) {
	h := newTestHub()
	a, _ := join(t, h, "room", "Alice")
	_, bp := join(t, h, "room", "Bob")
	_, cp := join(t, h, "room", "Carol")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Teardown(a)
		}()
	}
	wg.Wait()

	for i, p := range []*fakePeer{bp, cp} {
		left := p.byType(api.UserLeft)
		if len(left) != 1 {
			t.Fatalf("participant %v: expected exactly one peer-left, got %v", i, len(left))
		}
		if left[0].Payload.(string) != a.Id().String() {
			t.Errorf("participant %v: unexpected departed handle %v", i, left[0].Payload)
		}
	}
	if _, err := h.registry.Find(a.Id()); err == nil {
		t.Errorf("expected the departed handle to be gone from the registry")
	}
}

func TestRejoinAnnouncesDepartureToOldRoom(t *testing.T) {
	h := newTestHub()
	a, _ := join(t, h, "one", "Alice")
	_, bp := join(t, h, "one", "Bob")

	h.HandleJoin(a, mustJSON(t, api.JoinRoomRequest{RoomId: "two", UserId: "Alice"}))

	left := bp.byType(api.UserLeft)
	if len(left) != 1 || left[0].Payload.(string) != a.Id().String() {
		t.Errorf("expected the old room to see the departure, got %+v", left)
	}
	if size := h.registry.RoomSize("two"); size != 1 {
		t.Errorf("expected the handle in the new room, got %v", size)
	}
}

func TestRejectedRejoinLeavesNoMembership(t *testing.T) {
	h := NewHub(config.Signaler{Rooms: config.Rooms{EchoChat: true, MaxParticipants: 2}}, logger.Default())
	a, ap := join(t, h, "one", "Alice")
	_, bp := join(t, h, "one", "Bob")
	join(t, h, "two", "Carol")
	join(t, h, "two", "Dave")

	h.HandleJoin(a, mustJSON(t, api.JoinRoomRequest{RoomId: "two", UserId: "Alice"}))

	if errs := ap.byType(api.JoinError); len(errs) != 1 {
		t.Fatalf("expected the full room to reject the re-join, got %v errors", len(errs))
	}
	if room := a.Room(); room != "" {
		t.Errorf("expected no room claim after the rejection, got %q", room)
	}
	if _, err := h.registry.Find(a.Id()); err == nil {
		t.Errorf("expected the handle to be out of the registry")
	}

	h.HandleChat(a, []byte(`{"room_id":"one","text":"ghost"}`))
	if got := bp.byType(api.ChatMessage); len(got) != 0 {
		t.Errorf("expected no chat from a non-member, got %v message(s)", len(got))
	}
}

func TestJoinAfterTeardownRegistersNothing(t *testing.T) {
	h := newTestHub()
	p := &fakePeer{}
	s := NewSession(com.NewUid(), p, logger.Default())

	h.Teardown(s)
	h.HandleJoin(s, mustJSON(t, api.JoinRoomRequest{RoomId: "room", UserId: "Alice"}))

	if rooms, participants := h.registry.Counts(); rooms != 0 || participants != 0 {
		t.Errorf("expected nothing registered, got %v rooms %v participants", rooms, participants)
	}
	if !s.Closed() {
		t.Errorf("expected the session to stay closed")
	}
}

func TestLeavePacketClosesSession(t *testing.T) {
	h := newTestHub()
	a, ap := join(t, h, "room", "Alice")

	h.route(a, api.In{T: api.LeaveRoom})

	ap.mu.Lock()
	gone := ap.gone
	ap.mu.Unlock()
	if !gone {
		t.Errorf("expected the connection to be dropped")
	}
	if rooms, _ := h.registry.Counts(); rooms != 0 {
		t.Errorf("expected no rooms left, got %v", rooms)
	}
}

func TestClosedSessionGetsNoDeliveries(t *testing.T) {
	h := newTestHub()
	a, _ := join(t, h, "room", "Alice")
	b, bp := join(t, h, "room", "Bob")

	h.Teardown(b)
	sent := len(bp.sent)
	h.HandleChat(a, []byte(`{"room_id":"room","text":"hi"}`))

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if len(bp.sent) != sent {
		t.Errorf("expected no deliveries after teardown, got %v new", len(bp.sent)-sent)
	}
}

func TestJoinLeaveChurnLeavesNoState(t *testing.T) {
	h := newTestHub()
	for i := 0; i < 100; i++ {
		s, _ := join(t, h, "room", "user")
		h.Teardown(s)
	}
	if rooms, participants := h.registry.Counts(); rooms != 0 || participants != 0 {
		t.Errorf("expected no leftover state, got %v rooms %v participants", rooms, participants)
	}
}
