package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/courierchat/courier-server/internal/proto"
	"github.com/courierchat/courier-server/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := s.ts.Client().Get(s.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if health.Status != "Active" || health.DBStatus != "Connected" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + s.ts.URL[len("http"):] + "/ws"

	// No token at all.
	if _, _, err := websocket.Dial(ctx, wsURL, nil); err == nil {
		t.Fatal("expected dial without token to fail")
	}

	// Garbage token.
	if _, _, err := websocket.Dial(ctx, wsURL+"?token=garbage", nil); err == nil {
		t.Fatal("expected dial with bad token to fail")
	}

	// The registry must be untouched by rejected handshakes.
	if s.registry.Count() != 0 {
		t.Fatalf("expected empty registry, got %d entries", s.registry.Count())
	}
}

func TestWebSocketRosterOnConnect(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")
	s.registerUser(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := s.dialWS(ctx, t, aliceToken)

	outbound := readUntilType(ctx, t, conn, proto.OutboundTypeUsersList)
	var roster proto.UsersListData
	decodeData(t, outbound, &roster)

	if len(roster.Online) != 1 || roster.Online[0] != "alice" {
		t.Fatalf("unexpected online list: %v", roster.Online)
	}
	if len(roster.All) != 2 {
		t.Fatalf("expected both users in roster, got %v", roster.All)
	}
}

func TestWebSocketLiveDelivery(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")
	bobToken := s.registerUser(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceConn := s.dialWS(ctx, t, aliceToken)
	readUntilType(ctx, t, aliceConn, proto.OutboundTypeUsersList)

	bobConn := s.dialWS(ctx, t, bobToken)
	readUntilType(ctx, t, bobConn, proto.OutboundTypeUsersList)

	// Alice sees bob come online before sending.
	presence := readUntilType(ctx, t, aliceConn, proto.OutboundTypeUserOnline)
	var presenceData proto.PresenceData
	decodeData(t, presence, &presenceData)
	if presenceData.Username != "bob" {
		t.Fatalf("expected bob online, got %s", presenceData.Username)
	}

	sendPrivateMessage(ctx, t, aliceConn, "bob", "hello")

	// Bob receives the message with the sender as a username.
	delivered := readUntilType(ctx, t, bobConn, proto.OutboundTypeMessage)
	var msg proto.DeliveredMessage
	decodeData(t, delivered, &msg)
	if msg.Sender != "alice" || msg.Content != "hello" {
		t.Fatalf("unexpected delivered message: %+v", msg)
	}

	// Alice receives the ack with the persisted status.
	ack := readUntilType(ctx, t, aliceConn, proto.OutboundTypeMessageSent)
	var stored proto.StoredMessage
	decodeData(t, ack, &stored)
	if stored.Status != string(store.MessageStatusDelivered) {
		t.Fatalf("expected delivered status, got %s", stored.Status)
	}
	if stored.ID == 0 {
		t.Fatal("expected a ledger-assigned id in the ack")
	}

	// Round-trip: the acked message is retrievable from the ledger.
	persisted, err := s.store.GetMessage(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("get persisted message: %v", err)
	}
	if persisted.Content != "hello" {
		t.Fatalf("round-trip mismatch: %+v", persisted)
	}
}

func TestWebSocketOfflineReplay(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")
	bobToken := s.registerUser(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceConn := s.dialWS(ctx, t, aliceToken)
	readUntilType(ctx, t, aliceConn, proto.OutboundTypeUsersList)

	// Bob is offline: the ack must carry status sent.
	sendPrivateMessage(ctx, t, aliceConn, "bob", "hi")
	ack := readUntilType(ctx, t, aliceConn, proto.OutboundTypeMessageSent)
	var stored proto.StoredMessage
	decodeData(t, ack, &stored)
	if stored.Status != string(store.MessageStatusSent) {
		t.Fatalf("expected sent status, got %s", stored.Status)
	}

	// Bob connects and receives exactly one batch with the queued message.
	bobConn := s.dialWS(ctx, t, bobToken)
	batchFrame := readUntilType(ctx, t, bobConn, proto.OutboundTypeOfflineBatch)
	var batch []proto.StoredMessage
	decodeData(t, batchFrame, &batch)
	if len(batch) != 1 || batch[0].Content != "hi" {
		t.Fatalf("unexpected offline batch: %+v", batch)
	}

	// The ledger now shows the message as delivered.
	persisted, err := s.store.GetMessage(context.Background(), batch[0].ID)
	if err != nil {
		t.Fatalf("get persisted message: %v", err)
	}
	if persisted.Status != store.MessageStatusDelivered {
		t.Fatalf("expected delivered after replay, got %s", persisted.Status)
	}
}

func TestWebSocketSendErrors(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := s.dialWS(ctx, t, aliceToken)
	readUntilType(ctx, t, conn, proto.OutboundTypeUsersList)

	// Whitespace-only content is rejected without persisting anything.
	sendPrivateMessage(ctx, t, conn, "alice", "   ")
	errFrame := readUntilType(ctx, t, conn, proto.OutboundTypeError)
	if errFrame.Error == nil || errFrame.Error.Type != "invalid_payload" {
		t.Fatalf("expected invalid_payload, got %+v", errFrame.Error)
	}

	// Unknown receiver.
	sendPrivateMessage(ctx, t, conn, "nobody", "hi")
	errFrame = readUntilType(ctx, t, conn, proto.OutboundTypeError)
	if errFrame.Error == nil || errFrame.Error.Type != "receiver_not_found" {
		t.Fatalf("expected receiver_not_found, got %+v", errFrame.Error)
	}

	// The connection survives send errors.
	sendPrivateMessage(ctx, t, conn, "alice", "still here")
	readUntilType(ctx, t, conn, proto.OutboundTypeMessageSent)
}

func TestWebSocketPresenceOnDisconnect(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")
	bobToken := s.registerUser(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceConn := s.dialWS(ctx, t, aliceToken)
	readUntilType(ctx, t, aliceConn, proto.OutboundTypeUsersList)

	bobConn := s.dialWS(ctx, t, bobToken)
	readUntilType(ctx, t, bobConn, proto.OutboundTypeUsersList)
	readUntilType(ctx, t, aliceConn, proto.OutboundTypeUserOnline)

	if err := bobConn.Close(websocket.StatusNormalClosure, "leaving"); err != nil {
		t.Fatalf("close bob: %v", err)
	}

	offline := readUntilType(ctx, t, aliceConn, proto.OutboundTypeUserOffline)
	var presenceData proto.PresenceData
	decodeData(t, offline, &presenceData)
	if presenceData.Username != "bob" {
		t.Fatalf("expected bob offline, got %s", presenceData.Username)
	}
}

func TestWebSocketReadAcknowledgement(t *testing.T) {
	s := startTestServer(t)

	aliceToken := s.registerUser(t, "alice")
	bobToken := s.registerUser(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceConn := s.dialWS(ctx, t, aliceToken)
	readUntilType(ctx, t, aliceConn, proto.OutboundTypeUsersList)

	bobConn := s.dialWS(ctx, t, bobToken)
	readUntilType(ctx, t, bobConn, proto.OutboundTypeUsersList)

	sendPrivateMessage(ctx, t, aliceConn, "bob", "read me")
	delivered := readUntilType(ctx, t, bobConn, proto.OutboundTypeMessage)
	var msg proto.DeliveredMessage
	decodeData(t, delivered, &msg)

	payload, _ := json.Marshal(proto.ReadData{Peer: "alice"})
	if err := wsjson.Write(ctx, bobConn, proto.Inbound{Type: proto.InboundTypeRead, Data: payload}); err != nil {
		t.Fatalf("send read receipt: %v", err)
	}

	// The status transition is asynchronous from bob's perspective; poll the
	// ledger briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		persisted, err := s.store.GetMessage(context.Background(), msg.ID)
		if err != nil {
			t.Fatalf("get persisted message: %v", err)
		}
		if persisted.Status == store.MessageStatusRead {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never marked read, status %s", persisted.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
