package http

import (
	"context"
	"encoding/json"

	"github.com/courierchat/courier-server/internal/core"
	"github.com/courierchat/courier-server/internal/proto"
	"github.com/courierchat/courier-server/internal/store"
)

func storedMessage(msg *store.Message) proto.StoredMessage {
	return proto.StoredMessage{
		ID:        msg.ID,
		Sender:    msg.SenderID,
		Receiver:  msg.ReceiverID,
		Content:   msg.Content,
		Status:    string(msg.Status),
		Timestamp: msg.CreatedAt.Unix(),
	}
}

// dispatchInbound decodes one inbound frame and applies it to the session.
// A non-nil proto.Error means the frame was well-formed JSON with an
// unusable payload; a non-nil error means the frame could not be decoded
// at all and the connection should close.
func dispatchInbound(ctx context.Context, session *core.Session, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMessage:
		var data proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		session.HandleSend(ctx, core.SendRequest{
			Content:          data.Content,
			ReceiverUsername: data.ReceiverUsername,
		})
		return nil, nil
	case proto.InboundTypeRead:
		var data proto.ReadData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		session.HandleRead(ctx, data.Peer)
		return nil, nil
	default:
		return &proto.Error{Type: "invalid_message", Message: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoster:
		data := proto.UsersListData{Online: []string{}, All: []string{}}
		if event.Roster != nil {
			data.Online = event.Roster.Online
			data.All = event.Roster.All
		}
		return proto.Outbound{Type: proto.OutboundTypeUsersList, Data: data}
	case core.EventPresence:
		kind := proto.OutboundTypeUserOffline
		if event.Online {
			kind = proto.OutboundTypeUserOnline
		}
		return proto.Outbound{Type: kind, Data: proto.PresenceData{Username: event.Username}}
	case core.EventMessage:
		msg := event.Message
		return proto.Outbound{Type: proto.OutboundTypeMessage, Data: proto.DeliveredMessage{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Status:    string(msg.Status),
			Timestamp: msg.CreatedAt.Unix(),
		}}
	case core.EventOfflineBatch:
		batch := make([]proto.StoredMessage, 0, len(event.Batch))
		for _, msg := range event.Batch {
			batch = append(batch, storedMessage(msg))
		}
		return proto.Outbound{Type: proto.OutboundTypeOfflineBatch, Data: batch}
	case core.EventAck:
		return proto.Outbound{Type: proto.OutboundTypeMessageSent, Data: storedMessage(event.Ack)}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Type: "unknown", Message: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Type: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Type: "unknown", Message: "unknown event"}}
	}
}
