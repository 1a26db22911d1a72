// Command ws_chat is a small interactive client for manual testing.
// Lines typed as "user: text" are sent as direct messages to that user.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/courierchat/courier-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "access token (from /api/login)")
	flag.Parse()

	if *token == "" {
		return errors.New("-token is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type 'user: message' to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		printOutbound(outbound)
	}
}

func printOutbound(outbound proto.Outbound) {
	raw, err := json.Marshal(outbound.Data)
	if err != nil {
		log.Printf("marshal outbound data: %v", err)
		return
	}

	switch outbound.Type {
	case proto.OutboundTypeUsersList:
		var data proto.UsersListData
		if err := json.Unmarshal(raw, &data); err == nil {
			fmt.Printf("online: %v, all: %v\n", data.Online, data.All)
		}
	case proto.OutboundTypeUserOnline, proto.OutboundTypeUserOffline:
		var data proto.PresenceData
		if err := json.Unmarshal(raw, &data); err == nil {
			fmt.Printf("* %s is %s\n", data.Username, strings.TrimPrefix(outbound.Type, "user-"))
		}
	case proto.OutboundTypeMessage:
		var msg proto.DeliveredMessage
		if err := json.Unmarshal(raw, &msg); err == nil {
			fmt.Printf("%s: %s\n", msg.Sender, msg.Content)
		}
	case proto.OutboundTypeOfflineBatch:
		var batch []proto.StoredMessage
		if err := json.Unmarshal(raw, &batch); err == nil {
			fmt.Printf("-- %d message(s) while you were away --\n", len(batch))
			for _, msg := range batch {
				fmt.Printf("  [%d] %s\n", msg.Sender, msg.Content)
			}
		}
	case proto.OutboundTypeMessageSent:
		var msg proto.StoredMessage
		if err := json.Unmarshal(raw, &msg); err == nil {
			fmt.Printf("(sent, status=%s)\n", msg.Status)
		}
	case proto.OutboundTypeError:
		if outbound.Error != nil {
			fmt.Printf("error [%s]: %s\n", outbound.Error.Type, outbound.Error.Message)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		to, text, found := strings.Cut(line, ":")
		if !found {
			fmt.Println("format: user: message")
			continue
		}

		payload, err := json.Marshal(proto.PrivateMessageData{
			Content:          strings.TrimSpace(text),
			ReceiverUsername: strings.TrimSpace(to),
		})
		if err != nil {
			log.Printf("marshal message: %v", err)
			continue
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}); err != nil {
			log.Printf("send: %v", err)
			return
		}
	}
}
