// Package websocket streams outcome records to connected admin clients.
// With Valkey configured the feed fans out across nodes through pub/sub.
package websocket

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	valkeylib "github.com/valkey-io/valkey-go"

	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	"github.com/ymzk/threadpilot/infrastructure/valkey"
	"github.com/ymzk/threadpilot/repository"
)

type client struct{}

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

const recentOutcomeLimit = 20

var (
	Clients    = make(map[*websocket.Conn]client)
	Register   = make(chan *websocket.Conn)
	Broadcast  = make(chan BroadcastMessage)
	Unregister = make(chan *websocket.Conn)

	vkClient *valkey.Client
	localID  string
)

// SetValkeyClient enables cross-node fan-out. SenderID dedup keeps a node
// from re-broadcasting its own messages.
func SetValkeyClient(client *valkey.Client, serverID string) {
	vkClient = client
	localID = serverID
}

// NotifyOutcome pushes one outcome record to every connected client. Wired
// as the run coordinator's notify hook. Non-blocking: when the hub is not
// running (plain CLI invocations) the message is dropped.
func NotifyOutcome(rec domainOutcome.Record) {
	msg := BroadcastMessage{
		Code:    "OUTCOME",
		Message: "Outcome recorded",
		Result:  rec,
	}
	select {
	case Broadcast <- msg:
	default:
	}
}

func handleRegister(conn *websocket.Conn) {
	Clients[conn] = client{}
	logrus.Debug("[WS] Connection registered")
}

func handleUnregister(conn *websocket.Conn) {
	delete(Clients, conn)
	logrus.Debug("[WS] Connection unregistered")
}

func broadcastToLocal(message BroadcastMessage) {
	marshalMessage, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range Clients {
		if err := conn.WriteMessage(websocket.TextMessage, marshalMessage); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func publishToValkey(message BroadcastMessage) {
	if vkClient == nil {
		return
	}

	message.SenderID = localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	ctx := context.Background()
	cmd := vkClient.Inner().B().Publish().Channel(vkClient.Key("ws", "outcomes")).Message(string(data)).Build()
	if err := vkClient.Inner().Do(ctx, cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func startValkeySubscriber() {
	if vkClient == nil {
		return
	}

	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		channel := vkClient.Key("ws", "outcomes")
		err := vkClient.Inner().Receive(context.Background(), vkClient.Inner().B().Subscribe().Channel(channel).Build(), func(msg valkeylib.PubSubMessage) {
			var broadcastMsg BroadcastMessage
			if err := json.Unmarshal([]byte(msg.Message), &broadcastMsg); err == nil {
				// Avoid loops: ignore messages sent by this same instance
				if broadcastMsg.SenderID == localID {
					return
				}
				broadcastToLocal(broadcastMsg)
			}
		})
		if err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(Clients, conn)
}

func RunHub() {
	if vkClient != nil {
		startValkeySubscriber()
	}

	for {
		select {
		case conn := <-Register:
			handleRegister(conn)

		case conn := <-Unregister:
			handleUnregister(conn)

		case message := <-Broadcast:
			broadcastToLocal(message)

			if vkClient != nil {
				publishToValkey(message)
			}
		}
	}
}

// RegisterRoutes exposes the feed at /ws/outcomes. Clients may send
// {"code":"FETCH_RECENT"} to replay the latest records.
func RegisterRoutes(app fiber.Router, outcomes repository.IOutcomeStore) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws/outcomes", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			Unregister <- conn
			_ = conn.Close()
		}()

		Register <- conn

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Println("read error:", err)
				}
				return
			}

			if messageType == websocket.TextMessage {
				var messageData BroadcastMessage
				if err := json.Unmarshal(message, &messageData); err != nil {
					logrus.Println("unmarshal error:", err)
					return
				}

				if messageData.Code == "FETCH_RECENT" {
					records, _ := outcomes.ListRecent(context.Background(), recentOutcomeLimit)
					Broadcast <- BroadcastMessage{
						Code:    "LIST_RECENT",
						Message: "Recent outcomes",
						Result:  records,
					}
				}
			} else {
				logrus.Println("unsupported message type:", messageType)
			}
		}
	}))
}
