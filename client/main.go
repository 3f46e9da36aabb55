package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoinGame      = 101
	MsgTypeMinisterGuess = 201

	MsgTypeQueueStatus     = 301
	MsgTypeGameStarted     = 303
	MsgTypeRoundStarted    = 304
	MsgTypeActionRequired  = 305
	MsgTypeRoundResult     = 306
	MsgTypeGameInterrupted = 307
	MsgTypeInvalidAction   = 401
)

var msgNames = map[uint16]string{
	MsgTypeQueueStatus:     "queue_status",
	MsgTypeGameStarted:     "game_started",
	MsgTypeRoundStarted:    "round_started",
	MsgTypeActionRequired:  "action_required",
	MsgTypeRoundResult:     "round_result",
	MsgTypeGameInterrupted: "game_interrupted",
	MsgTypeInvalidAction:   "invalid_action",
}

// send frames and sends a message to the game server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	var mu sync.Mutex
	var roomID string

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]

			name := msgNames[msgID]
			if name == "" {
				name = "unknown"
			}
			log.Printf("<- RECV %s (ID: %d): %s", name, msgID, string(data))

			if msgID == MsgTypeGameStarted {
				var started struct {
					RoomID   string `json:"roomId"`
					YourRole string `json:"yourRole"`
				}
				if err := json.Unmarshal(data, &started); err == nil {
					mu.Lock()
					roomID = started.RoomID
					mu.Unlock()
					log.Printf("Seated in room %s as %s", started.RoomID, started.YourRole)
				}
			}
		}
	}()

	log.Println("Sending join request...")
	if err := send(c, MsgTypeJoinGame, []byte{}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. As Minister, type 'guess <thiefId> <policeId>' and press Enter.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupted, closing connection.")
			c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		default:
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) != 3 || fields[0] != "guess" {
				log.Println("Usage: guess <thiefId> <policeId>")
				continue
			}

			mu.Lock()
			currentRoom := roomID
			mu.Unlock()
			if currentRoom == "" {
				log.Println("Not in a room yet.")
				continue
			}

			payload, _ := json.Marshal(map[string]string{
				"roomId":          currentRoom,
				"guessedThiefId":  fields[1],
				"guessedPoliceId": fields[2],
			})
			if err := send(c, MsgTypeMinisterGuess, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
