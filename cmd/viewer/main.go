// Command viewer is a terminal client for a channel feed. It prints the
// approved history as a table, then follows the live stream: approved
// messages as they land, plus the viewer's own submission confirmations.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"backchannel/domain"
	"backchannel/domain/event"
	"backchannel/projection"
)

func main() {
	server := flag.String("server", "localhost:8080", "host:port of the backchannel server")
	channelID := flag.String("channel", "", "channel id to follow")
	flag.Parse()

	if *channelID == "" {
		log.Fatal("missing -channel flag")
	}

	if err := printHistory(*server, *channelID); err != nil {
		log.Fatalf("Failed to fetch history: %v", err)
	}
	if err := follow(*server, *channelID); err != nil {
		log.Fatalf("Stream closed: %v", err)
	}
}

func printHistory(server, channelID string) error {
	resp, err := http.Get(fmt.Sprintf("http://%s/api/channels/%s/messages", server, channelID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server answered %s", resp.Status)
	}

	var page projection.Page
	if err = json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Author", "Message"})
	for _, m := range page.Messages {
		table.Append([]string{
			m.EffectiveAt().Format("15:04:05"),
			m.AnonUser.Name,
			m.Content,
		})
	}
	table.Render()
	if page.HasMore {
		color.Gray.Println("(older messages available, use the cursor API)")
	}
	return nil
}

// follow joins the channel anonymously and prints live events until the
// connection drops.
func follow(server, channelID string) error {
	endpoint := url.URL{Scheme: "ws", Host: server, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	join := map[string]any{
		"event": "join_channel",
		"data": map[string]any{
			"channelId": channelID,
			"sessionId": uuid.NewString(),
			"isOwner":   false,
		},
	}
	if err = conn.WriteJSON(join); err != nil {
		return err
	}

	for {
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err = conn.ReadJSON(&env); err != nil {
			return err
		}
		render(env.Event, env.Data)
	}
}

func render(name string, data json.RawMessage) {
	switch name {
	case event.IdentityAssigned{}.Name():
		var e event.IdentityAssigned
		if json.Unmarshal(data, &e) == nil {
			color.Cyan.Printf("You are %s\n", e.AnonUser.Name)
		}
	case event.NewMessage{}.Name():
		var e event.NewMessage
		if json.Unmarshal(data, &e) == nil {
			printMessage(e.Message)
		}
	case event.ChannelClosed{}.Name():
		color.Yellow.Println("Channel closed, no new submissions accepted")
	case event.ChannelOpened{}.Name():
		color.Green.Println("Channel reopened")
	case event.Error{}.Name():
		var e event.Error
		if json.Unmarshal(data, &e) == nil {
			color.Red.Printf("[%s] %s\n", e.Code, e.Message)
		}
	}
}

func printMessage(m domain.MessageWithIdentity) {
	color.Green.Printf("%s %s: ", m.EffectiveAt().Format("15:04:05"), m.AnonUser.Name)
	fmt.Println(m.Content)
}
