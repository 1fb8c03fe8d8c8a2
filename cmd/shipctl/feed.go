package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"shiplog/internal/client"
	"shiplog/internal/feed"
	"shiplog/internal/models"
	"shiplog/internal/notifications"

	"github.com/gorilla/websocket"
)

func runFeed(ctx context.Context, c *client.Client) error {
	loader := feed.NewLoader[models.Post](c.Feed)
	defer loader.Close()

	view := loader.Load(ctx)
	if view.Status == feed.StatusError {
		return view.Err
	}
	printPage(os.Stdout, feed.RenderList(view.Items, time.Now()))
	return nil
}

func runProjects(ctx context.Context, c *client.Client) error {
	projects, err := c.Projects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Printf("%-2s #%-24s %3d updates  %s\n", p.Emoji, p.Name, p.UpdateCount, p.Pitch)
	}
	return nil
}

// runTail prints each post announced on the live feed until ctx ends.
func runTail(ctx context.Context, c *client.Client) error {
	wsURL, err := c.FeedSocketURL(ctx)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("connecting to live feed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	fmt.Fprintln(os.Stderr, "following the feed, ^C to stop")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var ev notifications.FeedEvent
		if err := json.Unmarshal(msg, &ev); err != nil || ev.Type != notifications.EventPostCreated {
			continue
		}
		printCard(os.Stdout, feed.RenderCard(ev.Payload, time.Now()))
	}
}

func printPage(w io.Writer, page feed.Page) {
	if page.Empty {
		fmt.Fprintln(w, page.Message)
		return
	}
	for _, card := range page.Cards {
		printCard(w, card)
	}
}

func printCard(w io.Writer, card feed.Card) {
	header := card.AuthorName
	if card.ShowStreak {
		header += fmt.Sprintf(" 🔥%d", card.Streak)
	}
	if card.ProjectLink != nil {
		header += "  " + card.ProjectLink.Label
	}
	fmt.Fprintf(w, "%s · %s\n", header, card.Age)
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(card.Content, "\n", "\n  "))
	if card.ImageURL != "" {
		fmt.Fprintf(w, "  [image] %s\n", card.ImageURL)
	}
	fmt.Fprintln(w)
}
