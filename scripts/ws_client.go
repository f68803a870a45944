// Package main runs a demo WebSocket client that follows one async solve.
//
//	go run ./scripts/ws_client.go [instance.dat]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type runEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	path := "internal/instance/testdata/small.dat"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	text, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	// Queue an async solve
	body, _ := json.Marshal(map[string]any{
		"instance":       string(text),
		"terminationSec": 5,
		"async":          true,
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok := os.Getenv("CARP_TOKEN"); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("solve: unexpected status %s", resp.Status)
	}
	var accepted struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", accepted.RunID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + accepted.RunID + "/events/ws"}
	hdr := http.Header{}
	if tok := os.Getenv("CARP_TOKEN"); tok != "" {
		hdr.Set("Authorization", "Bearer "+tok)
	}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m runEvent
			if err := c.ReadJSON(&m); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Data))
			if m.Type == "run.completed" || m.Type == "run.failed" {
				return
			}
		}
	}()

	select {
	case <-time.After(time.Minute):
		log.Print("timed out waiting for run to finish")
	case <-done:
	}
}
