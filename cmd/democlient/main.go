package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/satriahrh/voxlate/domain"
	"github.com/satriahrh/voxlate/internal/api"
)

// Drives one live session against a running server: start, watch events, stop.
func main() {
	host := flag.String("host", "localhost:5001", "server host:port")
	apiKey := flag.String("api-key", "", "API key, when the server has auth enabled")
	duration := flag.Duration("duration", 30*time.Second, "how long to listen before stopping")
	input := flag.String("input", "en", "input language")
	target := flag.String("target", "ko", "target language")
	device := flag.Int("device", -1, "input device index, -1 for the default device")
	flag.Parse()

	base := url.URL{Scheme: "http", Host: *host}

	token := ""
	if *apiKey != "" {
		var resp api.TokenResponse
		if err := postJSON(base, "/api/auth/token", "", api.TokenRequest{APIKey: *apiKey}, &resp); err != nil {
			log.Fatalf("Failed to obtain token: %v", err)
		}
		token = resp.Token
		fmt.Printf("✅ Token issued, expires at %s\n", resp.ExpiresAt.Format(time.RFC3339))
	}

	// Subscribe before starting so the first translations are not missed
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer c.Close()
	fmt.Printf("✅ Connected to %s\n", u.Host)

	go readEvents(c)

	if err := c.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		log.Fatalf("Failed to send ping: %v", err)
	}

	start := map[string]interface{}{
		"inputLanguage":  *input,
		"targetLanguage": *target,
		"deviceIndex":    *device,
	}
	var started api.StatusResponse
	if err := postJSON(base, "/api/start", token, start, &started); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	fmt.Printf("🎙  Session %s, listening for %s\n", started.Status, *duration)

	time.Sleep(*duration)

	var stopped api.StopResponse
	if err := postJSON(base, "/api/stop", token, struct{}{}, &stopped); err != nil {
		log.Fatalf("Failed to stop session: %v", err)
	}

	fmt.Println("\n=== Summary ===")
	if stopped.Template != "" {
		fmt.Printf("Template: %s\n", stopped.Template)
	}
	fmt.Println(stopped.Summary)
	if stopped.ExportPath != "" {
		fmt.Printf("\nTranslations exported to %s\n", stopped.ExportPath)
	}
}

func readEvents(c *websocket.Conn) {
	for {
		var event domain.Event
		if err := c.ReadJSON(&event); err != nil {
			return
		}

		switch event.Type {
		case domain.EventTranslation:
			var payload domain.TranslationPayload
			if decodePayload(event.Payload, &payload) == nil {
				fmt.Printf("📥 %s\n   → %s\n", payload.Original, payload.Translated)
			}
		case domain.EventSessionState:
			var payload domain.SessionStatePayload
			if decodePayload(event.Payload, &payload) == nil {
				fmt.Printf("ℹ️  session %s\n", payload.Status)
			}
		case domain.EventSummaryProgress:
			var payload domain.SummaryProgressPayload
			if decodePayload(event.Payload, &payload) == nil {
				fmt.Printf("⏳ summary %s %s\n", payload.Node, payload.Stage)
			}
		case domain.EventAudioLevel:
			// too chatty to print
		default:
			fmt.Printf("📨 %s\n", event.Type)
		}
	}
}

// decodePayload re-decodes a generic payload into its concrete type
func decodePayload(raw interface{}, into interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

func postJSON(base url.URL, path, token string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	base.Path = path
	req, err := http.NewRequest(http.MethodPost, base.String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 15 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %s %s", resp.Status, apiErr.Error, apiErr.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
