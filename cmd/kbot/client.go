package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// Client-side commands that talk to a running kbot server, so the pipeline
// can be driven from a shell instead of the chat frontend.

var (
	includeInternal bool
	conversationID  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest URL [URL...]",
	Short: "Scrape URLs into the server's index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]interface{}{
			"urls":             args,
			"include_internal": includeInternal,
		}
		var out struct {
			Message string `json:"message"`
		}
		if err := postJSON(serverURL+"/api/v1/ingest", payload, &out); err != nil {
			return err
		}
		fmt.Println(out.Message)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Ask a question against the indexed content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]string{
			"question":        args[0],
			"conversation_id": conversationID,
		}
		var out struct {
			Answer string `json:"answer"`
		}
		if err := postJSON(serverURL+"/api/v1/ask", payload, &out); err != nil {
			return err
		}
		fmt.Println(out.Answer)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [CONVERSATION_ID]",
	Short: "Print a conversation's message history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := conversationID
		if len(args) == 1 {
			id = args[0]
		}
		resp, err := httpClient().Get(serverURL + "/api/v1/conversations/" + id)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var out struct {
			Conversation []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"conversation"`
		}
		if err := decodeResponse(resp, &out); err != nil {
			return err
		}
		for _, m := range out.Conversation {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&includeInternal, "internal", false, "also follow same-domain links")
	askCmd.Flags().StringVar(&conversationID, "conversation", "default", "conversation id")
	historyCmd.Flags().StringVar(&conversationID, "conversation", "default", "conversation id")
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}

func postJSON(url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := httpClient().Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}
