package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result is one successful agent invocation: the text payload plus the
// session handle and whatever metrics the CLI reported.
type Result struct {
	Text       string
	SessionID  string
	NewSession bool

	Model               string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	DurationMS          int
	DurationAPIMS       int
	CostUSD             float64
	NumTurns            int
	IsError             bool
	WallClock           time.Duration
}

// The claude CLI emits a JSON array of event objects:
//
//	{"type": "system", "subtype": "init", "session_id": ...}
//	{"type": "assistant", "message": {"content": [...]}, ...}
//	{"type": "result", "subtype": "success", "result": "...", ...}
type cliEvent struct {
	Type          string      `json:"type"`
	Subtype       string      `json:"subtype"`
	SessionID     string      `json:"session_id"`
	Result        string      `json:"result"`
	Model         string      `json:"model"`
	IsError       bool        `json:"is_error"`
	DurationMS    int         `json:"duration_ms"`
	DurationAPIMS int         `json:"duration_api_ms"`
	TotalCostUSD  float64     `json:"total_cost_usd"`
	NumTurns      int         `json:"num_turns"`
	Usage         *cliUsage   `json:"usage"`
	Message       *cliMessage `json:"message"`
}

type cliMessage struct {
	Model   string       `json:"model"`
	Usage   *cliUsage    `json:"usage"`
	Content []cliContent `json:"content"`
}

type cliContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cliUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
}

// parseResult extracts the text payload and metrics from the CLI's event
// stream. fallbackSessionID is used when no event carries a session id.
func parseResult(raw []byte, fallbackSessionID string) (*Result, error) {
	var events []cliEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single cliEvent
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("decoding event stream: %w", err)
		}
		events = []cliEvent{single}
	}

	res := &Result{SessionID: fallbackSessionID}

	for _, ev := range events {
		switch ev.Type {
		case "system":
			if res.Model == "" {
				res.Model = ev.Model
			}
			if res.SessionID == fallbackSessionID && ev.SessionID != "" {
				res.SessionID = ev.SessionID
			}
		case "assistant":
			if ev.Message == nil {
				continue
			}
			if res.Model == "" {
				res.Model = ev.Message.Model
			}
			if u := ev.Message.Usage; u != nil {
				res.applyUsage(u)
			}
		case "result":
			res.Text = ev.Result
			if ev.SessionID != "" {
				res.SessionID = ev.SessionID
			}
			res.DurationMS = ev.DurationMS
			res.DurationAPIMS = ev.DurationAPIMS
			res.CostUSD = ev.TotalCostUSD
			res.NumTurns = ev.NumTurns
			res.IsError = ev.IsError
			if ev.Usage != nil {
				res.applyUsage(ev.Usage)
			}
		}
	}

	if res.Text == "" {
		// Fallback: first assistant text block.
		for _, ev := range events {
			if ev.Type != "assistant" || ev.Message == nil {
				continue
			}
			for _, block := range ev.Message.Content {
				if block.Type == "text" && block.Text != "" {
					res.Text = block.Text
					break
				}
			}
			if res.Text != "" {
				break
			}
		}
	}

	return res, nil
}

func (r *Result) applyUsage(u *cliUsage) {
	if u.InputTokens != 0 {
		r.InputTokens = u.InputTokens
	}
	if u.OutputTokens != 0 {
		r.OutputTokens = u.OutputTokens
	}
	if u.CacheReadTokens != 0 {
		r.CacheReadTokens = u.CacheReadTokens
	}
	if u.CacheCreationTokens != 0 {
		r.CacheCreationTokens = u.CacheCreationTokens
	}
}
