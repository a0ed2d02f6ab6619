package genai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// logDebug persists the full request and response of an API call as a JSON
// file under <stateDir>/debug. It is a no-op unless debug mode is enabled,
// and failures never affect the call itself.
func (c *Client) logDebug(method string, params, response any) {
	if !c.debugMode || c.stateDir == "" {
		return
	}

	debugDir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.Warn("GenAI debug: failed to create debug directory", "error", err, "dir", debugDir)
		return
	}

	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"method":    method,
		"model":     c.model,
		"params":    params,
		"response":  response,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("GenAI debug: failed to marshal log entry", "error", err, "method", method)
		return
	}

	name := fmt.Sprintf("%d_%s.json", time.Now().UnixNano(), method)
	path := filepath.Join(debugDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("GenAI debug: failed to write log entry", "error", err, "path", path)
		return
	}
	slog.Debug("GenAI debug: API call logged", "method", method, "path", path)
}
