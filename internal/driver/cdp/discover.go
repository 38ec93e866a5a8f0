package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Target is one entry of the debugger's /json/list endpoint.
type Target struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type version struct {
	Browser string `json:"Browser"`
	WSURL   string `json:"webSocketDebuggerUrl"`
}

// discover returns the browser websocket URL and its open targets.
func discover(ctx context.Context, client *http.Client, debuggerURL string) (string, []Target, error) {
	base := strings.TrimRight(debuggerURL, "/")

	var v version
	if err := getJSON(ctx, client, base+"/json/version", &v); err != nil {
		return "", nil, err
	}
	if v.WSURL == "" {
		return "", nil, fmt.Errorf("%s/json/version: no webSocketDebuggerUrl", base)
	}
	var targets []Target
	if err := getJSON(ctx, client, base+"/json/list", &targets); err != nil {
		return "", nil, err
	}
	return v.WSURL, targets, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("querying debugger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// pickTarget returns the first page whose URL contains match. An empty match
// takes the first page.
func pickTarget(targets []Target, match string) (Target, error) {
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if match == "" || strings.Contains(t.URL, match) {
			return t, nil
		}
	}
	if match == "" {
		return Target{}, fmt.Errorf("no open page in browser")
	}
	return Target{}, fmt.Errorf("no open page matching %q", match)
}
