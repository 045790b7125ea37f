// Package release checks GitHub for a newer octopilot-mcp release.
//
// The check is best-effort: network failures, rate limits and malformed
// responses all produce a Status with UpdateAvailable false. Installing the
// release is left to the user's package manager.
package release

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// Repository is the GitHub repository releases are published to.
	Repository = "octopilot/octopilot-mcp"

	latestURL    = "https://api.github.com/repos/" + Repository + "/releases/latest"
	checkTimeout = 10 * time.Second
	maxBody      = 1 << 20
)

// For testing: allow overriding the release URL and HTTP client.
var (
	latestEndpoint = latestURL
	httpClient     = &http.Client{Timeout: checkTimeout}
)

// Status is the outcome of Check.
type Status struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

// Check asks GitHub for the latest release and compares it with current.
func Check(ctx context.Context, current string) Status {
	st := Status{CurrentVersion: normalize(current)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestEndpoint, nil)
	if err != nil {
		return st
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "octopilot-mcp/"+st.CurrentVersion)

	resp, err := httpClient.Do(req)
	if err != nil {
		return st
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil || !gjson.ValidBytes(body) {
		return st
	}

	st.LatestVersion = normalize(gjson.GetBytes(body, "tag_name").String())
	st.ReleaseURL = gjson.GetBytes(body, "html_url").String()
	st.UpdateAvailable = newer(st.CurrentVersion, st.LatestVersion)
	return st
}

// normalize strips one leading "v".
func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// newer reports whether latest is a higher major.minor.patch than current.
// Development builds never report an update.
func newer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := parts(current), parts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

// parts reads up to three numeric components, stopping each at the first
// non-digit so "1.2.3-rc.1" yields 1, 2, 3.
func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		end := 0
		for end < len(p) && p[end] >= '0' && p[end] <= '9' {
			end++
		}
		out[i], _ = strconv.Atoi(p[:end])
	}
	return out
}
