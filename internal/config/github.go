package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultBranch is used when the repository settings name no branch.
const DefaultBranch = "main"

// GitHub holds the repository settings of the remote log file.
// It is stored as JSON in the local cache and never written by the adapter.
type GitHub struct {
	Username string `json:"username"`
	Repo     string `json:"repo"`
	Token    string `json:"token"`
	Branch   string `json:"branch,omitempty"`
}

// Info is the display-safe view of GitHub. It never carries the token.
type Info struct {
	Username string `json:"username"`
	Repo     string `json:"repo"`
	Branch   string `json:"branch"`
	RepoURL  string `json:"repo_url"`
}

// ParseGitHub decodes the stored repository settings.
func ParseGitHub(raw string) (GitHub, error) {
	var g GitHub
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return GitHub{}, fmt.Errorf("error in decoding the github config: %w", err)
	}
	return g, nil
}

// Configured reports whether username, repository and token are all present.
func (g GitHub) Configured() bool {
	return strings.TrimSpace(g.Username) != "" &&
		strings.TrimSpace(g.Repo) != "" &&
		strings.TrimSpace(g.Token) != ""
}

// BranchOrDefault returns the configured branch or DefaultBranch.
func (g GitHub) BranchOrDefault() string {
	if b := strings.TrimSpace(g.Branch); b != "" {
		return b
	}
	return DefaultBranch
}

// RepoURL is the web URL of the repository.
func (g GitHub) RepoURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", g.Username, g.Repo)
}

// Info returns the display-safe projection, or false when g is not configured.
func (g GitHub) Info() (Info, bool) {
	if !g.Configured() {
		return Info{}, false
	}
	return Info{
		Username: g.Username,
		Repo:     g.Repo,
		Branch:   g.BranchOrDefault(),
		RepoURL:  g.RepoURL(),
	}, true
}
