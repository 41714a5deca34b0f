// Package config holds the client settings for the interactive SDK.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streamspace-dev/interactive-go/internal/errs"
)

// DefaultAPIBase is the production interactive service REST base URL.
const DefaultAPIBase = "https://interactive.streamspace.dev/api/v1"

// DefaultConfigFile is read when AppID or ProjectVersionID is unset.
const DefaultConfigFile = "interactive_config.json"

// ProtocolVersion is advertised in the websocket handshake.
const ProtocolVersion = "2.0"

// OAuthScope is requested during the short-code flow.
const OAuthScope = "interactive:robot:self"

// Settings holds the configuration for an interactive client.
//
// Configuration can be provided via:
//   - The host application, directly
//   - A JSON config file (keys: appid, projectversionid, sharecode)
//   - Command-line flags / environment variables (probe binary)
type Settings struct {
	// AppID is the OAuth client id issued for the game.
	AppID string

	// ProjectVersionID identifies the interactive project version to join.
	ProjectVersionID string

	// ShareCode optionally grants access to an unpublished project.
	ShareCode string

	// APIBase is the REST base URL for discovery and OAuth.
	// Default: DefaultAPIBase
	APIBase string

	// ConfigFile is the host configuration file consulted when AppID or
	// ProjectVersionID is unset. Default: DefaultConfigFile
	ConfigFile string

	// ShouldStartInteractive makes the client send ready(true) automatically
	// once both groups and scenes have been fetched.
	ShouldStartInteractive bool
}

// fileKeys is the on-disk schema of the host configuration file.
type fileKeys struct {
	AppID            string `json:"appid"`
	ProjectVersionID string `json:"projectversionid"`
	ShareCode        string `json:"sharecode"`
}

// LoadFile reads the host configuration file and fills any unset identity
// fields. Fields already set on the receiver win over the file.
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfigFileUnreadable, err)
	}

	var keys fileKeys
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfigFileUnreadable, err)
	}

	if s.AppID == "" {
		s.AppID = keys.AppID
	}
	if s.ProjectVersionID == "" {
		s.ProjectVersionID = keys.ProjectVersionID
	}
	if s.ShareCode == "" {
		s.ShareCode = keys.ShareCode
	}
	return nil
}

// Validate validates the settings and applies defaults.
//
// Missing AppID or ProjectVersionID is the only hard failure in the SDK; it
// is reported synchronously so the host can surface a setup problem.
func (s *Settings) Validate() error {
	if s.AppID == "" {
		return errs.ErrMissingAppID
	}

	if s.ProjectVersionID == "" {
		return errs.ErrMissingProjectVersionID
	}

	if s.APIBase == "" {
		s.APIBase = DefaultAPIBase
	}

	if s.ConfigFile == "" {
		s.ConfigFile = DefaultConfigFile
	}

	return nil
}
