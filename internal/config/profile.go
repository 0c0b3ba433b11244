package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Profile sentinel errors, checked at construction time: a profile that
// loads successfully is fully usable, absence of a required field never
// surfaces later as a lookup failure.
var (
	// ErrProfileName indicates the profile has no agent name.
	ErrProfileName = errors.New("profile: name is required")

	// ErrProfileRole indicates the profile has no persona role.
	ErrProfileRole = errors.New("profile: role is required")

	// ErrProfileDocuments indicates the profile lists no source documents.
	ErrProfileDocuments = errors.New("profile: at least one document is required")

	// ErrProfileContextWindow indicates an invalid evidence budget.
	ErrProfileContextWindow = errors.New("profile: context window must be >= 1")

	// ErrProfileTemperature indicates a temperature outside [0, 2].
	ErrProfileTemperature = errors.New("profile: temperature out of range")
)

// DocumentRef names one source document the agent is grounded in.
type DocumentRef struct {
	// Title labels the source in citations and the document selector.
	Title string `mapstructure:"title"`
	// Path locates the source file for the document-view mode.
	Path string `mapstructure:"path"`
	// Retriever is the registered retriever name for this document's
	// pre-built index. Defaults to the Title when empty.
	Retriever string `mapstructure:"retriever"`
}

// Profile is the tutor persona and its retrieval parameters, produced by
// the external configuration wizard. Immutable after Load; all fields are
// validated up front.
type Profile struct {
	Name        string  `mapstructure:"name"`
	Role        string  `mapstructure:"role"`
	Style       string  `mapstructure:"style"`
	DetailLevel string  `mapstructure:"detail_level"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// ContextWindow is the evidence budget: the maximum number of
	// retrieved passages injected into a single answer.
	ContextWindow int `mapstructure:"context_window"`

	Documents []DocumentRef `mapstructure:"documents"`
}

// LoadProfile reads and validates an agent profile YAML document.
// Profile is a value type; the loaded profile is copied around freely and
// never mutated after this returns.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return Profile{}, ErrMissingProfile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("style", "friendly")
	v.SetDefault("detail_level", "balanced")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("context_window", 5)

	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("reading profile %q: %w", path, err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %q: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks required fields and ranges.
func (p Profile) Validate() error {
	if p.Name == "" {
		return ErrProfileName
	}
	if p.Role == "" {
		return ErrProfileRole
	}
	if len(p.Documents) == 0 {
		return ErrProfileDocuments
	}
	for i, d := range p.Documents {
		if d.Title == "" {
			return fmt.Errorf("%w: document %d has no title", ErrProfileDocuments, i)
		}
	}
	if p.ContextWindow < 1 {
		return fmt.Errorf("%w: got %d", ErrProfileContextWindow, p.ContextWindow)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("%w: got %g", ErrProfileTemperature, p.Temperature)
	}
	return nil
}

// SessionKey derives the storage key for this profile on the given day:
// agent_<name>_<YYYYMMDD>. Keys roll over at midnight, so each calendar
// day starts a fresh session bucket while earlier days remain loadable by
// explicit selection. Inherited product behavior, kept deliberately.
func (p Profile) SessionKey(t time.Time) string {
	return "agent_" + p.Name + "_" + t.Format("20060102")
}
