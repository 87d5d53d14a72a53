// Package job describes a unit of work handed to the agent: one anchor URL
// to walk and the rules for extracting records along the way.
package job

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/adwalk/listing-agent/internal/extract"
	"github.com/adwalk/listing-agent/internal/humanize"
)

// Job is one walk request.
type Job struct {
	// ID identifies the run. Assigned on acceptance when empty.
	ID string `mapstructure:"id" json:"id"`
	// Token is an opaque caller correlation value echoed into results.
	Token string `mapstructure:"token" json:"token,omitempty"`
	// AnchorURL is the listing page the walk starts from and returns to.
	AnchorURL string `mapstructure:"anchor_url" json:"anchor_url"`
	// Selectors configure field extraction on detail pages.
	Selectors extract.Selectors `mapstructure:"selectors" json:"selectors"`
	// MaxItems caps how many targets are queued (default 50).
	MaxItems int `mapstructure:"max_items" json:"max_items"`
	// RequirePhone drops records whose contact phone cannot be extracted.
	RequirePhone bool `mapstructure:"require_phone" json:"require_phone"`
	// Humanize tunes the pacing profile for this walk.
	Humanize humanize.Config `mapstructure:"humanize" json:"humanize"`
}

const defaultMaxItems = 50

// Accept validates the job and fills defaults, assigning an ID when absent.
func Accept(j Job) (Job, error) {
	if j.AnchorURL == "" {
		return Job{}, errors.New("job requires an anchor url")
	}
	parsed, err := url.Parse(j.AnchorURL)
	if err != nil {
		return Job{}, fmt.Errorf("parse anchor url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Job{}, fmt.Errorf("anchor url scheme %q is not navigable", parsed.Scheme)
	}
	if j.MaxItems < 0 {
		return Job{}, fmt.Errorf("max_items %d must be >= 0", j.MaxItems)
	}
	if j.MaxItems == 0 {
		j.MaxItems = defaultMaxItems
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Humanize = j.Humanize.Normalize()
	return j, nil
}
