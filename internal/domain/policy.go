package domain

import (
	"fmt"
	"time"
)

// WaitMode selects the network quiescence condition for navigation.
type WaitMode string

const (
	// WaitLenient allows up to two in-flight connections for 500ms.
	WaitLenient WaitMode = "lenient"
	// WaitStrict requires the network to be fully idle for 500ms.
	WaitStrict WaitMode = "strict"
)

// StabilityMode selects how the page is judged ready to print.
type StabilityMode string

const (
	// StabilitySimple sleeps for a settle window and checks the text floor.
	StabilitySimple StabilityMode = "simple"
	// StabilityConvergence scrolls until document height stops changing.
	StabilityConvergence StabilityMode = "convergence"
)

// RenderPolicy parameterizes one pass through the render pipeline.
type RenderPolicy struct {
	Name              string        `yaml:"-"`
	NavigationWait    WaitMode      `yaml:"navigation_wait"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	Stability         StabilityMode `yaml:"stability"`
	LaunchFallback    bool          `yaml:"launch_fallback"`
	AcceptBody        bool          `yaml:"accept_body"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	MinTextLength     int           `yaml:"min_text_length"`
	UserAgent         string        `yaml:"user_agent"`
	DefaultFilename   string        `yaml:"default_filename"`
	// BlockedResourceTypes lists CDP resource types (Image, Font, Media, ...)
	// to abort during navigation. Empty means every request is let through and
	// interception stays off.
	BlockedResourceTypes []string      `yaml:"blocked_resource_types"`
	SiteMarkerSelector   string        `yaml:"site_marker_selector"`
	SiteMarkerTimeout    time.Duration `yaml:"site_marker_timeout"`
	Example              string        `yaml:"example"`
}

const (
	macUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	windowsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// RobustPolicy waits for a fully idle network and runs the height
// convergence loop. No launch fallback.
func RobustPolicy() RenderPolicy {
	return RenderPolicy{
		Name:              "robust",
		NavigationWait:    WaitStrict,
		NavigationTimeout: 60 * time.Second,
		Stability:         StabilityConvergence,
		SettleDelay:       2 * time.Second,
		UserAgent:         windowsUserAgent,
		DefaultFilename:   "blog-post",
		Example:           "/generate-pdf?target=https://example.com/blog-post",
	}
}

// SimplePolicy tolerates a chatty network, settles for a fixed window and
// retries the launch against the system browser.
func SimplePolicy() RenderPolicy {
	return RenderPolicy{
		Name:               "simple",
		NavigationWait:     WaitLenient,
		NavigationTimeout:  90 * time.Second,
		Stability:          StabilitySimple,
		LaunchFallback:     true,
		AcceptBody:         true,
		SettleDelay:        3 * time.Second,
		MinTextLength:      100,
		UserAgent:          macUserAgent,
		DefaultFilename:    "webflow-blog-post",
		SiteMarkerSelector: "[data-wf-site]",
		SiteMarkerTimeout:  10 * time.Second,
		Example:            "?target=https://example.com/blog-post",
	}
}

// Validate checks that the enumerated fields hold known values.
func (p RenderPolicy) Validate() error {
	switch p.NavigationWait {
	case WaitLenient, WaitStrict:
	default:
		return fmt.Errorf("policy %q: unknown navigation_wait %q", p.Name, p.NavigationWait)
	}
	switch p.Stability {
	case StabilitySimple, StabilityConvergence:
	default:
		return fmt.Errorf("policy %q: unknown stability %q", p.Name, p.Stability)
	}
	if p.NavigationTimeout <= 0 {
		return fmt.Errorf("policy %q: navigation_timeout must be positive", p.Name)
	}
	if p.SettleDelay < 0 {
		return fmt.Errorf("policy %q: settle_delay must not be negative", p.Name)
	}
	if p.MinTextLength < 0 {
		return fmt.Errorf("policy %q: min_text_length must not be negative", p.Name)
	}
	if p.DefaultFilename == "" {
		return fmt.Errorf("policy %q: default_filename is empty", p.Name)
	}
	if p.SiteMarkerSelector != "" && p.SiteMarkerTimeout <= 0 {
		return fmt.Errorf("policy %q: site_marker_timeout must be positive when a selector is set", p.Name)
	}
	return nil
}
