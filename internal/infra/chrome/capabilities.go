package chrome

import (
	"errors"
	"time"

	"github.com/chromedp/chromedp"

	"url2pdf/internal/config"
)

// Capabilities declares how the browser process is started. It is built once
// from config and validated at startup.
type Capabilities struct {
	NoSandbox         bool
	DisableGPU        bool
	DisableDevShm     bool
	DisableExtensions bool
	SingleProcess     bool
	NoZygote          bool
	IgnoreCertErrors  bool

	ViewportWidth  int
	ViewportHeight int
	DeviceScale    float64
	LaunchTimeout  time.Duration
}

// backgroundFlags keep timers and rendering running at full speed in a
// headless, never-focused tab.
var backgroundFlags = []string{
	"disable-background-timer-throttling",
	"disable-backgrounding-occluded-windows",
	"disable-renderer-backgrounding",
	"disable-ipc-flooding-protection",
	"disable-hang-monitor",
	"disable-prompt-on-repost",
	"disable-client-side-phishing-detection",
	"disable-component-extensions-with-background-pages",
	"disable-default-apps",
	"disable-sync",
	"metrics-recording-only",
	"no-default-browser-check",
	"mute-audio",
	"no-pings",
}

// CapabilitiesFromConfig maps the browser section of the config.
func CapabilitiesFromConfig(cfg config.BrowserConfig) Capabilities {
	return Capabilities{
		NoSandbox:         cfg.NoSandbox,
		DisableGPU:        true,
		DisableDevShm:     true,
		DisableExtensions: true,
		SingleProcess:     cfg.SingleProcess,
		NoZygote:          cfg.SingleProcess,
		IgnoreCertErrors:  cfg.IgnoreCertErrors,
		ViewportWidth:     cfg.ViewportWidth,
		ViewportHeight:    cfg.ViewportHeight,
		DeviceScale:       cfg.DeviceScale,
		LaunchTimeout:     cfg.LaunchTimeout,
	}
}

// Validate rejects flag combinations Chrome refuses to start with.
func (c Capabilities) Validate() error {
	if c.NoZygote && !c.NoSandbox {
		return errors.New("chrome: no-zygote requires no-sandbox")
	}
	if c.SingleProcess && !c.NoZygote {
		return errors.New("chrome: single-process requires no-zygote")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return errors.New("chrome: viewport must be positive")
	}
	if c.DeviceScale <= 0 {
		return errors.New("chrome: device scale must be positive")
	}
	if c.LaunchTimeout <= 0 {
		return errors.New("chrome: launch timeout must be positive")
	}
	return nil
}

// ForSystemBrowser drops the process-model switches that a stock desktop
// Chrome does not tolerate well.
func (c Capabilities) ForSystemBrowser() Capabilities {
	c.SingleProcess = false
	c.NoZygote = false
	return c
}

// Flags returns the command-line switches, without leading dashes.
func (c Capabilities) Flags() map[string]any {
	flags := map[string]any{
		"headless":     true,
		"no-first-run": true,
	}
	for _, f := range backgroundFlags {
		flags[f] = true
	}
	if c.NoSandbox {
		flags["no-sandbox"] = true
		flags["disable-setuid-sandbox"] = true
	}
	if c.DisableGPU {
		// Software rendering only; minimal containers have no Vulkan/ANGLE.
		flags["disable-gpu"] = true
		flags["disable-gpu-compositing"] = true
		flags["use-gl"] = "swiftshader"
		flags["disable-features"] = "Vulkan,UseSkiaRenderer,TranslateUI"
	}
	if c.DisableDevShm {
		flags["disable-dev-shm-usage"] = true
	}
	if c.DisableExtensions {
		flags["disable-extensions"] = true
	}
	if c.SingleProcess {
		flags["single-process"] = true
	}
	if c.NoZygote {
		flags["no-zygote"] = true
	}
	if c.IgnoreCertErrors {
		flags["ignore-certificate-errors"] = true
	}
	return flags
}

// allocatorOptions builds the chromedp exec allocator options. An empty
// execPath lets chromedp find a browser on the system.
func (c Capabilities) allocatorOptions(execPath, userDataDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range c.Flags() {
		opts = append(opts, chromedp.Flag(name, value))
	}
	opts = append(opts,
		chromedp.WindowSize(c.ViewportWidth, c.ViewportHeight),
		chromedp.WSURLReadTimeout(c.LaunchTimeout),
	)
	if userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(userDataDir))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}
