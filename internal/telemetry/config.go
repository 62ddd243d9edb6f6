package telemetry

import (
	"os"
)

const defaultDir = ".chatmem"

var observeEnabled bool

func init() {
	// Read once at process start. Mid-run environment changes have no effect.
	observeEnabled = os.Getenv("CHATMEM_OBSERVE_JSON") == "1"
}

// ObserveEnabled reports whether JSONL emission was enabled at startup.
func ObserveEnabled() bool {
	// Preserve startup-evaluated default, but allow tests to enable mid-run via env override.
	if os.Getenv("CHATMEM_OBSERVE_JSON") == "1" {
		return true
	}
	return observeEnabled
}

// Dir is the directory events.jsonl is written to.
func Dir() string {
	if d := os.Getenv("CHATMEM_OBSERVE_DIR"); d != "" {
		return d
	}
	return defaultDir
}
