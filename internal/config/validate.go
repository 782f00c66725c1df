package config

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// ValidationIssue is a single problem found in the config file.
type ValidationIssue struct {
	Field   string // section, e.g. "trigger"
	Key     string
	Message string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Field, i.Key, i.Message)
}

// ValidationResult collects errors (the config cannot be used) and warnings
// (a value was clamped or dropped and the config is still usable).
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

func (r *ValidationResult) HasErrors() bool   { return len(r.Errors) > 0 }
func (r *ValidationResult) HasWarnings() bool { return len(r.Warnings) > 0 }

// Error joins every error issue so a result can be wrapped with %w.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.String()
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) errorf(field, key, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationIssue{Field: field, Key: key, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(field, key, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationIssue{Field: field, Key: key, Message: fmt.Sprintf(format, args...)})
}

var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+([a-zA-Z]{2,})$`)

// ValidDomain reports whether s is a bare hostname such as example.co.uk.
func ValidDomain(s string) bool {
	return domainPattern.MatchString(s)
}

// ValidateConfig checks cfg in place. Enumerations with unknown values are
// errors. Numeric values out of range are clamped and reported as warnings.
func ValidateConfig(cfg *UserConfig) *ValidationResult {
	r := &ValidationResult{}

	// Trigger
	if !isOneOf(TriggerMode(cfg.Trigger.Mode), TriggerModes...) {
		r.errorf("trigger", "mode", "unknown mode %q", cfg.Trigger.Mode)
	}
	cfg.Trigger.Modifier = strings.ToLower(cfg.Trigger.Modifier)
	if !isOneOf(Modifier(cfg.Trigger.Modifier), ModAlt, ModCtrl, ModShift) {
		r.errorf("trigger", "modifier", "unknown modifier %q (use alt, ctrl or shift)", cfg.Trigger.Modifier)
	}
	cfg.Trigger.HoverDelay = clampSeconds(r, "hover_delay", cfg.Trigger.HoverDelay,
		MinHoverDelay.Seconds(), MaxHoverDelay.Seconds())
	cfg.Trigger.LongPressDelay = clampSeconds(r, "long_press_delay", cfg.Trigger.LongPressDelay,
		MinLongPressDelay.Seconds(), MaxLongPressDelay.Seconds())
	cfg.Trigger.EmbedRefusedDomains = normalizeDomains(r, "trigger", "embed_refused_domains",
		cfg.Trigger.EmbedRefusedDomains, -1)

	// Window
	if !isOneOf(SizeClass(cfg.Window.Size), SizeLast, SizeSmall, SizeMedium, SizeLarge) {
		r.errorf("window", "size", "unknown size %q", cfg.Window.Size)
	}
	if !geometry.Placement(cfg.Window.Position).Valid() {
		r.errorf("window", "position", "unknown position %q", cfg.Window.Position)
	}
	if cfg.Window.MaxWindows < MinMaxWindows || cfg.Window.MaxWindows > MaxMaxWindows {
		clamped := min(max(cfg.Window.MaxWindows, MinMaxWindows), MaxMaxWindows)
		r.warnf("window", "max_windows", "%d is outside %d-%d, using %d",
			cfg.Window.MaxWindows, MinMaxWindows, MaxMaxWindows, clamped)
		cfg.Window.MaxWindows = clamped
	}

	// Appearance
	if !isOneOf(ThemeMode(cfg.Appearance.Theme), ThemeSystem, ThemeLight, ThemeDark) {
		r.errorf("appearance", "theme", "unknown theme %q (use system, light or dark)", cfg.Appearance.Theme)
	}
	if op := cfg.Appearance.BackgroundOpacity; op != nil && (*op < 0 || *op > 100) {
		clamped := min(max(*op, 0), 100)
		r.warnf("appearance", "background_opacity", "%d is outside 0-100, using %d", *op, clamped)
		cfg.Appearance.BackgroundOpacity = &clamped
	}

	// Search
	if !isOneOf(SearchEngine(cfg.Search.Engine), EngineBing, EngineGoogle, EngineBaidu, EngineDuckDuckGo) {
		r.errorf("search", "engine", "unknown search engine %q", cfg.Search.Engine)
	}

	// Sites
	cfg.Sites.Disabled = normalizeDomains(r, "sites", "disabled", cfg.Sites.Disabled, MaxDisabledSites)

	if cfg.Logging.Level != "" && !isOneOf(strings.ToLower(cfg.Logging.Level), "debug", "info", "warn", "warning", "error") {
		r.warnf("logging", "level", "unknown level %q, using info", cfg.Logging.Level)
		cfg.Logging.Level = "info"
	}

	return r
}

func clampSeconds(r *ValidationResult, key string, v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		r.warnf("trigger", key, "not a number, using %.1fs", lo)
		return lo
	}
	if v < lo || v > hi {
		clamped := geometry.Clamp(v, lo, hi)
		r.warnf("trigger", key, "%.2fs is outside %.1f-%.1fs, using %.2fs", v, lo, hi, clamped)
		return clamped
	}
	return v
}

// normalizeDomains lowercases and trims entries, drops blanks, invalid hosts
// and duplicates with a warning, and truncates to limit when limit >= 0.
func normalizeDomains(r *ValidationResult, field, key string, in []string, limit int) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		if !ValidDomain(d) {
			r.warnf(field, key, "%q is not a valid domain, ignored", d)
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if limit >= 0 && len(out) > limit {
		r.warnf(field, key, "only the first %d domains are used", limit)
		out = out[:limit]
	}
	return out
}

func isOneOf[T comparable](v T, options ...T) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
