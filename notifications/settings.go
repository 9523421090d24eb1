package notifications

const (
	DefaultSoundVolume       = 0.5
	DefaultPollingIntervalMs = 30000
	MinPollingIntervalMs     = 1000
)

type Settings struct {
	SoundEnabled      bool            `json:"soundEnabled"`
	SoundVolume       float64         `json:"soundVolume"`
	DesktopEnabled    bool            `json:"desktopEnabled"`
	ToastEnabled      bool            `json:"toastEnabled"`
	PollingIntervalMs int             `json:"pollingIntervalMs"`
	Types             map[string]bool `json:"types"`
}

func DefaultSettings() Settings {
	types := make(map[string]bool, len(AllTypes))
	for _, t := range AllTypes {
		types[t.SettingsKey()] = true
	}
	return Settings{
		SoundEnabled:      true,
		SoundVolume:       DefaultSoundVolume,
		DesktopEnabled:    true,
		ToastEnabled:      true,
		PollingIntervalMs: DefaultPollingIntervalMs,
		Types:             types,
	}
}

// TypeEnabled reports whether notifications of type t are accepted.
// Types missing from the map are enabled.
func (s Settings) TypeEnabled(t Type) bool {
	enabled, ok := s.Types[t.SettingsKey()]
	return !ok || enabled
}

// SettingsPatch is a partial update: nil fields are left alone.
// Types replaces the whole map when set.
type SettingsPatch struct {
	SoundEnabled      *bool           `json:"soundEnabled,omitempty"`
	SoundVolume       *float64        `json:"soundVolume,omitempty"`
	DesktopEnabled    *bool           `json:"desktopEnabled,omitempty"`
	ToastEnabled      *bool           `json:"toastEnabled,omitempty"`
	PollingIntervalMs *int            `json:"pollingIntervalMs,omitempty"`
	Types             map[string]bool `json:"types,omitempty"`
}

// Merge applies the patch onto s and reports whether anything differs.
func (p SettingsPatch) Merge(s Settings) (Settings, bool) {
	out := s
	if p.SoundEnabled != nil {
		out.SoundEnabled = *p.SoundEnabled
	}
	if p.SoundVolume != nil {
		out.SoundVolume = clampVolume(*p.SoundVolume)
	}
	if p.DesktopEnabled != nil {
		out.DesktopEnabled = *p.DesktopEnabled
	}
	if p.ToastEnabled != nil {
		out.ToastEnabled = *p.ToastEnabled
	}
	if p.PollingIntervalMs != nil {
		out.PollingIntervalMs = *p.PollingIntervalMs
		if out.PollingIntervalMs < MinPollingIntervalMs {
			out.PollingIntervalMs = MinPollingIntervalMs
		}
	}
	if p.Types != nil {
		out.Types = make(map[string]bool, len(p.Types))
		for k, v := range p.Types {
			out.Types[k] = v
		}
	}
	return out, !out.equal(s)
}

// Normalize brings stored values back into range.
func (s Settings) Normalize() Settings {
	s.SoundVolume = clampVolume(s.SoundVolume)
	if s.PollingIntervalMs < MinPollingIntervalMs {
		s.PollingIntervalMs = MinPollingIntervalMs
	}
	if s.Types == nil {
		s.Types = DefaultSettings().Types
	}
	return s
}

func (s Settings) equal(o Settings) bool {
	if s.SoundEnabled != o.SoundEnabled || s.SoundVolume != o.SoundVolume ||
		s.DesktopEnabled != o.DesktopEnabled || s.ToastEnabled != o.ToastEnabled ||
		s.PollingIntervalMs != o.PollingIntervalMs || len(s.Types) != len(o.Types) {
		return false
	}
	for k, v := range s.Types {
		if ov, ok := o.Types[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
