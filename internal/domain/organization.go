package domain

import "time"

// Settings is the free-form per-organization configuration map.
type Settings map[string]any

// Setting keys the core reads.
const (
	SettingAutoEscalateNegativeSentiment = "auto_escalate_negative_sentiment"
	SettingAutoEscalateThreshold         = "auto_escalate_threshold"
	SettingRetentionDays                 = "retention_days"
	SettingDefaultSLAPolicyID            = "default_sla_policy_id"
)

// Organization is the tenant root; every tenant-scoped entity carries its
// id and no entity is visible across organizations.
type Organization struct {
	ID            string
	Slug          string
	Name          string
	Settings      Settings
	Holidays      []time.Time
	CIDRAllowlist []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BoolSetting reads a boolean setting with a fallback. JSON decoding
// hands settings back as any, so both bool and string forms are accepted.
func (s Settings) BoolSetting(key string, fallback bool) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return fallback
	}
}

// FloatSetting reads a numeric setting with a fallback.
func (s Settings) FloatSetting(key string, fallback float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// StringSetting reads a string setting with a fallback.
func (s Settings) StringSetting(key string, fallback string) string {
	if v, ok := s[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// IntSetting reads an integer setting with a fallback.
func (s Settings) IntSetting(key string, fallback int) int {
	switch v := s[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
