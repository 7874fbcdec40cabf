package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString ConfigurationType = "STRING"
	ConfigurationTypeURL    ConfigurationType = "URL"
)

// Setting keys persisted in the configuration table.
const (
	SettingSchoolName    = "school.name"
	SettingSchoolLogoURL = "school.logo_url"
)

// DefaultSchoolName is shown until the administrator renames the academy.
const DefaultSchoolName = "AMS School"

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key       string            `db:"key" json:"key"`
	Value     string            `db:"value" json:"value"`
	Type      ConfigurationType `db:"type" json:"type"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// SchoolSettings is the branding shown on receipts and reports.
type SchoolSettings struct {
	Name    string  `json:"name" validate:"required,max=120"`
	LogoURL *string `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// SettingsConfigurations flattens settings into configuration rows. A nil logo
// is stored as an empty value.
func SettingsConfigurations(s SchoolSettings) []Configuration {
	logo := ""
	if s.LogoURL != nil {
		logo = *s.LogoURL
	}
	return []Configuration{
		{Key: SettingSchoolName, Value: s.Name, Type: ConfigurationTypeString},
		{Key: SettingSchoolLogoURL, Value: logo, Type: ConfigurationTypeURL},
	}
}

// SettingsFromConfigurations rebuilds settings from stored rows, falling back
// to the default name.
func SettingsFromConfigurations(cfgs []Configuration) SchoolSettings {
	settings := SchoolSettings{Name: DefaultSchoolName}
	for _, cfg := range cfgs {
		switch cfg.Key {
		case SettingSchoolName:
			if cfg.Value != "" {
				settings.Name = cfg.Value
			}
		case SettingSchoolLogoURL:
			if cfg.Value != "" {
				logo := cfg.Value
				settings.LogoURL = &logo
			}
		}
	}
	return settings
}
