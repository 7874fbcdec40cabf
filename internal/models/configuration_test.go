package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsConfigurationsRoundTrip(t *testing.T) {
	logo := "https://cdn.example.com/logo.png"
	cfgs := SettingsConfigurations(SchoolSettings{Name: "Escuela Sur", LogoURL: &logo})
	require.Len(t, cfgs, 2)

	settings := SettingsFromConfigurations(cfgs)
	assert.Equal(t, "Escuela Sur", settings.Name)
	require.NotNil(t, settings.LogoURL)
	assert.Equal(t, logo, *settings.LogoURL)
}

func TestSettingsFromConfigurationsDefaults(t *testing.T) {
	settings := SettingsFromConfigurations(nil)
	assert.Equal(t, DefaultSchoolName, settings.Name)
	assert.Nil(t, settings.LogoURL)

	cleared := SettingsFromConfigurations(SettingsConfigurations(SchoolSettings{Name: "X"}))
	assert.Nil(t, cleared.LogoURL)
}
