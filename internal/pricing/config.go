// Package pricing resolves student tariffs and teacher rate keys for a class
// configuration. Every function here is pure: tables are values and each
// mutation returns a new table.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the top-level class modality.
type Category string

const (
	CategoryMonthlyCombo Category = "COMBO"
	CategorySingleClass  Category = "SUELTA"
	CategoryEnsemble     Category = "ENSAMBLE"
	CategoryPractice     Category = "PRACTICA"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMonthlyCombo, CategorySingleClass, CategoryEnsemble, CategoryPractice}

var categoryLabels = map[Category]string{
	CategoryMonthlyCombo: "Combo (Mes)",
	CategorySingleClass:  "Clase Suelta",
	CategoryEnsemble:     "Ensamble",
	CategoryPractice:     "Práctica",
}

// Label returns the human readable name used on receipts and reports.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ClassType distinguishes individual lessons from duo lessons.
type ClassType string

const (
	TypeIndividual ClassType = "INDIVIDUAL"
	TypeDuo        ClassType = "DUPLA"
)

// ClassTypes lists every class type.
var ClassTypes = []ClassType{TypeIndividual, TypeDuo}

// Valid reports whether t is a known class type.
func (t ClassType) Valid() bool {
	return t == TypeIndividual || t == TypeDuo
}

// Duration is the length of one class.
type Duration string

const (
	Duration30 Duration = "30 min"
	Duration45 Duration = "45 min"
	Duration60 Duration = "60 min"
)

// Durations lists every duration.
var Durations = []Duration{Duration30, Duration45, Duration60}

// Valid reports whether d is a known duration.
func (d Duration) Valid() bool {
	return d == Duration30 || d == Duration45 || d == Duration60
}

// EnsembleVariant selects one of the fixed ensemble prices.
type EnsembleVariant string

const (
	VariantAdditional         EnsembleVariant = "ADICIONAL"
	VariantSoleActivity       EnsembleVariant = "UNICA"
	VariantAdditionalSingle   EnsembleVariant = "ADICIONAL_SUELTA"
	VariantSoleActivitySingle EnsembleVariant = "UNICA_SUELTA"
)

// EnsembleVariants lists every ensemble variant.
var EnsembleVariants = []EnsembleVariant{VariantAdditional, VariantSoleActivity, VariantAdditionalSingle, VariantSoleActivitySingle}

var variantLabels = map[EnsembleVariant]string{
	VariantAdditional:         "Adicional",
	VariantSoleActivity:       "Única Actividad",
	VariantAdditionalSingle:   "Adicional Suelta",
	VariantSoleActivitySingle: "Única Act. Suelta",
}

// Label returns the human readable name of the variant.
func (v EnsembleVariant) Label() string {
	if label, ok := variantLabels[v]; ok {
		return label
	}
	return string(v)
}

// Valid reports whether v is a known ensemble variant.
func (v EnsembleVariant) Valid() bool {
	_, ok := variantLabels[v]
	return ok
}

// ErrInvalidConfiguration is returned when a configuration does not populate
// exactly the fields its category needs.
var ErrInvalidConfiguration = errors.New("pricing: invalid class configuration")

// ClassConfiguration describes what is being priced or paid. Optional fields
// are nil when they do not apply to the category.
type ClassConfiguration struct {
	Category        Category         `json:"category"`
	Type            *ClassType       `json:"type,omitempty"`
	Duration        *Duration        `json:"duration,omitempty"`
	EnsembleVariant *EnsembleVariant `json:"ensemble_variant,omitempty"`
	EarlyPay        bool             `json:"early_pay,omitempty"`
}

// Combo builds a monthly combo configuration.
func Combo(t ClassType, d Duration, earlyPay bool) ClassConfiguration {
	return ClassConfiguration{Category: CategoryMonthlyCombo, Type: &t, Duration: &d, EarlyPay: earlyPay}
}

// Single builds a single-class configuration.
func Single(t ClassType, d Duration) ClassConfiguration {
	return ClassConfiguration{Category: CategorySingleClass, Type: &t, Duration: &d}
}

// Ensemble builds an ensemble configuration.
func Ensemble(v EnsembleVariant, earlyPay bool) ClassConfiguration {
	return ClassConfiguration{Category: CategoryEnsemble, EnsembleVariant: &v, EarlyPay: earlyPay}
}

// Practice builds a practice-room configuration.
func Practice(d Duration) ClassConfiguration {
	return ClassConfiguration{Category: CategoryPractice, Duration: &d}
}

// Validate enforces that exactly the fields relevant to the category are set.
func (c ClassConfiguration) Validate() error {
	switch c.Category {
	case CategoryMonthlyCombo, CategorySingleClass:
		if c.Type == nil || !c.Type.Valid() {
			return fmt.Errorf("%w: %s requires a class type", ErrInvalidConfiguration, c.Category)
		}
		if c.Duration == nil || !c.Duration.Valid() {
			return fmt.Errorf("%w: %s requires a duration", ErrInvalidConfiguration, c.Category)
		}
		if c.EnsembleVariant != nil {
			return fmt.Errorf("%w: %s does not take an ensemble variant", ErrInvalidConfiguration, c.Category)
		}
	case CategoryEnsemble:
		if c.EnsembleVariant == nil || !c.EnsembleVariant.Valid() {
			return fmt.Errorf("%w: ensemble requires a variant", ErrInvalidConfiguration)
		}
		if c.Type != nil || c.Duration != nil {
			return fmt.Errorf("%w: ensemble does not take type or duration", ErrInvalidConfiguration)
		}
	case CategoryPractice:
		if c.Duration == nil || !c.Duration.Valid() {
			return fmt.Errorf("%w: practice requires a duration", ErrInvalidConfiguration)
		}
		if c.Type != nil || c.EnsembleVariant != nil {
			return fmt.Errorf("%w: practice only takes a duration", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidConfiguration, c.Category)
	}
	return nil
}

// Normalize drops fields that do not apply to the category so callers can
// build a configuration from a flat form without leaking stale values.
func (c ClassConfiguration) Normalize() ClassConfiguration {
	out := ClassConfiguration{Category: c.Category, EarlyPay: c.EarlyPay}
	switch c.Category {
	case CategoryMonthlyCombo, CategorySingleClass:
		out.Type = c.Type
		out.Duration = c.Duration
	case CategoryEnsemble:
		out.EnsembleVariant = c.EnsembleVariant
	case CategoryPractice:
		out.Duration = c.Duration
	}
	return out
}

// ParseCategory accepts a wire code or a display label, case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	value := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(value, string(c)) || strings.EqualFold(value, c.Label()) {
			return c, true
		}
	}
	switch strings.ToLower(value) {
	case "combo", "monthlycombo":
		return CategoryMonthlyCombo, true
	case "singleclass", "single":
		return CategorySingleClass, true
	case "practica", "practice":
		return CategoryPractice, true
	}
	return "", false
}

// ParseClassType accepts INDIVIDUAL/DUPLA in any case, plus "duo".
func ParseClassType(raw string) (ClassType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(TypeIndividual):
		return TypeIndividual, true
	case string(TypeDuo), "DUO":
		return TypeDuo, true
	}
	return "", false
}

// ParseDuration accepts "45 min", "45min" or "45".
func ParseDuration(raw string) (Duration, bool) {
	value := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	value = strings.TrimSuffix(value, "min")
	for _, d := range Durations {
		if strings.TrimSuffix(strings.ReplaceAll(string(d), " ", ""), "min") == value {
			return d, true
		}
	}
	return "", false
}

// ParseEnsembleVariant accepts a wire code or a display label.
func ParseEnsembleVariant(raw string) (EnsembleVariant, bool) {
	value := strings.TrimSpace(raw)
	for _, v := range EnsembleVariants {
		if strings.EqualFold(value, string(v)) || strings.EqualFold(value, v.Label()) {
			return v, true
		}
	}
	return "", false
}
