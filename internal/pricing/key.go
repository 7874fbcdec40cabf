package pricing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Key is the composite identifier of one rate cell, e.g. "SUELTA_INDIVIDUAL_30 min",
// "ENSAMBLE_UNICA" or "PRACTICA_45 min".
type Key string

// ConfigKey builds the composite key for a configuration. It is the single key
// builder used for both tariffs and teacher rates. The boolean is false when
// the fields required by the category are missing.
func ConfigKey(c ClassConfiguration) (Key, bool) {
	switch c.Category {
	case CategoryMonthlyCombo, CategorySingleClass:
		if c.Type == nil || c.Duration == nil || !c.Type.Valid() || !c.Duration.Valid() {
			return "", false
		}
		return Key(fmt.Sprintf("%s_%s_%s", c.Category, *c.Type, *c.Duration)), true
	case CategoryEnsemble:
		if c.EnsembleVariant == nil || !c.EnsembleVariant.Valid() {
			return "", false
		}
		return Key(fmt.Sprintf("%s_%s", c.Category, *c.EnsembleVariant)), true
	case CategoryPractice:
		if c.Duration == nil || !c.Duration.Valid() {
			return "", false
		}
		return Key(fmt.Sprintf("%s_%s", c.Category, *c.Duration)), true
	}
	return "", false
}

// AllConfigurations enumerates every valid configuration without early pay,
// in category order.
func AllConfigurations() []ClassConfiguration {
	configs := make([]ClassConfiguration, 0, 2*len(ClassTypes)*len(Durations)+len(EnsembleVariants)+len(Durations))
	for _, category := range []Category{CategoryMonthlyCombo, CategorySingleClass} {
		for _, t := range ClassTypes {
			for _, d := range Durations {
				if category == CategoryMonthlyCombo {
					configs = append(configs, Combo(t, d, false))
				} else {
					configs = append(configs, Single(t, d))
				}
			}
		}
	}
	for _, v := range EnsembleVariants {
		configs = append(configs, Ensemble(v, false))
	}
	for _, d := range Durations {
		configs = append(configs, Practice(d))
	}
	return configs
}

// AllKeys lists the full rate key space in category order.
func AllKeys() []Key {
	configs := AllConfigurations()
	keys := make([]Key, 0, len(configs))
	for _, c := range configs {
		key, _ := ConfigKey(c)
		keys = append(keys, key)
	}
	return keys
}

var keyIndex = func() map[Key]ClassConfiguration {
	index := make(map[Key]ClassConfiguration)
	for _, c := range AllConfigurations() {
		key, _ := ConfigKey(c)
		index[key] = c
	}
	return index
}()

// ParseKey returns the configuration a key was built from.
func ParseKey(key Key) (ClassConfiguration, error) {
	c, ok := keyIndex[key]
	if !ok {
		return ClassConfiguration{}, fmt.Errorf("%w: unknown rate key %q", ErrInvalidConfiguration, key)
	}
	return c, nil
}

// RateTable maps a composite key to the amount a teacher is paid per class.
// A missing key means no rate has been configured.
type RateTable map[Key]int64

// Lookup returns the rate for key and whether it is configured.
func (r RateTable) Lookup(key Key) (int64, bool) {
	if r == nil {
		return 0, false
	}
	amount, ok := r[key]
	return amount, ok
}

// Clone returns an independent copy.
func (r RateTable) Clone() RateTable {
	if r == nil {
		return RateTable{}
	}
	out := make(RateTable, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Validate rejects unknown keys and negative amounts.
func (r RateTable) Validate() error {
	for key, amount := range r {
		if _, err := ParseKey(key); err != nil {
			return err
		}
		if amount < 0 {
			return fmt.Errorf("%w: negative rate for %q", ErrInvalidConfiguration, key)
		}
	}
	return nil
}

// Keys returns the configured keys sorted alphabetically.
func (r RateTable) Keys() []Key {
	keys := make([]Key, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Value marshals the table to JSON for persistence.
func (r RateTable) Value() (driver.Value, error) {
	if r == nil {
		r = RateTable{}
	}
	data, err := json.Marshal(map[Key]int64(r))
	if err != nil {
		return nil, fmt.Errorf("marshal rate table: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the table.
func (r *RateTable) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan rate table: %w", err)
	}
	table := RateTable{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("unmarshal rate table: %w", err)
		}
	}
	*r = table
	return nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
