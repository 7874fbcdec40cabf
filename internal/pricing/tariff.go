package pricing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Household selects the registration fee.
type Household string

const (
	HouseholdIndividual Household = "INDIVIDUAL"
	HouseholdFamily     Household = "FAMILIAR"
)

// Valid reports whether h is a known household type.
func (h Household) Valid() bool {
	return h == HouseholdIndividual || h == HouseholdFamily
}

// EnsembleCell names one of the fixed ensemble prices, including the
// pre-computed early-pay siblings.
type EnsembleCell string

const (
	EnsembleAdditional          EnsembleCell = "ADICIONAL"
	EnsembleAdditionalEarly     EnsembleCell = "ADICIONAL_EP"
	EnsembleSoleActivity        EnsembleCell = "UNICA"
	EnsembleSoleActivityEarly   EnsembleCell = "UNICA_EP"
	EnsembleAdditionalSingle    EnsembleCell = "ADICIONAL_SUELTA"
	EnsembleSoleActivitySingle  EnsembleCell = "UNICA_SUELTA"
	sectionRegistration         = "INSCRIPCION"
	sectionCombos               = "COMBOS"
	sectionSingles              = "SUELTAS"
	sectionEnsembles            = "ENSAMBLES"
	sectionPractice             = "PRACTICA"
	pathSeparator               = "."
)

var ensembleCells = []EnsembleCell{
	EnsembleAdditional, EnsembleAdditionalEarly,
	EnsembleSoleActivity, EnsembleSoleActivityEarly,
	EnsembleAdditionalSingle, EnsembleSoleActivitySingle,
}

func (e EnsembleCell) valid() bool {
	for _, cell := range ensembleCells {
		if cell == e {
			return true
		}
	}
	return false
}

// EarlyPayDiscountFactor multiplies a monthly combo price when paid early.
var EarlyPayDiscountFactor = decimal.RequireFromString("0.9")

var (
	// ErrMissingTariff means the table has no price for a structurally valid configuration.
	ErrMissingTariff = errors.New("pricing: tariff not configured")
	// ErrUnknownCell is returned for a cell path outside the table schema.
	ErrUnknownCell = errors.New("pricing: unknown tariff cell")
	// ErrNegativePrice is returned when a manual edit sets a price below zero.
	ErrNegativePrice = errors.New("pricing: price must not be negative")
)

// DurationPrices maps a duration to a price.
type DurationPrices map[Duration]int64

// TariffTable holds every student-facing price in whole pesos.
type TariffTable struct {
	Registration map[Household]int64          `json:"INSCRIPCION"`
	Combos       map[ClassType]DurationPrices `json:"COMBOS"`
	Singles      map[ClassType]DurationPrices `json:"SUELTAS"`
	Ensembles    map[EnsembleCell]int64       `json:"ENSAMBLES"`
	Practice     DurationPrices               `json:"PRACTICA"`
}

// DefaultTariffTable returns the seed table.
func DefaultTariffTable() TariffTable {
	return TariffTable{
		Registration: map[Household]int64{
			HouseholdIndividual: 55000,
			HouseholdFamily:     70900,
		},
		Combos: map[ClassType]DurationPrices{
			TypeIndividual: {Duration30: 104750, Duration45: 130660, Duration60: 162400},
			TypeDuo:        {Duration30: 87175, Duration45: 103100, Duration60: 129400},
		},
		Singles: map[ClassType]DurationPrices{
			TypeIndividual: {Duration30: 29500, Duration45: 36100, Duration60: 44500},
			TypeDuo:        {Duration30: 23900, Duration45: 29300, Duration60: 35700},
		},
		Ensembles: map[EnsembleCell]int64{
			EnsembleAdditional:         77800,
			EnsembleAdditionalEarly:    71100,
			EnsembleSoleActivity:       102690,
			EnsembleSoleActivityEarly:  93650,
			EnsembleAdditionalSingle:   22600,
			EnsembleSoleActivitySingle: 28800,
		},
		Practice: DurationPrices{Duration30: 20000, Duration45: 25000, Duration60: 30000},
	}
}

// PriceFor returns the price to charge for cfg, rounded to whole pesos.
// Early pay only discounts monthly combos (by factor) and the two non-single
// ensemble variants (by their own pre-computed price).
func PriceFor(cfg ClassConfiguration, table TariffTable) (int64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	switch cfg.Category {
	case CategoryMonthlyCombo:
		base, ok := table.Combos[*cfg.Type][*cfg.Duration]
		if !ok {
			return 0, missingTariff(cfg)
		}
		if cfg.EarlyPay {
			return roundPesos(decimal.NewFromInt(base).Mul(EarlyPayDiscountFactor)), nil
		}
		return base, nil
	case CategorySingleClass:
		base, ok := table.Singles[*cfg.Type][*cfg.Duration]
		if !ok {
			return 0, missingTariff(cfg)
		}
		return base, nil
	case CategoryEnsemble:
		cell := ensembleCellFor(*cfg.EnsembleVariant, cfg.EarlyPay)
		price, ok := table.Ensembles[cell]
		if !ok {
			return 0, missingTariff(cfg)
		}
		return price, nil
	case CategoryPractice:
		price, ok := table.Practice[*cfg.Duration]
		if !ok {
			return 0, missingTariff(cfg)
		}
		return price, nil
	}
	return 0, missingTariff(cfg)
}

func ensembleCellFor(v EnsembleVariant, earlyPay bool) EnsembleCell {
	switch v {
	case VariantAdditional:
		if earlyPay {
			return EnsembleAdditionalEarly
		}
		return EnsembleAdditional
	case VariantSoleActivity:
		if earlyPay {
			return EnsembleSoleActivityEarly
		}
		return EnsembleSoleActivity
	case VariantAdditionalSingle:
		return EnsembleAdditionalSingle
	default:
		return EnsembleSoleActivitySingle
	}
}

func missingTariff(cfg ClassConfiguration) error {
	key, _ := ConfigKey(cfg)
	return fmt.Errorf("%w: %s", ErrMissingTariff, key)
}

// AddRegistrationFee adds the one-time registration fee for household when
// include is true. An empty household means INDIVIDUAL.
func AddRegistrationFee(price int64, include bool, fees map[Household]int64, household Household) int64 {
	if !include {
		return price
	}
	if household == "" {
		household = HouseholdIndividual
	}
	return price + fees[household]
}

// Leaf is one priced cell of the table.
type Leaf struct {
	Path  string `json:"path"`
	Price int64  `json:"price"`
}

// Leaves lists every cell in section order, sorted within each section.
func (t TariffTable) Leaves() []Leaf {
	leaves := make([]Leaf, 0, 32)
	for _, h := range sortedKeys(t.Registration) {
		leaves = append(leaves, Leaf{Path: joinPath(sectionRegistration, string(h)), Price: t.Registration[h]})
	}
	leaves = appendTypedLeaves(leaves, sectionCombos, t.Combos)
	leaves = appendTypedLeaves(leaves, sectionSingles, t.Singles)
	for _, cell := range sortedKeys(t.Ensembles) {
		leaves = append(leaves, Leaf{Path: joinPath(sectionEnsembles, string(cell)), Price: t.Ensembles[cell]})
	}
	for _, d := range sortedKeys(t.Practice) {
		leaves = append(leaves, Leaf{Path: joinPath(sectionPractice, string(d)), Price: t.Practice[d]})
	}
	return leaves
}

func appendTypedLeaves(leaves []Leaf, section string, prices map[ClassType]DurationPrices) []Leaf {
	for _, ct := range sortedKeys(prices) {
		row := prices[ct]
		for _, d := range sortedKeys(row) {
			leaves = append(leaves, Leaf{Path: joinPath(section, string(ct), string(d)), Price: row[d]})
		}
	}
	return leaves
}

// Clone returns a deep copy.
func (t TariffTable) Clone() TariffTable {
	return t.mapLeaves(func(p int64) int64 { return p })
}

// Equal reports whether both tables hold the same cells and prices.
func (t TariffTable) Equal(other TariffTable) bool {
	a, b := t.Leaves(), other.Leaves()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Validate checks that every cell belongs to the schema and is non-negative.
func (t TariffTable) Validate() error {
	for _, leaf := range t.Leaves() {
		if leaf.Price < 0 {
			return fmt.Errorf("%w: %s", ErrNegativePrice, leaf.Path)
		}
		if _, err := t.WithCell(leaf.Path, leaf.Price); err != nil {
			return err
		}
	}
	return nil
}

// WithCell returns a copy of the table with the cell at path set to price.
// Paths look like "COMBOS.INDIVIDUAL.45 min", "ENSAMBLES.UNICA_EP",
// "PRACTICA.30 min" or "INSCRIPCION.FAMILIAR".
func (t TariffTable) WithCell(path string, price int64) (TariffTable, error) {
	if price < 0 {
		return TariffTable{}, fmt.Errorf("%w: %s", ErrNegativePrice, path)
	}
	parts := strings.Split(path, pathSeparator)
	out := t.Clone()
	switch {
	case len(parts) == 2 && parts[0] == sectionRegistration:
		h := Household(parts[1])
		if !h.Valid() {
			return TariffTable{}, fmt.Errorf("%w: %s", ErrUnknownCell, path)
		}
		out.Registration[h] = price
	case len(parts) == 3 && (parts[0] == sectionCombos || parts[0] == sectionSingles):
		ct, d := ClassType(parts[1]), Duration(parts[2])
		if !ct.Valid() || !d.Valid() {
			return TariffTable{}, fmt.Errorf("%w: %s", ErrUnknownCell, path)
		}
		section := out.Combos
		if parts[0] == sectionSingles {
			section = out.Singles
		}
		if section[ct] == nil {
			section[ct] = DurationPrices{}
		}
		section[ct][d] = price
	case len(parts) == 2 && parts[0] == sectionEnsembles:
		cell := EnsembleCell(parts[1])
		if !cell.valid() {
			return TariffTable{}, fmt.Errorf("%w: %s", ErrUnknownCell, path)
		}
		out.Ensembles[cell] = price
	case len(parts) == 2 && parts[0] == sectionPractice:
		d := Duration(parts[1])
		if !d.Valid() {
			return TariffTable{}, fmt.Errorf("%w: %s", ErrUnknownCell, path)
		}
		out.Practice[d] = price
	default:
		return TariffTable{}, fmt.Errorf("%w: %s", ErrUnknownCell, path)
	}
	return out, nil
}

// mapLeaves builds a new table applying fn to every price. The result never
// shares maps with t.
func (t TariffTable) mapLeaves(fn func(int64) int64) TariffTable {
	out := TariffTable{
		Registration: make(map[Household]int64, len(t.Registration)),
		Combos:       mapTyped(t.Combos, fn),
		Singles:      mapTyped(t.Singles, fn),
		Ensembles:    make(map[EnsembleCell]int64, len(t.Ensembles)),
		Practice:     make(DurationPrices, len(t.Practice)),
	}
	for k, v := range t.Registration {
		out.Registration[k] = fn(v)
	}
	for k, v := range t.Ensembles {
		out.Ensembles[k] = fn(v)
	}
	for k, v := range t.Practice {
		out.Practice[k] = fn(v)
	}
	return out
}

func mapTyped(in map[ClassType]DurationPrices, fn func(int64) int64) map[ClassType]DurationPrices {
	out := make(map[ClassType]DurationPrices, len(in))
	for ct, row := range in {
		copied := make(DurationPrices, len(row))
		for d, v := range row {
			copied[d] = fn(v)
		}
		out[ct] = copied
	}
	return out
}

// Value marshals the table to JSON for persistence.
func (t TariffTable) Value() (driver.Value, error) {
	data, err := json.Marshal(t.Clone())
	if err != nil {
		return nil, fmt.Errorf("marshal tariff table: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the table.
func (t *TariffTable) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("scan tariff table: %w", err)
	}
	var table TariffTable
	if len(data) > 0 {
		if err := json.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("unmarshal tariff table: %w", err)
		}
	}
	*t = table.Clone()
	return nil
}

func joinPath(parts ...string) string {
	return strings.Join(parts, pathSeparator)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
