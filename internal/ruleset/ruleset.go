package ruleset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"

	"empires-server/internal/empire"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rulesets.yaml
var defaultDocument []byte

//go:embed schema.json
var schemaSource string

var StanceNames = []string{"aggressive", "balanced", "defensive"}

var ConnectionTypes = []string{"adjacent", "hazardous", "contested"}

var RegionTypes = []string{"core", "inner", "outer", "rim"}

// Default parses the embedded ruleset document.
func Default() (*Document, error) {
	return Parse(defaultDocument)
}

// Load reads a ruleset document from path.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	return Parse(raw)
}

// Parse validates raw against the document schema and decodes it.
func Parse(raw []byte) (*Document, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("ruleset yaml: %w", err)
	}

	for _, name := range []string{VariantUnified, VariantLegacy} {
		if _, err := doc.Variant(name); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func validateSchema(raw []byte) error {
	schema, err := jsonschema.CompileString("ruleset.schema.json", schemaSource)
	if err != nil {
		return fmt.Errorf("compile ruleset schema: %w", err)
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("ruleset yaml: %w", err)
	}
	// round-trip through JSON so the validator sees JSON value types
	data, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("ruleset yaml: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("ruleset yaml: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("ruleset schema: %w", err)
	}
	return nil
}

// Variant returns the frozen ruleset for the named variant. An empty name
// selects the document default.
func (d *Document) Variant(name string) (*Ruleset, error) {
	if name == "" {
		name = d.DefaultVariant
	}
	combat, ok := d.Variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown ruleset variant %q", name)
	}
	rs := &Ruleset{Variant: name, Combat: combat, Shared: d.Shared}
	if err := rs.validate(); err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", name, err)
	}
	return rs, nil
}

// MustDefault returns the default variant of the embedded document and
// panics if it is invalid.
func MustDefault(variant string) *Ruleset {
	doc, err := Default()
	if err != nil {
		panic(err)
	}
	rs, err := doc.Variant(variant)
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs *Ruleset) validate() error {
	c := rs.Combat
	switch rs.Variant {
	case VariantUnified:
		if c.Diversity.Enabled {
			return fmt.Errorf("diversity bonus is a legacy-only rule")
		}
	case VariantLegacy:
		if c.Underdog.Enabled {
			return fmt.Errorf("underdog bonus is a unified-only rule")
		}
	}
	for _, u := range empire.UnitTypes {
		if _, ok := c.UnitPower[u]; !ok {
			return fmt.Errorf("unit_power missing %s", u)
		}
		if _, ok := rs.Build.Units[u]; !ok {
			return fmt.Errorf("build cost missing %s", u)
		}
	}
	if c.Territory.MinPct > c.Territory.MaxPct {
		return fmt.Errorf("territory min_pct %v exceeds max_pct %v", c.Territory.MinPct, c.Territory.MaxPct)
	}
	cas := c.Casualties
	if cas.MinRate > cas.MaxRate {
		return fmt.Errorf("casualty min_rate %v exceeds max_rate %v", cas.MinRate, cas.MaxRate)
	}
	if cas.OverwhelmingThreshold <= 1 {
		return fmt.Errorf("overwhelming_threshold must exceed 1")
	}
	if cas.BadAttackThreshold <= 0 || cas.BadAttackThreshold >= cas.OverwhelmingThreshold {
		return fmt.Errorf("bad_attack_threshold must lie between 0 and overwhelming_threshold")
	}
	if cas.VarianceMin > cas.VarianceMax {
		return fmt.Errorf("variance_min exceeds variance_max")
	}
	if _, ok := c.Stances["balanced"]; !ok {
		return fmt.Errorf("stances must define balanced")
	}
	for name := range c.Stances {
		if !slices.Contains(StanceNames, name) {
			return fmt.Errorf("unknown stance %q", name)
		}
	}

	g := rs.Galaxy
	if g.MinRegions < 2 || g.MaxRegions < g.MinRegions {
		return fmt.Errorf("galaxy region bounds invalid: min %d max %d", g.MinRegions, g.MaxRegions)
	}
	if g.EmpiresPerRegion <= 0 || g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("galaxy dimensions must be positive")
	}
	if g.Shares.Core+g.Shares.Inner+g.Shares.Outer > 1 {
		return fmt.Errorf("galaxy region shares exceed 1")
	}
	for _, t := range RegionTypes {
		if g.Capacity[t] < 1 {
			return fmt.Errorf("galaxy capacity for %s must be positive", t)
		}
	}
	if len(g.Prefixes) == 0 || len(g.Suffixes) == 0 {
		return fmt.Errorf("galaxy name lists must not be empty")
	}

	if rs.Research.BaseCost <= 0 {
		return fmt.Errorf("research base_cost must be positive")
	}
	if rs.Build.MaxSlots < 1 {
		return fmt.Errorf("build max_slots must be positive")
	}
	if rs.Market.MinPrice <= 0 || rs.Market.MaxPrice < rs.Market.MinPrice {
		return fmt.Errorf("market price bounds invalid")
	}
	for _, name := range []string{"warlord", "diplomat", "merchant", "schemer", "turtle", "blitzkrieg", "tech_rush", "opportunist"} {
		if _, ok := rs.Bots.Archetypes[name]; !ok {
			return fmt.Errorf("archetype %s missing", name)
		}
	}
	if len(rs.Start.Sectors) == 0 {
		return fmt.Errorf("start sectors must not be empty")
	}
	if len(rs.Start.NamePrefixes) == 0 || len(rs.Start.NameSuffixes) == 0 {
		return fmt.Errorf("start name lists must not be empty")
	}
	return nil
}

// Archetypes returns the archetype names in sorted order.
func (rs *Ruleset) Archetypes() []string {
	names := make([]string, 0, len(rs.Bots.Archetypes))
	for name := range rs.Bots.Archetypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stance resolves a stance name, falling back to balanced.
func (rs *Ruleset) Stance(name string) (string, Stance) {
	if s, ok := rs.Combat.Stances[name]; ok {
		return name, s
	}
	return "balanced", rs.Combat.Stances["balanced"]
}

// IncomeMultiplier returns the civil-status scaling applied to credit income.
func (rs *Ruleset) IncomeMultiplier(c empire.CivilStatus) float64 {
	if m, ok := rs.Civil.IncomeMultiplier[c.String()]; ok {
		return m
	}
	return 1
}

// LevelCost is the research points needed to advance from level. It
// saturates at math.MaxInt64 once the doubling would overflow.
func (rs *Ruleset) LevelCost(level int) int64 {
	base := rs.Research.BaseCost
	level = max(level, 0)
	if level >= 63 || base > math.MaxInt64>>uint(level) {
		return math.MaxInt64
	}
	return base << uint(level)
}
