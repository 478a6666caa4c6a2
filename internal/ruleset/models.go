package ruleset

import "empires-server/internal/empire"

const (
	VariantUnified = "unified"
	VariantLegacy  = "legacy"
)

// Document is the on-disk ruleset: two combat variants plus the shared
// sections every game uses.
type Document struct {
	Version        int               `yaml:"version"`
	DefaultVariant string            `yaml:"default_variant"`
	Variants       map[string]Combat `yaml:"variants"`
	Shared         Shared            `yaml:"shared"`
}

type Shared struct {
	Economy    Economy    `yaml:"economy"`
	Population Population `yaml:"population"`
	Civil      Civil      `yaml:"civil"`
	Research   Research   `yaml:"research"`
	Build      Build      `yaml:"build"`
	Crafting   Crafting   `yaml:"crafting"`
	Covert     Covert     `yaml:"covert"`
	Market     Market     `yaml:"market"`
	Events     Events     `yaml:"events"`
	Diplomacy  Diplomacy  `yaml:"diplomacy"`
	Bots       Bots       `yaml:"bots"`
	Victory    Victory    `yaml:"victory"`
	Galaxy     Galaxy     `yaml:"galaxy"`
	Start      Start      `yaml:"start"`
	History    History    `yaml:"history"`
	Networth   Networth   `yaml:"networth"`
	Turn       Turn       `yaml:"turn"`
}

// Ruleset is the frozen configuration for one game. It is built once by
// Document.Variant and must be treated as read-only afterwards.
type Ruleset struct {
	Variant string
	Combat  Combat
	Shared
}

type Combat struct {
	DefenderBonusPct  float64                     `yaml:"defender_bonus_pct"`
	UnitPower         map[empire.UnitType]float64 `yaml:"unit_power"`
	Underdog          Underdog                    `yaml:"underdog"`
	Diversity         Diversity                   `yaml:"diversity"`
	Territory         Territory                   `yaml:"territory"`
	Casualties        Casualties                  `yaml:"casualties"`
	RetreatRate       float64                     `yaml:"retreat_rate"`
	Stances           map[string]Stance           `yaml:"stances"`
	GuerillaUnits     []empire.UnitType           `yaml:"guerilla_units"`
	MaxAttacksPerTurn int                         `yaml:"max_attacks_per_turn"`
}

type Underdog struct {
	Enabled     bool    `yaml:"enabled"`
	Threshold   float64 `yaml:"threshold"`
	MaxBonusPct float64 `yaml:"max_bonus_pct"`
}

type Diversity struct {
	Enabled    bool    `yaml:"enabled"`
	MinTypes   int     `yaml:"min_types"`
	Multiplier float64 `yaml:"multiplier"`
}

type Territory struct {
	MinPct        float64 `yaml:"min_pct"`
	MaxPct        float64 `yaml:"max_pct"`
	CurveExponent float64 `yaml:"curve_exponent"`
}

type Casualties struct {
	BaseRate               float64 `yaml:"base_rate"`
	MinRate                float64 `yaml:"min_rate"`
	MaxRate                float64 `yaml:"max_rate"`
	WinnerMultiplier       float64 `yaml:"winner_multiplier"`
	LoserMultiplier        float64 `yaml:"loser_multiplier"`
	DrawMultiplier         float64 `yaml:"draw_multiplier"`
	DrawMargin             float64 `yaml:"draw_margin"`
	BadAttackThreshold     float64 `yaml:"bad_attack_threshold"`
	BadAttackMultiplier    float64 `yaml:"bad_attack_multiplier"`
	OverwhelmingThreshold  float64 `yaml:"overwhelming_threshold"`
	OverwhelmingMultiplier float64 `yaml:"overwhelming_multiplier"`
	VarianceMin            float64 `yaml:"variance_min"`
	VarianceMax            float64 `yaml:"variance_max"`
}

type Stance struct {
	Attack   float64 `yaml:"attack"`
	Casualty float64 `yaml:"casualty"`
}

type Yield struct {
	Credits     int64 `yaml:"credits"`
	Food        int64 `yaml:"food"`
	Ore         int64 `yaml:"ore"`
	Fuel        int64 `yaml:"fuel"`
	Research    int64 `yaml:"research"`
	Housing     int64 `yaml:"housing"`
	Maintenance int64 `yaml:"maintenance"`
}

type Economy struct {
	SectorYield     map[empire.SectorType]Yield `yaml:"sector_yield"`
	UnitMaintenance map[empire.UnitType]float64 `yaml:"unit_maintenance"`
	TaxPerCapita    float64                     `yaml:"tax_per_capita"`
	FoodPerCapita   float64                     `yaml:"food_per_capita"`
	FoodPerSoldier  float64                     `yaml:"food_per_soldier"`
}

type Population struct {
	GrowthRate     float64 `yaml:"growth_rate"`
	StarvationLoss float64 `yaml:"starvation_loss"`
	BaseHousing    int64   `yaml:"base_housing"`
}

type Civil struct {
	CrowdingThreshold float64            `yaml:"crowding_threshold"`
	StabilityShare    float64            `yaml:"stability_share"`
	IncomeMultiplier  map[string]float64 `yaml:"income_multiplier"`
}

type Unlock struct {
	Level int               `yaml:"level"`
	Units []empire.UnitType `yaml:"units"`
}

type Research struct {
	BaseCost        int64    `yaml:"base_cost"`
	EducationBonus  float64  `yaml:"education_bonus"`
	CreditsPerPoint int64    `yaml:"credits_per_point"`
	Unlocks         []Unlock `yaml:"unlocks"`
}

type UnitCost struct {
	Credits int64 `yaml:"credits"`
	Ore     int64 `yaml:"ore"`
	Fuel    int64 `yaml:"fuel"`
	Turns   int   `yaml:"turns"`
}

func (c UnitCost) Resources() empire.Resources {
	return empire.Resources{Credits: c.Credits, Ore: c.Ore, Fuel: c.Fuel}
}

type Build struct {
	MaxSlots       int                          `yaml:"max_slots"`
	RefundFraction float64                      `yaml:"refund_fraction"`
	Units          map[empire.UnitType]UnitCost `yaml:"units"`
}

type Recipe struct {
	Components int64 `yaml:"components"`
	Turns      int   `yaml:"turns"`
	Networth   int64 `yaml:"networth"`
}

type Crafting struct {
	ComponentsPerIndustrial int64             `yaml:"components_per_industrial"`
	OrePerComponent         int64             `yaml:"ore_per_component"`
	MaxQueue                int               `yaml:"max_queue"`
	Recipes                 map[string]Recipe `yaml:"recipes"`
}

type Covert struct {
	PerAgent      float64 `yaml:"per_agent"`
	PerGovernment int64   `yaml:"per_government"`
	Max           int64   `yaml:"max"`
}

type Market struct {
	InitialPrices map[empire.ResourceType]float64 `yaml:"initial_prices"`
	TargetStock   map[empire.ResourceType]int64   `yaml:"target_stock_per_empire"`
	MinPrice      float64                         `yaml:"min_price"`
	MaxPrice      float64                         `yaml:"max_price"`
	Elasticity    float64                         `yaml:"elasticity"`
	Noise         float64                         `yaml:"noise"`
	Spread        float64                         `yaml:"spread"`
}

type EventKind struct {
	Weight   float64 `yaml:"weight"`
	Amount   int64   `yaml:"amount"`
	Fraction float64 `yaml:"fraction"`
}

type Events struct {
	Chance float64              `yaml:"chance"`
	Kinds  map[string]EventKind `yaml:"kinds"`
}

type Diplomacy struct {
	NonAggressionTurns int `yaml:"non_aggression_turns"`
	AllianceTurns      int `yaml:"alliance_turns"`
	ProposalTTL        int `yaml:"proposal_ttl"`
}

// Weights is the behavioral profile of one bot archetype. Every field is
// within [0, 1].
type Weights struct {
	Aggressiveness       float64 `yaml:"aggressiveness"`
	RiskTolerance        float64 `yaml:"risk_tolerance"`
	EconomicPriority     float64 `yaml:"economic_priority"`
	DiplomaticPropensity float64 `yaml:"diplomatic_propensity"`
	TechPriority         float64 `yaml:"tech_priority"`
	MessageRate          float64 `yaml:"message_rate"`
}

type Bots struct {
	Archetypes          map[string]Weights `yaml:"archetypes"`
	MoodDecay           float64            `yaml:"mood_decay"`
	GrudgeDecay         float64            `yaml:"grudge_decay"`
	GrudgeFloor         float64            `yaml:"grudge_floor"`
	AngerOnAttacked     float64            `yaml:"anger_on_attacked"`
	FearOnLoss          float64            `yaml:"fear_on_loss"`
	ConfidenceOnWin     float64            `yaml:"confidence_on_win"`
	ReserveCredits      int64              `yaml:"reserve_credits"`
	BuildBudgetFraction float64            `yaml:"build_budget_fraction"`
	MinAttackRatioLow   float64            `yaml:"min_attack_ratio_low"`
	MinAttackRatioHigh  float64            `yaml:"min_attack_ratio_high"`
	InvasionRatio       float64            `yaml:"invasion_ratio"`
	CommitFractionLow   float64            `yaml:"commit_fraction_low"`
	CommitFractionHigh  float64            `yaml:"commit_fraction_high"`
	AcceptGrudgeLimit   float64            `yaml:"accept_grudge_limit"`
	SurplusFood         int64              `yaml:"surplus_food"`
	SurplusOre          int64              `yaml:"surplus_ore"`
}

type Victory struct {
	MinTurn          int     `yaml:"min_turn"`
	ConquestShare    float64 `yaml:"conquest_share"`
	EconomicMultiple float64 `yaml:"economic_multiple"`
	TechLevel        int     `yaml:"tech_level"`
	CoalitionShare   float64 `yaml:"coalition_share"`
	FinalTurn        int     `yaml:"final_turn"`
	BankruptcyTurns  int     `yaml:"bankruptcy_turns"`
	StarvationTurns  int     `yaml:"starvation_turns"`
	CollapseTurns    int     `yaml:"collapse_turns"`
}

type Modifiers struct {
	ForceMultiplier float64 `yaml:"force_multiplier" json:"force_multiplier"`
	TravelCost      float64 `yaml:"travel_cost" json:"travel_cost"`
	TradeBonus      float64 `yaml:"trade_bonus" json:"trade_bonus"`
}

type RegionShares struct {
	Core  float64 `yaml:"core"`
	Inner float64 `yaml:"inner"`
	Outer float64 `yaml:"outer"`
}

type Wormholes struct {
	PerEmpire   float64   `yaml:"per_empire"`
	Min         int       `yaml:"min"`
	Max         int       `yaml:"max"`
	MinDistance float64   `yaml:"min_distance"`
	Modifiers   Modifiers `yaml:"modifiers"`
}

type Galaxy struct {
	EmpiresPerRegion  float64              `yaml:"empires_per_region"`
	MinRegions        int                  `yaml:"min_regions"`
	MaxRegions        int                  `yaml:"max_regions"`
	Width             float64              `yaml:"width"`
	Height            float64              `yaml:"height"`
	MinSpacing        float64              `yaml:"min_spacing"`
	PlacementAttempts int                  `yaml:"placement_attempts"`
	Shares            RegionShares         `yaml:"shares"`
	Capacity          map[string]int       `yaml:"capacity"`
	Neighbors         int                  `yaml:"neighbors"`
	ConnectionWeights map[string]float64   `yaml:"connection_weights"`
	Modifiers         map[string]Modifiers `yaml:"modifiers"`
	Wormholes         Wormholes            `yaml:"wormholes"`
	InfluenceRadius   float64              `yaml:"influence_radius"`
	Prefixes          []string             `yaml:"prefixes"`
	Suffixes          []string             `yaml:"suffixes"`
}

type Start struct {
	Resources       empire.Resources          `yaml:"resources"`
	Population      int64                     `yaml:"population"`
	Sectors         []empire.SectorType       `yaml:"sectors"`
	Forces          map[empire.UnitType]int64 `yaml:"forces"`
	Unlocked        []empire.UnitType         `yaml:"unlocked"`
	ProtectionTurns int                       `yaml:"protection_turns"`
	NamePrefixes    []string                  `yaml:"name_prefixes"`
	NameSuffixes    []string                  `yaml:"name_suffixes"`
}

type History struct {
	Attacks  int `yaml:"attacks"`
	Events   int `yaml:"events"`
	Messages int `yaml:"messages"`
}

type Networth struct {
	Credits float64 `yaml:"credits"`
	Food    float64 `yaml:"food"`
	Ore     float64 `yaml:"ore"`
	Fuel    float64 `yaml:"fuel"`
	Units   float64 `yaml:"units"`
	Sector  float64 `yaml:"sector"`
	Level   float64 `yaml:"level"`
}

type Turn struct {
	CheckpointEvery int `yaml:"checkpoint_every"`
	Workers         int `yaml:"workers"`
}
