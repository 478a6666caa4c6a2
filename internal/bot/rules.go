package bot

import (
	"fmt"
	"sort"

	"empires-server/internal/ruleset"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is everything a rule condition can see about one bot at decision time.
// Rolls are drawn once per decision in a fixed order so a profile's choices
// are reproducible from the turn stream.
type Env struct {
	Turn             int
	Credits          int64
	Food             int64
	Ore              int64
	Fuel             int64
	Population       int64
	Sectors          int
	Power            float64
	QueueFree        int
	Components       int64
	Anger            float64
	Fear             float64
	Confidence       float64
	PendingProposals int
	BestRatio        float64
	HasTarget        bool
	Threat           float64
	AttacksLeft      int
	Starving         bool
	Treaties         int
	CanCraft         bool
	SurplusFood      int64
	SurplusOre       int64

	RollAttack    float64
	RollBuild     float64
	RollDiplomacy float64
	RollMessage   float64
	RollTech      float64
	RollTrade     float64
	RollCraft     float64
}

const (
	RuleRespondProposals = "respond-proposals"
	RuleEmergencyFood    = "emergency-food"
	RuleBuildDefense     = "build-defense"
	RuleAttack           = "attack"
	RuleBuildMilitary    = "build-military"
	RuleInvestResearch   = "invest-research"
	RuleTradeSurplus     = "trade-surplus"
	RuleCraft            = "craft"
	RuleProposeTreaty    = "propose-treaty"
	RuleMessage          = "message"
)

// Rule is a named condition over Env. Exclusive rules block lower-priority
// rules of the same category once they fire.
type Rule struct {
	Name         string
	Priority     int
	Category     string
	Exclusive    bool
	ConditionSrc string
	program      *vm.Program
}

func (r *Rule) compile() error {
	program, err := expr.Compile(r.ConditionSrc, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	r.program = program
	return nil
}

func (r *Rule) matches(env Env) (bool, error) {
	result, err := vm.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	match, ok := result.(bool)
	return ok && match, nil
}

// Profile is the compiled decision table of one archetype.
type Profile struct {
	Archetype string
	Weights   ruleset.Weights
	MinRatio  float64
	Commit    float64
	Rules     []*Rule
}

// CompileProfile turns archetype weights into rule conditions. Weights are
// baked into the expressions as constants; only mood and rolls vary at run
// time.
func CompileProfile(archetype string, w ruleset.Weights, b ruleset.Bots) (*Profile, error) {
	p := &Profile{
		Archetype: archetype,
		Weights:   w,
		MinRatio:  b.MinAttackRatioHigh - (b.MinAttackRatioHigh-b.MinAttackRatioLow)*w.RiskTolerance,
		Commit:    b.CommitFractionLow + (b.CommitFractionHigh-b.CommitFractionLow)*w.Aggressiveness,
	}
	reserve := b.ReserveCredits

	p.Rules = []*Rule{
		{
			Name:         RuleRespondProposals,
			Priority:     100,
			Category:     "diplomacy",
			Exclusive:    false,
			ConditionSrc: "PendingProposals > 0",
		},
		{
			Name:         RuleEmergencyFood,
			Priority:     95,
			Category:     "market",
			Exclusive:    true,
			ConditionSrc: "Starving && Credits > 0",
		},
		{
			Name:      RuleBuildDefense,
			Priority:  90,
			Category:  "military",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("QueueFree > 0 && Credits > %d && Threat > %.3f && RollBuild < %.3f + Fear * 0.4",
				reserve, 0.8+0.7*w.RiskTolerance, 0.4+0.3*(1-w.Aggressiveness)),
		},
		{
			Name:      RuleAttack,
			Priority:  80,
			Category:  "war",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("HasTarget && AttacksLeft > 0 && BestRatio >= %.3f && RollAttack < %.3f + Anger * 0.3 + Confidence * 0.2 - Fear * 0.3",
				p.MinRatio, 0.1+0.6*w.Aggressiveness),
		},
		{
			Name:      RuleBuildMilitary,
			Priority:  70,
			Category:  "military",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("QueueFree > 0 && Credits > %d && RollBuild < %.3f + Anger * 0.3",
				reserve, 0.2+0.6*w.Aggressiveness),
		},
		{
			Name:      RuleInvestResearch,
			Priority:  60,
			Category:  "growth",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("Credits > %d && RollTech < %.3f",
				2*reserve, 0.1+0.7*w.TechPriority),
		},
		{
			Name:      RuleTradeSurplus,
			Priority:  55,
			Category:  "market",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("(SurplusFood > 0 || SurplusOre > 0) && RollTrade < %.3f",
				0.2+0.6*w.EconomicPriority),
		},
		{
			Name:      RuleCraft,
			Priority:  50,
			Category:  "industry",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("CanCraft && RollCraft < %.3f",
				0.2+0.6*w.EconomicPriority),
		},
		{
			Name:      RuleProposeTreaty,
			Priority:  40,
			Category:  "diplomacy",
			Exclusive: true,
			ConditionSrc: fmt.Sprintf("Treaties < 3 && Threat > 0 && RollDiplomacy < %.3f + Fear * 0.3",
				0.05+0.5*w.DiplomaticPropensity),
		},
		{
			Name:         RuleMessage,
			Priority:     10,
			Category:     "chatter",
			Exclusive:    true,
			ConditionSrc: fmt.Sprintf("RollMessage < %.3f", w.MessageRate),
		},
	}

	for _, r := range p.Rules {
		if err := r.compile(); err != nil {
			return nil, fmt.Errorf("archetype %s: %w", archetype, err)
		}
	}
	sort.SliceStable(p.Rules, func(i, j int) bool {
		return p.Rules[i].Priority > p.Rules[j].Priority
	})
	return p, nil
}

// Evaluate returns the names of the rules that fire for env, highest
// priority first.
func (p *Profile) Evaluate(env Env) ([]string, error) {
	fired := make(map[string]bool)
	var out []string
	for _, r := range p.Rules {
		if fired[r.Category] {
			continue
		}
		match, err := r.matches(env)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		out = append(out, r.Name)
		if r.Exclusive {
			fired[r.Category] = true
		}
	}
	return out, nil
}
