// Package bot drives autonomous empires. Each archetype compiles into a
// prioritized rule table; a turn's decision is the set of rules that fire,
// turned into ordinary actions.
package bot

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"empires-server/internal/actions"
	"empires-server/internal/buildqueue"
	"empires-server/internal/combat"
	"empires-server/internal/diplomacy"
	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

// maxThreat caps the threat estimate when the bot has no forces at all.
const maxThreat = 10

type Engine struct {
	rs       *ruleset.Ruleset
	actions  *actions.Service
	logger   *slog.Logger
	profiles map[string]*Profile
	fallback string
}

func NewEngine(svc *actions.Service, logger *slog.Logger) (*Engine, error) {
	rs := svc.Ruleset()
	names := rs.Archetypes()
	if len(names) == 0 {
		return nil, fmt.Errorf("ruleset defines no bot archetypes")
	}

	e := &Engine{
		rs:       rs,
		actions:  svc,
		logger:   logger,
		profiles: make(map[string]*Profile, len(names)),
		fallback: names[0],
	}
	for _, name := range names {
		p, err := CompileProfile(name, rs.Bots.Archetypes[name], rs.Bots)
		if err != nil {
			return nil, err
		}
		e.profiles[name] = p
	}
	return e, nil
}

func (e *Engine) Profile(archetype string) *Profile {
	if p, ok := e.profiles[archetype]; ok {
		return p
	}
	return e.profiles[e.fallback]
}

// Decision is what one bot plans to do this turn.
type Decision struct {
	EmpireID empire.ID        `json:"empire_id"`
	Rules    []string         `json:"rules"`
	Actions  []actions.Action `json:"actions"`
}

// Targets lists every other empire the decision may touch.
func (d Decision) Targets() []empire.ID {
	var out []empire.ID
	for _, a := range d.Actions {
		if a.TargetID > 0 && a.TargetID != d.EmpireID && !slices.Contains(out, a.TargetID) {
			out = append(out, a.TargetID)
		}
	}
	return out
}

// Result reports how a decision played out.
type Result struct {
	Decision
	Applied  int                  `json:"applied"`
	Rejected int                  `json:"rejected"`
	Accepted map[actions.Kind]int `json:"accepted,omitempty"`
	Attacks  []combat.Record      `json:"-"`
}

type candidate struct {
	id    empire.ID
	ratio float64
	score float64
}

// Decide plans a turn for bot without mutating st.
func (e *Engine) Decide(st *state.State, bot *empire.Empire, stream *rng.Stream) (Decision, error) {
	d := Decision{EmpireID: bot.ID}
	if bot.Eliminated || !bot.IsBot() {
		return d, nil
	}
	p := e.Profile(bot.Archetype)
	env, targets := e.observe(st, bot, p, stream)

	fired, err := p.Evaluate(env)
	if err != nil {
		return d, err
	}
	d.Rules = fired

	for _, name := range fired {
		d.Actions = append(d.Actions, e.plan(name, st, bot, p, env, targets, stream)...)
	}
	return d, nil
}

// Apply executes a decision through the action boundary. Rejected actions
// are counted and skipped.
func (e *Engine) Apply(st *state.State, d Decision, stream *rng.Stream) Result {
	logger := e.logger.With(
		"component", "bot_engine",
		"operation", "apply",
		"empire_id", d.EmpireID,
		"turn", st.Turn.Turn,
	)

	res := Result{Decision: d}
	for _, a := range d.Actions {
		out, err := e.actions.Execute(st, a, stream)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Applied++
		if res.Accepted == nil {
			res.Accepted = make(map[actions.Kind]int)
		}
		res.Accepted[a.Kind]++
		if rec, ok := out.(*combat.Record); ok {
			res.Attacks = append(res.Attacks, *rec)
		}
	}
	if len(d.Rules) > 0 {
		logger.Debug("Bot acted", "rules", d.Rules, "applied", res.Applied, "rejected", res.Rejected)
	}
	return res
}

func (e *Engine) observe(st *state.State, bot *empire.Empire, p *Profile, stream *rng.Stream) (Env, []candidate) {
	turn := st.Turn.Turn
	c := e.rs.Combat
	power := bot.Forces.Power(c.UnitPower)
	defense := power * (1 + c.DefenderBonusPct/100)

	env := Env{
		Turn:             turn,
		Credits:          bot.Resources.Credits,
		Food:             bot.Resources.Food,
		Ore:              bot.Resources.Ore,
		Fuel:             bot.Resources.Fuel,
		Population:       bot.Population,
		Sectors:          bot.SectorCount(),
		Power:            power,
		QueueFree:        e.rs.Build.MaxSlots - len(bot.BuildQueue),
		Components:       bot.Components,
		Anger:            bot.Mood.Anger,
		Fear:             bot.Mood.Fear,
		Confidence:       bot.Mood.Confidence,
		PendingProposals: len(st.Diplomacy.Pending(bot.ID)),
		AttacksLeft:      c.MaxAttacksPerTurn,
		Starving:         bot.Counters.StarvationTurns > 0,
		Treaties:         len(st.Diplomacy.Partners(bot.ID, turn)),
		CanCraft:         e.canCraft(bot),
		SurplusFood:      max(0, bot.Resources.Food-e.rs.Bots.SurplusFood),
		SurplusOre:       max(0, bot.Resources.Ore-e.rs.Bots.SurplusOre),
	}
	if bot.AttackTurn == turn {
		env.AttacksLeft = max(0, c.MaxAttacksPerTurn-bot.AttacksLaunched)
	}

	committed := power * p.Commit
	var targets []candidate
	for _, other := range st.Empires {
		if other.ID == bot.ID || other.Eliminated || st.Diplomacy.AtPeace(bot.ID, other.ID, turn) {
			continue
		}
		otherPower := other.Forces.Power(c.UnitPower)
		if defense > 0 {
			env.Threat = max(env.Threat, otherPower/defense)
		} else if otherPower > 0 {
			env.Threat = maxThreat
		}
		if other.IsProtected(turn) || committed <= 0 {
			continue
		}

		ratio := committed * e.route(st, bot.ID, other.ID) / math.Max(otherPower*(1+c.DefenderBonusPct/100), 1)
		targets = append(targets, candidate{
			id:    other.ID,
			ratio: ratio,
			score: ratio * (1 + bot.Grudges[other.ID]),
		})
	}
	env.Threat = min(env.Threat, maxThreat)

	slices.SortStableFunc(targets, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return int(a.id - b.id)
	})
	if len(targets) > 0 {
		env.HasTarget = true
		env.BestRatio = targets[0].ratio
	}

	env.RollAttack = stream.Float64()
	env.RollBuild = stream.Float64()
	env.RollDiplomacy = stream.Float64()
	env.RollMessage = stream.Float64()
	env.RollTech = stream.Float64()
	env.RollTrade = stream.Float64()
	env.RollCraft = stream.Float64()
	return env, targets
}

func (e *Engine) route(st *state.State, from, to empire.ID) float64 {
	if st.Galaxy == nil {
		return 1
	}
	mods, ok := st.Galaxy.Route(st.Galaxy.HomeOf(from), st.Galaxy.HomeOf(to))
	if !ok || mods.ForceMultiplier <= 0 {
		return 1
	}
	return mods.ForceMultiplier
}

func (e *Engine) canCraft(bot *empire.Empire) bool {
	if len(bot.CraftingQueue) >= e.rs.Crafting.MaxQueue {
		return false
	}
	for _, r := range e.rs.Crafting.Recipes {
		if r.Components > 0 && bot.Components >= r.Components {
			return true
		}
	}
	return false
}

func (e *Engine) plan(rule string, st *state.State, bot *empire.Empire, p *Profile, env Env, targets []candidate, stream *rng.Stream) []actions.Action {
	switch rule {
	case RuleRespondProposals:
		return e.planResponses(st, bot, p, env)
	case RuleEmergencyFood:
		return e.planFood(st, bot)
	case RuleBuildDefense:
		return e.planBuild(bot, 2*e.rs.Bots.BuildBudgetFraction, true)
	case RuleBuildMilitary:
		return e.planBuild(bot, e.rs.Bots.BuildBudgetFraction, false)
	case RuleAttack:
		return e.planAttacks(bot, p, env, targets)
	case RuleInvestResearch:
		return e.planResearch(bot, p)
	case RuleTradeSurplus:
		return e.planTrade(bot, env)
	case RuleCraft:
		return e.planCraft(bot)
	case RuleProposeTreaty:
		return e.planTreaty(st, bot, p)
	case RuleMessage:
		return e.planMessage(st, bot, stream)
	}
	return nil
}

func (e *Engine) planResponses(st *state.State, bot *empire.Empire, p *Profile, env Env) []actions.Action {
	var out []actions.Action
	for _, t := range st.Diplomacy.Pending(bot.ID) {
		accept := bot.Grudges[t.Proposer] < e.rs.Bots.AcceptGrudgeLimit &&
			env.RollDiplomacy < p.Weights.DiplomaticPropensity+bot.Mood.Fear*0.3
		out = append(out, actions.RespondTreaty(bot.ID, t.ID, accept))
	}
	return out
}

func (e *Engine) planFood(st *state.State, bot *empire.Empire) []actions.Action {
	price := st.Market.BuyPrice(empire.ResourceFood, e.rs)
	if price <= 0 {
		return nil
	}
	need := int64(math.Ceil(float64(bot.Population)*e.rs.Economy.FoodPerCapita*2)) - bot.Resources.Food
	qty := min(need, int64(float64(bot.Resources.Credits)/price))
	if qty <= 0 {
		return nil
	}
	return []actions.Action{actions.Trade(bot.ID, empire.ResourceFood, qty, false)}
}

// bestUnit picks the unlocked combat unit with the most power per credit.
func (e *Engine) bestUnit(bot *empire.Empire, defensive bool) (empire.UnitType, bool) {
	if defensive && bot.HasUnlocked(empire.UnitStations) {
		if _, ok := e.rs.Build.Units[empire.UnitStations]; ok {
			return empire.UnitStations, true
		}
	}
	var best empire.UnitType
	bestValue := 0.0
	for _, u := range empire.UnitTypes {
		cost, ok := e.rs.Build.Units[u]
		if !ok || u == empire.UnitCovertAgents || !bot.HasUnlocked(u) {
			continue
		}
		value := e.rs.Combat.UnitPower[u] / float64(max(cost.Credits, 1))
		if value > bestValue {
			best, bestValue = u, value
		}
	}
	return best, bestValue > 0
}

func (e *Engine) planBuild(bot *empire.Empire, fraction float64, defensive bool) []actions.Action {
	unit, ok := e.bestUnit(bot, defensive)
	if !ok {
		return nil
	}
	spare := bot.Resources.Credits - e.rs.Bots.ReserveCredits
	budget := empire.Resources{
		Credits: int64(float64(spare) * min(fraction, 1)),
		Ore:     bot.Resources.Ore / 2,
		Fuel:    bot.Resources.Fuel / 2,
	}
	qty := buildqueue.Affordable(budget, unit, e.rs)
	if qty <= 0 {
		return nil
	}
	return []actions.Action{actions.Build(bot.ID, unit, qty)}
}

// planAttacks splits the committed share of every unit across the planned
// attacks so their sum never exceeds holdings.
func (e *Engine) planAttacks(bot *empire.Empire, p *Profile, env Env, targets []candidate) []actions.Action {
	planned := 1
	if p.Weights.Aggressiveness >= 0.75 {
		planned = 2
	}
	planned = min(planned, env.AttacksLeft)

	var picked []candidate
	for _, t := range targets {
		if len(picked) == planned {
			break
		}
		if t.ratio >= p.MinRatio {
			picked = append(picked, t)
		}
	}
	if len(picked) == 0 {
		return nil
	}

	stance := "balanced"
	switch {
	case bot.Mood.Fear > 0.5:
		stance = "defensive"
	case bot.Mood.Anger > 0.5 || p.Weights.Aggressiveness > 0.7:
		stance = "aggressive"
	}

	share := p.Commit / float64(len(picked))
	var out []actions.Action
	for _, t := range picked {
		kind := combat.AttackInvasion
		units := empire.UnitTypes
		if t.ratio < e.rs.Bots.InvasionRatio {
			kind = combat.AttackGuerilla
			units = e.rs.Combat.GuerillaUnits
		}
		var forces empire.Forces
		for _, u := range units {
			if u == empire.UnitCovertAgents {
				continue
			}
			forces.Set(u, int64(float64(bot.Forces.Get(u))*share))
		}
		if forces.Total() == 0 {
			continue
		}
		out = append(out, actions.Attack(bot.ID, t.id, forces, kind, stance))
	}
	return out
}

func (e *Engine) planResearch(bot *empire.Empire, p *Profile) []actions.Action {
	spare := bot.Resources.Credits - 2*e.rs.Bots.ReserveCredits
	credits := int64(float64(spare) * 0.5 * p.Weights.TechPriority)
	if per := e.rs.Research.CreditsPerPoint; per > 0 {
		credits -= credits % per
	}
	if credits <= 0 || credits < e.rs.Research.CreditsPerPoint {
		return nil
	}
	return []actions.Action{actions.Invest(bot.ID, credits)}
}

func (e *Engine) planTrade(bot *empire.Empire, env Env) []actions.Action {
	if env.SurplusFood > 0 {
		return []actions.Action{actions.Trade(bot.ID, empire.ResourceFood, max(1, env.SurplusFood/2), true)}
	}
	if env.SurplusOre > 0 {
		return []actions.Action{actions.Trade(bot.ID, empire.ResourceOre, max(1, env.SurplusOre/2), true)}
	}
	return nil
}

// planCraft orders the affordable recipe with the best networth per
// component.
func (e *Engine) planCraft(bot *empire.Empire) []actions.Action {
	names := make([]string, 0, len(e.rs.Crafting.Recipes))
	for name := range e.rs.Crafting.Recipes {
		names = append(names, name)
	}
	slices.Sort(names)

	best, bestValue := "", 0.0
	for _, name := range names {
		r := e.rs.Crafting.Recipes[name]
		if r.Components <= 0 || bot.Components < r.Components {
			continue
		}
		if v := float64(r.Networth) / float64(r.Components); v > bestValue {
			best, bestValue = name, v
		}
	}
	if best == "" {
		return nil
	}
	return []actions.Action{actions.Craft(bot.ID, best, 1)}
}

// planTreaty offers peace to the strongest rival the bot holds no grudge
// against.
func (e *Engine) planTreaty(st *state.State, bot *empire.Empire, p *Profile) []actions.Action {
	turn := st.Turn.Turn
	var best *empire.Empire
	bestPower := -1.0
	for _, other := range st.Empires {
		if other.ID == bot.ID || other.Eliminated || st.Diplomacy.AtPeace(bot.ID, other.ID, turn) {
			continue
		}
		if bot.Grudges[other.ID] >= e.rs.Bots.AcceptGrudgeLimit {
			continue
		}
		if pw := other.Forces.Power(e.rs.Combat.UnitPower); pw > bestPower {
			best, bestPower = other, pw
		}
	}
	if best == nil {
		return nil
	}
	kind := diplomacy.KindNonAggression
	if p.Weights.DiplomaticPropensity > 0.6 {
		kind = diplomacy.KindAlliance
	}
	return []actions.Action{actions.ProposeTreaty(bot.ID, best.ID, kind)}
}

var messageTexts = map[string][]string{
	"greeting": {"Greetings from our worlds.", "We come in peace, for now.", "May your harvests be plentiful."},
	"taunt":    {"Your fleets are a joke.", "We will remember this.", "Your sectors will be ours."},
	"plea":     {"We seek only peace.", "Spare our people.", "Let us end this war."},
}

func (e *Engine) planMessage(st *state.State, bot *empire.Empire, stream *rng.Stream) []actions.Action {
	kind := "greeting"
	var to empire.ID
	switch {
	case bot.Mood.Anger > 0.5:
		kind = "taunt"
		to = topGrudge(bot, st)
	case bot.Mood.Fear > 0.5:
		kind = "plea"
	default:
		var rivals []empire.ID
		for _, other := range st.Empires {
			if other.ID != bot.ID && !other.Eliminated {
				rivals = append(rivals, other.ID)
			}
		}
		if len(rivals) > 0 {
			to = rivals[stream.IntN(len(rivals))]
		}
	}
	texts := messageTexts[kind]
	return []actions.Action{actions.Message(bot.ID, to, kind, texts[stream.IntN(len(texts))])}
}

func topGrudge(bot *empire.Empire, st *state.State) empire.ID {
	var best empire.ID
	bestValue := 0.0
	for _, other := range st.Empires {
		if v := bot.Grudges[other.ID]; v > bestValue && !other.Eliminated {
			best, bestValue = other.ID, v
		}
	}
	return best
}

// DecayMood relaxes mood toward zero and forgets grudges under the floor.
func DecayMood(e *empire.Empire, b ruleset.Bots) {
	keep := 1 - b.MoodDecay
	e.Mood.Anger *= keep
	e.Mood.Fear *= keep
	e.Mood.Confidence *= keep
	for id, g := range e.Grudges {
		g *= 1 - b.GrudgeDecay
		if g < b.GrudgeFloor {
			delete(e.Grudges, id)
			continue
		}
		e.Grudges[id] = g
	}
}
