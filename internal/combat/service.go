package combat

import (
	"fmt"
	"log/slog"
	"math"

	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"

	"github.com/google/uuid"
)

// maxRatio bounds the power ratio when the defender fields nothing.
const maxRatio = 1e6

var recordNamespace = uuid.MustParse("6f1c2a8e-3d4b-5e6f-8a9b-0c1d2e3f4a5b")

type Resolver struct {
	rs     *ruleset.Ruleset
	logger *slog.Logger
}

func NewResolver(rs *ruleset.Ruleset, logger *slog.Logger) *Resolver {
	return &Resolver{rs: rs, logger: logger}
}

// ResolveAttack settles one attack and applies casualties and territory to
// both empires. Nothing is mutated when validation fails.
func (r *Resolver) ResolveAttack(attacker, defender *empire.Empire, committed empire.Forces,
	attackType AttackType, stance string, cond Conditions, stream *rng.Stream) (*Record, error) {
	if err := r.validate(attacker, defender, committed, attackType); err != nil {
		return nil, err
	}

	c := r.rs.Combat
	stanceName, st := r.rs.Stance(stance)

	engaged := defender.Forces
	if attackType == AttackGuerilla {
		engaged = defender.Forces.Only(c.GuerillaUnits)
	}

	attPower := committed.Power(c.UnitPower) * st.Attack
	if cond.ForceMultiplier > 0 {
		attPower *= cond.ForceMultiplier
	}
	defPower := engaged.Power(c.UnitPower)
	if c.Diversity.Enabled {
		if committed.Distinct() >= c.Diversity.MinTypes {
			attPower *= c.Diversity.Multiplier
		}
		if engaged.Distinct() >= c.Diversity.MinTypes {
			defPower *= c.Diversity.Multiplier
		}
	}
	defPower *= 1 + c.DefenderBonusPct/100

	ratio := powerRatio(attPower, defPower)
	var underdog float64
	if c.Underdog.Enabled && ratio < c.Underdog.Threshold {
		underdog = UnderdogBonus(ratio, c.Underdog)
		attPower *= 1 + underdog/100
		ratio = powerRatio(attPower, defPower)
	}

	// ties go to the defender
	attackerWins := attPower > defPower
	draw := math.Abs(ratio-1) <= c.Casualties.DrawMargin

	attRate, defRate := r.baseRates(attackerWins, draw)
	if ratio < c.Casualties.BadAttackThreshold {
		attRate *= c.Casualties.BadAttackMultiplier
	}
	if ratio > c.Casualties.OverwhelmingThreshold {
		attRate *= c.Casualties.OverwhelmingMultiplier
	}
	attRate *= st.Casualty
	attRate *= 1 + stream.Range(c.Casualties.VarianceMin, c.Casualties.VarianceMax)
	defRate *= 1 + stream.Range(c.Casualties.VarianceMin, c.Casualties.VarianceMax)
	attRate = clamp(attRate, c.Casualties.MinRate, c.Casualties.MaxRate)
	defRate = clamp(defRate, c.Casualties.MinRate, c.Casualties.MaxRate)

	rec := &Record{
		ID:               RecordID(cond.GameID, cond.Turn, cond.Seq),
		Turn:             cond.Turn,
		AttackerID:       attacker.ID,
		DefenderID:       defender.ID,
		Type:             attackType,
		Stance:           stanceName,
		Committed:        committed,
		Engaged:          engaged,
		AttackerPower:    attPower,
		DefenderPower:    defPower,
		Ratio:            ratio,
		UnderdogBonusPct: underdog,
		Draw:             draw,
		AttackerRate:     attRate,
		DefenderRate:     defRate,
		AttackerLosses:   Losses(committed, attRate),
		DefenderLosses:   Losses(engaged, defRate),
	}
	if attackerWins {
		rec.Outcome = OutcomeAttackerWin
		rec.WinnerID = attacker.ID
	} else {
		rec.Outcome = OutcomeDefenderWin
		rec.WinnerID = defender.ID
	}

	attacker.Forces = attacker.Forces.Minus(rec.AttackerLosses)
	defender.Forces = defender.Forces.Minus(rec.DefenderLosses)

	if attackType == AttackInvasion && attackerWins {
		rec.CapturePct = CapturePct(ratio, c.Territory, c.Casualties.OverwhelmingThreshold)
		n := SectorsToTransfer(defender.SectorCount(), rec.CapturePct)
		taken := defender.TakeSectors(n, cond.Turn)
		attacker.GiveSectors(taken, cond.Turn)
		rec.SectorsTransferred = len(taken)
	}
	rec.DefenderEliminated = defender.Eliminated

	r.logger.Debug("Attack resolved",
		"component", "combat_resolver",
		"attack_id", rec.ID,
		"attacker_id", attacker.ID,
		"defender_id", defender.ID,
		"type", attackType,
		"ratio", ratio,
		"outcome", rec.Outcome,
		"sectors_transferred", rec.SectorsTransferred,
	)

	return rec, nil
}

func (r *Resolver) validate(attacker, defender *empire.Empire, committed empire.Forces, attackType AttackType) error {
	if attacker == nil || defender == nil {
		return errors.Validation("attacker and defender are required")
	}
	if !ValidAttackType(attackType) {
		return errors.Validationf("unknown attack type %q", attackType)
	}
	if err := committed.Validate(); err != nil {
		return errors.WrapValidation("invalid committed forces", err)
	}
	if committed.Total() == 0 {
		return errors.Validation("at least one unit must be committed")
	}
	if attacker.ID == defender.ID {
		return errors.Preconditionf("empire %d cannot attack itself", attacker.ID)
	}
	if attacker.Eliminated {
		return errors.Preconditionf("attacker %d is eliminated", attacker.ID)
	}
	if defender.Eliminated {
		return errors.Preconditionf("defender %d is eliminated", defender.ID)
	}
	if !attacker.Forces.Covers(committed) {
		return errors.Preconditionf("committed forces exceed holdings of empire %d", attacker.ID)
	}
	return nil
}

func (r *Resolver) baseRates(attackerWins, draw bool) (float64, float64) {
	cas := r.rs.Combat.Casualties
	switch {
	case draw:
		return cas.BaseRate * cas.DrawMultiplier, cas.BaseRate * cas.DrawMultiplier
	case attackerWins:
		return cas.BaseRate * cas.WinnerMultiplier, cas.BaseRate * cas.LoserMultiplier
	default:
		return cas.BaseRate * cas.LoserMultiplier, cas.BaseRate * cas.WinnerMultiplier
	}
}

// Retreat withdraws forces at the flat retreat casualty rate. Requested
// counts above current holdings are capped at the holdings.
func (r *Resolver) Retreat(e *empire.Empire, forces empire.Forces, turn int) (*RetreatResult, error) {
	if e == nil {
		return nil, errors.Validation("empire is required")
	}
	if err := forces.Validate(); err != nil {
		return nil, errors.WrapValidation("invalid retreating forces", err)
	}

	var withdrawn empire.Forces
	for _, u := range empire.UnitTypes {
		withdrawn.Set(u, min(forces.Get(u), e.Forces.Get(u)))
	}
	rate := r.rs.Combat.RetreatRate
	res := &RetreatResult{
		EmpireID:  e.ID,
		Turn:      turn,
		Withdrawn: withdrawn,
		Losses:    Losses(withdrawn, rate),
		Rate:      rate,
	}
	e.Forces = e.Forces.Minus(res.Losses)
	return res, nil
}

// UnderdogBonus is the attacker bonus percent for a ratio below threshold,
// growing linearly to the maximum as the ratio approaches zero.
func UnderdogBonus(ratio float64, u ruleset.Underdog) float64 {
	if ratio >= u.Threshold || u.Threshold <= 0 {
		return 0
	}
	return u.MaxBonusPct * (u.Threshold - max(ratio, 0)) / u.Threshold
}

// CapturePct maps the power margin onto [MinPct, MaxPct]. The curve reaches
// the maximum at the overwhelming ratio.
func CapturePct(ratio float64, t ruleset.Territory, overwhelming float64) float64 {
	span := overwhelming - 1
	if span <= 0 {
		return t.MaxPct
	}
	x := clamp((ratio-1)/span, 0, 1)
	exp := t.CurveExponent
	if exp <= 0 {
		exp = 1
	}
	return t.MinPct + (t.MaxPct-t.MinPct)*math.Pow(x, exp)
}

// SectorsToTransfer converts a capture percent into a sector count, taking at
// least one sector and never more than the defender holds.
func SectorsToTransfer(sectors int, pct float64) int {
	if sectors <= 0 {
		return 0
	}
	n := int(math.Round(float64(sectors) * pct / 100))
	return max(1, min(n, sectors))
}

// Losses applies rate to every unit type, never exceeding the counts given.
func Losses(f empire.Forces, rate float64) empire.Forces {
	var out empire.Forces
	for _, u := range empire.UnitTypes {
		n := f.Get(u)
		out.Set(u, min(n, max(0, int64(math.Round(float64(n)*rate)))))
	}
	return out
}

// RecordID derives a stable attack id from its position in the game.
func RecordID(gameID int64, turn int, seq int64) string {
	return uuid.NewSHA1(recordNamespace, fmt.Appendf(nil, "attack:%d:%d:%d", gameID, turn, seq)).String()
}

func powerRatio(att, def float64) float64 {
	if def <= 0 {
		if att <= 0 {
			return 1
		}
		return maxRatio
	}
	return min(att/def, maxRatio)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
