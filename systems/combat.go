package systems

// CombatParams configures attack resolution.
type CombatParams struct {
	SureKillRatio float64
	BaseSuccess   float64
	SizeWeight    float64
	SpeedWeight   float64
	FailureDamage float64
}

// SuccessChance returns the probability that attacker kills defender.
// A size ratio at or above SureKillRatio always succeeds. Below it the chance
// grows with the size advantage and the relative speed difference.
func SuccessChance(attacker, defender *Agent, p CombatParams) float64 {
	ratio := attacker.Size / defender.Size
	if ratio >= p.SureKillRatio {
		return 1
	}
	chance := p.BaseSuccess + p.SizeWeight*(ratio-1)
	if fastest := max(attacker.Genome.Speed, defender.Genome.Speed); fastest > 0 {
		chance += p.SpeedWeight * (attacker.Genome.Speed - defender.Genome.Speed) / fastest
	}
	return clamp01(chance)
}

// AttackSucceeds resolves one attack using a roll drawn from the attacker's
// stream. Attacks that break the kind or size rules never succeed.
func AttackSucceeds(attacker, defender *Agent, roll float64, p CombatParams) bool {
	if !CanAttack(attacker, defender) {
		return false
	}
	if attacker.Size/defender.Size >= p.SureKillRatio {
		return true
	}
	return roll < SuccessChance(attacker, defender, p)
}
