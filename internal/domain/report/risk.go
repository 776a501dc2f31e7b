package report

import "github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"

// Weights are the additive factors of the user risk score.
type Weights struct {
	// UserType maps a USTYP code to its base score.
	UserType        map[string]int `yaml:"userType"`
	InitialPassword int            `yaml:"initialPassword"`
	ExpiredUnlocked int            `yaml:"expiredUnlocked"`
	CriticalObject  int            `yaml:"criticalObject"`
	Wildcard        int            `yaml:"wildcard"`
	WildcardCap     int            `yaml:"wildcardCap"`
}

func DefaultWeights() Weights {
	return Weights{
		UserType:        map[string]int{"A": 10, "B": 20, "C": 15},
		InitialPassword: 25,
		ExpiredUnlocked: 15,
		CriticalObject:  20,
		Wildcard:        2,
		WildcardCap:     20,
	}
}

// DefaultCriticalObjects are authorization objects granting administrative
// or development access.
var DefaultCriticalObjects = []string{"S_ADMI_FCD", "SAP_ALL", "S_DEVELOP"}

// Score computes the 0..100 risk score of a user. criticalHeld is the
// number of distinct critical objects the user holds and wildcards the
// number of wildcard values.
func Score(u users.User, criticalHeld, wildcards int, w Weights) int {
	score := w.UserType[u.TypeCode]
	if u.InitialPassword {
		score += w.InitialPassword
	}
	if u.Validity.IsExpired && !u.Locked {
		score += w.ExpiredUnlocked
	}
	score += criticalHeld * w.CriticalObject

	wc := wildcards * w.Wildcard
	if w.WildcardCap > 0 && wc > w.WildcardCap {
		wc = w.WildcardCap
	}
	score += wc

	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
