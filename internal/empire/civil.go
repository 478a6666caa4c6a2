package empire

import (
	"encoding/json"
	"fmt"
)

// CivilStatus is ordered from best to worst.
type CivilStatus int

const (
	CivilThriving CivilStatus = iota
	CivilHappy
	CivilContent
	CivilNeutral
	CivilUnrest
	CivilRiots
	CivilCollapse
)

var civilNames = [...]string{"thriving", "happy", "content", "neutral", "unrest", "riots", "collapse"}

func (c CivilStatus) String() string {
	if c < CivilThriving || c > CivilCollapse {
		return fmt.Sprintf("civil(%d)", int(c))
	}
	return civilNames[c]
}

func ParseCivilStatus(s string) (CivilStatus, error) {
	for i, name := range civilNames {
		if name == s {
			return CivilStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown civil status %q", s)
}

// Clamp bounds c to the defined levels.
func (c CivilStatus) Clamp() CivilStatus {
	return max(CivilThriving, min(CivilCollapse, c))
}

// Toward moves one level from c toward target.
func (c CivilStatus) Toward(target CivilStatus) CivilStatus {
	switch {
	case target > c:
		return c + 1
	case target < c:
		return c - 1
	}
	return c
}

func (c CivilStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *CivilStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCivilStatus(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
