package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the reviewer's grade of how well a card was recalled.
// The values are ordered from worst to best.
type Outcome int

const (
	Forgot Outcome = iota // Complete failure to recall.
	Hard                  // Recalled with significant difficulty.
	Good                  // Recalled with some effort.
	Easy                  // Recalled effortlessly.
)

// Outcomes lists every valid outcome in ascending order.
var Outcomes = []Outcome{Forgot, Hard, Good, Easy}

var outcomeNames = [...]string{Forgot: "forgot", Hard: "hard", Good: "good", Easy: "easy"}

var (
	_ fmt.Stringer             = Outcome(0)
	_ json.Marshaler           = Outcome(0)
	_ json.Unmarshaler         = (*Outcome)(nil)
	_ encoding.TextMarshaler   = Outcome(0)
	_ encoding.TextUnmarshaler = (*Outcome)(nil)
)

// IsValid reports whether o is one of the four defined outcomes.
func (o Outcome) IsValid() bool {
	return o >= Forgot && o <= Easy
}

// IsLapse reports whether o falls below the Good threshold.
func (o Outcome) IsLapse() bool {
	return o < Good
}

func (o Outcome) String() string {
	if o.IsValid() {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ParseOutcome accepts an outcome name (case-insensitive) or its digit 0-3.
func ParseOutcome(s string) (Outcome, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range outcomeNames {
		if s == name {
			return Outcome(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Outcome(n).IsValid() {
		return Outcome(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalJSON writes the outcome as its lower-case name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	text, err := o.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON accepts either the name or the numeric value.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return o.UnmarshalText([]byte(s))
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, data)
	}
	if !Outcome(n).IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidOutcome, n)
	}
	*o = Outcome(n)
	return nil
}
