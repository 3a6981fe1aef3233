// Package traits defines the behavioral kinds and heritable characteristics of beings.
package traits

import "fmt"

// Kind is the behavioral class of a being. It never changes after birth.
type Kind uint8

const (
	Herbivore Kind = iota
	Carnivore
	Omnivore
)

// NumKinds is the number of behavioral kinds.
const NumKinds = 3

// Kinds lists every kind in declaration order.
var Kinds = [NumKinds]Kind{Herbivore, Carnivore, Omnivore}

var kindNames = [NumKinds]string{"herbivore", "carnivore", "omnivore"}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// MarshalText encodes the kind as its name, so frames and CSV rows stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= NumKinds {
		return nil, fmt.Errorf("unknown kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// EatsFood reports whether the kind forages food items.
func (k Kind) EatsFood() bool {
	return k == Herbivore || k == Omnivore
}

// Hunts reports whether the kind attacks other beings.
func (k Kind) Hunts() bool {
	return k == Carnivore || k == Omnivore
}

// Color returns the RGB display color for a kind.
func (k Kind) Color() (r, g, b uint8) {
	switch k {
	case Herbivore:
		return 80, 150, 200 // Blue
	case Carnivore:
		return 200, 80, 80 // Red
	case Omnivore:
		return 230, 150, 60 // Orange
	default:
		return 150, 150, 150
	}
}
