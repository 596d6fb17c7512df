package festival

import (
	"math/bits"
	"strconv"
	"strings"
)

// Style is a musical genre tag. The declaration order is the natural order
// used wherever styles are listed or grouped.
type Style uint8

const (
	Blues Style = iota
	Electronic
	Flamenco
	Folk
	Fusion
	HipHop
	Indie
	Jazz
	Metal
	Pop
	Punk
	Rap
	Reggae
	Rock
	Ska

	numStyles
)

var styleNames = [numStyles]string{
	Blues:      "BLUES",
	Electronic: "ELECTRONIC",
	Flamenco:   "FLAMENCO",
	Folk:       "FOLK",
	Fusion:     "FUSION",
	HipHop:     "HIPHOP",
	Indie:      "INDIE",
	Jazz:       "JAZZ",
	Metal:      "METAL",
	Pop:        "POP",
	Punk:       "PUNK",
	Rap:        "RAP",
	Reggae:     "REGGAE",
	Rock:       "ROCK",
	Ska:        "SKA",
}

// AllStyles returns every style in natural order.
func AllStyles() []Style {
	out := make([]Style, 0, numStyles)
	for s := Style(0); s < numStyles; s++ {
		out = append(out, s)
	}
	return out
}

func (s Style) Valid() bool {
	return s < numStyles
}

func (s Style) String() string {
	if !s.Valid() {
		return "STYLE(" + strconv.Itoa(int(s)) + ")"
	}
	return styleNames[s]
}

// ParseStyle matches token case-insensitively against the style vocabulary.
func ParseStyle(token string) (Style, error) {
	t := strings.TrimSpace(token)
	for s, name := range styleNames {
		if strings.EqualFold(t, name) {
			return Style(s), nil
		}
	}
	return 0, invalid("style", t, ErrUnknownStyle)
}

func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StyleSet is a small value-comparable set of styles.
type StyleSet uint32

// NewStyleSet builds a set from the given styles, ignoring duplicates.
func NewStyleSet(styles ...Style) StyleSet {
	var set StyleSet
	for _, s := range styles {
		set = set.With(s)
	}
	return set
}

// With returns a copy of the set that also contains s.
func (set StyleSet) With(s Style) StyleSet {
	if !s.Valid() {
		return set
	}
	return set | 1<<s
}

func (set StyleSet) Has(s Style) bool {
	return s.Valid() && set&(1<<s) != 0
}

func (set StyleSet) Len() int {
	return bits.OnesCount32(uint32(set))
}

func (set StyleSet) Empty() bool {
	return set == 0
}

// Styles lists the members in natural order.
func (set StyleSet) Styles() []Style {
	out := make([]Style, 0, set.Len())
	for s := Style(0); s < numStyles; s++ {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// String renders the set as "[INDIE, POP]".
func (set StyleSet) String() string {
	names := make([]string, 0, set.Len())
	for _, s := range set.Styles() {
		names = append(names, s.String())
	}
	return "[" + strings.Join(names, ", ") + "]"
}
