package stage

import (
	"strings"
	"unicode"
)

// Kind is one effect family.
type Kind int

const (
	FaceSwap Kind = iota
	Cartoon
	StyleTransfer
	Detect
	Psychedelic

	numKinds
)

// Order is the composition order of the stages within one frame.
var Order = []Kind{FaceSwap, Cartoon, StyleTransfer, Detect, Psychedelic}

var names = [numKinds]string{
	FaceSwap:      "faceswap",
	Cartoon:       "cartoon",
	StyleTransfer: "style_transfer",
	Detect:        "detect",
	Psychedelic:   "psych",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return names[k]
}

// aliases maps every accepted token to its stage.
var aliases = map[string]Kind{
	"faceswap":       FaceSwap,
	"face_swap":      FaceSwap,
	"cyclegan":       Cartoon,
	"cartoon":        Cartoon,
	"style_transfer": StyleTransfer,
	"style":          StyleTransfer,
	"yolo":           Detect,
	"detect":         Detect,
	"psych":          Psychedelic,
	"psychedelic":    Psychedelic,
}

// Set is a set of enabled stages. A kind is either in it or not, so no stage runs twice.
type Set uint8

func (s Set) Has(k Kind) bool { return s&(1<<uint(k)) != 0 }

func (s Set) With(k Kind) Set { return s | 1<<uint(k) }

// Kinds lists the enabled stages in composition order.
func (s Set) Kinds() []Kind {
	var out []Kind
	for _, k := range Order {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s Set) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, k := range s.Kinds() {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, "+")
}

// Parse resolves stage selectors such as "faceswap+psych" or ["style", "yolo"].
// Selectors are split on '+', ',', '|' and whitespace and every token must be a known
// alias. Unknown tokens are returned so the caller can report them.
func Parse(selectors []string) (Set, []string) {
	var set Set
	var unknown []string
	for _, sel := range selectors {
		tokens := strings.FieldsFunc(strings.ToLower(sel), func(r rune) bool {
			return r == '+' || r == ',' || r == '|' || unicode.IsSpace(r)
		})
		for _, tok := range tokens {
			k, ok := aliases[tok]
			if !ok {
				unknown = append(unknown, tok)
				continue
			}
			set = set.With(k)
		}
	}
	return set, unknown
}
