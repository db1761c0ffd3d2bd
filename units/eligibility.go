package units

import (
	"fmt"
	"strings"
)

// Rules are the small-parcel ceilings for one destination region. All limits
// are metric. A zero WarnKilograms disables the heavy-package warning.
type Rules struct {
	Region         string
	MaxKilograms   float64
	WarnKilograms  float64
	MaxSideCentims float64
}

var (
	euRules = Rules{Region: "EU", MaxKilograms: 23, WarnKilograms: 15, MaxSideCentims: 63.5}
	usRules = Rules{Region: "US", MaxKilograms: PoundsToKilograms(50), MaxSideCentims: 63.5}
)

// RulesFor returns the ceilings for a destination country code. EU members
// and unknown countries get the EU rules, which are the strictest.
func RulesFor(country string) Rules {
	c := strings.ToUpper(strings.TrimSpace(country))
	switch {
	case c == "US" || c == "CA" || c == "MX":
		r := usRules
		r.Region = c
		return r
	case c == "GB" || c == "UK":
		r := euRules
		r.Region = "UK"
		return r
	}
	return euRules
}

// Violation is one package exceeding a hard ceiling.
type Violation struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("package %d: %s", v.Index+1, v.Detail)
}

// Check validates packages against the rules. Incomplete packages are
// skipped; they are handled by NormalizePackages.
func (r Rules) Check(pkgs []Package) (violations []Violation, warnings []string) {
	for i, p := range pkgs {
		if !p.Complete() {
			continue
		}
		kg := p.Weight.Kilograms()
		switch {
		case kg > r.MaxKilograms:
			violations = append(violations, Violation{
				Index:  i,
				Field:  "weight",
				Detail: fmt.Sprintf("weight %.2f kg exceeds the %s small-parcel limit of %.2f kg", kg, r.Region, r.MaxKilograms),
			})
		case r.WarnKilograms > 0 && kg > r.WarnKilograms:
			warnings = append(warnings, fmt.Sprintf(
				"package %d weighs %.2f kg and must be marked as a heavy package", i+1, kg))
		}
		if side := p.Dimensions.Centimeters().Longest(); side > r.MaxSideCentims {
			violations = append(violations, Violation{
				Index:  i,
				Field:  "dimensions",
				Detail: fmt.Sprintf("side %.2f cm exceeds the %s small-parcel limit of %.2f cm", side, r.Region, r.MaxSideCentims),
			})
		}
	}
	return violations, warnings
}
