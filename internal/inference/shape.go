package inference

import (
	"fmt"
	"unicode"
)

// Thresholds are the tunable constants behind shape classification. They
// are heuristic, not statistically derived; the defaults reproduce the
// observed behavior and can be overridden per call.
type Thresholds struct {
	// MinPatternMeasures is the measure-column count required before a
	// naming pattern is trusted as a wide signal.
	MinPatternMeasures int
	// MinRatioMeasures is the measure-column count required for the
	// lower-confidence numeric-dominance rule.
	MinRatioMeasures int
	// MeasureDominance is the multiple by which measures must outnumber
	// identifiers for the dominance rule.
	MeasureDominance int
	// AffixCoverage is the fraction of the shortest measure name a shared
	// prefix or suffix must cover.
	AffixCoverage float64
	// MinAffixLen is the minimum shared prefix/suffix length in bytes.
	MinAffixLen int
	// TypeDiversity is the fraction of the column count the distinct-type
	// count must reach for the long-table rule.
	TypeDiversity float64
	// MaxLongColumns caps the column count for the long-table rule.
	MaxLongColumns int
}

// DefaultThresholds returns the standard classification constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPatternMeasures: 3,
		MinRatioMeasures:   4,
		MeasureDominance:   2,
		AffixCoverage:      0.4,
		MinAffixLen:        2,
		TypeDiversity:      0.5,
		MaxLongColumns:     10,
	}
}

// ClassifyShape classifies one table as wide, long, or ambiguous and
// proposes reshape parameters, using the default thresholds. fkColumns
// names columns known (from relation edges) to reference another table;
// they are treated as identifiers even when numeric.
func ClassifyShape(cols []Column, profiles []ColumnProfile, fkColumns []string) ShapeAnalysis {
	return ClassifyShapeWith(DefaultThresholds(), cols, profiles, fkColumns)
}

// ClassifyShapeWith is ClassifyShape with explicit thresholds. Rules are
// evaluated in strict priority order, first match wins:
//
//  1. wide by naming pattern (trailing numbers or a shared affix)
//  2. wide by sheer numeric dominance
//  3. long by declared-type diversity
//  4. ambiguous — callers must treat this as "ask the user"
//
// Tables with fewer than three columns are always ambiguous: no pattern
// test is meaningful at that size.
func ClassifyShapeWith(th Thresholds, cols []Column, profiles []ColumnProfile, fkColumns []string) ShapeAnalysis {
	fk := make(map[string]bool, len(fkColumns))
	for _, name := range fkColumns {
		fk[name] = true
	}

	keyed := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.IsPrimaryKeyCandidate || p.IsIdentityLike {
			keyed[p.Name] = true
		}
	}

	var idVars, valueVars []string
	for _, c := range cols {
		if c.Type.IsNumeric() && !keyed[c.Name] && !fk[c.Name] {
			valueVars = append(valueVars, c.Name)
		} else {
			idVars = append(idVars, c.Name)
		}
	}

	if len(cols) < 3 {
		return ambiguous(idVars, "table has too few columns to classify")
	}

	// Rule 1: wide via naming pattern.
	if len(valueVars) >= th.MinPatternMeasures {
		if pattern, ok := measureNamePattern(th, valueVars); ok {
			return ShapeAnalysis{
				Shape:                ShapeWide,
				RecommendedDirection: WideToLong,
				Reason:               fmt.Sprintf("%d measure columns share a name pattern (%s)", len(valueVars), pattern),
				SuggestedIDVars:      idVars,
				SuggestedValueVars:   valueVars,
			}
		}
	}

	// Rule 2: wide via ratio. Lower confidence: numeric dominance only.
	if len(valueVars) >= th.MinRatioMeasures && len(valueVars) > th.MeasureDominance*len(idVars) {
		return ShapeAnalysis{
			Shape:                ShapeWide,
			RecommendedDirection: WideToLong,
			Reason:               fmt.Sprintf("numeric columns dominate identifiers %d to %d", len(valueVars), len(idVars)),
			SuggestedIDVars:      idVars,
			SuggestedValueVars:   valueVars,
		}
	}

	// Rule 3: long via type diversity. The pivot columns of a long table
	// cannot be guessed, so no value vars are suggested.
	distinct := distinctTypeCount(cols)
	if distinct >= ceilFrac(th.TypeDiversity, len(cols)) && len(cols) <= th.MaxLongColumns {
		return ShapeAnalysis{
			Shape:                ShapeLong,
			RecommendedDirection: LongToWide,
			Reason:               fmt.Sprintf("column types are diverse: %d distinct types across %d columns", distinct, len(cols)),
			SuggestedIDVars:      idVars,
			SuggestedValueVars:   []string{},
		}
	}

	return ambiguous(idVars, "no clear wide or long signal")
}

func ambiguous(idVars []string, reason string) ShapeAnalysis {
	return ShapeAnalysis{
		Shape: ShapeAmbiguous,
		// Deterministic default, not a real recommendation.
		RecommendedDirection: WideToLong,
		Reason:               reason,
		SuggestedIDVars:      idVars,
		SuggestedValueVars:   []string{},
	}
}

// measureNamePattern checks the two structural patterns that mark repeated
// measurement columns: every name ending in a trailing number, or a shared
// prefix/suffix covering enough of the shortest name.
func measureNamePattern(th Thresholds, names []string) (string, bool) {
	if allTrailingNumber(names) {
		return "trailing number", true
	}

	shortest := len(names[0])
	for _, n := range names[1:] {
		if len(n) < shortest {
			shortest = len(n)
		}
	}
	covers := func(affix string) bool {
		return len(affix) >= th.MinAffixLen &&
			float64(len(affix)) >= th.AffixCoverage*float64(shortest)
	}

	if p := commonPrefix(names); covers(p) {
		return fmt.Sprintf("shared prefix %q", p), true
	}
	if s := commonSuffix(names); covers(s) {
		return fmt.Sprintf("shared suffix %q", s), true
	}
	return "", false
}

func allTrailingNumber(names []string) bool {
	for _, n := range names {
		runes := []rune(n)
		if len(runes) == 0 || !unicode.IsDigit(runes[len(runes)-1]) {
			return false
		}
	}
	return true
}

func commonPrefix(names []string) string {
	p := names[0]
	for _, n := range names[1:] {
		for len(p) > 0 && (len(n) < len(p) || n[:len(p)] != p) {
			p = p[:len(p)-1]
		}
		if p == "" {
			return ""
		}
	}
	return p
}

func commonSuffix(names []string) string {
	s := names[0]
	for _, n := range names[1:] {
		for len(s) > 0 && (len(n) < len(s) || n[len(n)-len(s):] != s) {
			s = s[1:]
		}
		if s == "" {
			return ""
		}
	}
	return s
}

func distinctTypeCount(cols []Column) int {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[string(c.Type)] = true
	}
	return len(seen)
}

// ceilFrac returns ceil(frac × n).
func ceilFrac(frac float64, n int) int {
	v := frac * float64(n)
	w := int(v)
	if v > float64(w) {
		w++
	}
	return w
}
