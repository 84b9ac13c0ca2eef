package records

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	collabSeparator = regexp.MustCompile(`(?i)\s+(?:&|and|b2b|b3b)\s+`)
	remixCredit     = regexp.MustCompile(`\(([^()]*)\)`)
	remixNoise      = regexp.MustCompile(`(?i)\b(?:remix|edit|bootleg|version|vocal mix|instrumental mix|instrumental|mix|dub)\b`)
	numberedColumn  = regexp.MustCompile(`\d+$`)
)

// SplitCollaborations rewrites every un-numbered slot holding several
// performers ("A & B", "A b2b B") into numbered columns: DJ becomes DJ0, DJ1.
// Columns already ending in a digit are left alone.
func SplitCollaborations(r Record) Record {
	out := r
	out.Slots = make(map[string]string, len(r.Slots))
	for _, col := range r.Columns() {
		name := r.Slots[col]
		if numberedColumn.MatchString(col) {
			out.Slots[col] = name
			continue
		}
		parts := collabSeparator.Split(name, -1)
		i := 0
		for _, p := range parts {
			p = NormalizeName(p)
			if p == "" {
				continue
			}
			out.Slots[fmt.Sprintf("%s%d", col, i)] = p
			i++
		}
	}
	return out
}

// ExtractRemixers moves parenthesised remix credits out of the track name
// into RemixOrEdit0..n slots. "Track (Four Tet & Floating Points Remix)"
// yields two remixer slots. Existing RemixOrEdit slots are kept.
func ExtractRemixers(r Record) Record {
	m := remixCredit.FindStringSubmatch(r.TrackName)
	if m == nil {
		return r
	}
	credit := NormalizeName(remixNoise.ReplaceAllString(m[1], ""))
	if credit == "" {
		return r
	}
	out := r
	out.Slots = make(map[string]string, len(r.Slots)+2)
	next := 0
	for col, name := range r.Slots {
		out.Slots[col] = name
		if strings.HasPrefix(col, "RemixOrEdit") {
			next++
		}
	}
	for _, p := range collabSeparator.Split(credit, -1) {
		if p = NormalizeName(p); p == "" {
			continue
		}
		out.Slots[fmt.Sprintf("RemixOrEdit%d", next)] = p
		next++
	}
	return out
}
