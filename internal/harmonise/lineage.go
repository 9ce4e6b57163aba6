package harmonise

import (
	"strings"

	"biocompare/domain/compare"
)

// rankPrefixes maps ranks to their SILVA/QIIME-style lineage prefixes
var rankPrefixes = map[compare.Rank]string{
	compare.RankDomain:  "d__",
	compare.RankKingdom: "k__",
	compare.RankPhylum:  "p__",
	compare.RankClass:   "c__",
	compare.RankOrder:   "o__",
	compare.RankFamily:  "f__",
	compare.RankGenus:   "g__",
	compare.RankSpecies: "s__",
}

// splitLineage breaks a lineage string into trimmed tokens.
// Both ';' and '|' act as separators.
func splitLineage(lineage string) []string {
	parts := strings.FieldsFunc(lineage, func(r rune) bool {
		return r == ';' || r == '|'
	})
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ExtractRank resolves the taxon name at the target rank from a lineage
// string. Strategies are tried in order until one yields a usable name:
//
//  1. prefix match: first token carrying the target rank's prefix
//  2. positional: token at the rank's position in lineage order
//  3. reverse scan: last token that is not empty, a placeholder, or
//     literally "unclassified"
//
// When nothing usable is found the literal label "Unclassified" is returned.
func ExtractRank(lineage string, rank compare.Rank) string {
	parts := splitLineage(lineage)
	prefix := rankPrefixes[rank]

	if name, ok := byPrefix(parts, prefix); ok {
		return name
	}
	if name, ok := byPosition(parts, rank); ok {
		return name
	}
	if name, ok := byReverseScan(parts); ok {
		return name
	}
	return "Unclassified"
}

// byPrefix finds the first token with the target rank prefix
func byPrefix(parts []string, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	for _, part := range parts {
		if strings.HasPrefix(part, prefix) {
			name := part[len(prefix):]
			if usable(name) {
				return name, true
			}
		}
	}
	return "", false
}

// byPosition indexes into the tokens by the rank's lineage position
func byPosition(parts []string, rank compare.Rank) (string, bool) {
	idx := -1
	for i, r := range compare.Ranks {
		if r == rank {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(parts) {
		return "", false
	}
	name := stripAnyPrefix(parts[idx])
	if usable(name) {
		return name, true
	}
	return "", false
}

// byReverseScan returns the last meaningful token in the lineage
func byReverseScan(parts []string) (string, bool) {
	for i := len(parts) - 1; i >= 0; i-- {
		name := stripAnyPrefix(parts[i])
		if usable(name) && name != "unclassified" {
			return name, true
		}
	}
	return "", false
}

// stripAnyPrefix removes the first recognised rank prefix, if any
func stripAnyPrefix(token string) string {
	for _, p := range rankPrefixes {
		if strings.HasPrefix(token, p) {
			return token[len(p):]
		}
	}
	return token
}

func usable(name string) bool {
	return name != "" && name != "__"
}

// CleanTaxonName standardises a resolved taxon name: recognised rank
// prefixes are stripped, trailing underscores removed, and internal
// whitespace runs collapsed. Empty or placeholder results become
// "Unclassified". Cleaning an already-clean name is a no-op.
func CleanTaxonName(name string) string {
	clean := strings.TrimSpace(name)
	clean = stripAnyPrefix(clean)
	clean = strings.TrimRight(clean, "_")
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" || clean == "__" {
		return "Unclassified"
	}
	return clean
}
