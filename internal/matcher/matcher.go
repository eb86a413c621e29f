// Package matcher decides which search candidate is the clean version of an explicit track.
//
// Matching is two-phase: a hard filter (candidate must be non-explicit, titles
// must contain one another case-insensitively, primary artists must be equal),
// then a deterministic ranking of the survivors by normalized title similarity,
// popularity, and finally search-result order.
package matcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"cleanwave/internal/models"
)

var (
	// Parenthesized or bracketed version qualifiers: "(Clean)", "[Radio Edit]", etc.
	versionQualifier = regexp.MustCompile(`(?i)[(\[][^)\]]*(clean|explicit|radio edit|edited|version|remaster(ed)?)[^)\]]*[)\]]`)
	// Trailing featured-artist clauses: "feat. X", "ft. X", "featuring X".
	featClause  = regexp.MustCompile(`(?i)\s*[(\[]?\s*(feat\.?|ft\.?|featuring)\s+[^)\]]*[)\]]?\s*$`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Normalize lowercases a title and strips version qualifiers, featured-artist
// clauses, and punctuation so that "Song (Clean) [feat. X]" compares equal to "song".
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = versionQualifier.ReplaceAllString(s, " ")
	s = featClause.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key builds a normalized title|artist comparison key for a track.
func Key(title, artist string) string {
	return Normalize(title) + "|" + Normalize(artist)
}

// IsMatch reports whether cand is a clean version of src.
//
// A candidate matches when it is not explicit, its title and the source title
// contain one another case-insensitively (clean versions often carry suffixes
// like "- Clean"), and the primary artist is the same.
func IsMatch(src, cand models.Track) bool {
	if cand.Explicit {
		return false
	}

	srcTitle := strings.ToLower(src.Title)
	candTitle := strings.ToLower(cand.Title)
	if !strings.Contains(srcTitle, candTitle) && !strings.Contains(candTitle, srcTitle) {
		return false
	}

	return strings.EqualFold(src.Artist, cand.Artist)
}

// Query builds the search query used to find clean candidates for a track.
func Query(t models.Track) string {
	return t.Title + " " + t.Artist + " clean"
}

// Similarity scores how close two strings are after normalization, 0-100.
func Similarity(a, b string) int {
	a, b = Normalize(a), Normalize(b)

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}

	distance := smetrics.WagnerFischer(a, b, 1, 1, 2)
	score := 100 - (distance * 100 / maxLen)
	if score < 0 {
		score = 0
	}
	return score
}

// BestCleanMatch returns the best clean counterpart for src among candidates,
// or false when none matches.
//
// Survivors of [IsMatch] are ranked by normalized title similarity to the
// source, then popularity, then original search-result order. The ordering is
// total, so the selection is deterministic for a given candidate list.
func BestCleanMatch(src models.Track, candidates []models.Track) (models.Track, bool) {
	type ranked struct {
		track models.Track
		score int
		index int
	}

	var matches []ranked
	for i, cand := range candidates {
		if !IsMatch(src, cand) {
			continue
		}
		matches = append(matches, ranked{
			track: cand,
			score: Similarity(src.Title, cand.Title),
			index: i,
		})
	}

	if len(matches) == 0 {
		return models.Track{}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if matches[i].track.Popularity != matches[j].track.Popularity {
			return matches[i].track.Popularity > matches[j].track.Popularity
		}
		return matches[i].index < matches[j].index
	})

	return matches[0].track, true
}
