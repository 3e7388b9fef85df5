package template

import (
	"strings"

	"vowcraft/internal/domain/models/invitation"
	tmpl "vowcraft/internal/domain/models/template"
)

// scoreEpsilon treats scores this close as a tie.
const scoreEpsilon = 1e-9

// Match is a template chosen by score.
type Match struct {
	Template tmpl.Metadata
	Score    float64
}

// Score rates how well a template fits the extracted signals, in [0, 1].
func Score(signals tmpl.Signals, t tmpl.Metadata, w tmpl.Weights) float64 {
	total := w.Category + w.Palette + w.Typography
	if total <= 0 {
		return 0
	}
	var category float64
	if signals.Category != "" && normalize(signals.Category) == normalize(t.Category) {
		category = 1
	}
	palette := jaccard(tagSet(signals.PaletteTags), tagSet(t.Style.PaletteTags))
	typography := jaccard(tagSet(signals.TypographyTags), tagSet(t.Style.TypographyTags))
	return (w.Category*category + w.Palette*palette + w.Typography*typography) / total
}

// MatchBestTemplate returns the highest scoring template, or nil when signals
// are empty or no template reaches w.MinScore. Ties go to the higher priority,
// then to the earlier catalog entry. The result depends only on the inputs.
func MatchBestTemplate(signals tmpl.Signals, templates []tmpl.Metadata, w tmpl.Weights) *Match {
	if signals.IsEmpty() {
		return nil
	}
	var best *Match
	for _, t := range templates {
		score := Score(signals, t, w)
		if score+scoreEpsilon < w.MinScore {
			continue
		}
		if best == nil || better(score, t.Priority, best.Score, best.Template.Priority) {
			best = &Match{Template: t, Score: score}
		}
	}
	return best
}

// SelectFallbackTemplate picks a template from the document composition alone:
// the template whose required types overlap the present types most. An empty
// catalog yields the built-in default.
func SelectFallbackTemplate(templates []tmpl.Metadata, composition []invitation.BlockType) tmpl.Metadata {
	if len(templates) == 0 {
		return tmpl.DefaultTemplate()
	}
	present := make(map[string]struct{}, len(composition))
	for _, bt := range composition {
		present[string(bt)] = struct{}{}
	}

	bestIdx, bestScore := 0, -1.0
	for i, t := range templates {
		required := make(map[string]struct{}, len(t.Required))
		for _, bt := range t.Required {
			required[string(bt)] = struct{}{}
		}
		score := jaccard(present, required)
		if bestScore < 0 || better(score, t.Priority, bestScore, templates[bestIdx].Priority) {
			bestIdx, bestScore = i, score
		}
	}
	return templates[bestIdx]
}

// better reports whether a candidate beats the incumbent. Equal candidates
// never win, so the earlier catalog entry is kept.
func better(score float64, priority int, bestScore float64, bestPriority int) bool {
	if score > bestScore+scoreEpsilon {
		return true
	}
	if score < bestScore-scoreEpsilon {
		return false
	}
	return priority > bestPriority
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if n := normalize(tag); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
