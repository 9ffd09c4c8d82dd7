package game

import (
	"context"
	"strings"

	"github.com/harfgames/hayawan/internal/oracle"
)

// Point values for the uniqueness rule.
const (
	scoreUnique    = 10
	scoreDuplicate = 5
)

// Normalize is the canonical answer form used for duplicate detection and
// the letter precheck: trimmed and case-folded.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// startsWithLetter checks the local validity precondition, so answers with
// the wrong first letter never spend an oracle call.
func startsWithLetter(norm, letter string) bool {
	letter = Normalize(letter)
	if norm == "" || letter == "" {
		return false
	}
	return strings.HasPrefix(norm, letter)
}

// ScoreRound turns RoundData into LastRoundScores and RoundValidation and
// folds the round into cumulative player scores. It is idempotent: a round
// that already has scores comes back untouched, so re-entering scoring can
// never double-count.
//
// Oracle failure fails the whole round: every player scores zero, cumulative
// totals stay unchanged, and AIError records the failure for display. The
// host can still advance rounds or override scores manually afterwards.
func ScoreRound(ctx context.Context, v oracle.Validator, g *Game) *Game {
	if g == nil || g.LastRoundScores != nil {
		return g
	}

	next := g.Clone()

	type entry struct {
		playerID string
		category string
		norm     string
	}

	// Collect non-empty answers and dedupe identical (answer, category)
	// pairs across players into one oracle item each.
	var entries []entry
	itemSet := make(map[oracle.Item]bool)
	for _, p := range next.Players {
		for cat, raw := range next.RoundData[p.ID] {
			if !next.HasCategory(cat) {
				continue
			}
			norm := Normalize(raw)
			if norm == "" {
				continue
			}
			entries = append(entries, entry{playerID: p.ID, category: cat, norm: norm})
			if startsWithLetter(norm, next.CurrentLetter) {
				itemSet[oracle.Item{Category: cat, Answer: norm}] = true
			}
		}
	}

	zeroOut := func(aiError string) *Game {
		next.LastRoundScores = RoundScores{}
		next.RoundValidation = RoundValidation{}
		for _, p := range next.Players {
			next.LastRoundScores[p.ID] = 0
			cats := make(map[string]ValidationResult, len(next.Categories))
			for _, cat := range next.Categories {
				cats[cat] = ValidationResult{}
			}
			next.RoundValidation[p.ID] = cats
		}
		next.AIError = aiError
		next.Version++
		return next
	}

	// Nothing to judge: the round scores zero without consulting the oracle.
	if len(entries) == 0 {
		return zeroOut("")
	}

	valid := map[oracle.Item]bool{}
	if len(itemSet) > 0 {
		items := make([]oracle.Item, 0, len(itemSet))
		for it := range itemSet {
			items = append(items, it)
		}
		verdicts, err := v.Validate(ctx, next.CurrentLetter, items)
		if err != nil {
			return zeroOut(err.Error())
		}
		valid = verdicts
	}

	// Count, per category, how many players used each valid normalized
	// answer; a duplicate is any count above one.
	useCount := make(map[oracle.Item]int)
	for _, e := range entries {
		it := oracle.Item{Category: e.category, Answer: e.norm}
		if valid[it] {
			useCount[it]++
		}
	}

	next.LastRoundScores = RoundScores{}
	next.RoundValidation = RoundValidation{}
	for _, p := range next.Players {
		next.LastRoundScores[p.ID] = 0
		cats := make(map[string]ValidationResult, len(next.Categories))
		for _, cat := range next.Categories {
			cats[cat] = ValidationResult{}
		}
		next.RoundValidation[p.ID] = cats
	}

	for _, e := range entries {
		it := oracle.Item{Category: e.category, Answer: e.norm}
		if !valid[it] {
			continue
		}
		points := scoreUnique
		if useCount[it] > 1 {
			points = scoreDuplicate
		}
		next.RoundValidation[e.playerID][e.category] = ValidationResult{IsValid: true, Score: points}
		next.LastRoundScores[e.playerID] += points
	}

	for i := range next.Players {
		next.Players[i].Score += next.LastRoundScores[next.Players[i].ID]
	}

	next.Version++
	return next
}
