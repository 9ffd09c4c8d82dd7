package game

import (
	"context"
	"errors"
	"testing"

	"github.com/harfgames/hayawan/internal/oracle"
)

// recordingValidator marks every received item valid (or invalid when listed
// in bad) and remembers what it was asked, so tests can assert on dedupe and
// on the precheck never reaching the oracle.
type recordingValidator struct {
	calls int
	items []oracle.Item
	bad   map[oracle.Item]bool
	err   error
}

func (v *recordingValidator) Validate(_ context.Context, _ string, items []oracle.Item) (map[oracle.Item]bool, error) {
	v.calls++
	v.items = append(v.items, items...)
	if v.err != nil {
		return nil, v.err
	}
	out := make(map[oracle.Item]bool, len(items))
	for _, it := range items {
		out[it] = !v.bad[it]
	}
	return out, nil
}

func scoringGame(letter string, data RoundData) *Game {
	g := New("ABCDE", Player{ID: "p1", Name: "هدى"})
	for _, id := range []string{"p2", "p3"} {
		g = Reduce(g, mustAction(ActionPlayerJoin, Player{ID: id}), nil).Game
	}
	g.Phase = PhaseScoring
	g.CurrentRound = 1
	g.CurrentLetter = letter
	g.RoundData = data
	return g
}

func TestScoreRoundUniquenessRule(t *testing.T) {
	g := scoringGame("س", RoundData{
		"p1": {"حيوان": "سلحفاة", "نبات": "سدر"},
		"p2": {"حيوان": "سلحفاة"},
		"p3": {"حيوان": "سمكة"},
	})

	v := &recordingValidator{}
	got := ScoreRound(context.Background(), v, g)

	// Duplicate valid answer scores 5 for each holder, unique ones 10.
	if got.LastRoundScores["p1"] != 15 {
		t.Errorf("p1 round score = %d, want 15 (5 dup + 10 unique)", got.LastRoundScores["p1"])
	}
	if got.LastRoundScores["p2"] != 5 {
		t.Errorf("p2 round score = %d, want 5", got.LastRoundScores["p2"])
	}
	if got.LastRoundScores["p3"] != 10 {
		t.Errorf("p3 round score = %d, want 10", got.LastRoundScores["p3"])
	}

	// Identical (answer, category) pairs collapse into one oracle item.
	if v.calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", v.calls)
	}
	if len(v.items) != 3 {
		t.Errorf("oracle items = %d, want 3 after dedupe", len(v.items))
	}

	// Round scores fold into cumulative totals.
	if got.Players[got.PlayerIndex("p1")].Score != 15 {
		t.Errorf("p1 cumulative = %d, want 15", got.Players[got.PlayerIndex("p1")].Score)
	}
}

func TestScoreRoundLetterPrecheck(t *testing.T) {
	g := scoringGame("س", RoundData{
		"p1": {"حيوان": "كلب"},
		"p2": {"حيوان": "  سمكة "},
		"p3": {},
	})

	v := &recordingValidator{}
	got := ScoreRound(context.Background(), v, g)

	// The wrong-letter answer scores zero and never reaches the oracle.
	if len(v.items) != 1 {
		t.Fatalf("oracle items = %v, want only the letter-matching one", v.items)
	}
	if v.items[0].Answer != "سمكة" {
		t.Errorf("oracle saw %q, want normalized form", v.items[0].Answer)
	}
	if got.LastRoundScores["p1"] != 0 {
		t.Errorf("wrong-letter score = %d, want 0", got.LastRoundScores["p1"])
	}
	if got.LastRoundScores["p2"] != 10 {
		t.Errorf("trimmed answer score = %d, want 10", got.LastRoundScores["p2"])
	}
	if res := got.RoundValidation["p1"]["حيوان"]; res.IsValid {
		t.Error("wrong-letter answer must be marked invalid")
	}
}

func TestScoreRoundInvalidAnswer(t *testing.T) {
	item := oracle.Item{Category: "حيوان", Answer: "سبانخ"}
	g := scoringGame("س", RoundData{
		"p1": {"حيوان": "سبانخ"},
		"p2": {"حيوان": "سمكة"},
	})

	v := &recordingValidator{bad: map[oracle.Item]bool{item: true}}
	got := ScoreRound(context.Background(), v, g)

	if got.LastRoundScores["p1"] != 0 {
		t.Errorf("invalid answer score = %d, want 0", got.LastRoundScores["p1"])
	}
	if got.LastRoundScores["p2"] != 10 {
		t.Errorf("valid answer score = %d, want 10", got.LastRoundScores["p2"])
	}
}

func TestScoreRoundEmptyRoundSkipsOracle(t *testing.T) {
	g := scoringGame("س", RoundData{"p1": {}, "p2": {}, "p3": {}})

	v := &recordingValidator{}
	got := ScoreRound(context.Background(), v, g)

	if v.calls != 0 {
		t.Fatalf("oracle calls = %d, want 0 for an empty round", v.calls)
	}
	for _, p := range got.Players {
		if got.LastRoundScores[p.ID] != 0 {
			t.Errorf("player %s score = %d, want 0", p.ID, got.LastRoundScores[p.ID])
		}
		if len(got.RoundValidation[p.ID]) != len(got.Categories) {
			t.Errorf("player %s validation covers %d categories, want %d",
				p.ID, len(got.RoundValidation[p.ID]), len(got.Categories))
		}
	}
	if got.AIError != "" {
		t.Errorf("aiError = %q, want empty", got.AIError)
	}
}

func TestScoreRoundOracleFailureZeroesRound(t *testing.T) {
	g := scoringGame("س", RoundData{
		"p1": {"حيوان": "سمكة"},
	})
	g.Players[0].Score = 20

	v := &recordingValidator{err: errors.New("deadline exceeded")}
	got := ScoreRound(context.Background(), v, g)

	if got.AIError == "" {
		t.Fatal("oracle failure must be recorded in aiError")
	}
	if got.LastRoundScores["p1"] != 0 {
		t.Errorf("round score after failure = %d, want 0", got.LastRoundScores["p1"])
	}
	if got.Players[0].Score != 20 {
		t.Errorf("cumulative after failure = %d, must be unchanged", got.Players[0].Score)
	}
	// The round still reached a scored state the host can advance past.
	if got.LastRoundScores == nil || got.RoundValidation == nil {
		t.Error("failed round must still produce score and validation maps")
	}
}

func TestScoreRoundIdempotent(t *testing.T) {
	g := scoringGame("س", RoundData{"p1": {"حيوان": "سمكة"}})

	v := &recordingValidator{}
	first := ScoreRound(context.Background(), v, g)
	second := ScoreRound(context.Background(), v, first)

	if second != first {
		t.Error("an already scored round must come back untouched")
	}
	if v.calls != 1 {
		t.Errorf("oracle calls = %d, want 1", v.calls)
	}
	if second.Players[second.PlayerIndex("p1")].Score != 10 {
		t.Errorf("cumulative = %d, want 10 after double scoring pass", second.Players[0].Score)
	}
}

func TestScoreRoundIgnoresUnknownCategories(t *testing.T) {
	g := scoringGame("س", RoundData{
		"p1": {"كواكب": "ساتورن"},
	})

	v := &recordingValidator{}
	got := ScoreRound(context.Background(), v, g)

	if v.calls != 0 {
		t.Error("answers outside the active categories must not reach the oracle")
	}
	if got.LastRoundScores["p1"] != 0 {
		t.Errorf("score = %d, want 0", got.LastRoundScores["p1"])
	}
}

func TestScoreRoundDoesNotMutateInput(t *testing.T) {
	g := scoringGame("س", RoundData{"p1": {"حيوان": "سمكة"}})

	before := g.Version
	ScoreRound(context.Background(), &recordingValidator{}, g)

	if g.LastRoundScores != nil || g.Players[0].Score != 0 || g.Version != before {
		t.Error("scoring must operate on a copy of the input state")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  سمكة "); got != "سمكة" {
		t.Errorf("Normalize = %q", got)
	}
	if !startsWithLetter("سمكة", "س") {
		t.Error("سمكة starts with س")
	}
	if startsWithLetter("كلب", "س") {
		t.Error("كلب does not start with س")
	}
	if startsWithLetter("", "س") || startsWithLetter("س", "") {
		t.Error("empty inputs never match")
	}
}
