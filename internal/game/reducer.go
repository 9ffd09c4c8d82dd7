package game

import "encoding/json"

// DraftLookup supplies a player's last saved draft answers for the current
// round, used to backfill players who had not pressed stop when the round
// ended. Returning nil means no draft exists.
type DraftLookup func(playerID string) Answers

// Result describes what a single reduced action did.
type Result struct {
	// Game is the next canonical state. Nil only when Terminated is set.
	Game *Game
	// Changed reports whether the state mutated; the host republishes
	// exactly once per changed action and never on no-ops.
	Changed bool
	// StartScoring is set when the action moved the round into SCORING
	// and the scoring pass must run before the next action.
	StartScoring bool
	// Terminated is set when the host left and the game is over for
	// everyone; the host broadcasts the terminal signal and discards.
	Terminated bool
}

func unchanged(g *Game) Result { return Result{Game: g} }

func changed(g *Game) Result {
	g.Version++
	return Result{Game: g, Changed: true}
}

// Reduce folds one action into the canonical state, returning a new value
// and leaving the input untouched. Preconditions that do not hold make the
// action a silent no-op: a bad action must never corrupt state or stop
// later actions from being processed. Unknown action types are ignored.
//
// Only the host process may call Reduce; that guard lives at the entry of
// the host loop, not in each branch here.
func Reduce(g *Game, act Action, drafts DraftLookup) Result {
	if g == nil {
		return Result{}
	}

	switch act.Type {
	case ActionPlayerJoin:
		var p Player
		if err := json.Unmarshal(act.Payload, &p); err != nil || p.ID == "" {
			return unchanged(g)
		}
		if g.PlayerIndex(p.ID) >= 0 {
			return unchanged(g)
		}
		next := g.Clone()
		p.IsHost = false
		p.Score = 0
		p.AnswersSubmitted = false
		next.Players = append(next.Players, p)
		return changed(next)

	case ActionUpdateAvatar:
		var p AvatarPayload
		if err := json.Unmarshal(act.Payload, &p); err != nil {
			return unchanged(g)
		}
		i := g.PlayerIndex(p.PlayerID)
		if i < 0 {
			return unchanged(g)
		}
		next := g.Clone()
		next.Players[i].AvatarURL = p.AvatarURL
		return changed(next)

	case ActionUpdateSettings:
		if g.Phase != PhaseLobby {
			return unchanged(g)
		}
		var p SettingsPayload
		if err := json.Unmarshal(act.Payload, &p); err != nil {
			return unchanged(g)
		}
		next := g.Clone()
		if p.Rounds != nil && *p.Rounds > 0 {
			next.TotalRounds = *p.Rounds
		}
		if p.RoundDuration != nil && *p.RoundDuration > 0 {
			next.RoundDuration = *p.RoundDuration
		}
		if p.Categories != nil {
			next.Categories = withCoreCategories(p.Categories)
		}
		return changed(next)

	case ActionStartGame:
		if len(g.Players) == 0 {
			return unchanged(g)
		}
		next := g.Clone()
		next.Phase = PhaseSpinning
		next.CurrentRound = 1
		next.UsedLetters = []string{}
		return changed(next)

	case ActionChooseLetter:
		var p LetterPayload
		if err := json.Unmarshal(act.Payload, &p); err != nil || p.Letter == "" {
			return unchanged(g)
		}
		if g.Phase != PhaseSpinning || contains(g.UsedLetters, p.Letter) {
			return unchanged(g)
		}
		next := g.Clone()
		next.CurrentLetter = p.Letter
		next.UsedLetters = append(next.UsedLetters, p.Letter)
		next.Phase = PhasePlaying
		next.RoundData = RoundData{}
		for i := range next.Players {
			next.Players[i].AnswersSubmitted = false
		}
		return changed(next)

	case ActionEndRound:
		var p EndRoundPayload
		if err := json.Unmarshal(act.Payload, &p); err != nil {
			return unchanged(g)
		}
		if g.Phase != PhasePlaying {
			return unchanged(g)
		}
		i := g.PlayerIndex(p.PlayerID)
		if i < 0 || g.Players[i].AnswersSubmitted {
			return unchanged(g)
		}

		next := g.Clone()
		next.Players[i].AnswersSubmitted = true
		next.RoundData[p.PlayerID] = cloneAnswers(p.Answers)

		// The first stop ends the round for everyone. Players who never
		// pressed stop contribute their last saved draft, or nothing.
		for j := range next.Players {
			if next.Players[j].AnswersSubmitted {
				continue
			}
			next.Players[j].AnswersSubmitted = true
			var backfill Answers
			if drafts != nil {
				backfill = drafts(next.Players[j].ID)
			}
			next.RoundData[next.Players[j].ID] = cloneAnswers(backfill)
		}

		next.Phase = PhaseScoring
		res := changed(next)
		res.StartScoring = true
		return res

	case ActionNextRound:
		if g.Phase != PhaseScoring {
			return unchanged(g)
		}
		next := g.Clone()
		if next.CurrentRound >= next.TotalRounds {
			next.Phase = PhaseWinner
			return changed(next)
		}
		next.CurrentRound++
		next.Phase = PhaseSpinning
		next.CurrentLetter = ""
		next.RoundData = RoundData{}
		next.LastRoundScores = nil
		next.RoundValidation = nil
		next.AIError = ""
		return changed(next)

	case ActionOverrideScore:
		var p OverridePayload
		if err := json.Unmarshal(act.Payload, &p); err != nil {
			return unchanged(g)
		}
		if g.Phase != PhaseScoring {
			return unchanged(g)
		}
		prev, ok := g.RoundValidation[p.PlayerID][p.Category]
		if !ok {
			return unchanged(g)
		}
		if prev.Score == p.Score && prev.IsValid == p.IsValid {
			return unchanged(g)
		}
		i := g.PlayerIndex(p.PlayerID)
		if i < 0 {
			return unchanged(g)
		}
		delta := p.Score - prev.Score
		next := g.Clone()
		next.RoundValidation[p.PlayerID][p.Category] = ValidationResult{IsValid: p.IsValid, Score: p.Score}
		next.LastRoundScores[p.PlayerID] += delta
		next.Players[i].Score += delta
		return changed(next)

	case ActionEndGame:
		if g.Phase == PhaseWinner {
			return unchanged(g)
		}
		next := g.Clone()
		next.Phase = PhaseWinner
		return changed(next)

	case ActionPlayAgain:
		if g.Phase != PhaseWinner {
			return unchanged(g)
		}
		next := g.Clone()
		next.Phase = PhaseLobby
		next.CurrentRound = 0
		next.CurrentLetter = ""
		next.UsedLetters = []string{}
		next.RoundData = RoundData{}
		next.LastRoundScores = nil
		next.RoundValidation = nil
		next.AIError = ""
		for i := range next.Players {
			next.Players[i].Score = 0
			next.Players[i].AnswersSubmitted = false
		}
		return changed(next)

	case ActionPlayerLeave:
		var p LeavePayload
		if err := json.Unmarshal(act.Payload, &p); err != nil {
			return unchanged(g)
		}
		i := g.PlayerIndex(p.PlayerID)
		if i < 0 {
			return unchanged(g)
		}
		if g.Players[i].IsHost {
			return Result{Terminated: true, Changed: true}
		}
		next := g.Clone()
		next.Players = append(next.Players[:i], next.Players[i+1:]...)
		delete(next.RoundData, p.PlayerID)
		return changed(next)

	default:
		return unchanged(g)
	}
}

func withCoreCategories(cats []string) []string {
	out := append([]string(nil), CoreCategories...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range cats {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func cloneAnswers(a Answers) Answers {
	out := make(Answers, len(a))
	for cat, ans := range a {
		out[cat] = ans
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
