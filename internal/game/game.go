// Package game defines the canonical game aggregate and the
// host-authoritative rules that mutate it. It has no knowledge of
// transports or storage; everything here is pure Go.
package game

// Phase drives which actions are legal at any point in a session.
type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseSpinning Phase = "SPINNING"
	PhasePlaying  Phase = "PLAYING"
	PhaseScoring  Phase = "SCORING"
	PhaseWinner   Phase = "WINNER"
)

// CoreCategories are always part of a game and can never be removed.
var CoreCategories = []string{"نبات", "حيوان", "جماد"}

// OptionalCategories may be toggled by the host while in the lobby.
var OptionalCategories = []string{"بلاد", "اسم", "أكل/شرب", "مهنة", "صفة"}

const (
	DefaultTotalRounds   = 5
	DefaultRoundDuration = 60 // seconds
)

type Player struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Score            int    `json:"score"`
	IsHost           bool   `json:"isHost"`
	AnswersSubmitted bool   `json:"answersSubmitted"`
	AvatarURL        string `json:"avatarUrl,omitempty"`
}

// Answers maps category name to the submitted answer text.
type Answers map[string]string

// RoundData maps player id to that player's answers for the current round.
type RoundData map[string]Answers

// RoundScores maps player id to points earned in the last scored round.
type RoundScores map[string]int

type ValidationResult struct {
	IsValid bool `json:"isValid"`
	Score   int  `json:"score"`
}

// RoundValidation maps player id -> category -> per-answer verdict.
type RoundValidation map[string]map[string]ValidationResult

// Game is the root aggregate, one instance per room. Only the host process
// mutates it; everyone else mirrors whatever the host last published.
// LastRoundScores and RoundValidation stay nil while a round's scoring is
// pending; their absence is what tells the UI to show the judging spinner.
type Game struct {
	Code            string          `json:"gameCode"`
	Phase           Phase           `json:"gameState"`
	Players         []Player        `json:"players"`
	Categories      []string        `json:"categories"`
	TotalRounds     int             `json:"totalRounds"`
	RoundDuration   int             `json:"roundDuration"`
	CurrentRound    int             `json:"currentRound"`
	CurrentLetter   string          `json:"currentLetter"`
	UsedLetters     []string        `json:"usedLetters"`
	RoundData       RoundData       `json:"roundData"`
	LastRoundScores RoundScores     `json:"lastRoundScores,omitempty"`
	RoundValidation RoundValidation `json:"roundValidation,omitempty"`
	AIError         string          `json:"aiError,omitempty"`

	// Version increases on every published snapshot; mirrors discard any
	// snapshot whose version is not greater than the one they hold.
	Version uint64 `json:"version"`
}

// New creates a fresh lobby with host as its only player.
func New(code string, host Player) *Game {
	host.IsHost = true
	host.Score = 0
	host.AnswersSubmitted = false

	return &Game{
		Code:          code,
		Phase:         PhaseLobby,
		Players:       []Player{host},
		Categories:    append([]string(nil), CoreCategories...),
		TotalRounds:   DefaultTotalRounds,
		RoundDuration: DefaultRoundDuration,
		UsedLetters:   []string{},
		RoundData:     RoundData{},
	}
}

// Clone returns a deep copy. The reducer always works on a clone and swaps
// the finished value in atomically, so subscribers never observe a
// half-applied action.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g

	out.Players = append([]Player(nil), g.Players...)
	out.Categories = append([]string(nil), g.Categories...)
	out.UsedLetters = append([]string(nil), g.UsedLetters...)

	out.RoundData = make(RoundData, len(g.RoundData))
	for pid, answers := range g.RoundData {
		a := make(Answers, len(answers))
		for cat, ans := range answers {
			a[cat] = ans
		}
		out.RoundData[pid] = a
	}

	if g.LastRoundScores != nil {
		out.LastRoundScores = make(RoundScores, len(g.LastRoundScores))
		for pid, s := range g.LastRoundScores {
			out.LastRoundScores[pid] = s
		}
	}

	if g.RoundValidation != nil {
		out.RoundValidation = make(RoundValidation, len(g.RoundValidation))
		for pid, cats := range g.RoundValidation {
			m := make(map[string]ValidationResult, len(cats))
			for cat, v := range cats {
				m[cat] = v
			}
			out.RoundValidation[pid] = m
		}
	}

	return &out
}

// PlayerIndex returns the index of the player with the given id, or -1.
func (g *Game) PlayerIndex(id string) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// HostID returns the id of the game's host, or "" if none exists.
func (g *Game) HostID() string {
	for _, p := range g.Players {
		if p.IsHost {
			return p.ID
		}
	}
	return ""
}

// IsHost reports whether the given player id belongs to the host.
func (g *Game) IsHost(id string) bool {
	return id != "" && g.HostID() == id
}

// HasCategory reports whether cat is active this game.
func (g *Game) HasCategory(cat string) bool {
	for _, c := range g.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// AllSubmitted reports whether every player has submitted this round.
func (g *Game) AllSubmitted() bool {
	for _, p := range g.Players {
		if !p.AnswersSubmitted {
			return false
		}
	}
	return len(g.Players) > 0
}
