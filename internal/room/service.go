// Package room owns one client's view of a game session: the transport
// subscriptions, the local mirror of canonical state, the UI observer
// list, and, when the local player is the host, the authoritative
// reducer loop.
package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harfgames/hayawan/internal/game"
	"github.com/harfgames/hayawan/internal/oracle"
	"github.com/harfgames/hayawan/internal/session"
	"github.com/harfgames/hayawan/internal/transport"
)

// terminalSignal is the payload the host broadcasts on the state topic
// when the game ends for everyone; mirrors discard their state on receipt.
var terminalSignal = []byte("null")

var (
	ErrNoGame      = errors.New("room: no active game")
	ErrInGame      = errors.New("room: already in a game")
	ErrNoKnownRoom = errors.New("room: no remembered room to rejoin")
)

// Observer receives every state change; nil means "no game".
type Observer func(*game.Game)

// Service is constructed once per application session and dependency-
// injected wherever state access is needed.
type Service struct {
	logger    *slog.Logger
	bus       transport.PubSub
	prefix    string
	sessions  *session.Store
	validator oracle.Validator

	// oracleTimeout bounds the scoring call so a hung judge cannot stall
	// the round forever.
	oracleTimeout time.Duration

	mu       sync.RWMutex
	game     *game.Game
	playerID string
	subs     map[int]Observer
	nextSub  int

	actionSub transport.Subscription
	stateSub  transport.Subscription

	// hostMu keeps a single reducer invocation in flight: all work for one
	// action, including the awaited oracle call, completes before the next
	// inbound action is folded.
	hostMu sync.Mutex
}

func NewService(logger *slog.Logger, bus transport.PubSub, prefix string, sessions *session.Store, validator oracle.Validator, oracleTimeout time.Duration) *Service {
	return &Service{
		logger:        logger,
		bus:           bus,
		prefix:        prefix,
		sessions:      sessions,
		validator:     validator,
		oracleTimeout: oracleTimeout,
		subs:          make(map[int]Observer),
	}
}

// PlayerID returns the stable local player id, generating it on first use.
func (s *Service) PlayerID(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.playerID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	ident, err := s.sessions.Identity(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.playerID = ident.PlayerID
	s.mu.Unlock()
	return ident.PlayerID, nil
}

// Game returns a snapshot of the mirrored state, or nil when no game exists.
func (s *Service) Game() *game.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Clone()
}

// Subscribe registers an observer and returns a handle for Unsubscribe.
// The observer fires on every mirror swap, including the terminal one.
func (s *Service) Subscribe(fn Observer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	s.subs[s.nextSub] = fn
	return s.nextSub
}

func (s *Service) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Service) notify() {
	s.mu.RLock()
	g := s.game.Clone()
	observers := make([]Observer, 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(g)
	}
}

func (s *Service) topics(code string) transport.Topics {
	return transport.Topics{Prefix: s.prefix, Room: code}
}

// CreateGame starts a new room with the local player as host and begins
// processing actions for it.
func (s *Service) CreateGame(ctx context.Context, playerName string) (*game.Game, error) {
	playerID, err := s.PlayerID(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	existing := s.game != nil
	s.mu.RUnlock()
	if existing {
		return nil, ErrInGame
	}

	if err := s.sessions.SetName(ctx, playerName); err != nil {
		return nil, err
	}

	code := newRoomCode()
	host := game.Player{
		ID:        playerID,
		Name:      playerName,
		IsHost:    true,
		AvatarURL: defaultAvatarURL(playerID),
	}
	g := game.New(code, host)

	// Actions ride the durable grade: a player intent lost in transit has
	// no later message to repair it, unlike state snapshots.
	sub, err := s.bus.SubscribeDurable(ctx, s.topics(code).Actions(), s.handleAction)
	if err != nil {
		return nil, fmt.Errorf("subscribing to actions: %w", err)
	}

	if err := s.sessions.RememberRoom(ctx, code); err != nil {
		sub.Close()
		return nil, err
	}

	s.mu.Lock()
	s.game = g
	s.actionSub = sub
	s.mu.Unlock()

	s.logger.Info("game created", "room", code, "player", playerID)
	s.notify()
	return g.Clone(), nil
}

// JoinGame subscribes to a room's state topic and announces the local
// player to the host. Until the first snapshot arrives, the mirror holds a
// provisional lobby containing only the local player.
func (s *Service) JoinGame(ctx context.Context, code, playerName string) error {
	playerID, err := s.PlayerID(ctx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	existing := s.game != nil
	s.mu.RUnlock()
	if existing {
		return ErrInGame
	}

	if err := s.sessions.SetName(ctx, playerName); err != nil {
		return err
	}

	sub, err := s.bus.Subscribe(ctx, s.topics(code).State(), s.handleState)
	if err != nil {
		return fmt.Errorf("subscribing to state: %w", err)
	}

	self := game.Player{
		ID:        playerID,
		Name:      playerName,
		AvatarURL: defaultAvatarURL(playerID),
	}

	provisional := &game.Game{
		Code:        code,
		Phase:       game.PhaseLobby,
		Players:     []game.Player{self},
		Categories:  []string{},
		UsedLetters: []string{},
		RoundData:   game.RoundData{},
	}

	s.mu.Lock()
	s.game = provisional
	s.stateSub = sub
	s.mu.Unlock()

	if err := s.publishAction(ctx, code, game.ActionPlayerJoin, self); err != nil {
		s.teardown(ctx)
		return err
	}
	if err := s.sessions.RememberRoom(ctx, code); err != nil {
		s.teardown(ctx)
		return err
	}

	s.logger.Info("joined game", "room", code, "player", playerID)
	s.notify()
	return nil
}

// Rejoin reconnects to the last remembered room after a restart.
func (s *Service) Rejoin(ctx context.Context, playerName string) error {
	ident, err := s.sessions.Identity(ctx)
	if err != nil {
		return err
	}
	if ident.LastRoom == "" {
		return ErrNoKnownRoom
	}
	return s.JoinGame(ctx, ident.LastRoom, playerName)
}

// LeaveGame announces departure and discards all local session state. When
// the local player is the host, the reducer turns the leave action into a
// terminal broadcast for everyone else.
func (s *Service) LeaveGame(ctx context.Context) error {
	s.mu.RLock()
	g := s.game
	playerID := s.playerID
	s.mu.RUnlock()
	if g == nil {
		return ErrNoGame
	}

	if g.IsHost(playerID) {
		// The host's departure ends the game for everyone; broadcast the
		// terminal signal directly rather than routing through a reducer
		// that is about to be torn down.
		if err := s.bus.Publish(ctx, s.topics(g.Code).State(), terminalSignal); err != nil {
			s.logger.Warn("publishing terminal state failed", "error", err)
		}
	} else if err := s.publishAction(ctx, g.Code, game.ActionPlayerLeave, game.LeavePayload{PlayerID: playerID}); err != nil {
		s.logger.Warn("publishing leave failed", "error", err)
	}

	s.teardown(ctx)
	s.notify()
	return nil
}

func (s *Service) teardown(ctx context.Context) {
	s.mu.Lock()
	code := ""
	if s.game != nil {
		code = s.game.Code
	}
	s.game = nil
	actionSub, stateSub := s.actionSub, s.stateSub
	s.actionSub, s.stateSub = nil, nil
	s.mu.Unlock()

	if actionSub != nil {
		actionSub.Close()
	}
	if stateSub != nil {
		stateSub.Close()
	}
	if err := s.sessions.ForgetRoom(ctx); err != nil {
		s.logger.Warn("forgetting room failed", "error", err)
	}
	if code != "" {
		if err := s.sessions.ClearRoom(ctx, code); err != nil {
			s.logger.Warn("clearing drafts failed", "error", err)
		}
	}
}

// --- Player intents -------------------------------------------------------

func (s *Service) UpdateSettings(ctx context.Context, p game.SettingsPayload) error {
	return s.publishOwnAction(ctx, game.ActionUpdateSettings, p)
}

func (s *Service) UpdateAvatar(ctx context.Context, avatarURL string) error {
	s.mu.RLock()
	playerID := s.playerID
	s.mu.RUnlock()
	return s.publishOwnAction(ctx, game.ActionUpdateAvatar, game.AvatarPayload{
		PlayerID:  playerID,
		AvatarURL: avatarURL,
	})
}

func (s *Service) StartGame(ctx context.Context) error {
	return s.publishOwnAction(ctx, game.ActionStartGame, nil)
}

func (s *Service) ChooseLetter(ctx context.Context, letter string) error {
	return s.publishOwnAction(ctx, game.ActionChooseLetter, game.LetterPayload{Letter: letter})
}

// SpinLetter picks a random unused letter and submits it.
func (s *Service) SpinLetter(ctx context.Context) (string, error) {
	s.mu.RLock()
	g := s.game
	var used []string
	if g != nil {
		used = append(used, g.UsedLetters...)
	}
	s.mu.RUnlock()
	if g == nil {
		return "", ErrNoGame
	}

	letter, ok := game.PickLetter(used)
	if !ok {
		return "", errors.New("room: no letters left to spin")
	}
	return letter, s.ChooseLetter(ctx, letter)
}

func (s *Service) EndRound(ctx context.Context, answers game.Answers) error {
	s.mu.RLock()
	playerID := s.playerID
	s.mu.RUnlock()
	return s.publishOwnAction(ctx, game.ActionEndRound, game.EndRoundPayload{
		PlayerID: playerID,
		Answers:  answers,
	})
}

func (s *Service) NextRound(ctx context.Context) error {
	return s.publishOwnAction(ctx, game.ActionNextRound, nil)
}

func (s *Service) OverrideScore(ctx context.Context, p game.OverridePayload) error {
	return s.publishOwnAction(ctx, game.ActionOverrideScore, p)
}

func (s *Service) EndGame(ctx context.Context) error {
	return s.publishOwnAction(ctx, game.ActionEndGame, nil)
}

func (s *Service) PlayAgain(ctx context.Context) error {
	return s.publishOwnAction(ctx, game.ActionPlayAgain, nil)
}

// SaveDraft stores the local player's in-progress answers for this round.
func (s *Service) SaveDraft(ctx context.Context, answers game.Answers) error {
	s.mu.RLock()
	g := s.game
	playerID := s.playerID
	s.mu.RUnlock()
	if g == nil || g.CurrentLetter == "" {
		return ErrNoGame
	}
	return s.sessions.SaveDraft(ctx, g.Code, g.CurrentRound, playerID, answers)
}

// Draft returns the local player's saved answers for this round, or nil.
func (s *Service) Draft(ctx context.Context) (game.Answers, error) {
	s.mu.RLock()
	g := s.game
	playerID := s.playerID
	s.mu.RUnlock()
	if g == nil || g.CurrentLetter == "" {
		return nil, ErrNoGame
	}
	answers, err := s.sessions.Draft(ctx, g.Code, g.CurrentRound, playerID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return answers, err
}

func (s *Service) publishOwnAction(ctx context.Context, t game.ActionType, payload any) error {
	s.mu.RLock()
	g := s.game
	s.mu.RUnlock()
	if g == nil {
		return ErrNoGame
	}
	return s.publishAction(ctx, g.Code, t, payload)
}

func (s *Service) publishAction(ctx context.Context, code string, t game.ActionType, payload any) error {
	act, err := game.NewAction(t, payload)
	if err != nil {
		return fmt.Errorf("encoding action: %w", err)
	}
	raw, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encoding action: %w", err)
	}
	return s.bus.PublishDurable(ctx, s.topics(code).Actions(), raw)
}

// --- Host loop ------------------------------------------------------------

// handleAction is the host reducer entry point. The host guard lives here
// once; individual action rules live in game.Reduce. A malformed or
// precondition-failing action is dropped without disturbing state.
func (s *Service) handleAction(_ string, payload []byte) {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()

	s.mu.RLock()
	g := s.game
	playerID := s.playerID
	s.mu.RUnlock()

	if g == nil || !g.IsHost(playerID) {
		return
	}

	var act game.Action
	if err := json.Unmarshal(payload, &act); err != nil {
		s.logger.Warn("dropping malformed action", "error", err)
		return
	}

	ctx := context.Background()
	code, round := g.Code, g.CurrentRound

	drafts := func(pid string) game.Answers {
		answers, err := s.sessions.Draft(ctx, code, round, pid)
		if err != nil {
			return nil
		}
		return answers
	}

	res := game.Reduce(g, act, drafts)

	if res.Terminated {
		s.logger.Info("host left, terminating game", "room", code)
		if err := s.bus.Publish(ctx, s.topics(code).State(), terminalSignal); err != nil {
			s.logger.Warn("publishing terminal state failed", "error", err)
		}
		s.teardown(ctx)
		s.notify()
		return
	}

	if !res.Changed {
		return
	}

	s.swapAndPublish(ctx, res.Game)

	if res.StartScoring {
		// The SCORING snapshot above is already visible, so everyone sees
		// the judging spinner while the oracle call is in flight.
		octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
		scored := game.ScoreRound(octx, s.validator, res.Game)
		cancel()
		if scored.AIError != "" {
			s.logger.Warn("round scoring fell back to zero", "room", code, "error", scored.AIError)
		}
		s.swapAndPublish(ctx, scored)
	}
}

// swapAndPublish atomically installs the new canonical state, broadcasts
// it, and notifies local observers. The host treats its own published
// snapshot as authoritative from this point on.
func (s *Service) swapAndPublish(ctx context.Context, g *game.Game) {
	s.mu.Lock()
	s.game = g
	s.mu.Unlock()

	raw, err := json.Marshal(g)
	if err != nil {
		s.logger.Error("encoding state failed", "error", err)
		return
	}
	if err := s.bus.Publish(ctx, s.topics(g.Code).State(), raw); err != nil {
		s.logger.Warn("publishing state failed", "error", err)
	}
	s.notify()
}

// --- Mirror ---------------------------------------------------------------

// handleState replaces the local mirror with the host's latest snapshot.
// No partial merge: the full value swaps in, and stale or duplicated
// snapshots (version not greater than mirrored) are discarded.
func (s *Service) handleState(_ string, payload []byte) {
	if string(payload) == string(terminalSignal) {
		s.logger.Info("host ended the session")
		s.teardown(context.Background())
		s.notify()
		return
	}

	var incoming game.Game
	if err := json.Unmarshal(payload, &incoming); err != nil {
		s.logger.Warn("dropping malformed state snapshot", "error", err)
		return
	}

	s.mu.Lock()
	if s.game == nil {
		s.mu.Unlock()
		return
	}
	// The host never takes snapshots from the wire; it already holds the
	// canonical value.
	if incoming.IsHost(s.playerID) {
		s.mu.Unlock()
		return
	}
	if incoming.Version <= s.game.Version && s.game.Version != 0 {
		s.mu.Unlock()
		return
	}
	s.game = &incoming
	s.mu.Unlock()

	s.notify()
}

// --- Helpers --------------------------------------------------------------

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newRoomCode() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}

func defaultAvatarURL(playerID string) string {
	return "https://api.dicebear.com/8.x/bottts-neutral/svg?seed=" + playerID
}
