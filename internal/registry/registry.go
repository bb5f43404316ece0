package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Room codes are two decimal digits, 10 through 99. With 90 possible codes a
// bounded retry beats spinning when the space fills up.
const (
	codeMin  = 10
	codeSpan = 90

	maxCodeAttempts = 512
)

var ErrNotFinished = errors.New("session is not finished")

// roomEntry pairs a session with its own lock so distinct rooms never
// contend. removed marks an entry evicted from the maps; late holders of the
// lock must not touch the session as if it were live.
type roomEntry struct {
	mu      sync.Mutex
	removed bool
	session *entity.Session
}

// Registry is the process-wide room directory. The registry mutex guards the
// two maps and code allocation only; everything touching a session's state
// runs under that session's entry lock.
type Registry struct {
	logger *slog.Logger
	intn   entity.Intn

	mu           sync.Mutex
	sessions     map[string]*roomEntry
	roomByPlayer map[string]string
}

func New(logger *slog.Logger, intn entity.Intn) *Registry {
	if intn == nil {
		intn = rand.Intn //nolint:gosec // game shuffles and room codes, not secrets
	}

	return &Registry{
		logger: logger.With("component", "registry"),
		intn:   intn,

		sessions:     make(map[string]*roomEntry),
		roomByPlayer: make(map[string]string),
	}
}

// CreateRoom - allocates a fresh code and inserts a waiting session with the
// owner as its only player. Generation and insertion share one critical
// section so concurrent creators cannot claim the same code.
func (that *Registry) CreateRoom(ownerID, ownerName string) (*entity.Snapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.roomByPlayer[ownerID]; ok {
		return nil, apperror.ErrAlreadyInRoom
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := strconv.Itoa(codeMin + that.intn(codeSpan))
		if _, taken := that.sessions[code]; taken {
			continue
		}

		session := entity.NewSession(code, &entity.Player{ID: ownerID, Name: ownerName})

		that.sessions[code] = &roomEntry{session: session}
		that.roomByPlayer[ownerID] = code

		return session.Snapshot(), nil
	}

	return nil, apperror.ErrNoFreeRoomCode
}

// JoinRoom - appends the second player, assigns marks and starts the game.
func (that *Registry) JoinRoom(code, playerID, playerName string) (*entity.Snapshot, error) {
	entry, err := that.entryByCode(code, playerID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return nil, apperror.ErrRoomNotFound
	}

	if len(entry.session.Players) >= 2 {
		return nil, apperror.ErrRoomFull
	}

	// Claim the back reference before mutating the session; a concurrent
	// create or join by the same player must observe the membership.
	that.mu.Lock()
	if _, ok := that.roomByPlayer[playerID]; ok {
		that.mu.Unlock()
		return nil, apperror.ErrAlreadyInRoom
	}
	that.roomByPlayer[playerID] = code
	that.mu.Unlock()

	entry.session.Players = append(entry.session.Players, &entity.Player{ID: playerID, Name: playerName})

	if err = entry.session.AssignMarks(that.intn); err != nil {
		return nil, fmt.Errorf("failed to assign marks: %w", err)
	}

	entry.session.Status = entity.StatusOngoing

	return entry.session.Snapshot(), nil
}

// LookupByPlayer - returns a snapshot of the session the player occupies.
func (that *Registry) LookupByPlayer(playerID string) (*entity.Snapshot, error) {
	entry, err := that.entryByPlayer(playerID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return nil, apperror.ErrNotInRoom
	}

	return entry.session.Snapshot(), nil
}

// UpdateByPlayer - runs fn inside the exclusive section of the player's
// session and returns a post-mutation snapshot. fn returning an error leaves
// the session untouched from the caller's point of view; fn itself must not
// partially mutate on failure.
func (that *Registry) UpdateByPlayer(playerID string, fn func(session *entity.Session) error) (*entity.Snapshot, error) {
	entry, err := that.entryByPlayer(playerID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return nil, apperror.ErrNotInRoom
	}

	if err = fn(entry.session); err != nil {
		return nil, err
	}

	return entry.session.Snapshot(), nil
}

// RematchByPlayer - restarts a finished session in place: same players, same
// code, fresh board, re-randomized first mover.
func (that *Registry) RematchByPlayer(playerID string) (*entity.Snapshot, error) {
	return that.UpdateByPlayer(playerID, func(session *entity.Session) error {
		if !session.IsFinished() {
			return ErrNotFinished
		}

		return session.Rematch(that.intn)
	})
}

// SetMessageRef - records the outbound message handle for a player, so later
// updates edit the same message. A vanished room is fine; the ref dies with it.
func (that *Registry) SetMessageRef(code, playerID, ref string) {
	that.mu.Lock()
	entry, ok := that.sessions[code]
	that.mu.Unlock()

	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return
	}

	if entry.session.PlayerByID(playerID) != nil {
		entry.session.Refs[playerID] = ref
	}
}

// TerminateByPlayer - tears down the session the player occupies, evicting
// both players. The final snapshot lets the caller notify everyone involved.
func (that *Registry) TerminateByPlayer(playerID string) (*entity.Snapshot, error) {
	that.mu.Lock()
	code, ok := that.roomByPlayer[playerID]
	that.mu.Unlock()

	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	return that.Terminate(code)
}

// Terminate - removes the session and every player mapping pointing at it.
// Idempotent: terminating an absent code returns ErrNotInRoom-free nil state.
func (that *Registry) Terminate(code string) (*entity.Snapshot, error) {
	that.mu.Lock()
	entry, ok := that.sessions[code]
	that.mu.Unlock()

	if !ok {
		return nil, nil
	}

	entry.mu.Lock()
	if entry.removed {
		entry.mu.Unlock()
		return nil, nil
	}
	entry.removed = true
	snapshot := entry.session.Snapshot()
	entry.mu.Unlock()

	// Both maps drop their entries in one critical section, keeping the
	// back reference consistent with session membership at all times.
	that.mu.Lock()
	delete(that.sessions, code)
	for _, player := range snapshot.Players {
		delete(that.roomByPlayer, player.ID)
	}
	that.mu.Unlock()

	that.logger.Info("room terminated", "code", code)

	return snapshot, nil
}

func (that *Registry) entryByCode(code, playerID string) (*roomEntry, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.roomByPlayer[playerID]; ok {
		return nil, apperror.ErrAlreadyInRoom
	}

	entry, ok := that.sessions[code]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return entry, nil
}

func (that *Registry) entryByPlayer(playerID string) (*roomEntry, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	code, ok := that.roomByPlayer[playerID]
	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	entry, ok := that.sessions[code]
	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	return entry, nil
}
