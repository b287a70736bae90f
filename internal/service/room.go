package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"clone-game-be/internal/generator"
	"clone-game-be/internal/service/dto"
	"clone-game-be/internal/service/game"
	"clone-game-be/internal/store"

	"go.uber.org/zap"
)

// RoomService owns the room registry: one GameMachine goroutine per room,
// snapshots written behind to the shared document store, and a periodic
// sweep reaping rooms whose game has ended.
type RoomService struct {
	state *roomServiceState

	gen      generator.Generator
	docs     store.DocStore
	tieBreak string
}

type roomHandle struct {
	name    string
	machine *game.GameMachine
	reqCh   chan game.RequestWrapper
	doneCh  chan struct{}
}

type roomServiceState struct {
	mu    sync.RWMutex
	rooms map[string]*roomHandle

	cleanupDone chan struct{}
}

// Rooms older than this are reaped even if nobody ended the game.
const maxRoomAge = 24 * time.Hour

func NewRoomService(gen generator.Generator, docs store.DocStore, tieBreak string) *RoomService {
	state := &roomServiceState{
		rooms:       make(map[string]*roomHandle),
		cleanupDone: make(chan struct{}),
	}

	rs := &RoomService{
		state:    state,
		gen:      gen,
		docs:     docs,
		tieBreak: tieBreak,
	}
	go rs.cleanupLoop()
	return rs
}

func (rs *RoomService) Close() {
	close(rs.state.cleanupDone)

	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()
	for roomID, handle := range rs.state.rooms {
		close(handle.doneCh)
		delete(rs.state.rooms, roomID)
	}
}

func (rs *RoomService) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rs.state.cleanupDone:
			return

		case <-ticker.C:
			rs.state.mu.Lock()
			for roomID, handle := range rs.state.rooms {
				expired := time.Since(handle.machine.CreatedAt()) > maxRoomAge
				if !handle.machine.IsFinished() && !expired {
					continue
				}
				zap.S().Infof("room %s reaped (finished=%v expired=%v)",
					roomID, handle.machine.IsFinished(), expired)
				close(handle.doneCh)
				delete(rs.state.rooms, roomID)
			}
			rs.state.mu.Unlock()
		}
	}
}

func (rs *RoomService) CreateRoom(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	if req.RoomName == "" {
		return dto.CreateRoomResponse{}, errors.New("room name must not be empty")
	}
	if req.CreatorName == "" {
		return dto.CreateRoomResponse{}, errors.New("creator name must not be empty")
	}

	roomID := game.GenID()[:8]
	doneCh := make(chan struct{})

	machine := game.NewGameMachine(game.MachineConfig{
		RoomID:   roomID,
		Answer:   rs.answerFunc(req.RoomName),
		TieBreak: rs.tieBreak,
		Persist:  rs.persistFunc(),
	}, doneCh)

	handle := &roomHandle{
		name:    req.RoomName,
		machine: machine,
		reqCh:   machine.ReqCh(),
		doneCh:  doneCh,
	}

	rs.state.mu.Lock()
	rs.state.rooms[roomID] = handle
	rs.state.mu.Unlock()

	go machine.Start()
	go rs.watchRoom(roomID, doneCh)

	zap.S().Infof("room %s (%q) created by %s", roomID, req.RoomName, req.CreatorName)

	return dto.CreateRoomResponse{RoomID: roomID, RoomName: req.RoomName}, nil
}

// JoinRoom resolves the room's request channel for a websocket session. The
// caller sends the JoinGame request itself so the machine handles joins and
// reconnects uniformly with every other action.
func (rs *RoomService) JoinRoom(roomID string) (chan game.RequestWrapper, error) {
	if roomID == "" {
		return nil, errors.New("room id must not be empty")
	}

	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	handle, ok := rs.state.rooms[roomID]
	if !ok {
		return nil, errors.New("room not found")
	}
	return handle.reqCh, nil
}

// answerFunc adapts the generator to the engine's non-failing AnswerFunc.
// The room name doubles as the profile topic hint.
func (rs *RoomService) answerFunc(topic string) game.AnswerFunc {
	gen := generator.WithFallback(rs.gen)
	return func(profileText, question string) string {
		answer, err := gen.Generate(context.Background(), profileText, question, topic)
		if err != nil {
			// WithFallback never errors, but the engine still needs a string.
			return generator.FallbackAnswer(profileText, question)
		}
		return answer
	}
}

// persistFunc writes snapshots behind the room loop. Store trouble is
// transient by definition here: retry with backoff, then give up and let
// the next snapshot supersede.
func (rs *RoomService) persistFunc() func(game.Snapshot) {
	if rs.docs == nil {
		return nil
	}
	docs := rs.docs
	return func(snap game.Snapshot) {
		data, err := json.Marshal(snap)
		if err != nil {
			zap.S().Errorf("room %s snapshot marshal failed: %v", snap.RoomID, err)
			return
		}
		go func() {
			backoff := 200 * time.Millisecond
			for attempt := 0; attempt < 3; attempt++ {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				err := docs.MergeWrite(ctx, snap.RoomID, data, snap.State.LastUpdated)
				cancel()
				if err == nil {
					return
				}
				zap.S().Warnf("room %s snapshot write failed (attempt %d): %v",
					snap.RoomID, attempt+1, err)
				time.Sleep(backoff)
				backoff *= 2
			}
		}()
	}
}
