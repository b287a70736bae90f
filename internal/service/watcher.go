package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"clone-game-be/internal/service/game"

	"go.uber.org/zap"
)

// The watcher is the consistency guard at runtime. The shared store is
// last-write-wins and legacy clients may still write round documents
// computed from stale reads, so every snapshot observed on the room's
// subscription is checked and, when broken, corrected with a write-back.
// Repairs are convergent: the corrected document republishes, passes the
// next check untouched, and the loop goes quiet.
func (rs *RoomService) watchRoom(roomID string, doneCh <-chan struct{}) {
	if rs.docs == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-doneCh
		cancel()
	}()

	updates, stop, err := rs.docs.Subscribe(ctx, roomID)
	if err != nil {
		zap.S().Warnf("room %s guard subscription failed: %v", roomID, err)
		return
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-updates:
			if !ok {
				return
			}
			rs.repairSnapshot(ctx, roomID, data)
		}
	}
}

func (rs *RoomService) repairSnapshot(ctx context.Context, roomID string, data []byte) {
	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		zap.S().Warnf("room %s received an undecodable snapshot: %v", roomID, err)
		return
	}

	roster := make(game.Roster, len(snap.Roster))
	for _, p := range snap.Roster {
		cp := p
		roster[cp.ID] = &cp
	}

	state, roster, report := game.Repair(roomID, snap.State, roster)
	if !report.Changed() {
		return
	}

	fixed := game.Snapshot{RoomID: roomID, State: state, Roster: flattenRoster(roster)}
	out, err := json.Marshal(fixed)
	if err != nil {
		zap.S().Errorf("room %s repaired snapshot marshal failed: %v", roomID, err)
		return
	}

	wctx, wcancel := context.WithTimeout(ctx, 2*time.Second)
	defer wcancel()
	if err := rs.docs.MergeWrite(wctx, roomID, out, state.LastUpdated); err != nil {
		zap.S().Warnf("room %s corrective write failed: %v", roomID, err)
	}
}

func flattenRoster(roster game.Roster) []game.Player {
	out := make([]game.Player, 0, len(roster))
	for _, p := range roster.JoinOrder(game.TeamNone) {
		cp := *p
		cp.RespCh = nil
		out = append(out, cp)
	}
	return out
}

// ResumeRoom rebuilds a room from its persisted document, e.g. after a
// process restart. The snapshot is guard-repaired before the machine trusts
// it; players re-enter via the usual reconnect path.
func (rs *RoomService) ResumeRoom(ctx context.Context, roomID string) error {
	if rs.docs == nil {
		return errors.New("no document store configured")
	}

	rs.state.mu.RLock()
	_, exists := rs.state.rooms[roomID]
	rs.state.mu.RUnlock()
	if exists {
		return errors.New("room is already live")
	}

	data, err := rs.docs.Get(ctx, roomID)
	if err != nil {
		return err
	}

	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	doneCh := make(chan struct{})
	machine := game.NewGameMachine(game.MachineConfig{
		RoomID:   roomID,
		Answer:   rs.answerFunc(""),
		TieBreak: rs.tieBreak,
		Persist:  rs.persistFunc(),
		Resume:   &snap,
	}, doneCh)

	handle := &roomHandle{
		name:    roomID,
		machine: machine,
		reqCh:   machine.ReqCh(),
		doneCh:  doneCh,
	}

	rs.state.mu.Lock()
	rs.state.rooms[roomID] = handle
	rs.state.mu.Unlock()

	go machine.Start()
	go rs.watchRoom(roomID, doneCh)

	zap.S().Infof("room %s resumed from the document store", roomID)
	return nil
}
