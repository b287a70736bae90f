package game

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GameMachine is the authoritative serializer for one room: a single
// goroutine owns the roster and round state and applies every action in
// arrival order. Clients never write shared state directly, which is what
// makes the engine's read-compute-write transitions safe without locks.
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler

	// reqCh funnels every client request for this room.
	reqCh  chan RequestWrapper
	doneCh chan struct{}

	finished  atomic.Bool
	createdAt time.Time
}

// MachineConfig carries the collaborator hooks a room needs. Resume, when
// set, seeds the machine from a persisted snapshot instead of a fresh
// clone_creation phase; the snapshot runs through the consistency guard
// before anything trusts it.
type MachineConfig struct {
	RoomID   string
	Answer   AnswerFunc
	TieBreak string
	Persist  func(Snapshot)
	Resume   *Snapshot
}

func NewGameMachine(cfg MachineConfig, doneCh chan struct{}) *GameMachine {
	ctx := &GameContext{
		RoomID:   cfg.RoomID,
		Phase:    PhaseCloneCreation,
		Roster:   make(Roster),
		Answer:   cfg.Answer,
		TieBreak: cfg.TieBreak,
		Persist:  cfg.Persist,
	}

	if cfg.Resume != nil {
		roster := make(Roster, len(cfg.Resume.Roster))
		for _, p := range cfg.Resume.Roster {
			cp := p
			cp.RespCh = nil
			cp.IsOnline = false
			roster[cp.ID] = &cp
		}
		state, roster, _ := Repair(cfg.RoomID, cfg.Resume.State, roster)
		ctx.Roster = roster
		ctx.Round = &state
		ctx.Phase = state.Phase
	}

	gm := &GameMachine{
		ctx:       ctx,
		reqCh:     make(chan RequestWrapper, 64),
		doneCh:    doneCh,
		createdAt: time.Now(),
	}
	gm.handler = gm.handlerFor(ctx.Phase)
	gm.handler.SetOnSwitch(gm.requestSwitch)
	return gm
}

func (gm *GameMachine) ReqCh() chan RequestWrapper { return gm.reqCh }

func (gm *GameMachine) requestSwitch(next Phase) { gm.ctx.Phase = next }

// Start runs the room loop until the host ends the game or the service
// shuts the room down. Meant to run as its own goroutine.
func (gm *GameMachine) Start() {
	gm.handler.OnEnter(gm.ctx)

	for {
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
		case <-gm.doneCh:
			zap.L().Info(
				"room machine shutting down",
				zap.String("room_id", gm.ctx.RoomID),
			)
			gm.closeAllPlayers()
			gm.finished.Store(true)
			return
		}

		if err := gm.handler.OnHandle(gm.ctx, req); err != nil {
			gm.rejectRequest(req, err)
		}

		// A handler switched phase: run the exit/enter pair. Entering a new
		// phase is also the point where the snapshot gets broadcast and
		// persisted.
		for gm.ctx.Phase != gm.handler.Stage() {
			gm.switchStage()
			gm.handler.OnEnter(gm.ctx)
		}

		if gm.ctx.Phase == phaseFinished {
			break
		}
	}

	zap.L().Info(
		"room machine finished",
		zap.String("room_id", gm.ctx.RoomID),
	)
	gm.closeAllPlayers()
	gm.finished.Store(true)
}

func (gm *GameMachine) handlerFor(phase Phase) StageHandler {
	switch phase {
	case PhaseCloneCreation:
		return NewCloneCreationHandler()
	case PhaseQuestioning:
		return NewQuestioningHandler()
	case PhaseWaitingForResponse:
		return NewWaitResponseHandler()
	case PhaseVoting, PhaseMasterReview:
		// master_review collapsed into voting; see the consistency guard.
		return NewVotingHandler()
	case PhaseResults:
		return NewResultsHandler()
	case phaseFinished:
		return NewFinishedHandler()
	default:
		return nil
	}
}

func (gm *GameMachine) switchStage() {
	next := gm.handlerFor(gm.ctx.Phase)
	if next == nil {
		zap.L().Error(
			"unknown phase requested, staying put",
			zap.String("room_id", gm.ctx.RoomID),
			zap.String("phase", string(gm.ctx.Phase)),
		)
		gm.ctx.Phase = gm.handler.Stage()
		return
	}
	next.SetOnSwitch(gm.requestSwitch)
	gm.handler = next
}

// rejectRequest surfaces a precondition failure to the acting player only.
// Guard-repairable trouble never takes this path.
func (gm *GameMachine) rejectRequest(req RequestWrapper, err error) {
	zap.L().Debug(
		"request rejected",
		zap.String("room_id", gm.ctx.RoomID),
		zap.String("request_type", req.ReqType),
		zap.String("phase", string(gm.ctx.Phase)),
		zap.Error(err),
	)

	var hdr struct {
		PlayerID string `json:"player_id"`
	}
	if req.Data != nil {
		_ = json.Unmarshal(req.Data, &hdr)
	}
	if hdr.PlayerID == "" {
		return
	}
	gm.ctx.UnicastResp(hdr.PlayerID, WrapErrResponse(err))
}

func (gm *GameMachine) closeAllPlayers() {
	for _, p := range gm.ctx.Roster {
		if p.RespCh != nil {
			close(p.RespCh)
			p.RespCh = nil
		}
		p.IsOnline = false
	}
}

// IsFinished is safe to call from outside the room goroutine; the cleanup
// loop uses it to reap rooms whose loop has exited.
func (gm *GameMachine) IsFinished() bool { return gm.finished.Load() }

func (gm *GameMachine) CreatedAt() time.Time { return gm.createdAt }
