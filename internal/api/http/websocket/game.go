package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"clone-game-be/internal/service/game"
	"clone-game-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("websocket upgrade failed", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		// Buffered so the machine never blocks on a slow client; the join
		// ack below is read and replayed without swallowing it.
		respCh := make(chan game.ResponseWrapper, 64)

		// The first frame must be a JoinGame request naming the room.
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"failed to read join frame",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Error(err),
			)
			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			zap.L().Error(
				"failed to decode join frame",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Error(err),
			)

			return
		}

		req := game.TryUnwrapJoinGame(wrapper)
		if req == nil {
			zap.L().Error(
				"first frame is not a JoinGame request",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Any("wrapper", wrapper),
			)

			return
		}
		req.RespCh = respCh

		reqCh, err := appState.RoomSvc.JoinRoom(req.RoomID)
		if err != nil {
			zap.L().Error(
				"failed to join room",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.String("room_id", req.RoomID),
				zap.Error(err),
			)

			conn.WriteJSON(game.WrapErrResponse(err))
			return
		}

		// The channel cannot cross a JSON boundary, so the decoded request
		// rides in the wrapper's native slot.
		joinWrapper := game.RequestWrapper{
			ReqType: game.ReqJoinGame,
			Join:    req,
		}

		select {
		case reqCh <- joinWrapper:
		default:
			zap.L().Error(
				"room request channel full on join",
				zap.String("room_id", req.RoomID),
			)
			conn.WriteJSON(game.WrapErrResponse(errors.New("room is busy, try again")))
			return
		}

		// Wait for the join ack to learn the assigned player id, then put
		// the ack back for the write goroutine to deliver.
		var playerID string
		var playerName string

		select {
		case joinResp := <-respCh:
			if joinResp.RespType == game.RespJoinGame {
				if respData, ok := joinResp.Data.(game.JoinGameResponse); ok {
					playerID = respData.Joiner.ID
					playerName = respData.Joiner.Name
				}

				select {
				case respCh <- joinResp:
				default:
					zap.L().Warn("could not replay join ack")
				}
			}
		case <-time.After(3 * time.Second):
			zap.L().Error("timed out waiting for join ack", zap.String("client_ip", ctx.RemoteAddr()))
			return
		}

		if playerID == "" {
			zap.L().Error("join ack carried no player id", zap.String("client_ip", ctx.RemoteAddr()))
			return
		}

		zap.L().Info(
			"player connected",
			zap.String("client_ip", ctx.RemoteAddr()),
			zap.String("room_id", req.RoomID),
			zap.String("player_id", playerID),
			zap.String("player_name", playerName),
		)

		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// Protocol errors raised by this handler go out on a channel the
		// machine never closes: respCh closes when the same player id
		// reconnects from another connection, and sending on it then would
		// panic.
		errCh := make(chan game.ResponseWrapper, 8)

		clientIP := ctx.RemoteAddr()

		// Write goroutine: game responses plus heartbeat pings.
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					zap.L().Debug(
						"websocket writer exiting",
						zap.String("client_ip", clientIP),
					)
					return

				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"failed to send heartbeat",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				case resp := <-errCh:
					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Error(
							"failed to send error response",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

				case resp, ok := <-respCh:
					// Closed channel means the machine dropped this player.
					if !ok {
						zap.L().Info(
							"response channel closed, writer exiting",
							zap.String("client_ip", clientIP),
						)
						return
					}

					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Error(
							"failed to send message",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					zap.L().Debug(
						"message sent",
						zap.String("client_ip", clientIP),
						zap.String("resp_type", resp.RespType),
					)
				}
			}
		}()

		// Read loop on the handler goroutine.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"failed to read message",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper game.RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"failed to decode message",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				select {
				case errCh <- game.WrapErrResponse(errors.New("invalid request format")):
				default:
				}

				continue
			}

			select {
			case reqCh <- wrapper:
				zap.L().Debug(
					"request forwarded to room",
					zap.String("client_ip", clientIP),
					zap.String("req_type", wrapper.ReqType),
				)
			default:
				zap.L().Error(
					"room request channel full",
					zap.String("client_ip", clientIP),
				)

				select {
				case errCh <- game.WrapErrResponse(errors.New("room is busy, try again")):
				default:
				}
			}
		}

		// The read loop exited, so the client is gone. Tell the machine to
		// mark the player offline and release the channel.
		zap.L().Info(
			"client disconnected, sending exit request",
			zap.String("client_ip", clientIP),
			zap.String("player_id", playerID),
		)

		exitReq := game.ExitGameRequest{
			PlayerID: playerID,
		}

		exitWrapper := game.RequestWrapper{
			ReqType: game.ReqExitGame,
			Data:    mustMarshal(exitReq),
		}

		select {
		case reqCh <- exitWrapper:
		default:
			zap.L().Warn(
				"could not send exit request, channel full",
				zap.String("player_id", playerID),
			)
		}

		// Drain until the machine closes the channel, or give up.
		deadline := time.After(3 * time.Second)
		for {
			select {
			case _, ok := <-respCh:
				if !ok {
					zap.L().Info(
						"player exit completed",
						zap.String("player_id", playerID),
					)
					return
				}
			case <-deadline:
				zap.L().Warn(
					"timed out waiting for exit confirmation",
					zap.String("player_id", playerID),
				)
				return
			}
		}
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("marshal failed", zap.Error(err))
		return nil
	}
	return data
}
