package bridge

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/simonvc/fundcard/internal/fund"
)

func (b *Bridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := b.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "popup not found")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket accept", "popup", id, "err", err)
		return
	}
	defer conn.CloseNow()

	if !p.attach() {
		conn.Close(websocket.StatusPolicyViolation, "popup already attached")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Bridge -> page: forward a close request from the owner.
	go func() {
		select {
		case <-p.closeReq:
			if err := wsjson.Write(ctx, conn, frame{Type: frameClose}); err != nil {
				b.logger.Debug("ws write close", "popup", id, "err", err)
			}
		case <-ctx.Done():
		}
	}()

	// Page -> bridge
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			b.logger.Debug("ws read", "popup", id, "err", err)
			p.finish(nil)
			return
		}
		switch f.Type {
		case frameOpened:
			b.publish(Event{Kind: EventOpened, PopupID: id})
		case frameBlocked:
			b.logger.Warn("checkout window blocked", "popup", id)
			p.finish(fund.ErrPopupBlocked)
			conn.Close(websocket.StatusNormalClosure, "blocked")
			return
		case frameClosed:
			p.finish(nil)
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case frameMessage:
			msg, ok := parseMessage(f.Data)
			if !ok {
				continue
			}
			msg.PopupID = id
			b.logger.Debug("checkout message", "popup", id, "event", msg.Event)
			b.publish(Event{Kind: EventMessage, PopupID: id, Message: msg})
		}
	}
}
