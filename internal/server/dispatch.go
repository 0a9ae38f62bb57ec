package server

import (
	"errors"
	"fmt"

	"github.com/Tyrowin/arenachat/internal/broker"
	"github.com/Tyrowin/arenachat/internal/chat"
	"github.com/Tyrowin/arenachat/internal/protocol"
)

var errBinaryFrame = fmt.Errorf("binary frames are not supported: %w", chat.ErrMalformedEvent)

// dispatch decodes one inbound frame and runs it against the broker. Client
// mistakes are answered with an error event; internal faults drop the client.
func (h *Hub) dispatch(client *Client, raw []byte) {
	cmd, err := protocol.Decode(raw)
	if err != nil {
		h.reject(client, err)
		return
	}

	switch c := cmd.(type) {
	case protocol.JoinRoom:
		err = h.broker.JoinAs(client.id, c.UserID, chat.RoomID(c.RoomID))
	case protocol.LeaveRoom:
		err = h.broker.Leave(client.id, chat.RoomID(c.RoomID))
	case protocol.SendMessage:
		err = h.broker.Send(client.id, chat.RoomID(c.RoomID), c.Text())
	case protocol.GetRoomMessages:
		err = h.replyHistory(client, c)
	default:
		err = fmt.Errorf("unhandled command %q: %w", cmd.Name(), chat.ErrMalformedEvent)
	}

	if err != nil {
		h.reject(client, err)
	}
}

func (h *Hub) replyHistory(client *Client, cmd protocol.GetRoomMessages) error {
	history, err := h.broker.History(client.id, chat.RoomID(cmd.RoomID), cmd.EffectiveLimit(h.cfg.DefaultHistoryLimit))
	if errors.Is(err, broker.ErrDeparted) {
		h.log.Debug("Dropping history request of departed connection", "conn", client.id)
		return nil
	}
	if err != nil {
		return err
	}
	h.Deliver(history, []chat.ConnID{client.id})
	return nil
}

// reject reports err to the client that caused it.
func (h *Hub) reject(client *Client, err error) {
	if !chat.IsClientError(err) {
		h.log.Error("Internal fault; dropping client", "conn", client.id, "error", err)
		client.closeTransport()
		return
	}

	h.log.Debug("Rejected client event", "conn", client.id, "code", chat.Code(err), "error", err)
	payload, encErr := protocol.EncodeError(err)
	if encErr != nil {
		h.log.Error("Encoding error event failed", "conn", client.id, "error", errors.Join(err, encErr))
		return
	}
	h.sendTo(client.id, payload)
}
