package core

import "bytes"

// SignalRelay forwards call-setup payloads between two identities.
// It keeps no state: nothing is buffered or stored.
type SignalRelay struct {
	presence *Presence
}

// NewSignalRelay creates a relay that looks up targets in p.
func NewSignalRelay(p *Presence) *SignalRelay {
	return &SignalRelay{presence: p}
}

// Relay delivers sig from sender to every live connection of targetID.
// Returns false when the target has no live connection.
func (r *SignalRelay) Relay(sender Identity, targetID int64, sig *Signal) (bool, error) {
	if sig == nil || targetID <= 0 || targetID == sender.ID {
		return false, ErrBadRequest
	}
	payload := bytes.TrimSpace(sig.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return false, ErrBadRequest
	}

	ev := &Event{
		Kind:   EventSignal,
		UserID: targetID,
		Signal: &SignalEvent{
			Kind:    sig.Kind,
			From:    sender.ID,
			Payload: payload,
			RoomID:  sig.RoomID,
		},
	}
	return r.presence.SendTo(ev, targetID) > 0, nil
}
