package core

import (
	"slices"
	"strings"
	"sync"
)

// Voice room roles.
const (
	RoleHost     = "host"
	RoleSpeaker  = "speaker"
	RoleListener = "listener"
)

// maxVoiceRoomName bounds creator-assigned room names.
const maxVoiceRoomName = 64

// Participant is one identity inside a voice room.
type Participant struct {
	UserID   int64
	Username string
	Role     string
}

// Roster is a snapshot of a voice room, in join order.
type Roster struct {
	Room         string
	Participants []Participant
}

// RoomSummary describes an active voice room.
type RoomSummary struct {
	Name         string
	Participants int
	Speakers     int
}

type voiceRoom struct {
	name    string
	members []Participant
}

func (r *voiceRoom) index(userID int64) int {
	return slices.IndexFunc(r.members, func(p Participant) bool { return p.UserID == userID })
}

func (r *voiceRoom) ids() []int64 {
	ids := make([]int64, 0, len(r.members))
	for _, p := range r.members {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *voiceRoom) count(role string) int {
	n := 0
	for _, p := range r.members {
		if p.Role == role {
			n++
		}
	}
	return n
}

func (r *voiceRoom) roster() Roster {
	return Roster{Room: r.name, Participants: slices.Clone(r.members)}
}

// VoiceManager owns voice room membership. Rooms exist while they have members.
// Roster broadcasts are issued under the manager lock, so members receive rosters in mutation order.
type VoiceManager struct {
	mu          sync.Mutex
	rooms       map[string]*voiceRoom
	presence    *Presence
	maxSpeakers int
}

// NewVoiceManager creates a manager that fans events out through p.
func NewVoiceManager(p *Presence, maxSpeakers int) *VoiceManager {
	if maxSpeakers <= 0 {
		maxSpeakers = 10
	}
	return &VoiceManager{
		rooms:       make(map[string]*voiceRoom),
		presence:    p,
		maxSpeakers: maxSpeakers,
	}
}

// NormalizeRoomName trims a voice room name and validates it.
func NormalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxVoiceRoomName {
		return "", ErrBadRequest
	}
	return name, nil
}

// Join adds id to room, creating the room when needed. The first member hosts.
// Joining twice leaves the roster unchanged and returns changed=false.
func (v *VoiceManager) Join(id Identity, room string) (Roster, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.rooms[room]
	if !ok {
		r = &voiceRoom{name: room}
		v.rooms[room] = r
	}
	if r.index(id.ID) >= 0 {
		return r.roster(), false
	}

	role := RoleListener
	if len(r.members) == 0 {
		role = RoleHost
	}
	r.members = append(r.members, Participant{UserID: id.ID, Username: id.Username, Role: role})

	snapshot := r.roster()
	v.presence.SendTo(&Event{Kind: EventVoiceRoster, Room: room, Roster: &snapshot}, r.ids()...)
	return snapshot, true
}

// Leave removes userID from room. The leaver receives the final roster too.
func (v *VoiceManager) Leave(userID int64, room string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leaveLocked(userID, room)
}

func (v *VoiceManager) leaveLocked(userID int64, room string) error {
	r, ok := v.rooms[room]
	if !ok {
		return ErrNotInRoom
	}
	i := r.index(userID)
	if i < 0 {
		return ErrNotInRoom
	}
	r.members = slices.Delete(r.members, i, i+1)

	if len(r.members) > 0 && r.count(RoleHost) == 0 {
		r.members[0].Role = RoleHost
	}

	snapshot := r.roster()
	v.presence.SendTo(&Event{Kind: EventVoiceRoster, Room: room, Roster: &snapshot}, append(r.ids(), userID)...)

	if len(r.members) == 0 {
		delete(v.rooms, room)
	}
	return nil
}

// LeaveAll removes userID from every room, unless it came back online in the meantime.
// Returns the rooms that were left.
func (v *VoiceManager) LeaveAll(userID int64) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.presence.IsOnline(userID) {
		return nil
	}

	var left []string
	for name, r := range v.rooms {
		if r.index(userID) >= 0 {
			left = append(left, name)
		}
	}
	slices.Sort(left)
	for _, name := range left {
		_ = v.leaveLocked(userID, name)
	}
	return left
}

// RequestStage forwards a speaker request from id to the room hosts.
func (v *VoiceManager) RequestStage(id Identity, room string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.rooms[room]
	if !ok || r.index(id.ID) < 0 {
		return ErrNotInRoom
	}
	if r.members[r.index(id.ID)].Role != RoleListener {
		return nil
	}

	var hosts []int64
	for _, p := range r.members {
		if p.Role == RoleHost {
			hosts = append(hosts, p.UserID)
		}
	}
	v.presence.SendTo(&Event{
		Kind:     EventVoiceStageRequest,
		Room:     room,
		UserID:   id.ID,
		Username: id.Username,
	}, hosts...)
	return nil
}

// DecideStage lets a host accept or deny targetID's stage request.
func (v *VoiceManager) DecideStage(host Identity, room string, targetID int64, accept bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.rooms[room]
	if !ok {
		return ErrNotInRoom
	}
	hi := r.index(host.ID)
	if hi < 0 {
		return ErrNotInRoom
	}
	if r.members[hi].Role != RoleHost {
		return ErrForbidden
	}
	ti := r.index(targetID)
	if ti < 0 {
		return ErrNotInRoom
	}

	if !accept {
		v.presence.SendTo(&Event{Kind: EventVoiceStageDenied, Room: room, UserID: targetID}, targetID)
		return nil
	}
	if r.members[ti].Role != RoleListener {
		return nil
	}
	if r.count(RoleSpeaker) >= v.maxSpeakers {
		v.presence.SendTo(&Event{Kind: EventVoiceStageFull, Room: room, UserID: targetID}, targetID)
		return nil
	}

	r.members[ti].Role = RoleSpeaker
	ids := r.ids()
	v.presence.SendTo(&Event{Kind: EventVoiceStageGranted, Room: room, UserID: targetID}, ids...)
	snapshot := r.roster()
	v.presence.SendTo(&Event{Kind: EventVoiceRoster, Room: room, Roster: &snapshot}, ids...)
	return nil
}

// Comment broadcasts a text comment to the room members.
func (v *VoiceManager) Comment(id Identity, room, body string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.rooms[room]
	if !ok || r.index(id.ID) < 0 {
		return ErrNotInRoom
	}
	v.presence.SendTo(&Event{
		Kind:     EventVoiceComment,
		Room:     room,
		UserID:   id.ID,
		Username: id.Username,
		Body:     body,
	}, r.ids()...)
	return nil
}

// Roster returns a snapshot of room.
func (v *VoiceManager) Roster(room string) (Roster, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.rooms[room]
	if !ok {
		return Roster{}, false
	}
	return r.roster(), true
}

// Rooms lists active rooms ordered by name.
func (v *VoiceManager) Rooms() []RoomSummary {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]RoomSummary, 0, len(v.rooms))
	for _, r := range v.rooms {
		out = append(out, RoomSummary{
			Name:         r.name,
			Participants: len(r.members),
			Speakers:     r.count(RoleSpeaker),
		})
	}
	slices.SortFunc(out, func(a, b RoomSummary) int { return strings.Compare(a.Name, b.Name) })
	return out
}
