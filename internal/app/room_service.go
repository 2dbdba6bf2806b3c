package app

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// RoomRepository abstracts how live rooms are tracked (in-memory, Redis, etc).
type RoomRepository interface {
	Put(room *Room)
	Get(roomID string) (*Room, bool)
	Delete(roomID string)
	DeleteIfEmpty(roomID string)
}

// RoomService owns the room lifecycle: creation, membership, deletion, and
// the game-start transition. Every mutation broadcasts the authoritative
// roster (or a lifecycle event) to all subscribed connections.
type RoomService struct {
	rooms RoomRepository
	exams ExamRepository
}

func NewRoomService(rooms RoomRepository, exams ExamRepository) *RoomService {
	return &RoomService{rooms: rooms, exams: exams}
}

// Create opens a room for an exam and returns its PIN. The caller becomes
// the room's creator.
func (s *RoomService) Create(ctx context.Context, examID, creatorID string) (string, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return "", err
	}

	for {
		pin, err := newRoomPIN()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms.Get(pin); taken {
			continue
		}
		room := NewRoom(pin, examID, creatorID)
		s.rooms.Put(room)
		return pin, nil
	}
}

// Join adds a player to a room and rebroadcasts the roster. Rejoining with
// the same user id refreshes the existing entry rather than duplicating it.
func (s *RoomService) Join(ctx context.Context, roomID string, player domain.Player) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.join(player)
}

// Leave removes a player and rebroadcasts; an emptied room is dropped.
func (s *RoomService) Leave(_ context.Context, roomID, userID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.leave(userID)
	if room.IsEmpty() {
		s.rooms.DeleteIfEmpty(roomID)
	}
}

// Delete tears down a room. Creator only; every subscriber receives a
// room-deleted event before the room is dropped.
func (s *RoomService) Delete(_ context.Context, roomID, userID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.CreatorID() != userID {
		return domain.ErrNotCreator
	}
	room.markDeleted()
	s.rooms.Delete(roomID)
	return nil
}

// Start signals game start to every subscriber. Creator only; joins are
// rejected once a room has started.
func (s *RoomService) Start(_ context.Context, roomID, userID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.CreatorID() != userID {
		return domain.ErrNotCreator
	}
	return room.markStarted()
}

// Subscribe returns a channel receiving room events, primed with the current
// roster. The caller must invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(_ context.Context, roomID string) (<-chan domain.RoomEvent, func(), error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// Room is the in-memory state of one live room.
type Room struct {
	id        string
	examID    string
	creatorID string
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	started     bool
	deleted     bool
	players     map[string]*domain.Player
	order       []string
	subscribers map[chan domain.RoomEvent]struct{}
}

func NewRoom(id, examID, creatorID string) *Room {
	return newRoomWithClock(id, examID, creatorID, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(id, examID, creatorID string, now func() time.Time) *Room {
	return newRoomWithClock(id, examID, creatorID, now)
}

func newRoomWithClock(id, examID, creatorID string, now func() time.Time) *Room {
	return &Room{
		id:          id,
		examID:      examID,
		creatorID:   creatorID,
		createdAt:   now(),
		now:         now,
		players:     make(map[string]*domain.Player),
		subscribers: make(map[chan domain.RoomEvent]struct{}),
	}
}

func (r *Room) ID() string        { return r.id }
func (r *Room) ExamID() string    { return r.examID }
func (r *Room) CreatorID() string { return r.creatorID }

// IsEmpty reports whether the room has no players.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players) == 0
}

func (r *Room) join(player domain.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleted {
		return domain.ErrRoomNotFound
	}
	if r.started {
		return domain.ErrRoomStarted
	}

	if existing, ok := r.players[player.UserID]; ok {
		existing.Username = player.Username
		existing.UserImage = player.UserImage
	} else {
		p := player
		r.players[player.UserID] = &p
		r.order = append(r.order, player.UserID)
	}
	r.broadcastLocked(domain.RoomEvent{Name: domain.RoomEventUpdate, Update: r.snapshotLocked()})
	return nil
}

func (r *Room) leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[userID]; !ok {
		return
	}
	delete(r.players, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.broadcastLocked(domain.RoomEvent{Name: domain.RoomEventUpdate, Update: r.snapshotLocked()})
}

func (r *Room) markStarted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return domain.ErrRoomNotFound
	}
	if r.started {
		return nil
	}
	r.started = true
	r.broadcastLocked(domain.RoomEvent{Name: domain.RoomEventStarted})
	return nil
}

func (r *Room) markDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return
	}
	r.deleted = true
	r.broadcastLocked(domain.RoomEvent{Name: domain.RoomEventDeleted})
}

func (r *Room) subscribe() (<-chan domain.RoomEvent, func()) {
	ch := make(chan domain.RoomEvent, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- domain.RoomEvent{Name: domain.RoomEventUpdate, Update: initial}

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked(ev domain.RoomEvent) {
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest frame so a slow connection never blocks the room.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (r *Room) snapshotLocked() *domain.RoomUpdate {
	users := make([]domain.Player, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.players[id]; ok {
			users = append(users, *p)
		}
	}
	return &domain.RoomUpdate{Users: users, CreatorID: r.creatorID}
}

// newRoomPIN generates a 6-digit numeric room PIN.
func newRoomPIN() (string, error) {
	const digits = "0123456789"
	pin := make([]byte, 6)
	for i := range pin {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		pin[i] = digits[n.Int64()]
	}
	return string(pin), nil
}
