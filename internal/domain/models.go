package domain

import "time"

// Player represents one occupant of a room.
type Player struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	UserImage int    `json:"userImage"`
}

// RoomUpdate is the authoritative membership snapshot for a room. Users is
// ordered by join time; the full list replaces any previous roster.
type RoomUpdate struct {
	Users     []Player `json:"users"`
	CreatorID string   `json:"creatorId"`
}

// Room event names carried alongside a broadcast.
const (
	RoomEventUpdate  = "room-update"
	RoomEventStarted = "game-started"
	RoomEventDeleted = "room-deleted"
)

// RoomEvent is one broadcast delivered to room subscribers. Update is set
// only for room-update events.
type RoomEvent struct {
	Name   string
	Update *RoomUpdate
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	UserImage    int       `json:"userImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []Option `json:"options"`
	Points       int      `json:"points"`       // defaults to 1 if zero
	TimeLimitSec int      `json:"timeLimitSec"` // 0 means no per-question timer
}

// Exam is an authored set of questions a room is played against.
type Exam struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}
