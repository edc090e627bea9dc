package model

type RoomCode string

const EmptyRoomCode RoomCode = ""

// Participant identity is stable for the lifetime of the room and never
// reused within it.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

type Room struct {
	Code      RoomCode `json:"code"`
	Name      string   `json:"name"`
	CreatedAt int64    `json:"created_at"`

	// Participants is keyed by participant ID. It is populated from the
	// store's per-user child records, not serialized with the room itself.
	Participants map[string]Participant `json:"-"`
}
