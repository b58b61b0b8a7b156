package race

import "time"

type Status string

const (
	StatusUpcoming   Status = "upcoming"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Participant is one enrolled racer: the player plus the kart and driver
// assets they entered with. Position and lap times move only while the
// race is in progress.
type Participant struct {
	Player   string
	KartID   string
	DriverID string
	Position int
	LapTimes []time.Duration
}

// Bet is immutable once recorded; its stake is already escrowed in the
// race holding account by the time it exists.
type Bet struct {
	RaceID     string
	Bettor     string
	Amount     uint64
	Prediction string
}

type Race struct {
	ID           string
	Name         string
	ArenaID      string
	EntryFee     uint64
	Participants []Participant
	Status       Status
	Winner       string
	Bets         []Bet
	Pool         uint64

	settling bool
	settled  bool
}

// PositionUpdate and LapTime are the telemetry ingestion records; updates
// for players not enrolled in the race are dropped silently.
type PositionUpdate struct {
	Player   string
	Position int
}

type LapTime struct {
	Player   string
	Duration time.Duration
}
