package domain

// Snapshot is the whole library: everything a backup carries.
type Snapshot struct {
	Sources    []Source
	Decks      []Deck
	Cards      []Card
	ReviewLogs []ReviewLog
	Sessions   []SessionRecord
	Stats      Stats
}
