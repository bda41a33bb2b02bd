package domain

import (
	"sort"
	"time"
)

// Game is a completed match reconstructed from the persisted event log
type Game struct {
	Start     string         `json:"start"` // InitGame timestamp, the game's key
	StartedAt time.Time      `json:"started_at"`
	MapName   string         `json:"map_name"`
	FragLimit int            `json:"frag_limit"`
	Reason    string         `json:"exit_reason,omitempty"`
	End       string         `json:"end,omitempty"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Scores    map[string]int `json:"scores"`
	Winners   []string       `json:"winners"`
	Kills     KillMatrix     `json:"kills"`
	Weapons   WeaponMatrix   `json:"weapons"`
}

// Duration returns how long the game ran, zero if either end is unknown
func (g *Game) Duration() time.Duration {
	if g.EndedAt == nil || g.StartedAt.IsZero() {
		return 0
	}
	return g.EndedAt.Sub(g.StartedAt)
}

// KillMatrix counts kills as killer -> victim -> count
type KillMatrix map[string]map[string]int

// Add increments the killer/victim cell, creating rows on demand
func (m KillMatrix) Add(killer, victim string) {
	row, ok := m[killer]
	if !ok {
		row = make(map[string]int)
		m[killer] = row
	}
	row[victim]++
}

// WeaponMatrix counts weapon use as killer -> weapon label -> count
type WeaponMatrix map[string]map[string]int

// Add increments the killer/weapon cell, creating rows on demand
func (m WeaponMatrix) Add(killer, weapon string) {
	row, ok := m[killer]
	if !ok {
		row = make(map[string]int)
		m[killer] = row
	}
	row[weapon]++
}

// Winners returns every name tied at the highest score, sorted by name.
// Ties are shared, never broken.
func Winners(scores map[string]int) []string {
	if len(scores) == 0 {
		return nil
	}
	best := 0
	first := true
	for _, s := range scores {
		if first || s > best {
			best = s
			first = false
		}
	}
	var winners []string
	for name, s := range scores {
		if s == best {
			winners = append(winners, name)
		}
	}
	sort.Strings(winners)
	return winners
}
