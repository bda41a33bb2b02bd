package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ernie/fragfeed/internal/domain"
)

// PlayerMeta aggregates one player's committed games
type PlayerMeta struct {
	Name      string
	Played    int
	Wins      []string       // start keys of the games won
	Kills     map[string]int // victim -> count
	MapScores map[string]int // map -> cumulative final score
	Weapons   map[string]int // weapon label -> count

	targetOrder []string
	weaponOrder []string
}

// Meta is the aggregate over the games included by a since filter
type Meta struct {
	Games   int
	First   string // rendered start of the earliest included game
	Players map[string]*PlayerMeta

	order []string
}

// PlayerWin is one leaderboard row
type PlayerWin struct {
	Name     string  `json:"name"`
	Wins     int     `json:"wins"`
	Games    int     `json:"games"`
	Fraction float64 `json:"fraction"`
	BestMap  string  `json:"best_map"`
}

// included reports whether a game passes the since filter. Games without a
// dated start can only be placed in time when no filter is set.
func included(g *domain.Game, since *time.Time) bool {
	if since == nil {
		return true
	}
	return !g.StartedAt.IsZero() && !g.StartedAt.Before(*since)
}

// PlayerMeta aggregates every committed game starting at or after since.
// A nil since includes all games.
func (s *State) PlayerMeta(since *time.Time) Meta {
	meta := Meta{Players: make(map[string]*PlayerMeta)}

	player := func(name string) *PlayerMeta {
		p, ok := meta.Players[name]
		if !ok {
			p = &PlayerMeta{
				Name:      name,
				Kills:     make(map[string]int),
				MapScores: make(map[string]int),
				Weapons:   make(map[string]int),
			}
			meta.Players[name] = p
			meta.order = append(meta.order, name)
		}
		return p
	}

	for _, r := range s.records {
		g := r.game
		if !included(g, since) {
			continue
		}
		if meta.Games == 0 {
			meta.First = s.render(g)
		}
		meta.Games++

		for _, name := range sortedKeys(g.Scores) {
			p := player(name)
			p.Played++
			p.MapScores[g.MapName] += g.Scores[name]
		}
		for _, name := range g.Winners {
			p := player(name)
			p.Wins = append(p.Wins, g.Start)
		}
		for _, killer := range sortedKeys(g.Kills) {
			p := player(killer)
			for _, victim := range r.targetOrder[killer] {
				if _, ok := p.Kills[victim]; !ok {
					p.targetOrder = append(p.targetOrder, victim)
				}
				p.Kills[victim] += g.Kills[killer][victim]
			}
		}
		for _, killer := range sortedKeys(g.Weapons) {
			p := player(killer)
			for _, label := range r.weaponOrder[killer] {
				if _, ok := p.Weapons[label]; !ok {
					p.weaponOrder = append(p.weaponOrder, label)
				}
				p.Weapons[label] += g.Weapons[killer][label]
			}
		}
	}
	return meta
}

// BestMap returns the map with the highest cumulative score; ties go to the
// alphabetically first map
func (p *PlayerMeta) BestMap() string {
	best, bestScore := "", 0
	for _, m := range sortedKeys(p.MapScores) {
		if best == "" || p.MapScores[m] > bestScore {
			best, bestScore = m, p.MapScores[m]
		}
	}
	return best
}

// FavoriteWeapon returns the most used weapon, the first seen on ties
func (p *PlayerMeta) FavoriteWeapon() string {
	best, bestCount := "", 0
	for _, w := range p.weaponOrder {
		if p.Weapons[w] > bestCount {
			best, bestCount = w, p.Weapons[w]
		}
	}
	return best
}

// Target is a victim and how often the player killed them
type Target struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Targets ranks the player's victims by kill count, first seen on ties
func (p *PlayerMeta) Targets() []Target {
	targets := make([]Target, 0, len(p.targetOrder))
	for _, name := range p.targetOrder {
		targets = append(targets, Target{Name: name, Count: p.Kills[name]})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Count > targets[j].Count
	})
	return targets
}

// PlayerWins ranks every player who finished a game by win fraction,
// highest first. Equal fractions are ordered by name.
func PlayerWins(meta Meta) []PlayerWin {
	var rows []PlayerWin
	for _, name := range meta.order {
		p := meta.Players[name]
		if p.Played == 0 {
			continue
		}
		rows = append(rows, PlayerWin{
			Name:     name,
			Wins:     len(p.Wins),
			Games:    p.Played,
			Fraction: float64(len(p.Wins)) / float64(p.Played),
			BestMap:  p.BestMap(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Fraction != rows[j].Fraction {
			return rows[i].Fraction > rows[j].Fraction
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// StatsText renders the leaderboard for the games starting at or after since
func (s *State) StatsText(since *time.Time) string {
	meta := s.PlayerMeta(since)

	var b strings.Builder
	if meta.Games == 0 {
		b.WriteString("0 games recorded, 0 players\n")
		return b.String()
	}
	rows := PlayerWins(meta)
	fmt.Fprintf(&b, "%d games recorded since %s, %d players\n", meta.Games, meta.First, len(rows))

	for _, row := range rows {
		p := meta.Players[row.Name]
		fmt.Fprintf(&b, ">> %s: %d/%d wins (%.0f%%), best map %s",
			domain.DisplayName(row.Name), row.Wins, row.Games, row.Fraction*100, row.BestMap)
		if w := p.FavoriteWeapon(); w != "" {
			fmt.Fprintf(&b, ", favorite weapon %s", w)
		}
		b.WriteString("\n")

		targets := p.Targets()
		if len(targets) == 0 {
			continue
		}
		parts := make([]string, len(targets))
		for i, t := range targets {
			parts[i] = fmt.Sprintf("%s (%d)", domain.DisplayName(t.Name), t.Count)
		}
		fmt.Fprintf(&b, "   kills: %s\n", strings.Join(parts, ", "))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
