package domain

import "time"

// LiveStatus is a point-in-time snapshot of the live match tracker
type LiveStatus struct {
	Active        bool     `json:"active"`
	MapName       string   `json:"map_name,omitempty"`
	FragLimit     int      `json:"frag_limit,omitempty"`
	StartedAt     string   `json:"started_at,omitempty"`
	PlayersOnline int      `json:"players_online"`
	Players       []string `json:"players,omitempty"`
	// Server is the last successful getstatus probe, if probing is enabled
	Server *ServerStatus `json:"server,omitempty"`
}

// ServerStatus is the answer of a game server to a getstatus probe
type ServerStatus struct {
	Address    string         `json:"address"`
	Hostname   string         `json:"hostname"`
	MapName    string         `json:"map_name"`
	FragLimit  int            `json:"frag_limit,omitempty"`
	MaxClients int            `json:"max_clients"`
	Players    []PlayerStatus `json:"players"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// PlayerStatus is one player line of a getstatus response
type PlayerStatus struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ping  int    `json:"ping"`
}
