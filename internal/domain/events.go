package domain

import (
	"strings"
	"time"
)

// Kind identifies the action a decoded log line describes
type Kind int

const (
	KindInitGame Kind = iota + 1
	KindShutdownGame
	KindExit
	KindScore
	KindKill
	KindClientConnect
	KindClientBegin
	KindClientDisconnect
	KindClientInfoChanged
	KindServer
)

var kindNames = map[Kind]string{
	KindInitGame:          "InitGame",
	KindShutdownGame:      "ShutdownGame",
	KindExit:              "Exit",
	KindScore:             "Score",
	KindKill:              "Kill",
	KindClientConnect:     "ClientConnect",
	KindClientBegin:       "ClientBegin",
	KindClientDisconnect:  "ClientDisconnect",
	KindClientInfoChanged: "ClientInfoChanged",
	KindServer:            "Server",
}

// String returns the action name used in topics and persisted records
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "info"
}

// ParseKind maps a persisted action name back to its Kind.
// Matching is case-sensitive.
func ParseKind(action string) (Kind, bool) {
	for k, name := range kindNames {
		if name == action {
			return k, true
		}
	}
	return 0, false
}

// NoClient marks events that do not refer to a client slot
const NoClient = -1

// WorldID is the attacker id the server uses for environmental deaths
const WorldID = 1022

// DefaultFragLimit applies when InitGame carries no usable fraglimit
const DefaultFragLimit = 100

// Event is one decoded log action. Exactly one payload pointer is set for
// kinds that carry data; ShutdownGame, ClientConnect, ClientBegin and
// ClientDisconnect carry none beyond ClientID.
type Event struct {
	Kind      Kind
	Timestamp string    // first token of the log line, or the RFC3339 time the collector stamped
	Time      time.Time // Timestamp parsed as a date, zero if it is a game clock
	Clock     string    // game clock token of a line stamped with its arrival time
	ClientID  int

	Init   *InitGame
	Info   *ClientInfo
	Kill   *Kill
	Score  *Score
	Exit   *Exit
	Server *ServerInfo
}

// InitGame carries the server settings announced when a map loads
type InitGame struct {
	MapName   string
	FragLimit int
	Settings  map[string]string
}

// ClientInfo carries the userinfo key/values of a ClientUserinfoChanged line
type ClientInfo struct {
	Name     string // "n" key, empty if absent
	Userinfo map[string]string
}

// Kill describes a single frag, suicide or environmental death
type Kill struct {
	AttackerID   int
	VictimID     int
	MethodID     int
	AttackerName string
	VictimName   string
	Method       string // e.g. MOD_ROCKET_SPLASH
}

// Subject returns who is credited (or debited) for the kill. Environmental
// kills are charged to the victim.
func (k *Kill) Subject() (id int, name string) {
	if k.AttackerID == WorldID {
		return k.VictimID, k.VictimName
	}
	return k.AttackerID, k.AttackerName
}

// IsSelfInflicted reports whether the subject and the victim are the same
// client, which covers suicides and world kills.
func (k *Kill) IsSelfInflicted() bool {
	id, _ := k.Subject()
	return id == k.VictimID
}

// Score is the final per-player score printed at the end of a match
type Score struct {
	Score int
	Ping  int
	Name  string
}

// Exit records why a match ended
type Exit struct {
	Reason string
}

// ServerInfo is emitted by the "Server:" line with the map being loaded
type ServerInfo struct {
	MapName string
}

// NormalizeReason lower-cases an exit reason and strips trailing punctuation,
// so "Fraglimit hit." becomes "fraglimit hit".
func NormalizeReason(reason string) string {
	out := []rune(reason)
	for len(out) > 0 {
		switch out[len(out)-1] {
		case '.', '!', ',', ';', ':', '?', ' ':
			out = out[:len(out)-1]
			continue
		}
		break
	}
	return strings.ToLower(string(out))
}

// ParseTimestamp parses a log timestamp token, returning the zero time when
// the token is not a date. Stamps without a zone are read in local time.
func ParseTimestamp(token string) time.Time {
	return ParseTimestampIn(token, time.Local)
}

// ParseTimestampIn is ParseTimestamp with zone-less stamps read in loc
func ParseTimestampIn(token string, loc *time.Location) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, token); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", token, loc); err == nil {
		return ts
	}
	return time.Time{}
}
