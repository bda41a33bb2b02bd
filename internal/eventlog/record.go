package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/ernie/fragfeed/internal/domain"
)

// ErrBadPayload marks records whose content cannot be turned back into an Event
var ErrBadPayload = errors.New("bad payload")

// Record is one entry of the durable event log. Content is a JSON object
// holding the timestamp and the action's keys (mapname, fraglimit, n,
// targetn, clientid, targetid, methodid, method, reason, score, ...).
type Record struct {
	ID       string          `json:"id,omitempty"`
	Action   string          `json:"action"`
	ClientID string          `json:"clientid,omitempty"`
	Content  json.RawMessage `json:"content"`
}

// clockKey holds the game clock of a line stamped with its arrival time
const clockKey = "gameclock"

// hasClientTopic lists the kinds whose topic and record carry the client id
var hasClientTopic = map[domain.Kind]bool{
	domain.KindClientConnect:     true,
	domain.KindClientBegin:       true,
	domain.KindClientDisconnect:  true,
	domain.KindClientInfoChanged: true,
}

// FromEvent encodes an Event as a Record with a fresh id
func FromEvent(ev domain.Event) (Record, error) {
	content := make(map[string]any)

	switch ev.Kind {
	case domain.KindInitGame:
		for k, v := range ev.Init.Settings {
			content[k] = v
		}
		content["mapname"] = ev.Init.MapName
		content["fraglimit"] = strconv.Itoa(ev.Init.FragLimit)

	case domain.KindClientInfoChanged:
		for k, v := range ev.Info.Userinfo {
			content[k] = v
		}
		if ev.Info.Name != "" {
			content["n"] = ev.Info.Name
		}

	case domain.KindKill:
		content["targetid"] = strconv.Itoa(ev.Kill.VictimID)
		content["methodid"] = strconv.Itoa(ev.Kill.MethodID)
		content["n"] = ev.Kill.AttackerName
		content["targetn"] = ev.Kill.VictimName
		content["method"] = ev.Kill.Method

	case domain.KindScore:
		content["score"] = ev.Score.Score
		content["ping"] = ev.Score.Ping
		content["n"] = ev.Score.Name

	case domain.KindExit:
		content["reason"] = ev.Exit.Reason

	case domain.KindServer:
		content["mapname"] = ev.Server.MapName

	case domain.KindShutdownGame, domain.KindClientConnect, domain.KindClientBegin, domain.KindClientDisconnect:

	default:
		return Record{}, fmt.Errorf("encoding %s: unsupported kind", ev.Kind)
	}

	content["timestamp"] = ev.Timestamp
	if ev.Clock != "" {
		content[clockKey] = ev.Clock
	}
	if ev.ClientID != domain.NoClient {
		content["clientid"] = strconv.Itoa(ev.ClientID)
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s content: %w", ev.Kind, err)
	}

	rec := Record{
		ID:      uuid.NewString(),
		Action:  ev.Kind.String(),
		Content: raw,
	}
	if hasClientTopic[ev.Kind] {
		rec.ClientID = strconv.Itoa(ev.ClientID)
	}
	return rec, nil
}

// Event decodes the record back into an Event. Any failure wraps ErrBadPayload.
func (r Record) Event() (domain.Event, error) {
	kind, ok := domain.ParseKind(r.Action)
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: unknown action %q", ErrBadPayload, r.Action)
	}

	var c content
	if err := json.Unmarshal(r.Content, &c.fields); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %s content: %v", ErrBadPayload, r.Action, err)
	}
	if c.fields == nil {
		return domain.Event{}, fmt.Errorf("%w: %s content is not an object", ErrBadPayload, r.Action)
	}

	ts, ok := c.str("timestamp")
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: %s has no timestamp", ErrBadPayload, r.Action)
	}

	ev := domain.Event{
		Kind:      kind,
		Timestamp: ts,
		Time:      domain.ParseTimestamp(ts),
		ClientID:  domain.NoClient,
	}
	ev.Clock, _ = c.str(clockKey)
	if id, ok := c.integer("clientid"); ok {
		ev.ClientID = id
	} else if id, err := strconv.Atoi(r.ClientID); err == nil {
		ev.ClientID = id
	}

	switch kind {
	case domain.KindInitGame:
		settings := c.strings()
		fragLimit, ok := c.integer("fraglimit")
		if !ok {
			fragLimit = domain.DefaultFragLimit
		}
		mapName, _ := c.str("mapname")
		ev.Init = &domain.InitGame{MapName: mapName, FragLimit: fragLimit, Settings: settings}

	case domain.KindClientInfoChanged:
		if ev.ClientID == domain.NoClient {
			return domain.Event{}, fmt.Errorf("%w: ClientInfoChanged needs clientid", ErrBadPayload)
		}
		name, _ := c.str("n")
		ev.Info = &domain.ClientInfo{Name: name, Userinfo: c.strings()}

	case domain.KindKill:
		victim, ok1 := c.integer("targetid")
		method, ok2 := c.integer("methodid")
		if ev.ClientID == domain.NoClient || !ok1 || !ok2 {
			return domain.Event{}, fmt.Errorf("%w: Kill needs clientid, targetid and methodid", ErrBadPayload)
		}
		attackerName, _ := c.str("n")
		victimName, _ := c.str("targetn")
		methodName, _ := c.str("method")
		ev.Kill = &domain.Kill{
			AttackerID:   ev.ClientID,
			VictimID:     victim,
			MethodID:     method,
			AttackerName: attackerName,
			VictimName:   victimName,
			Method:       methodName,
		}

	case domain.KindScore:
		score, ok := c.integer("score")
		name, okName := c.str("n")
		if !ok || !okName {
			return domain.Event{}, fmt.Errorf("%w: Score needs score and n", ErrBadPayload)
		}
		ping, _ := c.integer("ping")
		ev.Score = &domain.Score{Score: score, Ping: ping, Name: name}

	case domain.KindExit:
		reason, _ := c.str("reason")
		ev.Exit = &domain.Exit{Reason: reason}

	case domain.KindServer:
		mapName, _ := c.str("mapname")
		ev.Server = &domain.ServerInfo{MapName: mapName}

	case domain.KindClientConnect, domain.KindClientBegin, domain.KindClientDisconnect:
		if ev.ClientID == domain.NoClient {
			return domain.Event{}, fmt.Errorf("%w: %s needs clientid", ErrBadPayload, r.Action)
		}
	}

	return ev, nil
}

// content gives typed access to a loosely typed JSON object; upstream writers
// send numbers either as JSON numbers or as strings.
type content struct {
	fields map[string]any
}

func (c content) str(key string) (string, bool) {
	switch v := c.fields[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func (c content) integer(key string) (int, bool) {
	switch v := c.fields[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// strings returns every string-valued key except the record bookkeeping ones
func (c content) strings() map[string]string {
	out := make(map[string]string, len(c.fields))
	for k := range c.fields {
		if k == "timestamp" || k == "clientid" || k == clockKey {
			continue
		}
		if v, ok := c.str(k); ok {
			out[k] = v
		}
	}
	return out
}
