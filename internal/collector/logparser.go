package collector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ernie/fragfeed/internal/domain"
)

var (
	// ErrIgnored marks lines that are understood but never become events:
	// free-form info lines, item pickups, hunk clears and IP lines.
	ErrIgnored = errors.New("line ignored")
	// ErrUnknownAction marks actionable lines whose action is not decoded
	ErrUnknownAction = errors.New("unknown action")
	// ErrMalformed marks lines with too few tokens for their action
	ErrMalformed = errors.New("malformed line")
)

// silentActions are dropped without logging
var silentActions = map[string]struct{}{
	"Item":       {},
	"Hunk_Clear": {},
	"IP":         {},
}

// DecodeLine turns one raw server log line into an Event. Lines that are not
// events return ErrIgnored or ErrUnknownAction; short lines return an error
// wrapping ErrMalformed.
func DecodeLine(line string) (domain.Event, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return domain.Event{}, ErrIgnored
	}

	if !strings.HasSuffix(tokens[1], ":") {
		return domain.Event{}, ErrIgnored
	}
	action := strings.TrimSuffix(tokens[1], ":")

	ev := domain.Event{
		Timestamp: tokens[0],
		Time:      domain.ParseTimestamp(tokens[0]),
		ClientID:  domain.NoClient,
	}

	if _, ok := silentActions[action]; ok {
		return domain.Event{}, ErrIgnored
	}

	var err error
	switch action {
	case "InitGame":
		ev.Kind = domain.KindInitGame
		settings := parseCombined(tokens[2:])
		ev.Init = &domain.InitGame{
			MapName:   settings["mapname"],
			FragLimit: parseFragLimit(settings["fraglimit"]),
			Settings:  settings,
		}

	case "ShutdownGame":
		ev.Kind = domain.KindShutdownGame

	case "Exit":
		ev.Kind = domain.KindExit
		ev.Exit = &domain.Exit{Reason: parseExitReason(tokens[2:])}

	case "score":
		ev.Kind = domain.KindScore
		err = decodeScore(&ev, tokens[2:])

	case "Kill":
		ev.Kind = domain.KindKill
		err = decodeKill(&ev, tokens)

	case "ClientConnect":
		ev.Kind = domain.KindClientConnect
		ev.ClientID, err = clientIDAt(tokens, 2)

	case "ClientBegin":
		ev.Kind = domain.KindClientBegin
		ev.ClientID, err = clientIDAt(tokens, 2)

	case "ClientDisconnect":
		ev.Kind = domain.KindClientDisconnect
		ev.ClientID, err = clientIDAt(tokens, 2)

	case "ClientUserinfoChanged":
		ev.Kind = domain.KindClientInfoChanged
		ev.ClientID, err = clientIDAt(tokens, 2)
		if err == nil {
			userinfo := parseCombined(tokens[3:])
			ev.Info = &domain.ClientInfo{
				Name:     userinfo["n"],
				Userinfo: userinfo,
			}
		}

	case "Server":
		if len(tokens) < 3 {
			return domain.Event{}, fmt.Errorf("%w: Server needs a map name", ErrMalformed)
		}
		ev.Kind = domain.KindServer
		ev.Server = &domain.ServerInfo{MapName: tokens[2]}

	default:
		return domain.Event{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func parseFragLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return domain.DefaultFragLimit
	}
	return n
}

// parseExitReason joins the reason tokens, dropping any \key\value suffix
// that patched servers append after the human-readable text.
func parseExitReason(tokens []string) string {
	reason := strings.Join(tokens, " ")
	if idx := strings.Index(reason, "\\"); idx != -1 {
		reason = reason[:idx]
	}
	return strings.TrimSpace(reason)
}

func clientIDAt(tokens []string, i int) (int, error) {
	if len(tokens) <= i {
		return 0, fmt.Errorf("%w: %s needs a client id", ErrMalformed, strings.TrimSuffix(tokens[1], ":"))
	}
	id, err := strconv.Atoi(tokens[i])
	if err != nil {
		return 0, fmt.Errorf("%w: client id %q", ErrMalformed, tokens[i])
	}
	return id, nil
}

// decodeKill reads "Kill: <att> <vic> <mod>: <name> killed <name> by <MOD>".
// Names may contain spaces, so they are bounded by the killed/by markers.
func decodeKill(ev *domain.Event, tokens []string) error {
	if len(tokens) < 10 {
		return fmt.Errorf("%w: Kill has %d tokens", ErrMalformed, len(tokens))
	}

	attacker, err1 := strconv.Atoi(tokens[2])
	victim, err2 := strconv.Atoi(tokens[3])
	method, err3 := strconv.Atoi(strings.TrimSuffix(tokens[4], ":"))
	if err := errors.Join(err1, err2, err3); err != nil {
		return fmt.Errorf("%w: Kill ids: %v", ErrMalformed, err)
	}

	killedIdx, byIdx := -1, -1
	for i := 6; i < len(tokens); i++ {
		if tokens[i] == "killed" && killedIdx == -1 {
			killedIdx = i
		}
		if tokens[i] == "by" {
			byIdx = i
		}
	}
	if killedIdx == -1 || byIdx <= killedIdx+1 || byIdx != len(tokens)-2 {
		return fmt.Errorf("%w: Kill names", ErrMalformed)
	}

	ev.ClientID = attacker
	ev.Kill = &domain.Kill{
		AttackerID:   attacker,
		VictimID:     victim,
		MethodID:     method,
		AttackerName: strings.Join(tokens[5:killedIdx], " "),
		VictimName:   strings.Join(tokens[killedIdx+1:byIdx], " "),
		Method:       tokens[len(tokens)-1],
	}
	return nil
}

// decodeScore scans for the score:/ping:/client: markers; the client id is
// followed by the player's name.
func decodeScore(ev *domain.Event, tokens []string) error {
	// The action token itself is "score:", so put it back for the scan
	tokens = append([]string{"score:"}, tokens...)

	s := &domain.Score{}
	haveScore, haveClient := false, false
	for i := 0; i+1 < len(tokens); i++ {
		switch tokens[i] {
		case "score:":
			v, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return fmt.Errorf("%w: score %q", ErrMalformed, tokens[i+1])
			}
			s.Score = v
			haveScore = true
		case "ping:":
			s.Ping, _ = strconv.Atoi(tokens[i+1])
		case "client:":
			v, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return fmt.Errorf("%w: client %q", ErrMalformed, tokens[i+1])
			}
			ev.ClientID = v
			s.Name = strings.Join(tokens[i+2:], " ")
			haveClient = true
			i = len(tokens)
		}
	}
	if !haveScore || !haveClient || s.Name == "" {
		return fmt.Errorf("%w: score line", ErrMalformed)
	}
	ev.Score = s
	return nil
}

// parseCombined joins tokens back into one string and splits it into
// alternating key/value pairs on backslashes. A leading backslash is optional.
func parseCombined(tokens []string) map[string]string {
	result := make(map[string]string)
	info := strings.Join(tokens, " ")
	info = strings.TrimPrefix(info, "\\")
	if info == "" {
		return result
	}

	parts := strings.Split(info, "\\")
	for i := 0; i+1 < len(parts); i += 2 {
		result[parts[i]] = parts[i+1]
	}
	return result
}
