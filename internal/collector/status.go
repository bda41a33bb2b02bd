package collector

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ernie/fragfeed/internal/domain"
)

const (
	q3Header      = "\xff\xff\xff\xff"
	getStatus     = q3Header + "getstatus\n"
	statusPrefix  = q3Header + "statusResponse\n"
	statusTimeout = 2 * time.Second
	maxResponse   = 65535
)

// QueryStatus asks a Quake 3 server for its status over UDP
func QueryStatus(ctx context.Context, address string) (*domain.ServerStatus, error) {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	conn, err := d.DialContext(dialCtx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Close()

	deadline, _ := dialCtx.Deadline()
	conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(getStatus)); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	buf := make([]byte, maxResponse)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	status, err := parseStatusResponse(buf[:n])
	if err != nil {
		return nil, err
	}
	status.Address = address
	status.UpdatedAt = time.Now().UTC()
	return status, nil
}

// parseStatusResponse parses "statusResponse\n<vars>\n<player>\n<player>..."
func parseStatusResponse(data []byte) (*domain.ServerStatus, error) {
	response, ok := strings.CutPrefix(string(data), statusPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid response prefix")
	}

	lines := strings.Split(response, "\n")
	vars := parseVars(lines[0])

	status := &domain.ServerStatus{
		Hostname: domain.CleanQ3Name(vars["sv_hostname"]),
		MapName:  vars["mapname"],
	}
	if mc, err := strconv.Atoi(vars["sv_maxclients"]); err == nil {
		status.MaxClients = mc
	}
	if fl, err := strconv.Atoi(vars["fraglimit"]); err == nil {
		status.FragLimit = fl
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		player, err := parsePlayerLine(line)
		if err != nil {
			continue
		}
		status.Players = append(status.Players, player)
	}
	return status, nil
}

// parseVars parses \key\value pairs; keys are lower-cased
func parseVars(line string) map[string]string {
	vars := make(map[string]string)
	for k, v := range parseCombined([]string{line}) {
		vars[strings.ToLower(k)] = v
	}
	return vars
}

// parsePlayerLine parses `<score> <ping> "<name>"`
func parsePlayerLine(line string) (domain.PlayerStatus, error) {
	var player domain.PlayerStatus

	quoteStart := strings.Index(line, "\"")
	quoteEnd := strings.LastIndex(line, "\"")
	if quoteStart == -1 || quoteEnd <= quoteStart {
		return player, fmt.Errorf("no quoted name found")
	}
	player.Name = domain.CleanQ3Name(line[quoteStart+1 : quoteEnd])

	parts := strings.Fields(line[:quoteStart])
	if len(parts) < 2 {
		return player, fmt.Errorf("missing score and ping")
	}
	player.Score, _ = strconv.Atoi(parts[0])
	player.Ping, _ = strconv.Atoi(parts[1])
	return player, nil
}
