package collector

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

const statusReply = q3Header + "statusResponse\n" +
	`\sv_hostname\^1Frag^7Feed\mapname\q3dm17\sv_maxclients\8\fraglimit\20` + "\n" +
	`12 48 "^2Big Boss"` + "\n" +
	`3 0 "Sarge"` + "\n" +
	"garbage\n"

func TestParseStatusResponse(t *testing.T) {
	status, err := parseStatusResponse([]byte(statusReply))
	require.NoError(t, err)
	require.Equal(t, "FragFeed", status.Hostname)
	require.Equal(t, "q3dm17", status.MapName)
	require.Equal(t, 8, status.MaxClients)
	require.Equal(t, 20, status.FragLimit)
	require.Len(t, status.Players, 2)
	require.Equal(t, "Big Boss", status.Players[0].Name)
	require.Equal(t, 12, status.Players[0].Score)
	require.Equal(t, 48, status.Players[0].Ping)

	_, err = parseStatusResponse([]byte("hello"))
	require.Error(t, err)
}

func TestQueryStatus(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	go func() {
		buf := make([]byte, 1024)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil || string(buf[:n]) != getStatus {
			return
		}
		pc.WriteTo([]byte(statusReply), addr)
	}()

	status, err := QueryStatus(context.Background(), pc.LocalAddr().String())
	require.NoError(t, err)
	require.Equal(t, pc.LocalAddr().String(), status.Address)
	require.Equal(t, "q3dm17", status.MapName)
	require.False(t, status.UpdatedAt.IsZero())
}
