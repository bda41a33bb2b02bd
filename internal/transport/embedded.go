package transport

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port
const RandomPort = server.RANDOM_PORT

// StartEmbedded runs an in-process NATS server on the loopback interface
// and waits for it to accept clients. Shut it down with Shutdown.
func StartEmbedded(port int) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server on port %d not ready", port)
	}
	return ns, nil
}
