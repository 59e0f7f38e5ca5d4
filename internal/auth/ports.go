package auth

import (
	"fmt"
	"net"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// CallbackPorts are the loopback ports registered in the seven.io
// OAuth app's redirect allow-list (http://127.0.0.1:<port>/callback).
// Order matters: callers must prefer the first free port so the
// redirect URI deterministically matches a registered one.
var CallbackPorts = []int{7177, 9437, 8659}

// FindAvailablePort probes CallbackPorts in order and returns the
// first one a loopback listener can bind.
func FindAvailablePort() (int, error) {
	return findAvailablePort(CallbackPorts)
}

func findAvailablePort(ports []int) (int, error) {
	for _, port := range ports {
		l, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}

		l.Close()

		return port, nil
	}

	return 0, fmt.Errorf("%w: tried %v", svcerrors.ErrNoPortAvailable, ports)
}
