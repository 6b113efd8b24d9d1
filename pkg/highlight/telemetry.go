package highlight

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// TelemetrySender broadcasts applied SwitchEvents as JSON datagrams, for a
// downstream consumer (e.g. a production switcher UI) to follow the
// director's decisions live, over a connect-once UDP socket with exactly
// one message shape.
type TelemetrySender struct {
	mu      sync.Mutex
	conn    *net.UDPConn
	addr    *net.UDPAddr
	enabled bool
}

// NewTelemetrySender dials a UDP socket to address:port and returns a sender
// ready to broadcast SwitchEvents.
func NewTelemetrySender(address string, port int) (*TelemetrySender, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, fmt.Errorf("resolving telemetry address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to telemetry endpoint: %w", err)
	}

	return &TelemetrySender{
		conn:    conn,
		addr:    addr,
		enabled: true,
	}, nil
}

// Send transmits a SwitchEvent as a single JSON UDP datagram. A nil or
// disabled sender is a no-op, so callers can wire telemetry unconditionally
// and leave it dark when no address was configured.
func (t *TelemetrySender) Send(event SwitchEvent) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled || t.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling switch event: %w", err)
	}

	if _, err := t.conn.Write(payload); err != nil {
		return fmt.Errorf("sending switch event: %w", err)
	}
	return nil
}

// Close releases the sender's socket. Safe to call on a zero-value sender.
func (t *TelemetrySender) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = false
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
