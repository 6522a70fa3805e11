// Package torctl wraps the Tor control port. It answers the boolean
// relay-status questions the poll cycle asks, plus the bulk consensus and
// recommended-version queries, over a single authenticated connection.
package torctl

import (
	"fmt"
	"io"
	"net"
	"net/textproto"

	"github.com/cretz/bine/control"

	"torweather/internal/shared/config"
	"torweather/internal/shared/logger"
)

// exitCheckPort is the port used to decide whether a relay counts as an
// exit: a policy that lets port 80 out is an exit for our purposes.
const exitCheckPort = 80

// getInfoer is the slice of the control connection CtlUtil needs.
type getInfoer interface {
	GetInfo(keys ...string) ([]*control.KeyVal, error)
}

// CtlUtil answers relay status queries over a Tor control connection.
// Boolean queries never fail: any control-port or parse error is logged
// and reported as false.
type CtlUtil struct {
	conn   getInfoer
	closer io.Closer
	logger logger.Interface
}

// Connect dials the configured control port and authenticates.
func Connect(cfg *config.TorConfig) (*CtlUtil, error) {
	return ConnectAddr(cfg.GetControlAddr(), cfg.Password)
}

// ConnectAddr dials a control port address and authenticates. Used with
// the embedded daemon, whose port is assigned at launch.
func ConnectAddr(addr, password string) (*CtlUtil, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Tor control port at %s, is Tor running with its control port open: %w",
			addr, err)
	}

	conn := control.NewConn(textproto.NewConn(netConn))
	if err := conn.Authenticate(password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate to Tor control port: %w", err)
	}

	return &CtlUtil{
		conn:   conn,
		closer: conn,
		logger: logger.NewLogger().With("component", "torctl"),
	}, nil
}

// NewWithConn wraps an existing control connection.
func NewWithConn(conn getInfoer) *CtlUtil {
	return &CtlUtil{
		conn:   conn,
		logger: logger.NewLogger().With("component", "torctl"),
	}
}

// Close closes the underlying control connection.
func (c *CtlUtil) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *CtlUtil) getInfo(key string) (string, error) {
	kvs, err := c.conn.GetInfo(key)
	if err != nil {
		return "", err
	}
	if len(kvs) == 0 {
		return "", fmt.Errorf("empty GETINFO response for %s", key)
	}
	return kvs[0].Val, nil
}

// GetStatusEntry fetches and parses the relay's router status entry from
// the current consensus.
func (c *CtlUtil) GetStatusEntry(fingerprint string) (*StatusEntry, error) {
	doc, err := c.getInfo("ns/id/" + fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get router status entry for %s: %w", fingerprint, err)
	}
	return ParseStatusEntry(doc)
}

// GetDescriptor fetches and parses the relay's server descriptor.
func (c *CtlUtil) GetDescriptor(fingerprint string) (*Descriptor, error) {
	doc, err := c.getInfo("desc/id/" + fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get server descriptor for %s: %w", fingerprint, err)
	}
	return ParseDescriptor(doc)
}

// AllStatusEntries fetches the full consensus with one entry per running
// relay.
func (c *CtlUtil) AllStatusEntries() ([]*StatusEntry, error) {
	doc, err := c.getInfo("ns/all")
	if err != nil {
		return nil, fmt.Errorf("failed to get consensus: %w", err)
	}
	return ParseStatusEntries(doc)
}

// RecommendedVersions fetches the directory authorities' recommended Tor
// version list.
func (c *CtlUtil) RecommendedVersions() ([]string, error) {
	value, err := c.getInfo("status/version/recommended")
	if err != nil {
		return nil, fmt.Errorf("failed to get recommended versions: %w", err)
	}
	return ParseRecommendedVersions(value), nil
}

// IsUp checks whether the relay appears in the current consensus. A relay
// without a consensus entry is down.
func (c *CtlUtil) IsUp(fingerprint string) bool {
	_, err := c.GetStatusEntry(fingerprint)
	if err != nil {
		c.logger.Debugw("relay has no consensus entry", "fingerprint", fingerprint, "error", err)
		return false
	}
	return true
}

// IsExit checks whether the relay's exit policy lets web traffic out.
func (c *CtlUtil) IsExit(fingerprint string) bool {
	desc, err := c.GetDescriptor(fingerprint)
	if err != nil {
		c.logger.Errorw("unable to get server descriptor", "fingerprint", fingerprint, "error", err)
		return false
	}
	return desc.ExitPolicy.CanExitTo(exitCheckPort)
}

// IsStable checks whether the relay holds the Stable flag in the current
// consensus.
func (c *CtlUtil) IsStable(fingerprint string) bool {
	entry, err := c.GetStatusEntry(fingerprint)
	if err != nil {
		c.logger.Errorw("unable to get router status entry", "fingerprint", fingerprint, "error", err)
		return false
	}
	return entry.HasFlag("Stable")
}

// IsHibernating checks whether the relay's descriptor carries the
// hibernating line.
func (c *CtlUtil) IsHibernating(fingerprint string) bool {
	desc, err := c.GetDescriptor(fingerprint)
	if err != nil {
		c.logger.Debugw("unable to get server descriptor", "fingerprint", fingerprint, "error", err)
		return false
	}
	return desc.Hibernating
}
