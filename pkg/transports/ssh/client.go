// Package ssh executes deployment platform commands on a remote host
// over SSH and stages revision bundles there via SFTP. It is the
// alternative to the local transport for pipelines whose runner cannot
// reach the target environment directly.
package ssh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// Client holds one SSH connection to a remote runner host. It is the
// shared substrate for the command runner and the bundle stager.
type Client struct {
	config *Config

	connMu      sync.RWMutex
	conn        *ssh.Client
	isConnected bool
	connectedAt time.Time
}

// NewClient creates a new SSH client for the given host configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{config: config}, nil
}

// Connect establishes the SSH connection.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.isConnected && c.conn != nil {
		if err := c.healthCheckLocked(); err == nil {
			return nil
		}
		log.Warn().Str("host", c.config.Host).Msg("existing connection is dead, reconnecting")
		_ = c.conn.Close()
	}

	clientConfig, err := c.config.buildClientConfig()
	if err != nil {
		return err
	}

	address := c.config.Address()
	log.Debug().Str("address", address).Msg("establishing SSH connection")

	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)
	go func() {
		conn, dialErr := ssh.Dial("tcp", address, clientConfig)
		if dialErr != nil {
			errChan <- dialErr
			return
		}
		connChan <- conn
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", address, ctx.Err())
	case err := <-errChan:
		return fmt.Errorf("connect to %s: %w", address, err)
	case conn := <-connChan:
		c.conn = conn
		c.isConnected = true
		c.connectedAt = time.Now()
		log.Info().Str("address", address).Msg("SSH connection established")
		return nil
	}
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.isConnected || c.conn == nil {
		return nil
	}

	log.Debug().Str("host", c.config.Host).Msg("closing SSH connection")

	err := c.conn.Close()
	c.conn = nil
	c.isConnected = false
	return err
}

// IsConnected returns true if the client has an active connection.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.isConnected
}

// HealthCheck verifies the connection is still alive and responsive.
func (c *Client) HealthCheck(_ context.Context) error {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	if !c.isConnected || c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.healthCheckLocked()
}

// healthCheckLocked runs a trivial command to probe the connection.
// Must be called with the connection lock held.
func (c *Client) healthCheckLocked() error {
	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer session.Close()

	if err := session.Run("true"); err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	return nil
}

// getConn returns the underlying SSH connection for session creation.
func (c *Client) getConn() (*ssh.Client, error) {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	if !c.isConnected || c.conn == nil {
		return nil, fmt.Errorf("not connected to %s", c.config.Address())
	}
	return c.conn, nil
}
