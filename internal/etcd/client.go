// Package etcd wraps the subset of the etcd v3 client this service
// actually needs: a dial helper and the session/election primitives
// internal/coordination campaigns on. It carries no key/value,
// lease, or watch surface — nothing here reads or writes etcd data of
// its own, only leadership.
package etcd

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// Client dials one etcd cluster and hands out concurrency primitives
// against it.
type Client struct {
	cli *clientv3.Client
}

// Config configures the dial.
type Config struct {
	// Endpoints is the list of etcd server endpoints.
	Endpoints []string

	// DialTimeout is the timeout for failing to establish a connection.
	DialTimeout time.Duration

	// Username for authentication (optional).
	Username string

	// Password for authentication (optional).
	Password string
}

// NewClient dials an etcd cluster.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Client{cli: cli}, nil
}

// Close closes the etcd client connection.
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// NewSession creates a new concurrency session for leader election.
func (c *Client) NewSession(ctx context.Context, ttl int) (*concurrency.Session, error) {
	return concurrency.NewSession(c.cli, concurrency.WithTTL(ttl))
}

// NewElection creates a new election instance over session.
func (c *Client) NewElection(session *concurrency.Session, prefix string) *concurrency.Election {
	return concurrency.NewElection(session, prefix)
}
