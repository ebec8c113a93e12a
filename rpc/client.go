package rpc

import (
	"net/rpc"
	"sync"

	"github.com/pkg/errors"

	"regionalloc/arena"
)

// Client represents a remote allocator client
type Client struct {
	id        int
	client    *rpc.Client
	allocated map[uint64]uint64 // offset -> size
	mu        sync.Mutex
}

// NewClient creates a new remote allocator client
func NewClient(id int, address string) (*Client, error) {
	client, err := rpc.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to server")
	}

	return &Client{
		id:        id,
		client:    client,
		allocated: make(map[uint64]uint64),
	}, nil
}

// Allocate allocates memory through the server
func (c *Client) Allocate(size uint64) (uint64, error) {
	req := &AllocRequest{Size: size}
	resp := &AllocResponse{}

	err := c.client.Call("Server.Allocate", req, resp)
	if err != nil {
		return 0, errors.Wrap(err, "RPC call failed")
	}

	if resp.Error != "" {
		return 0, errors.Errorf("server error: %s", resp.Error)
	}

	c.mu.Lock()
	c.allocated[resp.Offset] = size
	c.mu.Unlock()

	return resp.Offset, nil
}

// Free frees memory through the server
func (c *Client) Free(offset uint64) error {
	req := &FreeRequest{Offset: offset}
	resp := &FreeResponse{}

	err := c.client.Call("Server.Free", req, resp)
	if err != nil {
		return errors.Wrap(err, "RPC call failed")
	}

	if resp.Error != "" {
		return errors.Errorf("server error: %s", resp.Error)
	}

	c.mu.Lock()
	delete(c.allocated, offset)
	c.mu.Unlock()

	return nil
}

// Stats fetches a statistics snapshot from the server
func (c *Client) Stats() (arena.Stats, error) {
	req := &StatsRequest{}
	resp := &StatsResponse{}

	err := c.client.Call("Server.QueryStats", req, resp)
	if err != nil {
		return arena.Stats{}, errors.Wrap(err, "RPC call failed")
	}
	return resp.Stats, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
