// Package rpc exposes a region allocator over net/rpc. Raw pointers are
// process-local, so the wire currency is the payload's offset within the
// managed region.
package rpc

import (
	"net"
	"net/rpc"
	"sync"

	"github.com/pkg/errors"

	"regionalloc/arena"
)

// Server owns a platform-backed allocator and serves allocation requests.
type Server struct {
	allocator *arena.Allocator
	listener  net.Listener
	mu        sync.Mutex
}

// AllocRequest represents a memory allocation request
type AllocRequest struct {
	Size uint64
}

// AllocResponse represents a memory allocation response
type AllocResponse struct {
	Offset uint64
	Error  string
}

// FreeRequest represents a memory free request
type FreeRequest struct {
	Offset uint64
}

// FreeResponse represents a memory free response
type FreeResponse struct {
	Error string
}

// StatsRequest represents a statistics query
type StatsRequest struct{}

// StatsResponse carries a snapshot of the region statistics
type StatsResponse struct {
	Stats arena.Stats
}

// NewServer creates a server backed by a fresh region of the given size.
func NewServer(alg arena.Algorithm, regionSize uintptr) (*Server, error) {
	allocator, err := arena.NewManaged(alg, regionSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create allocator")
	}

	server := &Server{allocator: allocator}
	rpc.Register(server)
	return server, nil
}

// Start listens on the specified address and serves connections until
// the listener is closed.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to start server")
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	arena.Info("Server listening on %s", address)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return nil
		}
		go rpc.ServeConn(conn)
	}
}

// Allocate serves a remote allocation. The core is single-threaded, so
// the server serializes access to it.
func (s *Server) Allocate(req *AllocRequest, resp *AllocResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.allocator.Alloc(uintptr(req.Size))
	if p == nil {
		resp.Error = "no space available"
		return nil
	}

	resp.Offset = uint64(s.allocator.Offset(p))
	return nil
}

// Free serves a remote release.
func (s *Server) Free(req *FreeRequest, resp *FreeResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allocator.Free(s.allocator.At(uintptr(req.Offset)))
	return nil
}

// QueryStats serves a statistics snapshot.
func (s *Server) QueryStats(req *StatsRequest, resp *StatsResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp.Stats = s.allocator.Stats()
	return nil
}

// Close stops the listener and destroys the allocator.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.allocator.Destroy()
	return nil
}
