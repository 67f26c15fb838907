// Package oracletest provides a deterministic Oracle for tests.
package oracletest

import (
	"context"
	"sync"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
)

// Stub replies with a fixed text or error and records every request.
type Stub struct {
	Reply string
	Err   error

	mu       sync.Mutex
	requests []oracle.Request
}

func (s *Stub) Complete(_ context.Context, req oracle.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// Calls returns how many times Complete was invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent request, or the zero Request.
func (s *Stub) Last() oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return oracle.Request{}
	}
	return s.requests[len(s.requests)-1]
}
