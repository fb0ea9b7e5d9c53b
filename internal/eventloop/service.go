// Package eventloop runs the transport's asynchronous I/O completions.
//
// A single background goroutine (started by the transport at initialization,
// stopped at teardown) invokes every completion handler, in completion order.
// Callers register an asynchronous receive and block on their own one-shot
// primitive; the handler running on the service goroutine records the outcome
// and releases them. Exactly one completion is delivered per registration,
// whether the outcome is success, an I/O error, or cancellation.
package eventloop

import (
	"net"
	"sync"

	transerr "github.com/sciapex/Fast-DDS/internal/errors"
)

// Handler receives the outcome of an asynchronous receive. It runs on the
// service goroutine and must not block on other completions.
type Handler func(n int, src *net.UDPAddr, err error)

// Receiver is the socket capability the service borrows for the duration of
// one pending operation. The service never owns sockets: cancellation and
// close remain the registrant's responsibility.
type Receiver interface {
	ReadFrom(b []byte) (int, *net.UDPAddr, error)
}

type completion struct {
	handler Handler
	n       int
	src     *net.UDPAddr
	err     error
}

// Service dispatches asynchronous I/O completions on one goroutine.
type Service struct {
	mu      sync.Mutex
	stopped bool

	pending     sync.WaitGroup
	completions chan completion
	done        chan struct{}
}

// NewService returns a service ready to Run.
func NewService() *Service {
	return &Service{
		completions: make(chan completion),
		done:        make(chan struct{}),
	}
}

// Run invokes completion handlers until Stop. It is meant to be the body of
// the transport's one background goroutine.
func (s *Service) Run() {
	defer close(s.done)
	for c := range s.completions {
		c.handler(c.n, c.src, c.err)
	}
}

// AsyncReceiveFrom registers one asynchronous receive against r. When the
// read finishes, h is invoked on the service goroutine. Returns
// ErrServiceStopped if the service is no longer accepting operations, in
// which case h is never invoked.
func (s *Service) AsyncReceiveFrom(r Receiver, buf []byte, h Handler) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return transerr.ErrServiceStopped
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		n, src, err := r.ReadFrom(buf)
		s.completions <- completion{handler: h, n: n, src: src, err: err}
	}()

	return nil
}

// Stop rejects new operations, waits for every pending operation to complete
// through its handler, then stops the loop and waits for Run to return.
//
// Pending receives only finish once their sockets are canceled or closed;
// the transport sweeps its channels shut before calling Stop.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.pending.Wait()
	close(s.completions)
	<-s.done
}
