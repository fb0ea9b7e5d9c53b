package eventloop

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	transerr "github.com/sciapex/Fast-DDS/internal/errors"
)

// fakeReceiver drives the service without a real socket.
type fakeReceiver struct {
	payload []byte
	src     *net.UDPAddr
	err     error
	release chan struct{} // if non-nil, ReadFrom blocks until closed
}

func (f *fakeReceiver) ReadFrom(b []byte) (int, *net.UDPAddr, error) {
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return 0, nil, f.err
	}
	n := copy(b, f.payload)
	return n, f.src, nil
}

func startService(t *testing.T) *Service {
	t.Helper()
	s := NewService()
	go s.Run()
	t.Cleanup(s.Stop)
	return s
}

func TestAsyncReceiveFrom_DeliversCompletion(t *testing.T) {
	s := startService(t)

	src := &net.UDPAddr{IP: net.IPv6loopback, Port: 12345}
	recv := &fakeReceiver{payload: []byte("datagram"), src: src}

	done := make(chan struct{})
	var (
		gotN   int
		gotSrc *net.UDPAddr
		gotErr error
	)
	buf := make([]byte, 64)
	err := s.AsyncReceiveFrom(recv, buf, func(n int, src *net.UDPAddr, err error) {
		gotN, gotSrc, gotErr = n, src, err
		close(done)
	})
	if err != nil {
		t.Fatalf("AsyncReceiveFrom() error = %v, want nil", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("completion handler not invoked within 5s")
	}

	if gotErr != nil {
		t.Errorf("handler err = %v, want nil", gotErr)
	}
	if gotN != len("datagram") {
		t.Errorf("handler n = %d, want %d", gotN, len("datagram"))
	}
	if gotSrc != src {
		t.Errorf("handler src = %v, want %v", gotSrc, src)
	}
	if string(buf[:gotN]) != "datagram" {
		t.Errorf("buffer = %q, want %q", buf[:gotN], "datagram")
	}
}

func TestAsyncReceiveFrom_DeliversError(t *testing.T) {
	s := startService(t)

	readErr := errors.New("socket gone")
	done := make(chan error, 1)
	err := s.AsyncReceiveFrom(&fakeReceiver{err: readErr}, make([]byte, 8),
		func(n int, src *net.UDPAddr, err error) { done <- err })
	if err != nil {
		t.Fatalf("AsyncReceiveFrom() error = %v, want nil", err)
	}

	select {
	case got := <-done:
		if !errors.Is(got, readErr) {
			t.Errorf("handler err = %v, want %v", got, readErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("completion handler not invoked within 5s")
	}
}

func TestAsyncReceiveFrom_ExactlyOnce(t *testing.T) {
	s := startService(t)

	var calls atomic.Int32
	done := make(chan struct{})
	err := s.AsyncReceiveFrom(&fakeReceiver{payload: []byte("x")}, make([]byte, 8),
		func(int, *net.UDPAddr, error) {
			calls.Add(1)
			close(done)
		})
	if err != nil {
		t.Fatalf("AsyncReceiveFrom() error = %v, want nil", err)
	}

	<-done
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("handler invoked %d times, want exactly 1", got)
	}
}

func TestStop_WaitsForPendingOperations(t *testing.T) {
	s := NewService()
	go s.Run()

	release := make(chan struct{})
	handled := make(chan struct{})
	err := s.AsyncReceiveFrom(&fakeReceiver{payload: []byte("late"), release: release},
		make([]byte, 8), func(int, *net.UDPAddr, error) { close(handled) })
	if err != nil {
		t.Fatalf("AsyncReceiveFrom() error = %v, want nil", err)
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Stop must not return while the operation is still pending.
	select {
	case <-stopped:
		t.Fatal("Stop() returned before the pending operation completed")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return after the pending operation completed")
	}

	select {
	case <-handled:
	default:
		t.Error("pending operation's handler was never invoked")
	}
}

func TestAsyncReceiveFrom_AfterStop(t *testing.T) {
	s := NewService()
	go s.Run()
	s.Stop()

	err := s.AsyncReceiveFrom(&fakeReceiver{payload: []byte("x")}, make([]byte, 8),
		func(int, *net.UDPAddr, error) {
			t.Error("handler invoked for an operation registered after Stop")
		})
	if !errors.Is(err, transerr.ErrServiceStopped) {
		t.Errorf("AsyncReceiveFrom() after Stop error = %v, want ErrServiceStopped", err)
	}
}
