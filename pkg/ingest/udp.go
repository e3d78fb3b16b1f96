package ingest

import (
	"log"
	"net"
	"sync"
)

// UDPListener receives producer datagrams and pushes each packet onto the
// frame queue as one frame.
type UDPListener struct {
	addr  string
	queue *FrameQueue

	mu      sync.Mutex
	conn    *net.UDPConn
	stopped bool
}

func NewUDPListener(addr string, queue *FrameQueue) *UDPListener {
	return &UDPListener{
		addr:  addr,
		queue: queue,
	}
}

// Start begins receiving datagrams. Blocking call; returns nil after Stop.
func (u *UDPListener) Start() error {
	addr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		conn.Close()
		return nil
	}
	u.conn = conn
	u.mu.Unlock()

	log.Printf("[ingest] UDP listening on %s", u.addr)

	buf := make([]byte, 65535)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			u.mu.Lock()
			stopped := u.stopped
			u.mu.Unlock()
			if stopped {
				return nil
			}
			log.Printf("[ingest] UDP read error: %v", err)
			continue
		}
		if n == 0 {
			continue
		}

		// Copy out of the shared read buffer before queueing.
		frame := make([]byte, n)
		copy(frame, buf[:n])
		u.queue.Push(frame)
	}
}

// Stop closes the socket.
func (u *UDPListener) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stopped = true
	if u.conn != nil {
		u.conn.Close()
	}
}
