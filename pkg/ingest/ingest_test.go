package ingest

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"centrallog/pkg/engine"
)

func TestFrameQueue_PushReceive(t *testing.T) {
	q := NewFrameQueue(16)

	if !q.Push([]byte("frame one")) {
		t.Fatal("Push failed on an empty queue")
	}

	frame, err := q.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(frame) != "frame one" {
		t.Errorf("got %q, want frame one", frame)
	}
}

func TestFrameQueue_ReceiveTimeout(t *testing.T) {
	q := NewFrameQueue(16)

	start := time.Now()
	_, err := q.Receive(50 * time.Millisecond)
	if !errors.Is(err, engine.ErrBusTimeout) {
		t.Fatalf("err = %v, want ErrBusTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Receive returned after %v, want ~50ms", elapsed)
	}
}

func TestFrameQueue_TailDrop(t *testing.T) {
	q := NewFrameQueue(2)

	q.Push([]byte("1"))
	q.Push([]byte("2"))
	if q.Push([]byte("3")) {
		t.Error("Push on a full queue should drop")
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", q.Dropped())
	}

	// Queued frames unaffected.
	frame, _ := q.Receive(time.Second)
	if string(frame) != "1" {
		t.Errorf("order corrupted: got %q", frame)
	}
}

func TestFrameQueue_CloseDrainsThenReportsClosed(t *testing.T) {
	q := NewFrameQueue(16)
	q.Push([]byte("pending"))
	q.Close()
	q.Close() // idempotent

	frame, err := q.Receive(time.Second)
	if err != nil {
		t.Fatalf("pending frame lost on close: %v", err)
	}
	if string(frame) != "pending" {
		t.Errorf("got %q, want pending", frame)
	}

	if _, err := q.Receive(time.Second); !errors.Is(err, engine.ErrBusClosed) {
		t.Errorf("err = %v, want ErrBusClosed", err)
	}
}

func TestTCPListener_Integration(t *testing.T) {
	q := NewFrameQueue(1024)

	// Bind on a kernel-assigned port to avoid clashes.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := probe.Addr().String()
	probe.Close()

	listener := NewTCPListener(addr, q)
	go func() {
		if err := listener.Start(); err != nil {
			t.Logf("listener stopped: %v", err)
		}
	}()
	defer listener.Stop()

	// Give it a moment to bind.
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	msg := "[10:00:00.000][INFO][7](svc) over tcp\n"
	if _, err := conn.Write([]byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	frame, err := q.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("frame not queued: %v", err)
	}
	if got := string(frame); got != "[10:00:00.000][INFO][7](svc) over tcp" {
		t.Errorf("frame = %q", got)
	}
}

func TestUDPListener_Integration(t *testing.T) {
	q := NewFrameQueue(1024)

	probe, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := probe.LocalAddr().String()
	probe.Close()

	listener := NewUDPListener(addr, q)
	go func() {
		if err := listener.Start(); err != nil {
			t.Logf("listener stopped: %v", err)
		}
	}()
	defer listener.Stop()

	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	// UDP is lossy even on loopback; retry a few sends.
	for i := 0; i < 5; i++ {
		fmt.Fprintf(conn, "[10:00:00.000][WARN][8](svc) over udp")
		frame, err := q.Receive(500 * time.Millisecond)
		if err == nil {
			if got := string(frame); got != "[10:00:00.000][WARN][8](svc) over udp" {
				t.Errorf("frame = %q", got)
			}
			return
		}
	}
	t.Fatal("no UDP frame received")
}
