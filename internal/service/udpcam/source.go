// Package udpcam receives JPEG frames pushed over UDP by network cameras.
package udpcam

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"pantryscan/internal/logger"
	"pantryscan/internal/model"
	"pantryscan/internal/service/capture"
)

const (
	datagramSize = 2048
	maxFrameSize = 4 << 20
)

// Source is a capture.FrameSource listening on a UDP port. Datagrams from
// every sender are reassembled separately and delivered as one stream.
type Source struct {
	port   int
	logger *logger.Logger

	mu   sync.Mutex
	conn net.PacketConn
	done chan struct{}
}

func NewSource(port int, logger *logger.Logger) *Source {
	return &Source{port: port, logger: logger}
}

// Configure starts listening and invokes handler for each complete frame.
func (s *Source) Configure(ctx context.Context, handler capture.FrameHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return errors.New("udp source already configured")
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return fmt.Errorf("listen on UDP port %d: %w", s.port, err)
	}

	s.conn = conn
	s.done = make(chan struct{})
	go s.readLoop(conn, handler, s.done)

	s.logger.Info("UDP camera source listening on %s", conn.LocalAddr())
	return nil
}

// Release stops listening and waits for the read loop to exit.
func (s *Source) Release() error {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

// Addr returns the bound address while configured, or nil.
func (s *Source) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Source) readLoop(conn net.PacketConn, handler capture.FrameHandler, done chan struct{}) {
	defer close(done)

	assembler := NewAssembler(maxFrameSize)
	buffer := make([]byte, datagramSize)
	var seq uint64

	for {
		n, remoteAddr, err := conn.ReadFrom(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		camera := remoteAddr.String()
		if udpAddr, ok := remoteAddr.(*net.UDPAddr); ok {
			camera = udpAddr.IP.String()
		}

		frame, ok := assembler.Push(camera, buffer[:n])
		if !ok {
			continue
		}
		seq++
		handler(model.Frame{Seq: seq, Data: frame, CapturedAt: time.Now()})
	}
}
