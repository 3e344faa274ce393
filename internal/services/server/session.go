package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/metrics"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/cipher"
)

// ErrConnectionLost wraps I/O failures on a session or monitor write.
var ErrConnectionLost = errors.New("connection lost")

type menuState int

const (
	stateStart menuState = iota
	stateList
	stateDetail
	stateMonitor
	stateDisconnected
)

func (s menuState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateList:
		return "list"
	case stateDetail:
		return "detail"
	case stateMonitor:
		return "monitor"
	default:
		return "disconnected"
	}
}

// connWriter serializes writes from the session goroutine and clock ticks.
type connWriter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	codec cipher.Codec
}

func (c *connWriter) WriteLine(line string) error {
	return c.WriteLines(line)
}

// WriteLines sends lines as one batch; no other write lands between them.
func (c *connWriter) WriteLines(lines ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		if _, err := c.w.WriteString(c.codec.Encode(l) + "\n"); err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

type session struct {
	id    string
	srv   *Server
	conn  net.Conn
	in    *bufio.Scanner
	out   *connWriter
	codec cipher.Codec

	state menuState
	ghID  int
}

func newSession(srv *Server, conn net.Conn) *session {
	in := bufio.NewScanner(conn)
	in.Buffer(make([]byte, 0, 4096), 1<<20)
	return &session{
		id:    uuid.NewString(),
		srv:   srv,
		conn:  conn,
		in:    in,
		out:   &connWriter{w: bufio.NewWriter(conn), codec: srv.codec},
		codec: srv.codec,
		state: stateStart,
	}
}

// run drives the menu until the client exits or the connection drops.
func (s *session) run() {
	metrics.SessionsActive.Inc()
	defer func() {
		s.srv.monitor.Unsubscribe(s.out)
		s.srv.broadcast.remove(s.out)
		_ = s.conn.Close()
		metrics.SessionsActive.Dec()
		log.Printf("session: closed id=%s remote=%s", s.id, s.conn.RemoteAddr())
	}()
	log.Printf("session: opened id=%s remote=%s", s.id, s.conn.RemoteAddr())

	if err := s.reply(greeting, "Available commands: greenhouses, subscribe, saveserverstate, speedup, slowdown, clockrate, help, exit"); err != nil {
		return
	}
	for s.state != stateDisconnected {
		line, err := s.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("session: read id=%s: %v", s.id, err)
			}
			return
		}
		if err := s.handle(line); err != nil {
			log.Printf("session: write id=%s: %v", s.id, err)
			return
		}
	}
}

func (s *session) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.codec.Decode(strings.TrimRight(s.in.Text(), "\r"))), nil
}

func (s *session) reply(lines ...string) error {
	return s.out.WriteLines(lines...)
}

func (s *session) handle(line string) error {
	menu := s.state.String()
	var err error
	switch s.state {
	case stateStart:
		err = s.handleStart(line)
	case stateList:
		err = s.handleList(line)
	case stateDetail:
		err = s.handleDetail(line)
	case stateMonitor:
		err = s.handleMonitor(line)
	}
	result := "ok"
	if err != nil {
		result = "io_error"
	}
	metrics.CommandsTotal.WithLabelValues(menu, result).Inc()
	return err
}
