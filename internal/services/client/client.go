// Package client is a line-oriented terminal client for the greenhouse
// server.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/greenhouse_project/pkg/cipher"
)

type Client struct {
	conn  net.Conn
	codec cipher.Codec
	in    *bufio.Scanner

	mu  sync.Mutex
	out *bufio.Writer
}

// Dial connects to addr, retrying with exponential backoff for up to
// maxElapsed.
func Dial(ctx context.Context, addr string, codec cipher.Codec, maxElapsed time.Duration) (*Client, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	var d net.Dialer
	var conn net.Conn
	err := backoff.Retry(func() error {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			log.Printf("client: dial %s: %v", addr, err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return New(conn, codec), nil
}

// New wraps an established connection.
func New(conn net.Conn, codec cipher.Codec) *Client {
	in := bufio.NewScanner(conn)
	in.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Client{conn: conn, codec: codec, in: in, out: bufio.NewWriter(conn)}
}

func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.out.WriteString(c.codec.Encode(line) + "\n"); err != nil {
		return err
	}
	return c.out.Flush()
}

// ReadLine returns the next decoded server line, or io.EOF once the server
// has closed the connection.
func (c *Client) ReadLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.codec.Decode(strings.TrimRight(c.in.Text(), "\r")), nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) closeWrite() {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
		return
	}
	_ = c.conn.Close()
}

// Run copies user lines to the server and server lines to out until the
// server hangs up, the user input ends or ctx is done.
func (c *Client) Run(ctx context.Context, user io.Reader, out io.Writer) error {
	serverDone := make(chan error, 1)
	go func() {
		for {
			line, err := c.ReadLine()
			if err != nil {
				serverDone <- err
				return
			}
			fmt.Fprintln(out, line)
		}
	}()

	userLines := make(chan string)
	go func() {
		defer close(userLines)
		sc := bufio.NewScanner(user)
		for sc.Scan() {
			select {
			case userLines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			<-serverDone
			return nil
		case err := <-serverDone:
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		case line, ok := <-userLines:
			if !ok {
				// Let the server answer what was already sent; it hangs up
				// once it sees the end of our stream.
				c.closeWrite()
				userLines = nil
				continue
			}
			if err := c.Send(line); err != nil {
				_ = c.Close()
				<-serverDone
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
