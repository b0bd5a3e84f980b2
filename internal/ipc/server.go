package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

const connTimeout = 2 * time.Second

// Handler processes one socket request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Mux routes requests by command name.
type Mux map[string]HandlerFunc

// Handle runs the handler registered for req.Command.
func (m Mux) Handle(ctx context.Context, req Request) Response {
	name := strings.ToLower(strings.TrimSpace(req.Command))
	handler, ok := m[name]
	if !ok {
		known := make([]string, 0, len(m))
		for k := range m {
			known = append(known, k)
		}
		sort.Strings(known)
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q (want one of %s)", req.Command, strings.Join(known, ", "))}
	}
	return handler(ctx, req)
}

// Serve accepts socket clients until context cancellation or listener close.
// Each connection carries exactly one request and one response.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept socket connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			_ = c.SetDeadline(time.Now().Add(connTimeout))

			enc := json.NewEncoder(c)
			line, err := bufio.NewReader(c).ReadBytes('\n')
			if err != nil {
				_ = enc.Encode(Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
				return
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				_ = enc.Encode(Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
				return
			}
			_ = enc.Encode(handler.Handle(ctx, req))
		}(conn)
	}
}
