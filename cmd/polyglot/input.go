package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
)

// lineReader reads input lines on a background goroutine so a read can be
// abandoned when its context is canceled.
type lineReader struct {
	lines chan string
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lr.lines <- sc.Text()
		}
	}()
	return lr
}

// readLine returns the next trimmed line, io.EOF once input is exhausted, or
// the context error.
func (lr *lineReader) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// interrupter routes SIGINT: the first interrupt cancels the request in
// flight; with nothing in flight it cancels the whole run.
type interrupter struct {
	mu       sync.Mutex
	root     context.CancelFunc
	inFlight context.CancelFunc
}

func newInterrupter(root context.CancelFunc) *interrupter {
	return &interrupter{root: root}
}

// request derives a cancelable context for one learning-session request.
// done must be called when the request ends.
func (i *interrupter) request(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	i.mu.Lock()
	i.inFlight = cancel
	i.mu.Unlock()
	return ctx, func() {
		i.mu.Lock()
		i.inFlight = nil
		i.mu.Unlock()
		cancel()
	}
}

// interrupt reports whether a request was canceled (true) or the run (false).
func (i *interrupter) interrupt() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.inFlight != nil {
		i.inFlight()
		i.inFlight = nil
		return true
	}
	i.root()
	return false
}

// watchSignals feeds SIGINT/SIGTERM into the interrupter until ctx ends.
// SIGTERM always ends the run.
func (i *interrupter) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if sig == syscall.SIGTERM {
					i.root()
					return
				}
				i.interrupt()
			}
		}
	}()
}
