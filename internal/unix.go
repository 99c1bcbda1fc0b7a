package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// unixServer serves HTTP on a unix domain socket.
type unixServer struct {
	path string
	cfg  ModelConfig
}

func newUnixServer(cfg ModelConfig) (*unixServer, error) {
	network, path, err := ParseListen(cfg.Listen)
	if err != nil {
		return nil, err
	}
	if network != "unix" {
		return nil, ErrInvalidListen
	}
	return &unixServer{path: path, cfg: cfg}, nil
}

func (s *unixServer) Kind() Kind {
	return UnixSocket
}

func (s *unixServer) Serve(ctx context.Context, h http.Handler) error {
	if err := RemoveStaleSocket(s.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	// The listener unlinks the socket file when closed.
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(true)
	}

	err = serveListener(ctx, ln, h, s.cfg)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		s.cfg.logger().Warn("failed to remove socket", slog.String("path", s.path), logger.Error(rmErr))
	}
	return err
}

// RemoveStaleSocket clears a socket left behind by a previous run.
// A missing path is fine. A path holding anything other than a socket is
// refused with ErrStaleSocket, and any other failure is returned.
func RemoveStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode().Type() != fs.ModeSocket {
		return fmt.Errorf("%w: %s", ErrStaleSocket, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
