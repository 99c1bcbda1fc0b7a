package internal

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/net/netutil"
)

// threadedServer serves every connection from this process.
type threadedServer struct {
	address string
	cfg     ModelConfig
}

func newThreadedServer(cfg ModelConfig) (*threadedServer, error) {
	network, address, err := ParseListen(cfg.Listen)
	if err != nil {
		return nil, err
	}
	if network != "tcp" {
		return nil, ErrInvalidListen
	}
	return &threadedServer{address: address, cfg: cfg}, nil
}

func (s *threadedServer) Kind() Kind {
	return Threaded
}

func (s *threadedServer) Serve(ctx context.Context, h http.Handler) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	return serveListener(ctx, ln, h, s.cfg)
}
