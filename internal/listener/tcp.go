package listener

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/briarcliff/relaygate/internal/acl"
	"github.com/briarcliff/relaygate/internal/manager"
)

// RunTCP binds 0.0.0.0:port and relays bytes bidirectionally between each
// accepted connection and an upstream chosen from the first route's
// cluster (spec §4.B). ACL is enforced at accept time, against the first
// route's rules; no other route feature applies to TCP traffic.
func RunTCP(ctx context.Context, listenerKey string, port uint16, entry *manager.Entry, deps Deps) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("listener %s: bind: %w", listenerKey, err)
	}

	acceptErr := make(chan error, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			go handleTCPConn(listenerKey, conn, entry, deps)
		}
	}()

	select {
	case <-ctx.Done():
	case <-entry.ShutdownCh:
	case err := <-acceptErr:
		return err
	}

	_ = ln.Close()
	return nil
}

func handleTCPConn(listenerKey string, conn net.Conn, entry *manager.Entry, deps Deps) {
	defer func() { _ = conn.Close() }()

	peer := hostOnly(conn.RemoteAddr().String())
	routes := entry.Snapshot()
	if len(routes) == 0 {
		return
	}
	first := routes[0]

	if !acl.Evaluate(first.ACL, peer) {
		return
	}
	if first.Cluster == nil {
		log.Printf("listener %s: route %s has no cluster", listenerKey, first.RouteID)
		return
	}
	endpoint, err := first.Cluster.GetRoute(nil)
	if err != nil {
		log.Printf("listener %s: cluster selection: %v", listenerKey, err)
		return
	}

	deps.Metrics.IncActiveConns(listenerKey)
	defer deps.Metrics.DecActiveConns(listenerKey)

	upstream, err := net.DialTimeout("tcp", endpoint.Upstream, 5*time.Second)
	if err != nil {
		log.Printf("listener %s: dial upstream %s: %v", listenerKey, endpoint.Upstream, err)
		return
	}
	defer func() { _ = upstream.Close() }()

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(upstream, conn)
		if c, ok := upstream.(*net.TCPConn); ok {
			_ = c.CloseWrite()
		}
		close(done)
	}()

	_, _ = io.Copy(conn, upstream)
	if c, ok := conn.(*net.TCPConn); ok {
		_ = c.CloseWrite()
	}
	<-done
}
