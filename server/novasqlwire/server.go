package novasqlwire

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/minisql-engine/core/internal/engine"
)

// ServerConfig holds the settings Run needs to open a database directory
// and start listening.
type ServerConfig struct {
	Addr           string
	DataDir        string
	BufferPoolSize int
}

// Run opens the database at sc.DataDir, listens on sc.Addr, and serves
// framed Requests on every accepted connection until SIGINT/SIGTERM.
func Run(sc ServerConfig) error {
	db, err := engine.NewDatabase(sc.DataDir, sc.BufferPoolSize)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	log.Printf("novasql tcp server listening on %s (datadir=%s)", sc.Addr, sc.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(ctx, conn, db)
	}
}

func handleConn(ctx context.Context, conn net.Conn, db *engine.Database) {
	defer func() { _ = conn.Close() }()

	// No global deadline; per-request deadlines can be layered on later.
	_ = conn.SetDeadline(time.Time{})

	sess := newSession(db)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req Request
		if err := ReadFrame(conn, &req); err != nil {
			// Client closed or sent a bad frame.
			return
		}

		_ = WriteFrame(conn, sess.handle(req))
	}
}
