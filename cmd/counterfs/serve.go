package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/counterfs"
	"tractor.dev/counterfs/fs/p9kit"
)

func serveCmd() *cli.Command {
	var (
		addr     string
		wsAddr   string
		maxConns int
		trace    bool
		logs     logFlags
	)
	cmd := &cli.Command{
		Usage: "serve",
		Short: "serve counterfs over 9P",
		Run: func(ctx *cli.Context, args []string) {
			logger, err := logs.setup()
			fatal(err)

			fsys := counterfs.New(counterfs.WithLogger(logger))
			fatal(fsys.Mount())
			defer fsys.Unmount()

			sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := p9kit.Options{MaxConns: maxConns, Trace: trace, Log: logger}

			if wsAddr != "" {
				srv := &http.Server{
					Addr:              wsAddr,
					Handler:           p9kit.WebsocketHandler(fsys, opts),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Fatal(err)
					}
				}()
				go func() {
					<-sctx.Done()
					srv.Close()
				}()
				logger.Info("serving 9p over websocket", "addr", wsAddr)
			}

			l, err := net.Listen("tcp", addr)
			fatal(err)
			fatal(p9kit.Serve(sctx, l, fsys, opts))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5640", "9P listen address")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "HTTP address for 9P over WebSocket (empty disables)")
	cmd.Flags().IntVar(&maxConns, "max-conns", 0, "maximum concurrent 9P connections (0 for no limit)")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every 9P message at debug level")
	logs.register(cmd)
	return cmd
}
