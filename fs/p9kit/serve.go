package p9kit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/hugelgupf/p9/p9"
	"github.com/u-root/uio/ulog"
	"golang.org/x/net/netutil"

	"tractor.dev/counterfs"
)

type Options struct {
	// MaxConns caps concurrent client connections. Zero means no cap.
	MaxConns int
	// Trace logs every 9P message at debug level.
	Trace bool
	Log   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// NewServer returns a 9P server for fsys configured by opts.
func NewServer(fsys *counterfs.FS, opts Options) *p9.Server {
	log := opts.logger()
	var plog ulog.Logger = ulog.Null
	if opts.Trace {
		plog = traceLogger{log.With("component", "9p")}
	}
	return p9.NewServer(Attacher(fsys, log), p9.WithServerLogger(plog))
}

// Serve accepts 9P connections on l until ctx is done.
func Serve(ctx context.Context, l net.Listener, fsys *counterfs.FS, opts Options) error {
	if opts.MaxConns > 0 {
		l = netutil.LimitListener(l, opts.MaxConns)
	}
	srv := NewServer(fsys, opts)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	opts.logger().Info("serving 9p", "component", "p9kit", "addr", l.Addr().String(), "max_conns", opts.MaxConns)
	err := srv.Serve(l)
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// traceLogger adapts slog to the ulog interface the p9 package logs with.
type traceLogger struct {
	log *slog.Logger
}

func (t traceLogger) Printf(format string, v ...interface{}) {
	t.log.Debug(fmt.Sprintf(format, v...))
}

func (t traceLogger) Print(v ...interface{}) {
	t.log.Debug(fmt.Sprint(v...))
}
