// Command reactor-echo is a minimal demo acceptor: it binds one TCP
// endpoint, wraps each accepted connection in a session.Session, and logs
// accept/destroy traffic via logrus. It does not read from accepted
// connections, so nothing is echoed back to the sender. It exists to
// exercise AcceptorState end to end, not as a production server.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/dualstack/reactor"
	"github.com/dualstack/reactor/session"
)

type options struct {
	Addr           string        `short:"a" long:"addr" default:":9000" description:"address to listen on"`
	MaxConnections int           `short:"m" long:"max-connections" default:"256" description:"admission ceiling, <=0 disables admission control"`
	Backlog        int           `short:"b" long:"backlog" default:"1024" description:"listen backlog"`
	ReuseAddress   bool          `long:"reuse-address" description:"set SO_REUSEADDR on the listening socket"`
	IdleInterval   time.Duration `long:"idle-interval" default:"10s" description:"idle sweep interval"`
	IdleTimeout    time.Duration `long:"idle-timeout" default:"5m" description:"idle session timeout"`
}

func main() {
	log := logrus.New()
	reactor.DefaultExceptionSink = reactor.ExceptionSinkFunc(func(err error) {
		log.WithError(err).Error("reactor: unhandled background error")
	})

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	addr, err := net.ResolveTCPAddr("tcp", opts.Addr)
	if err != nil {
		log.WithError(err).Fatal("resolve listen address")
	}

	processor := session.NewProcessor(opts.IdleInterval, opts.IdleTimeout)
	acceptor := reactor.NewAcceptorState(reactor.Config{
		MaxConnections: opts.MaxConnections,
		Backlog:        opts.Backlog,
		ReuseAddress:   opts.ReuseAddress,
	}, processor, loggingFactory{log: log, inner: session.Factory{}}, nil)

	bound, err := acceptor.Bind([]net.Addr{addr})
	if err != nil {
		log.WithError(err).Fatal("bind")
	}
	log.WithField("addr", bound[0]).Info("listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	acceptor.Dispose()
}

// loggingFactory wraps session.Factory to log accept/destroy lifecycle
// per-session, via each Session's own Destroyed() channel. It must not read
// processor.Destroyed(): that stream is AcceptorState's sole admission
// permit-release subscription, and a second receiver on the same channel
// would steal half its values, leaking permits.
type loggingFactory struct {
	log   *logrus.Logger
	inner reactor.SessionFactory
}

func (f loggingFactory) NewSession(processor reactor.SessionProcessor, conn net.Conn) (reactor.Session, error) {
	s, err := f.inner.NewSession(processor, conn)
	if err != nil {
		return nil, err
	}
	f.log.WithField("session", s.ID()).Info("session accepted")
	go func() {
		<-s.Destroyed()
		f.log.WithField("session", s.ID()).Info("session destroyed")
	}()
	return s, nil
}
