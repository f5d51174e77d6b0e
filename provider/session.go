package provider

import (
	"net"

	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/nlog"
	"github.com/magnusoverli/ember-plus-sub000/s101"
)

// session is one connected consumer: its own deframer/decoder state plus an
// ordered outgoing queue drained by a single writer goroutine, so pushes
// from store mutations and direct replies never interleave out of order.
type session struct {
	id   string
	srv  *Server
	nc   net.Conn
	out  chan []byte
	stop chan struct{}
}

func newSession(srv *Server, nc net.Conn, id string) *session {
	return &session{
		id:   id,
		srv:  srv,
		nc:   nc,
		out:  make(chan []byte, 64),
		stop: make(chan struct{}),
	}
}

func (sess *session) run() {
	frames := make(chan s101.Event, 64)
	go sess.readLoop(frames)
	go sess.writeLoop()
	for ev := range frames {
		sess.handleFrame(ev)
	}
	close(sess.stop)
}

func (sess *session) readLoop(frames chan<- s101.Event) {
	defer close(frames)
	d := s101.NewDeframer()
	buf := make([]byte, 4096)
	for {
		n, err := sess.nc.Read(buf)
		if n > 0 {
			for _, ev := range d.Feed(buf[:n]) {
				select {
				case frames <- ev:
				case <-sess.stop:
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (sess *session) writeLoop() {
	for {
		select {
		case b, ok := <-sess.out:
			if !ok {
				return
			}
			if _, err := sess.nc.Write(b); err != nil {
				return
			}
			sess.srv.metrics.FramesOut.Inc()
		case <-sess.stop:
			return
		}
	}
}

func (sess *session) handleFrame(ev s101.Event) {
	switch ev.Kind {
	case s101.EventEmberMessage:
		sess.srv.metrics.FramesIn.Inc()
		root, err := glow.DecodeRoot(ev.Ember)
		if err != nil {
			sess.emitDecodeError(err)
			return
		}
		for _, it := range root.Items {
			sess.handleItem(it)
		}
	case s101.EventKeepAliveRequest:
		sess.sendRaw(s101.EncodeKeepAliveResponse())
	case s101.EventKeepAliveResponse:
		// nothing to do; the provider doesn't send keep-alive requests first.
	case s101.EventDecodeError:
		sess.emitDecodeError(ev.Err)
	}
}

// emitDecodeError implements the failure model for malformed messages: drop
// the message, log it, keep the session alive.
func (sess *session) emitDecodeError(err error) {
	sess.srv.metrics.DecodeErrors.Inc()
	nlog.Warnf("provider: session %s decode error: %v", sess.id, err)
}

func (sess *session) send(root *glow.Root) {
	sess.sendRaw(s101.EncodeEmber(glow.EncodeRoot(root)))
}

func (sess *session) sendRaw(b []byte) {
	select {
	case sess.out <- b:
	case <-sess.stop:
	}
}
