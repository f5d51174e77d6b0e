// Package provider serves a captured device tree over Glow/S101, applying
// writes and matrix operations from connected consumers and broadcasting the
// results to whoever subscribed.
package provider

import (
	"fmt"
	"net"
	"sync"

	"github.com/teris-io/shortid"

	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/nlog"
	"github.com/magnusoverli/ember-plus-sub000/s101"
)

// InvokeFunc computes a function invocation's result. The default stub
// succeeds with no result values whenever path holds a Function and fails
// otherwise, matching an emulator that replays captured state rather than
// executing real device behavior.
type InvokeFunc func(path model.Path, args []model.Value) (success bool, result []model.Value)

// Server owns the device model shared by every connected session and the
// subscription registry used to route writes and matrix updates back out.
type Server struct {
	cfg        econfig.Config
	metrics    *Metrics
	store      *model.Store
	deviceName string

	// InvokeFunc overrides function invocation handling; nil uses the stub.
	InvokeFunc InvokeFunc

	mu       sync.RWMutex
	sessions map[string]*session
	subs     map[string]map[string]*session // path string -> session ID -> session

	listener net.Listener
}

func NewServer(cfg econfig.Config, store *model.Store, deviceName string, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Server{
		cfg:        cfg,
		metrics:    metrics,
		store:      store,
		deviceName: deviceName,
		sessions:   map[string]*session{},
		subs:       map[string]map[string]*session{},
	}
}

// ListenAndServe blocks, accepting client connections until addr can no
// longer be listened on or the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	nlog.Infof("provider: %s listening on %s", s.deviceName, ln.Addr())
	return s.Serve(ln)
}

// Serve accepts client connections on an already-bound listener; tests use
// this with a "127.0.0.1:0" listener to learn the chosen port up front.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(nc)
	}
}

func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(nc net.Conn) {
	id, err := shortid.Generate()
	if err != nil {
		id = fmt.Sprintf("sess-%s", nc.RemoteAddr())
	}
	sess := newSession(s, nc, id)
	s.addSession(sess)
	s.metrics.Connected.Inc()
	nlog.Infof("provider: session %s connected from %s", id, nc.RemoteAddr())

	sess.run()

	nc.Close()
	s.removeSession(sess)
	s.metrics.Connected.Dec()
	nlog.Infof("provider: session %s disconnected", id)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	for _, set := range s.subs {
		delete(set, sess.id)
	}
	s.mu.Unlock()
}

func (s *Server) subscribe(path model.Path, sess *session) {
	key := path.String()
	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = map[string]*session{}
	}
	s.subs[key][sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) unsubscribe(path model.Path, sess *session) {
	key := path.String()
	s.mu.Lock()
	if set, ok := s.subs[key]; ok {
		delete(set, sess.id)
	}
	s.mu.Unlock()
}

// broadcast delivers root to origin (always, if non-nil) plus every session
// subscribed to path or an ancestor of path. Each destination session
// receives it through its own ordered outgoing queue, so messages queued for
// the same session arrive in the order broadcast was called.
func (s *Server) broadcast(path model.Path, origin *session, root *glow.Root) {
	s.mu.RLock()
	targets := map[string]*session{}
	if origin != nil {
		targets[origin.id] = origin
	}
	for key, set := range s.subs {
		subPath, err := model.ParsePath(key)
		if err != nil {
			continue
		}
		if subPath.Equal(path) || subPath.IsAncestorOf(path) {
			for id, sess := range set {
				targets[id] = sess
			}
		}
	}
	s.mu.RUnlock()

	payload := s101.EncodeEmber(glow.EncodeRoot(root))
	for _, sess := range targets {
		sess.sendRaw(payload)
	}
}

func (s *Server) invoke(path model.Path, args []model.Value) (bool, []model.Value) {
	s.metrics.Invocations.Inc()
	if s.InvokeFunc != nil {
		return s.InvokeFunc(path, args)
	}
	if _, ok := s.store.Get(path).(*model.Function); !ok {
		return false, nil
	}
	return true, nil
}
