// Package consumer implements the consumer half of the protocol engine: it
// dials a provider, lazily mirrors its device tree into a model.Store, and
// exposes tree navigation, writes, invocations and matrix operations as a
// small command API plus an Event stream ("Consumer engine", "External
// interfaces"). All session-local mutable state (the fetched set,
// subscriptions, pending invocations) is touched by exactly one goroutine;
// the exported methods hand work to it as closures rather than taking locks.
package consumer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/s101"
)

// State is the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Disconnected"
	}
}

// paramMeta mirrors the non-value fields of a Parameter the host's metadata
// cache needs without a Store round trip; kept in sync by ingestParameter.
type paramMeta struct {
	identifier string
	access     model.Access
	valueType  model.ValueType
}

// hostCommand is one unit of work run on the engine goroutine.
type hostCommand func(c *Conn)

// Conn is one consumer session against a single provider.
type Conn struct {
	cfg     econfig.Config
	metrics *Metrics
	events  chan Event

	store *model.Store

	host string
	port int

	stateMu sync.RWMutex
	state   State

	netConn net.Conn
	outRaw  chan []byte
	cmds    *cmdQueue
	stop    chan struct{}
	wg      sync.WaitGroup

	nextInvocationID atomic.Int64

	// engine-goroutine-only state below; never touched outside a
	// hostCommand closure or the ingest* handlers it triggers.
	fetched            map[string]bool
	autoSubScope       map[string]bool
	metaCache          map[string]paramMeta
	pendingInvocations map[int64]model.Path
	streamFactors      map[int64]float64
	autoSubs           map[string]bool
	userSubs           map[string]bool
	expandWaiters      map[string][]chan struct{}

	fetchCancel context.CancelFunc
}

// New constructs a disconnected Conn. metrics may be nil in tests that don't
// care about observability.
func New(cfg econfig.Config, metrics *Metrics) *Conn {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	queueDepth := cfg.HostQueueDepth
	if queueDepth <= 0 {
		queueDepth = econfig.Default().HostQueueDepth
	}
	c := &Conn{
		cfg:                cfg,
		metrics:            metrics,
		events:             make(chan Event, 256),
		store:              model.NewStore(),
		outRaw:             make(chan []byte, 64),
		cmds:               newCmdQueue(queueDepth),
		fetched:            map[string]bool{},
		autoSubScope:       map[string]bool{},
		metaCache:          map[string]paramMeta{},
		pendingInvocations: map[int64]model.Path{},
		streamFactors:      map[int64]float64{},
		autoSubs:           map[string]bool{},
		userSubs:           map[string]bool{},
		expandWaiters:      map[string][]chan struct{}{},
	}
	c.cmds.onDrop = func() { c.metrics.DroppedCommands.Inc() }
	return c
}

// enqueueCritical schedules fn on the engine goroutine as a write/invoke: it
// is never dropped, only (rarely) delayed behind other critical commands.
func (c *Conn) enqueueCritical(fn hostCommand) {
	c.cmds.pushCritical(fn, c.stop)
}

// enqueueDroppable schedules fn on the engine goroutine as a prefetch/
// subscribe-class intent: it may be dropped under sustained queue pressure,
// reported via Metrics.DroppedCommands and an nlog warning.
func (c *Conn) enqueueDroppable(fn hostCommand) bool {
	return c.cmds.pushDroppable(fn)
}

// Events returns the channel the host drains for tree/value/lifecycle
// notifications.
func (c *Conn) Events() <-chan Event { return c.events }

// Store returns the mirrored device tree. The host must treat it read-only;
// all mutation happens through the Conn's command API.
func (c *Conn) Store() *model.Store { return c.store }

func (c *Conn) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Connect dials host:port and starts the read/write/engine goroutines. It
// returns once the TCP connection is established; the initial root
// GetDirectory is sent but not waited on.
func (c *Conn) Connect(ctx context.Context, host string, port int) error {
	c.setState(StateConnecting)
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		c.setState(StateDisconnected)
		return errors.Wrap(err, "consumer: dial")
	}

	c.host, c.port = host, port
	c.startWithConn(nc)
	return nil
}

// startWithConn begins the session over an already-established net.Conn,
// skipping the dial step (tests wire a net.Pipe half here directly).
func (c *Conn) startWithConn(nc net.Conn) {
	c.netConn = nc
	c.stop = make(chan struct{})
	c.setState(StateConnected)
	c.metrics.Connected.Set(1)

	frames := make(chan s101.Event, 64)
	c.wg.Add(3)
	go c.readLoop(nc, frames)
	go c.writeLoop(nc)
	go c.runLoop(frames)

	select {
	case c.events <- Event{Kind: EventConnected}:
	default:
	}
	c.sendGetDirectory(nil)
}

// Disconnect tears the session down and waits for its goroutines to exit.
func (c *Conn) Disconnect() {
	if c.State() == StateDisconnected {
		return
	}
	c.setState(StateDisconnecting)
	if c.netConn != nil {
		c.netConn.Close()
	}
	close(c.stop)
	c.wg.Wait()
}

func (c *Conn) readLoop(nc net.Conn, frames chan<- s101.Event) {
	defer c.wg.Done()
	defer close(frames)
	d := s101.NewDeframer()
	buf := make([]byte, 4096)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			for _, ev := range d.Feed(buf[:n]) {
				select {
				case frames <- ev:
				case <-c.stop:
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Conn) writeLoop(nc net.Conn) {
	defer c.wg.Done()
	for {
		select {
		case b, ok := <-c.outRaw:
			if !ok {
				return
			}
			if _, err := nc.Write(b); err != nil {
				return
			}
			c.metrics.FramesOut.Inc()
		case <-c.stop:
			return
		}
	}
}

func (c *Conn) runLoop(frames <-chan s101.Event) {
	defer c.wg.Done()
	for {
		if cmd, ok := c.cmds.pop(); ok {
			cmd(c)
			continue
		}
		select {
		case <-c.cmds.notify:
		case ev, ok := <-frames:
			if !ok {
				c.teardown()
				return
			}
			c.handleFrame(ev)
		case <-c.stop:
			return
		}
	}
}

func (c *Conn) teardown() {
	reason := "connection lost"
	if c.State() == StateDisconnecting {
		reason = "closed by host"
	}
	c.setState(StateDisconnected)
	c.metrics.Connected.Set(0)
	select {
	case c.events <- Event{Kind: EventDisconnected, Reason: reason}:
	default:
	}
}

func (c *Conn) handleFrame(ev s101.Event) {
	switch ev.Kind {
	case s101.EventEmberMessage:
		c.metrics.FramesIn.Inc()
		root, err := glow.DecodeRoot(ev.Ember)
		if err != nil {
			c.emitDecodeError(err)
			return
		}
		c.ingestRoot(root)
	case s101.EventKeepAliveRequest:
		c.send(s101.EncodeKeepAliveResponse())
	case s101.EventKeepAliveResponse:
		// liveness only, nothing to act on
	case s101.EventDecodeError:
		c.emitDecodeError(ev.Err)
	}
}

func (c *Conn) emitDecodeError(err error) {
	c.metrics.DecodeErrors.Inc()
	select {
	case c.events <- Event{Kind: EventDecodeError, Err: err}:
	default:
	}
}

func (c *Conn) send(b []byte) {
	select {
	case c.outRaw <- b:
	case <-c.stop:
	}
}

func (c *Conn) sendRoot(root *glow.Root) {
	c.send(s101.EncodeEmber(glow.EncodeRoot(root)))
}

// sendGetDirectory requests the children of path (nil means the root).
func (c *Conn) sendGetDirectory(path model.Path) {
	cmd := &glow.Command{Number: glow.CmdGetDirectory}
	if path == nil {
		c.sendRoot(&glow.Root{Items: []glow.Item{cmd}})
		return
	}
	item := &glow.QualifiedNode{Path: path, Command: cmd}
	c.sendRoot(&glow.Root{Items: []glow.Item{item}})
}

func (c *Conn) sendSubscribeCommand(path model.Path, number int) {
	item := &glow.QualifiedParameter{Path: path, Command: &glow.Command{Number: number}}
	c.sendRoot(&glow.Root{Items: []glow.Item{item}})
}

// Expand requests the directory contents of path once, idempotently, and
// auto-subscribes to it and to whatever children arrive while it remains
// expanded ("lazy expansion"). Any not-yet-fetched siblings of path are
// prefetched in the same batched request, since a host walking one child of
// an already-expanded node is expected to walk its siblings next.
func (c *Conn) Expand(path model.Path) {
	c.enqueueDroppable(func(c *Conn) { c.expandLocked(path) })
}

// expandLocked is Expand's body, runnable only from the engine goroutine
// (either via Expand's closure or directly from another closure already
// running there, e.g. the tree-fetch orchestrator's registration command).
func (c *Conn) expandLocked(path model.Path) {
	key := path.String()
	c.autoSubScope[key] = true
	c.subscribeInternal(path, true)
	if c.fetched[key] {
		c.fulfillExpandWaiters(key)
		return
	}
	if len(path) == 0 {
		c.fetched[key] = true
		c.sendGetDirectory(nil)
		return
	}
	c.sendPrefetchBatch(path)
}

// sendPrefetchBatch emits one Glow root carrying a QualifiedNode GetDirectory
// command per not-yet-fetched sibling of path (path itself included), so a
// single expand populates a whole directory level instead of one element at
// a time.
func (c *Conn) sendPrefetchBatch(path model.Path) {
	var items []glow.Item
	for _, p := range c.siblingPaths(path) {
		k := p.String()
		if c.fetched[k] {
			continue
		}
		c.fetched[k] = true
		items = append(items, &glow.QualifiedNode{Path: p, Command: &glow.Command{Number: glow.CmdGetDirectory}})
	}
	if len(items) == 0 {
		return
	}
	c.sendRoot(&glow.Root{Items: items})
}

// siblingPaths returns the known sibling set of path: the recorded children
// of its parent node, or the known root elements if path is itself a root.
// Falls back to just path when the parent/root set isn't known yet (nothing
// to batch against).
func (c *Conn) siblingPaths(path model.Path) []model.Path {
	if parent, ok := path.Parent(); ok {
		if siblings := c.store.Children(parent); len(siblings) > 0 {
			return siblings
		}
	} else if roots := c.store.IterRoots(); len(roots) > 0 {
		return roots
	}
	return []model.Path{path}
}

// fulfillExpandWaiters wakes every tree-fetch goroutine blocked on path
// having been expanded.
func (c *Conn) fulfillExpandWaiters(key string) {
	waiters := c.expandWaiters[key]
	delete(c.expandWaiters, key)
	for _, ch := range waiters {
		close(ch)
	}
}

// Collapse undoes Expand's auto-subscriptions (container and any children
// fetched under it) without touching subscriptions the host asked for
// explicitly via Subscribe.
func (c *Conn) Collapse(path model.Path) {
	c.enqueueDroppable(func(c *Conn) {
		key := path.String()
		delete(c.autoSubScope, key)
		for _, child := range c.store.Children(path) {
			c.autoUnsubscribe(child)
		}
		c.autoUnsubscribe(path)
	})
}

func (c *Conn) autoUnsubscribe(path model.Path) {
	key := path.String()
	if c.autoSubs[key] && !c.userSubs[key] {
		delete(c.autoSubs, key)
		c.sendSubscribeCommand(path, glow.CmdUnsubscribe)
	}
}

func (c *Conn) subscribeInternal(path model.Path, auto bool) {
	key := path.String()
	alreadySubscribed := c.userSubs[key] || c.autoSubs[key]
	if auto {
		c.autoSubs[key] = true
	} else {
		c.userSubs[key] = true
	}
	if !alreadySubscribed {
		c.sendSubscribeCommand(path, glow.CmdSubscribe)
	}
}

// Subscribe is the host-requested counterpart to Expand's automatic
// subscriptions; it survives a later Collapse.
func (c *Conn) Subscribe(path model.Path) {
	c.enqueueDroppable(func(c *Conn) { c.subscribeInternal(path, false) })
}

// Unsubscribe removes a host-requested subscription. If path is still
// auto-subscribed (e.g. its container remains expanded) no Unsubscribe is
// sent on the wire.
func (c *Conn) Unsubscribe(path model.Path) {
	c.enqueueDroppable(func(c *Conn) {
		key := path.String()
		if !c.userSubs[key] {
			return
		}
		delete(c.userSubs, key)
		if !c.autoSubs[key] {
			c.sendSubscribeCommand(path, glow.CmdUnsubscribe)
		}
	})
}

// Write requests that path's value be set. Critical: never dropped from the
// host command queue, even under sustained prefetch/subscribe pressure.
func (c *Conn) Write(path model.Path, value model.Value) {
	c.enqueueCritical(func(c *Conn) {
		item := &glow.QualifiedParameter{Path: path, Contents: glow.ParameterContents{Value: &value}}
		c.sendRoot(&glow.Root{Items: []glow.Item{item}})
	})
}

// Invoke sends a function call and returns the invocation ID the eventual
// EventInvocationResult will carry. Critical, like Write.
func (c *Conn) Invoke(path model.Path, args []model.Value) int64 {
	id := c.nextInvocationID.Add(1)
	c.enqueueCritical(func(c *Conn) {
		c.pendingInvocations[id] = path
		item := &glow.QualifiedFunction{Path: path, Command: &glow.Command{
			Number:     glow.CmdInvoke,
			Invocation: &glow.Invocation{ID: id, Args: args},
		}}
		c.sendRoot(&glow.Root{Items: []glow.Item{item}})
	})
	return id
}

// SetMatrixConnection requests a single-source Connect or Disconnect on
// target. The host API exposes only this single-crosspoint toggle; no
// method sends an Absolute multi-source connection set.
func (c *Conn) SetMatrixConnection(matrixPath model.Path, target, source int, connect bool) {
	c.enqueueDroppable(func(c *Conn) {
		op := model.OpConnect
		if !connect {
			op = model.OpDisconnect
		}
		item := &glow.QualifiedMatrix{Path: matrixPath, Connections: []glow.ConnectionWire{{
			Target: target, Sources: []int{source}, Operation: op,
		}}}
		c.sendRoot(&glow.Root{Items: []glow.Item{item}})
	})
}

// RequestMatrixConnections refreshes a matrix's current connection set and
// target/source labels.
func (c *Conn) RequestMatrixConnections(matrixPath model.Path) {
	c.enqueueDroppable(func(c *Conn) {
		c.sendGetDirectory(matrixPath)
		c.sendGetDirectory(matrixPath.MatrixTargetsLabelPath())
		c.sendGetDirectory(matrixPath.MatrixSourcesLabelPath())
	})
}
