package bridge

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// Connection defaults
const (
	DefaultPort        = 4000
	DefaultTimeout     = 5 * time.Second
	DefaultDialTimeout = 5 * time.Second
)

// Options configures a Bridge.
type Options struct {
	// Timeout bounds every request and every write. Zero means DefaultTimeout.
	Timeout time.Duration

	// Logger receives connection and protocol events. Nil means a child of
	// the global logger.
	Logger *zap.Logger
}

// Stats holds operational counters.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	Unsolicited    uint64 // frames that arrived with no request outstanding
	ProtocolErrors uint64 // responses that failed to decode
	Timeouts       uint64
	LastActivity   time.Time
	State          RequestState
}

// Bridge is one connection to a lighting bridge. It allows at most one
// outstanding request, correlates the next inbound frame with it, and keeps
// the decoded groups and lights in a cache.
//
// All methods are safe for concurrent use.
type Bridge struct {
	conn    net.Conn
	log     *zap.Logger
	timeout time.Duration
	seq     protocol.Sequencer

	writeMu sync.Mutex

	// mu guards state, pending, cache and listeners together so a caller
	// never sees a half-applied response.
	mu        sync.Mutex
	state     RequestState
	pending   *pendingRequest
	cache     *store.Store
	listeners map[int]func(store.Update)
	nextID    int
	cause     error

	done       chan struct{}
	readerDone chan struct{}

	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	unsolicited    atomic.Uint64
	protocolErrors atomic.Uint64
	timeouts       atomic.Uint64
	lastActivity   atomic.Int64
}

// Address joins a bridge host with a port, defaulting to DefaultPort.
func Address(host string, port int) string {
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Dial connects to the bridge at addr ("host:port") and starts its reader.
func Dial(ctx context.Context, addr string, opts Options) (*Bridge, error) {
	dialCtx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, transportError("dial", err)
	}

	logging.LogConnection(addr, "connected")
	return New(conn, opts), nil
}

// New wraps an established connection and starts its reader goroutine.
// The Bridge owns conn from here on.
func New(conn net.Conn, opts Options) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("bridge")
	}

	b := &Bridge{
		conn:       conn,
		log:        opts.Logger.With(zap.String("remote_addr", remoteAddr(conn))),
		timeout:    opts.Timeout,
		state:      StateIdle,
		cache:      store.New(),
		listeners:  make(map[int]func(store.Update)),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	b.lastActivity.Store(time.Now().Unix())

	go b.readLoop()
	return b
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// RemoteAddr returns the bridge address.
func (b *Bridge) RemoteAddr() string {
	return remoteAddr(b.conn)
}

// State returns the current request state.
func (b *Bridge) State() RequestState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns current operational statistics.
func (b *Bridge) Stats() Stats {
	return Stats{
		FramesSent:     b.framesSent.Load(),
		FramesReceived: b.framesReceived.Load(),
		Unsolicited:    b.unsolicited.Load(),
		ProtocolErrors: b.protocolErrors.Load(),
		Timeouts:       b.timeouts.Load(),
		LastActivity:   time.Unix(b.lastActivity.Load(), 0),
		State:          b.State(),
	}
}

// Done is closed once the connection is disconnected.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err returns why the connection ended, or nil while it is live.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cause
}

// Close disconnects from the bridge and releases any waiting caller with a
// Closed error. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.terminate(newError(ErrTypeClosed, "close", "bridge connection closed", nil))
	<-b.readerDone
	return nil
}

// terminate moves the connection to Disconnected exactly once and hands
// cause to any outstanding request.
func (b *Bridge) terminate(cause *BridgeError) {
	b.mu.Lock()
	if b.state == StateDisconnected {
		b.mu.Unlock()
		return
	}
	b.state = StateDisconnected
	b.cause = cause
	p := b.pending
	b.pending = nil
	b.mu.Unlock()

	close(b.done)
	_ = b.conn.Close()

	if p != nil {
		p.resolve(cause)
	}

	if cause.Type == ErrTypeTransport {
		b.log.Error("Bridge connection lost", zap.Error(cause))
	} else {
		b.log.Info("Bridge connection closed")
	}
}

// readLoop reads frames until the connection fails or is closed.
func (b *Bridge) readLoop() {
	defer close(b.readerDone)

	for {
		frame, err := protocol.ReadFrame(b.conn)
		if err != nil {
			b.terminate(transportError("read", err))
			return
		}

		b.framesReceived.Add(1)
		b.lastActivity.Store(time.Now().Unix())
		logging.LogFrame(b.log, "received", frame.Payload)

		b.handleFrame(frame.Payload)
	}
}

// write sends one payload, bounded by the request timeout. A failed write
// disconnects the bridge.
func (b *Bridge) write(op string, payload []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.conn.SetWriteDeadline(time.Now().Add(b.timeout)); err != nil {
		berr := transportError(op, err)
		b.terminate(berr)
		return berr
	}

	if err := protocol.WriteFrame(b.conn, payload); err != nil {
		berr := transportError(op, err)
		b.terminate(berr)
		return berr
	}

	b.framesSent.Add(1)
	b.lastActivity.Store(time.Now().Unix())
	logging.LogFrame(b.log, "sent", payload)
	return nil
}

// closedError reports the reason a disconnected bridge refuses work.
func (b *Bridge) closedError(op string) *BridgeError {
	return newError(ErrTypeClosed, op, "bridge is disconnected", b.cause)
}
