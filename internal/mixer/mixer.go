package mixer

import (
	"errors"
	"sync/atomic"

	"github.com/cbegin/szsynth-go/internal/voice"
)

// DefaultQueueSize is the number of control commands that may be pending
// between two ticks.
const DefaultQueueSize = 256

var ErrQueueFull = errors.New("mixer: command queue is full")

type opKind int

const (
	opSpawn opKind = iota
	opRelease
	opReplaceAll
	opBend
)

type command struct {
	op    opKind
	voice *voice.Voice
	arg   int
}

// Params configures a Mixer.
type Params struct {
	Capacity  int
	QueueSize int
}

// DefaultParams returns the default pool capacity and queue depth.
func DefaultParams() Params {
	return Params{
		Capacity:  DefaultCapacity,
		QueueSize: DefaultQueueSize,
	}
}

// Stats is a snapshot of mixer counters, safe to read from any goroutine.
type Stats struct {
	ActiveVoices  int
	Ticks         uint64
	ClippedTicks  uint64
	DroppedSpawns uint64
	LastSample    uint16
}

// Mixer hands control-side mutations to the render side through a bounded
// queue. Control methods never block; Tick drains the queue before mixing so
// the render path takes no locks. Tick and Render must be called from a single
// goroutine.
type Mixer struct {
	pool     *Pool
	commands chan command

	active  atomic.Int64
	ticks   atomic.Uint64
	clipped atomic.Uint64
	dropped atomic.Uint64
	last    atomic.Uint32
}

// New creates a mixer with its own pool.
func New(params Params) *Mixer {
	if params.QueueSize <= 0 {
		params.QueueSize = DefaultQueueSize
	}
	return &Mixer{
		pool:     NewPool(params.Capacity),
		commands: make(chan command, params.QueueSize),
	}
}

func (m *Mixer) enqueue(cmd command) error {
	select {
	case m.commands <- cmd:
		return nil
	default:
		if cmd.op == opSpawn || cmd.op == opReplaceAll {
			m.dropped.Add(1)
		}
		return ErrQueueFull
	}
}

// Spawn queues a new voice.
func (m *Mixer) Spawn(v *voice.Voice) error {
	return m.enqueue(command{op: opSpawn, voice: v})
}

// ForceRelease queues a release of every sustained voice playing note.
func (m *Mixer) ForceRelease(note int) error {
	return m.enqueue(command{op: opRelease, arg: note})
}

// ReplaceAll queues the teardown of every voice followed by spawning v.
func (m *Mixer) ReplaceAll(v *voice.Voice) error {
	return m.enqueue(command{op: opReplaceAll, voice: v})
}

// Bend queues a pitch-bend for every active voice.
func (m *Mixer) Bend(delta int) error {
	return m.enqueue(command{op: opBend, arg: delta})
}

func (m *Mixer) drain() {
	for {
		select {
		case cmd := <-m.commands:
			m.apply(cmd)
		default:
			return
		}
	}
}

func (m *Mixer) apply(cmd command) {
	switch cmd.op {
	case opSpawn:
		if err := m.pool.Spawn(cmd.voice); err != nil {
			m.dropped.Add(1)
		}
	case opRelease:
		m.pool.ForceRelease(cmd.arg)
	case opReplaceAll:
		m.pool.ReplaceAll(cmd.voice)
	case opBend:
		m.pool.Bend(cmd.arg)
	}
}

// Tick applies pending commands and produces one output sample.
func (m *Mixer) Tick() uint16 {
	m.drain()
	s := m.pool.Tick()
	m.publish(s, 1)
	return s
}

// Render fills dst with consecutive samples.
func (m *Mixer) Render(dst []uint16) {
	for i := range dst {
		m.drain()
		dst[i] = m.pool.Tick()
	}
	if len(dst) > 0 {
		m.publish(dst[len(dst)-1], len(dst))
	}
}

func (m *Mixer) publish(s uint16, ticks int) {
	m.active.Store(int64(m.pool.Len()))
	m.ticks.Add(uint64(ticks))
	m.clipped.Store(m.pool.Clipped())
	m.last.Store(uint32(s))
}

// Stats returns the latest published counters.
func (m *Mixer) Stats() Stats {
	return Stats{
		ActiveVoices:  int(m.active.Load()),
		Ticks:         m.ticks.Load(),
		ClippedTicks:  m.clipped.Load(),
		DroppedSpawns: m.dropped.Load(),
		LastSample:    uint16(m.last.Load()),
	}
}

// Pool exposes the render-side pool. Only the render goroutine may use it.
func (m *Mixer) Pool() *Pool { return m.pool }
