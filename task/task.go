// Package task drives one invocation of a legacy batch program end to end:
// adverbs in, spawn through a backing proxy, message polling, terminal wait.
// Whether the program runs in this process's supervisor or on a remote host
// is decided by the caller handed in at construction.
package task

import (
	"encoding/json"
	"regexp"
	"strings"
	"syscall"

	"github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/jive-vlbi/adder/dispatch"
	"github.com/jive-vlbi/adder/param"
)

// State tracks where an invocation is in its lifecycle. Transitions only
// move forward; calling an operation in the wrong state is a programming
// error, not a recoverable condition.
type State int

const (
	Configured State = iota
	Spawned
	Polling
	Finished
	Aborted
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Spawned:
		return "spawned"
	case Polling:
		return "polling"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

var (
	// ErrTaskFailed means the program ran to completion but reported
	// failure through its own output convention.
	ErrTaskFailed = errors.New("task failed")
	// ErrBadState means an operation was called out of lifecycle order.
	ErrBadState = errors.New("bad task state")
)

// Legacy programs report fatal trouble as ordinary output text.
var graveErrorRE = regexp.MustCompile(`(?i)purports to die|grave error`)

// MessagePolicy decides which captured output lines are shown to the user.
// Every line is kept in the log regardless.
type MessagePolicy interface {
	UserVisible(line string) bool
}

type defaultPolicy struct{}

func (defaultPolicy) UserVisible(line string) bool {
	return strings.TrimSpace(line) != ""
}

// Task is the controller for one invocation. It is not safe for concurrent
// use; like the supervisor bookkeeping underneath, it has a single owner.
type Task struct {
	Name   string
	Path   string
	Args   []string
	Policy MessagePolicy

	params *param.Store
	caller dispatch.Caller

	id     string
	state  State
	tid    int
	lines  []string
	failed bool

	spawns   metrics.Counter
	polls    metrics.Counter
	failures metrics.Counter
}

// New builds a controller for the named program, dispatching through caller
// and drawing adverbs from store. Path defaults to the program name; Args
// and Policy can be set before Spawn.
func New(name string, caller dispatch.Caller, store *param.Store) *Task {
	id := ""
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}
	return &Task{
		Name:   name,
		Path:   name,
		Policy: defaultPolicy{},
		params: store,
		caller: caller,
		id:     id,
		state:  Configured,

		spawns:   metrics.GetOrRegisterCounter("task.spawns", nil),
		polls:    metrics.GetOrRegisterCounter("task.polls", nil),
		failures: metrics.GetOrRegisterCounter("task.failures", nil),
	}
}

// Set assigns an adverb, resolving abbreviations and validating.
func (t *Task) Set(name string, value interface{}) error {
	return t.params.Set(name, value)
}

// Get reads an adverb, resolving abbreviations.
func (t *Task) Get(name string) (interface{}, error) {
	return t.params.Get(name)
}

// SetIndex assigns one element of a list adverb.
func (t *Task) SetIndex(name string, index int, value interface{}) error {
	return t.params.SetIndex(name, index, value)
}

// SetSlice replaces a sub-range of a list adverb.
func (t *Task) SetSlice(name string, low, high int, values []interface{}) error {
	return t.params.SetSlice(name, low, high, values)
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	return t.state
}

// Log returns a copy of every output line captured so far, visible or not.
func (t *Task) Log() []string {
	return append([]string{}, t.lines...)
}

// environ marshals the current adverbs into the opaque environment
// convention the legacy side reads back: ADV_<NAME>=<JSON value>.
func (t *Task) environ() []string {
	inputs := t.params.Inputs()
	env := make([]string, 0, len(inputs))
	for _, name := range t.params.Names() {
		value, ok := inputs[name]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		env = append(env, "ADV_"+strings.ToUpper(name)+"="+string(encoded))
	}
	return env
}

// Spawn starts the program through the backing proxy and moves the
// controller to Spawned. Spawn failures are fatal to this invocation.
func (t *Task) Spawn() error {
	if t.state != Configured {
		return errors.Wrapf(ErrBadState, "spawn in state %s", t.state)
	}
	r, err := t.caller.Call("AIPSTask.spawn", t.Path, t.Args, t.environ())
	if err != nil {
		return errors.Wrapf(err, "spawning %s", t.Name)
	}
	tid, err := dispatch.ToInt(r)
	if err != nil {
		return errors.Wrapf(err, "spawning %s", t.Name)
	}
	t.tid = tid
	t.state = Spawned
	t.spawns.Inc(1)
	log.WithFields(log.Fields{
		"invocation": t.id,
		"task":       t.Name,
		"tid":        tid,
	}).Info("Spawned task")
	return nil
}

// Poll fetches whatever output is ready and reports whether the program has
// finished. All lines land in the log; only lines the policy marks
// user-visible are returned. An empty result with done false is normal.
// When the program has exited, Poll performs the terminal wait and moves the
// controller to Finished.
func (t *Task) Poll() (visible []string, done bool, err error) {
	if t.state != Spawned && t.state != Polling {
		return nil, false, errors.Wrapf(ErrBadState, "poll in state %s", t.state)
	}
	t.state = Polling
	t.polls.Inc(1)

	r, err := t.caller.Call("AIPSTask.messages", t.tid)
	if err != nil {
		return nil, false, errors.Wrapf(err, "polling %s", t.Name)
	}
	lines, err := dispatch.ToStrings(r)
	if err != nil {
		return nil, false, errors.Wrapf(err, "polling %s", t.Name)
	}
	for _, line := range lines {
		t.lines = append(t.lines, line)
		if graveErrorRE.MatchString(line) {
			t.failed = true
		}
		if t.Policy.UserVisible(line) {
			visible = append(visible, line)
		}
	}

	r, err = t.caller.Call("AIPSTask.finished", t.tid)
	if err != nil {
		return visible, false, errors.Wrapf(err, "polling %s", t.Name)
	}
	finished, err := dispatch.ToBool(r)
	if err != nil {
		return visible, false, errors.Wrapf(err, "polling %s", t.Name)
	}
	if !finished {
		return visible, false, nil
	}

	if _, err := t.caller.Call("AIPSTask.wait", t.tid); err != nil {
		return visible, false, errors.Wrapf(err, "waiting for %s", t.Name)
	}
	t.state = Finished
	if t.failed {
		t.failures.Inc(1)
	}
	log.WithFields(log.Fields{
		"invocation": t.id,
		"task":       t.Name,
		"failed":     t.failed,
	}).Info("Task finished")
	return visible, true, nil
}

// Go runs the invocation to completion: Spawn, then Poll until done. It
// returns ErrTaskFailed when the program reported failure; the captured log
// stays available either way.
func (t *Task) Go() error {
	if err := t.Spawn(); err != nil {
		return err
	}
	for {
		_, done, err := t.Poll()
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	if t.failed {
		return errors.Wrapf(ErrTaskFailed, "%s", t.Name)
	}
	return nil
}

// Feed writes text to the running program's input.
func (t *Task) Feed(text string) error {
	if t.state != Spawned && t.state != Polling {
		return errors.Wrapf(ErrBadState, "feed in state %s", t.state)
	}
	_, err := t.caller.Call("AIPSTask.feed", t.tid, text)
	return err
}

// Abort cancels the invocation cooperatively: the proxied abort sends an
// interrupt and drops the bookkeeping, and this controller stops polling.
// The underlying process is not guaranteed dead on return.
func (t *Task) Abort() error {
	if t.state != Spawned && t.state != Polling {
		return errors.Wrapf(ErrBadState, "abort in state %s", t.state)
	}
	if _, err := t.caller.Call("AIPSTask.abort", t.tid, int(syscall.SIGINT)); err != nil {
		return errors.Wrapf(err, "aborting %s", t.Name)
	}
	t.state = Aborted
	log.WithFields(log.Fields{
		"invocation": t.id,
		"task":       t.Name,
	}).Info("Task aborted")
	return nil
}
