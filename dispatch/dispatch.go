// Package dispatch forwards method calls, identified purely by a
// "Class.method" name, to a backing proxy: either an in-process Registry of
// capability tables or an HTTPCaller talking to a remote host. Which backing
// proxy serves a call is chosen once at startup; the dispatcher itself holds
// no mutable state, so resolution is deterministic and side-effect-free.
//
// Arguments and results are restricted to wire-representable values: bool,
// int, float64, string, flat lists, and string-keyed maps of those.
package dispatch

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownAttribute is the attribute-not-found fault: the name failed the
// wire gate or resolved to no registered capability.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Caller forwards one named call to a backend. Backend failures, transport
// failures included, propagate to the caller unmodified.
type Caller interface {
	Call(name string, args ...interface{}) (interface{}, error)
}

// Method is one capability of a dispatch target.
type Method func(args []interface{}) (interface{}, error)

// Target is the capability table registered for one class. Adding a method
// here makes it callable through every Caller without further wiring.
type Target map[string]Method

// SplitName applies the wire gate: only names shaped like Class.method with
// exactly one separator resolve. Anything else is rejected with the
// attribute-not-found fault so that no unrelated surface is reachable over
// the wire channel.
func SplitName(name string) (class, method string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(ErrUnknownAttribute, "'%s'", name)
	}
	return parts[0], parts[1], nil
}

// Registry is the in-process backing proxy: class name to capability table.
// Targets are registered once at startup; the registry is read-only for the
// lifetime of the process afterwards.
type Registry struct {
	targets map[string]Target
}

func NewRegistry() *Registry {
	return &Registry{targets: map[string]Target{}}
}

// Register installs the capability table for a class, merging with any
// methods already registered under that name.
func (r *Registry) Register(class string, t Target) {
	existing, ok := r.targets[class]
	if !ok {
		existing = Target{}
		r.targets[class] = existing
	}
	for name, m := range t {
		existing[name] = m
	}
}

// Call resolves name through the wire gate and invokes the capability.
// Resolution happens at call time, so capabilities registered for a class
// are callable without being enumerated in advance.
func (r *Registry) Call(name string, args ...interface{}) (interface{}, error) {
	class, method, err := SplitName(name)
	if err != nil {
		return nil, err
	}
	t, ok := r.targets[class]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAttribute, "'%s'", name)
	}
	m, ok := t[method]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAttribute, "'%s'", name)
	}
	return m(args)
}
