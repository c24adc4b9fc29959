// Package proxy provides the server-side dispatch targets behind the
// uniform calling convention: task execution over a pseudo-terminal and the
// task message log. Data-class targets come from the science backend and
// are registered alongside these.
package proxy

import (
	"syscall"

	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/dispatch"
	"github.com/jive-vlbi/adder/proc"
)

// NewTaskTarget exposes a process supervisor as the AIPSTask dispatch
// class. The capability signatures mirror the supervisor one to one so that
// running a task locally or on a remote host is the same sequence of calls.
func NewTaskTarget(sup *proc.Supervisor) dispatch.Target {
	return dispatch.Target{
		"spawn": func(args []interface{}) (interface{}, error) {
			path, err := dispatch.String(args, 0)
			if err != nil {
				return nil, errors.Wrap(err, "spawn path")
			}
			argv, err := dispatch.Strings(args, 1)
			if err != nil {
				return nil, errors.Wrap(err, "spawn argv")
			}
			env, err := dispatch.Strings(args, 2)
			if err != nil {
				return nil, errors.Wrap(err, "spawn env")
			}
			return sup.Spawn(path, argv, env)
		},
		"finished": func(args []interface{}) (interface{}, error) {
			tid, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			return sup.Finished(tid)
		},
		"messages": func(args []interface{}) (interface{}, error) {
			tid, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			msgs, err := sup.Messages(tid)
			if err != nil {
				return nil, err
			}
			if msgs == nil {
				msgs = []string{}
			}
			return msgs, nil
		},
		"feed": func(args []interface{}) (interface{}, error) {
			tid, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			text, err := dispatch.String(args, 1)
			if err != nil {
				return nil, err
			}
			return true, sup.Feed(tid, text)
		},
		"wait": func(args []interface{}) (interface{}, error) {
			tid, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			return true, sup.Wait(tid)
		},
		"abort": func(args []interface{}) (interface{}, error) {
			tid, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			sig := int(syscall.SIGINT)
			if len(args) > 1 {
				if sig, err = dispatch.Int(args, 1); err != nil {
					return nil, err
				}
			}
			return true, sup.Abort(tid, syscall.Signal(sig))
		},
	}
}
