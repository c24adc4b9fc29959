// Package proc supervises externally executed legacy programs attached to a
// pseudo-terminal. A Supervisor owns a table mapping task ids (the pty
// master's file descriptor) to process ids; a pid is cleared to zero once
// the child has been reaped. Callers poll Messages until Finished reports
// the exit, then must finish the task with Wait (or cancel it with Abort) —
// the table never cleans itself up.
//
// A Supervisor is single-owner: calls against it must be serialized by the
// caller. Suspension only ever happens inside the bounded readiness wait in
// Messages, never in an unbounded read, so one goroutine can interleave
// polls of several tasks.
package proc

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Precondition failures. These indicate misuse of the supervisor, not
// runtime conditions to recover from.
var (
	ErrUnknownTask  = errors.New("unknown task id")
	ErrStillRunning = errors.New("task is still running")
)

const (
	// readChunk bounds a single read from the task's terminal.
	readChunk = 2048
	// pollWait bounds the readiness wait in Messages.
	pollWait = 250 * time.Millisecond
)

type entry struct {
	tty *os.File
	pid int // 0 once the child has been reaped
}

type Supervisor struct {
	tasks map[int]*entry
}

func NewSupervisor() *Supervisor {
	return &Supervisor{tasks: map[int]*entry{}}
}

// Spawn starts path attached to a fresh pseudo-terminal and returns the
// master side's file descriptor as the task id. argv are the program's
// arguments (the program name itself is implied); env entries, if any, are
// appended to the supervisor's own environment. A failed exec surfaces as
// the returned error; the child never falls back into supervisor code.
func (s *Supervisor) Spawn(path string, argv []string, env []string) (int, error) {
	cmd := exec.Command(path, argv...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	tty, err := pty.Start(cmd)
	if err != nil {
		return 0, errors.Wrapf(err, "spawning %s", path)
	}
	tid := int(tty.Fd())
	if err := unix.SetNonblock(tid, true); err != nil {
		tty.Close()
		cmd.Process.Kill()
		return 0, errors.Wrapf(err, "setting terminal for %s non-blocking", path)
	}
	s.tasks[tid] = &entry{tty: tty, pid: cmd.Process.Pid}
	log.WithFields(log.Fields{
		"path": path,
		"pid":  cmd.Process.Pid,
		"tid":  tid,
	}).Info("Spawned task")
	return tid, nil
}

// Finished reports whether the task's process has already been observed to
// exit. It consults only the recorded pid; Messages does the actual reaping.
func (s *Supervisor) Finished(tid int) (bool, error) {
	e, ok := s.tasks[tid]
	if !ok {
		return false, errors.Wrapf(ErrUnknownTask, "tid %d", tid)
	}
	return e.pid == 0, nil
}

// Messages waits up to a quarter second for terminal output and returns the
// CRLF-separated lines that arrived, empty lines dropped. An empty result
// is normal, not an error. A failed read means the child side of the
// terminal is probably gone: the child is reaped non-blockingly and, once
// the exit is confirmed, the recorded pid is cleared to zero.
func (s *Supervisor) Messages(tid int) ([]string, error) {
	e, ok := s.tasks[tid]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTask, "tid %d", tid)
	}

	var rfds unix.FdSet
	rfds.Zero()
	rfds.Set(tid)
	tv := unix.NsecToTimeval(pollWait.Nanoseconds())
	n, err := unix.Select(tid+1, &rfds, nil, nil, &tv)
	if err != nil || n == 0 || !rfds.IsSet(tid) {
		return nil, nil
	}

	buf := make([]byte, readChunk)
	n, err = unix.Read(tid, buf)
	if err != nil || n <= 0 {
		s.reap(e)
		return nil, nil
	}

	var msgs []string
	for _, m := range strings.Split(string(buf[:n]), "\r\n") {
		if m != "" {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// reap collects the child's exit status without blocking. Idempotent: once
// the pid is cleared nothing further happens, so polling and Wait never
// race over the same exit.
func (s *Supervisor) reap(e *entry) {
	if e.pid == 0 {
		return
	}
	var ws unix.WaitStatus
	pid, err := unix.Wait4(e.pid, &ws, unix.WNOHANG, nil)
	if err != nil || pid != e.pid {
		return
	}
	if ws.Exited() || ws.Signaled() {
		log.WithFields(log.Fields{
			"pid":    e.pid,
			"status": ws.ExitStatus(),
		}).Info("Task process exited")
		e.pid = 0
	}
}

// Feed writes text to the task's input.
func (s *Supervisor) Feed(tid int, text string) error {
	if _, ok := s.tasks[tid]; !ok {
		return errors.Wrapf(ErrUnknownTask, "tid %d", tid)
	}
	_, err := unix.Write(tid, []byte(text))
	return errors.Wrapf(err, "feeding tid %d", tid)
}

// Wait finishes a task whose exit has already been observed: the
// bookkeeping entry is removed and the terminal closed. Calling Wait on a
// still-running task is a programming error and fails with ErrStillRunning.
func (s *Supervisor) Wait(tid int) error {
	e, ok := s.tasks[tid]
	if !ok {
		return errors.Wrapf(ErrUnknownTask, "tid %d", tid)
	}
	if e.pid != 0 {
		return errors.Wrapf(ErrStillRunning, "tid %d (pid %d)", tid, e.pid)
	}
	delete(s.tasks, tid)
	return e.tty.Close()
}

// Abort signals the task's process, then unconditionally removes the
// bookkeeping entry and closes the terminal. Cancellation is cooperative:
// the OS process may outlive this call, and no further calls against the
// task id are valid.
func (s *Supervisor) Abort(tid int, sig syscall.Signal) error {
	e, ok := s.tasks[tid]
	if !ok {
		return errors.Wrapf(ErrUnknownTask, "tid %d", tid)
	}
	if e.pid != 0 {
		if err := unix.Kill(e.pid, sig); err != nil {
			log.WithFields(log.Fields{
				"pid":   e.pid,
				"error": err,
			}).Error("Error signaling task")
		}
	}
	log.WithFields(log.Fields{
		"pid": e.pid,
		"tid": tid,
		"sig": sig,
	}).Info("Aborted task")
	delete(s.tasks, tid)
	return e.tty.Close()
}

// Len reports the number of live bookkeeping entries.
func (s *Supervisor) Len() int {
	return len(s.tasks)
}
