// Package aips carries the system-wide defaults shared by the task and data
// layers: the user number, the disk table scanned from DAnn environment
// areas, and the backing proxy through which each disk is reached. Proxy
// selection is fixed when the System is built and read-only afterwards.
package aips

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jive-vlbi/adder/dispatch"
	"github.com/jive-vlbi/adder/proc"
	"github.com/jive-vlbi/adder/proxy"
)

// The legacy package supports at most 71 data disks.
const maxDisks = 71

// Disk describes one (possibly remote) data disk. URL is empty for disks
// local to this process; Disk is the disk number embedded in descriptors
// sent to that disk's proxy, which for remote disks need not match the
// number used for routing on this side.
type Disk struct {
	URL     string
	Disk    int
	Dirname string
}

// System is one configured installation: a user number, a one-based disk
// table, an in-process dispatch registry that can already run tasks, and a
// cached HTTP caller per remote URL.
type System struct {
	Userno int

	disks  []*Disk
	local  *dispatch.Registry
	remote map[string]*dispatch.HTTPCaller
}

// NewSystem scans the environment for DA01..DA1Z disk areas (stopping at
// the first gap) and returns a system whose local registry serves the
// AIPSTask and AIPSMessageLog classes. Data-class targets are registered by
// the science backend through RegisterTarget.
func NewSystem(userno int) *System {
	s := &System{
		Userno: userno,
		disks:  []*Disk{nil}, // disk numbers are one-based
		local:  dispatch.NewRegistry(),
		remote: map[string]*dispatch.HTTPCaller{},
	}
	for n := 1; n <= maxDisks; n++ {
		area := "DA" + Ehex(n, 2, "0")
		dir, ok := os.LookupEnv(area)
		if !ok {
			break
		}
		s.disks = append(s.disks, &Disk{Disk: n, Dirname: dir})
	}
	log.WithFields(log.Fields{
		"userno": userno,
		"disks":  len(s.disks) - 1,
	}).Debug("Configured system")

	s.local.Register("AIPSTask", proxy.NewTaskTarget(proc.NewSupervisor()))
	s.local.Register("AIPSMessageLog", proxy.NewMessageLogTarget(func() string {
		return os.Getenv("AIPS_MSGLOG")
	}))
	return s
}

// AddDisk appends a disk served by a remote dispatch server and returns it.
// wireDisk is the disk number in effect on that host.
func (s *System) AddDisk(url string, wireDisk int, dirname string) *Disk {
	d := &Disk{URL: url, Disk: wireDisk, Dirname: dirname}
	s.disks = append(s.disks, d)
	return d
}

// Disk returns the disk table entry for a one-based disk number.
func (s *System) Disk(n int) (*Disk, error) {
	if n < 1 || n >= len(s.disks) {
		return nil, errors.Errorf("disk #%d does not exist", n)
	}
	return s.disks[n], nil
}

// DiskNumbers lists the configured disk numbers in order.
func (s *System) DiskNumbers() []int {
	out := make([]int, 0, len(s.disks)-1)
	for n := 1; n < len(s.disks); n++ {
		out = append(out, n)
	}
	return out
}

// Proxy returns the backing proxy for a disk: the shared local registry for
// local disks, a cached HTTP caller for remote ones.
func (s *System) Proxy(n int) (dispatch.Caller, error) {
	d, err := s.Disk(n)
	if err != nil {
		return nil, err
	}
	if d.URL == "" {
		return s.local, nil
	}
	if c, ok := s.remote[d.URL]; ok {
		return c, nil
	}
	c := dispatch.NewHTTPCaller(d.URL)
	s.remote[d.URL] = c
	return c, nil
}

// LocalCaller returns the in-process backing proxy.
func (s *System) LocalCaller() dispatch.Caller {
	return s.local
}

// Registry exposes the local registry so a server binary can serve it over
// the wire.
func (s *System) Registry() *dispatch.Registry {
	return s.local
}

// RegisterTarget installs a capability table on the local registry. Like
// proxy selection, registration happens at startup only.
func (s *System) RegisterTarget(class string, t dispatch.Target) {
	s.local.Register(class, t)
}
