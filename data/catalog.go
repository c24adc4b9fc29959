package data

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/aips"
	"github.com/jive-vlbi/adder/dispatch"
)

// CatEntry is one catalogue slot as reported by a disk's proxy.
type CatEntry struct {
	Cno   int
	Name  string
	Klass string
	Seq   int
	Type  string // 2-character type code
	Date  string
	Time  string
}

func (e CatEntry) String() string {
	return fmt.Sprintf("%3d %-12s.%-6s. %4d %s %s %s", e.Cno, e.Name, e.Klass, e.Seq, e.Type, e.Date, e.Time)
}

// Cat queries the catalogue of one disk, or of every configured disk when
// disk is 0. Entries come back in slot order per disk.
func Cat(sys *aips.System, disk int) ([]CatEntry, error) {
	disks := []int{disk}
	if disk == 0 {
		disks = sys.DiskNumbers()
	}

	var out []CatEntry
	for _, n := range disks {
		d, err := sys.Disk(n)
		if err != nil {
			return nil, err
		}
		caller, err := sys.Proxy(n)
		if err != nil {
			return nil, err
		}
		r, err := caller.Call("AIPSCat.cat", d.Disk, sys.Userno)
		if err != nil {
			return nil, errors.Wrapf(err, "cataloguing disk %d", n)
		}
		list, err := dispatch.ToList(r)
		if err != nil {
			return nil, errors.Wrapf(err, "cataloguing disk %d", n)
		}
		for _, item := range list {
			m, err := dispatch.ToStringMap(item)
			if err != nil {
				return nil, errors.Wrapf(err, "cataloguing disk %d", n)
			}
			e, err := catEntryFromMap(m)
			if err != nil {
				return nil, errors.Wrapf(err, "cataloguing disk %d", n)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func catEntryFromMap(m map[string]interface{}) (CatEntry, error) {
	var e CatEntry
	var err error
	if e.Cno, err = dispatch.ToInt(m["cno"]); err != nil {
		return e, errors.Wrap(err, "catalogue cno")
	}
	if e.Name, err = dispatch.ToString(m["name"]); err != nil {
		return e, errors.Wrap(err, "catalogue name")
	}
	if e.Klass, err = dispatch.ToString(m["klass"]); err != nil {
		return e, errors.Wrap(err, "catalogue klass")
	}
	if e.Seq, err = dispatch.ToInt(m["seq"]); err != nil {
		return e, errors.Wrap(err, "catalogue seq")
	}
	if e.Type, err = dispatch.ToString(m["type"]); err != nil {
		return e, errors.Wrap(err, "catalogue type")
	}
	if e.Date, err = dispatch.ToString(m["date"]); err != nil {
		return e, errors.Wrap(err, "catalogue date")
	}
	if e.Time, err = dispatch.ToString(m["time"]); err != nil {
		return e, errors.Wrap(err, "catalogue time")
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Klass = strings.TrimSpace(e.Klass)
	return e, nil
}
