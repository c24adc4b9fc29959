// Package fake provides an in-memory stand-in for the science backend's
// data classes. It implements just enough catalogue behavior to exercise
// the dispatch surface in tests and demo servers; the real backend is an
// external collaborator registered in its place.
package fake

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/data"
	"github.com/jive-vlbi/adder/dispatch"
)

// Entry is one catalogued object. Tests seed the exported fields before
// registering the catalogue's targets.
type Entry struct {
	Desc     data.Descriptor
	Kind     string // 2-character type code: "MA" for images, "UV" for visibilities
	Header   map[string]interface{}
	Keywords map[string]interface{}
	Tables   map[string]int // extension type ("PL", "CL", ...) to highest version
	Rows     map[string][]map[string]interface{} // rows of a table's highest version, by type
	History  []string
	Busy     bool

	Antennas      []string
	Polarizations []string
	Sources       []string
	Stokes        []string

	date string
	time string
}

type Catalog struct {
	mu      sync.Mutex
	entries []*Entry // slot order; nil entries are zapped slots
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// Add catalogues an entry in the next free slot.
func (c *Catalog) Add(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	e.date = now.Format("02-Jan-2006")
	e.time = now.Format("15:04:05")
	if e.Header == nil {
		e.Header = map[string]interface{}{}
	}
	if e.Keywords == nil {
		e.Keywords = map[string]interface{}{}
	}
	if e.Tables == nil {
		e.Tables = map[string]int{}
	}
	if e.Rows == nil {
		e.Rows = map[string][]map[string]interface{}{}
	}
	for i, slot := range c.entries {
		if slot == nil {
			c.entries[i] = e
			return
		}
	}
	c.entries = append(c.entries, e)
}

func (c *Catalog) find(desc data.Descriptor, kind string) *Entry {
	for _, e := range c.entries {
		if e != nil && e.Desc == desc && e.Kind == kind {
			return e
		}
	}
	return nil
}

// ImageTarget returns the AIPSImage dispatch target.
func (c *Catalog) ImageTarget() dispatch.Target {
	return c.dataTarget("MA")
}

// UVDataTarget returns the AIPSUVData dispatch target, which adds the
// visibility-only capabilities on top of the shared data surface.
func (c *Catalog) UVDataTarget() dispatch.Target {
	t := c.dataTarget("UV")
	t["antennas"] = c.field("UV", func(e *Entry) interface{} { return e.Antennas })
	t["polarizations"] = c.field("UV", func(e *Entry) interface{} { return e.Polarizations })
	t["sources"] = c.field("UV", func(e *Entry) interface{} { return e.Sources })
	t["stokes"] = c.field("UV", func(e *Entry) interface{} { return e.Stokes })
	return t
}

// CatTarget returns the AIPSCat dispatch target serving bulk catalogue
// queries: cat(disk, userno) lists the slots on one disk in order.
func (c *Catalog) CatTarget() dispatch.Target {
	return dispatch.Target{
		"cat": func(args []interface{}) (interface{}, error) {
			disk, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			userno, err := dispatch.Int(args, 1)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			out := []interface{}{}
			for i, e := range c.entries {
				if e == nil || e.Desc.Disk != disk || e.Desc.Userno != userno {
					continue
				}
				out = append(out, map[string]interface{}{
					"cno":   i + 1,
					"name":  e.Desc.Name,
					"klass": e.Desc.Klass,
					"seq":   e.Desc.Seq,
					"type":  e.Kind,
					"date":  e.date,
					"time":  e.time,
				})
			}
			return out, nil
		},
	}
}

// method wraps a capability that operates on one catalogued entry: the
// descriptor argument is decoded and resolved before fn runs.
func (c *Catalog) method(kind string, fn func(e *Entry, args []interface{}) (interface{}, error)) dispatch.Method {
	return func(args []interface{}) (interface{}, error) {
		m, err := dispatch.StringMap(args, 0)
		if err != nil {
			return nil, err
		}
		desc, err := data.DescriptorFromMap(m)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.find(desc, kind)
		if e == nil {
			return nil, errors.Errorf("%s('%s', '%s', %d, %d) is not catalogued",
				kind, desc.Name, desc.Klass, desc.Disk, desc.Seq)
		}
		return fn(e, args[1:])
	}
}

func (c *Catalog) field(kind string, get func(e *Entry) interface{}) dispatch.Method {
	return c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
		return get(e), nil
	})
}

func (c *Catalog) dataTarget(kind string) dispatch.Target {
	return dispatch.Target{
		// exists is the one capability that must not fail on a missing
		// entry, so it bypasses the resolving wrapper.
		"exists": func(args []interface{}) (interface{}, error) {
			m, err := dispatch.StringMap(args, 0)
			if err != nil {
				return nil, err
			}
			desc, err := data.DescriptorFromMap(m)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.find(desc, kind) != nil, nil
		},
		"verify": c.field(kind, func(e *Entry) interface{} { return true }),
		"header": c.field(kind, func(e *Entry) interface{} { return e.Header }),
		"keywords": c.field(kind, func(e *Entry) interface{} { return e.Keywords }),
		"tables": c.field(kind, func(e *Entry) interface{} {
			out := []interface{}{}
			for name, high := range e.Tables {
				for v := 1; v <= high; v++ {
					out = append(out, map[string]interface{}{"type": name, "version": v})
				}
			}
			return out
		}),
		"table_highver": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			return e.Tables[name], nil
		}),
		"version_table": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			version, err := dispatch.Int(args, 1)
			if err != nil {
				return nil, err
			}
			if version == 0 {
				version = e.Tables[name]
			}
			return version, nil
		}),
		"zap_table": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			version, err := dispatch.Int(args, 1)
			if err != nil {
				return nil, err
			}
			high, ok := e.Tables[name]
			if !ok {
				return nil, errors.Errorf("no %s tables attached", name)
			}
			switch {
			case version == -1:
				delete(e.Tables, name)
			case version == 0 || version == high:
				if high == 1 {
					delete(e.Tables, name)
				} else {
					e.Tables[name] = high - 1
				}
			default:
				return nil, errors.Errorf("only the highest %s version can be deleted", name)
			}
			return true, nil
		}),
		"keywords_table": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			if _, ok := e.Tables[name]; !ok {
				return nil, errors.Errorf("no %s tables attached", name)
			}
			return map[string]interface{}{}, nil
		}),
		"len_table": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			if _, ok := e.Tables[name]; !ok {
				return nil, errors.Errorf("no %s tables attached", name)
			}
			return len(e.Rows[name]), nil
		}),
		"getrow_table": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			row, err := dispatch.Int(args, 2)
			if err != nil {
				return nil, err
			}
			rows := e.Rows[name]
			if row < 0 || row >= len(rows) {
				return nil, errors.Errorf("%s row %d does not exist", name, row)
			}
			return rows[row], nil
		}),
		"rename": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			name, err := dispatch.String(args, 0)
			if err != nil {
				return nil, err
			}
			klass, err := dispatch.String(args, 1)
			if err != nil {
				return nil, err
			}
			seq, err := dispatch.Int(args, 2)
			if err != nil {
				return nil, err
			}
			e.Desc.Name = name
			e.Desc.Klass = klass
			e.Desc.Seq = seq
			return []interface{}{name, klass, seq}, nil
		}),
		"zap": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			force, err := dispatch.Bool(args, 0)
			if err != nil {
				return nil, err
			}
			if e.Busy && !force {
				return nil, errors.Errorf("catalogue entry '%s' is busy", e.Desc.Name)
			}
			for i, slot := range c.entries {
				if slot == e {
					c.entries[i] = nil
				}
			}
			return true, nil
		}),
		"clrstat": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			e.Busy = false
			return true, nil
		}),
		"getrow_history": c.method(kind, func(e *Entry, args []interface{}) (interface{}, error) {
			row, err := dispatch.Int(args, 0)
			if err != nil {
				return nil, err
			}
			if row < 0 || row >= len(e.History) {
				return nil, errors.Errorf("history row %d does not exist", row)
			}
			return e.History[row], nil
		}),
	}
}
