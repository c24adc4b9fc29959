package data

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/aips"
	"github.com/jive-vlbi/adder/dispatch"
)

// object carries the identity and backing proxy shared by Image and UVData.
// The routing disk (this side's disk number) is kept apart from the wire
// disk embedded in the descriptor.
type object struct {
	class  string
	desc   Descriptor
	disk   int
	caller dispatch.Caller
}

func newObject(sys *aips.System, class, name, klass string, disk, seq int) (object, error) {
	d, err := sys.Disk(disk)
	if err != nil {
		return object{}, err
	}
	caller, err := sys.Proxy(disk)
	if err != nil {
		return object{}, err
	}
	return object{
		class: class,
		desc: Descriptor{
			Name:   name,
			Klass:  klass,
			Disk:   d.Disk,
			Seq:    seq,
			Userno: sys.Userno,
		},
		disk:   disk,
		caller: caller,
	}, nil
}

// Image is the handle for an image data object.
type Image struct {
	object
}

func NewImage(sys *aips.System, name, klass string, disk, seq int) (*Image, error) {
	o, err := newObject(sys, "AIPSImage", name, klass, disk, seq)
	if err != nil {
		return nil, err
	}
	return &Image{o}, nil
}

// Copy returns an independent handle equal to this one.
func (a *Image) Copy() *Image {
	c := *a
	return &c
}

func (a *Image) Equal(b *Image) bool {
	return a.desc == b.desc
}

// UVData is the handle for a visibility data object.
type UVData struct {
	object
}

func NewUVData(sys *aips.System, name, klass string, disk, seq int) (*UVData, error) {
	o, err := newObject(sys, "AIPSUVData", name, klass, disk, seq)
	if err != nil {
		return nil, err
	}
	return &UVData{o}, nil
}

func (u *UVData) Copy() *UVData {
	c := *u
	return &c
}

func (u *UVData) Equal(v *UVData) bool {
	return u.desc == v.desc
}

func (u *UVData) Antennas() ([]string, error)      { return u.callStrings("antennas") }
func (u *UVData) Polarizations() ([]string, error) { return u.callStrings("polarizations") }
func (u *UVData) Sources() ([]string, error)       { return u.callStrings("sources") }
func (u *UVData) Stokes() ([]string, error)        { return u.callStrings("stokes") }

func (o *object) Descriptor() Descriptor { return o.desc }
func (o *object) Name() string           { return o.desc.Name }
func (o *object) Klass() string          { return o.desc.Klass }
func (o *object) Seq() int               { return o.desc.Seq }
func (o *object) Userno() int            { return o.desc.Userno }

// Disk returns the routing disk number on this side.
func (o *object) Disk() int { return o.disk }

func (o *object) String() string {
	return fmt.Sprintf("%s('%s', '%s', %d, %d)", o.class, o.desc.Name, o.desc.Klass, o.disk, o.desc.Seq)
}

// Call forwards a method by name to this object's backing proxy, passing
// the descriptor first. A capability added to the backend becomes callable
// here without any further wiring; the named wrappers below are
// conveniences over this entry point.
func (o *object) Call(method string, args ...interface{}) (interface{}, error) {
	full := append([]interface{}{o.desc.Map()}, args...)
	return o.caller.Call(o.class+"."+method, full...)
}

// Exists reports whether the data object is actually present in the
// catalogue.
func (o *object) Exists() (bool, error) {
	r, err := o.Call("exists")
	if err != nil {
		return false, err
	}
	return dispatch.ToBool(r)
}

// Verify checks that the data object can be accessed.
func (o *object) Verify() error {
	_, err := o.Call("verify")
	return err
}

// Header returns the data object's header.
func (o *object) Header() (map[string]interface{}, error) {
	r, err := o.Call("header")
	if err != nil {
		return nil, err
	}
	return dispatch.ToStringMap(r)
}

// Keywords returns the data object's keywords.
func (o *object) Keywords() (map[string]interface{}, error) {
	r, err := o.Call("keywords")
	if err != nil {
		return nil, err
	}
	return dispatch.ToStringMap(r)
}

// Tables lists the extension tables attached to the data object.
func (o *object) Tables() ([]interface{}, error) {
	r, err := o.Call("tables")
	if err != nil {
		return nil, err
	}
	return dispatch.ToList(r)
}

// TableHighver returns the highest version of an extension table type.
func (o *object) TableHighver(kind string) (int, error) {
	r, err := o.Call("table_highver", kind)
	if err != nil {
		return 0, err
	}
	return dispatch.ToInt(r)
}

// Rename gives the data object a new name, class and sequence number and
// refreshes this handle's descriptor from the result. The disk cannot
// change, since that would mean copying the data.
func (o *object) Rename(name, klass string, seq int) error {
	r, err := o.Call("rename", name, klass, seq)
	if err != nil {
		return err
	}
	l, err := dispatch.ToList(r)
	if err != nil || len(l) != 3 {
		return errors.Errorf("rename returned %v", r)
	}
	if o.desc.Name, err = dispatch.ToString(l[0]); err != nil {
		return err
	}
	if o.desc.Klass, err = dispatch.ToString(l[1]); err != nil {
		return err
	}
	if o.desc.Seq, err = dispatch.ToInt(l[2]); err != nil {
		return err
	}
	return nil
}

// Zap destroys the data object. With force set, read/write status flags are
// reset first.
func (o *object) Zap(force bool) error {
	_, err := o.Call("zap", force)
	return err
}

// Clrstat clears the data object's read and write status flags; useful when
// a task died mid-step and left the catalogue entry busy.
func (o *object) Clrstat() error {
	_, err := o.Call("clrstat")
	return err
}

// ZapTable deletes version of the extension table kind. Version 0 deletes
// the highest version, -1 all versions.
func (o *object) ZapTable(kind string, version int) error {
	_, err := o.Call("zap_table", kind, version)
	return err
}

// TableVersion resolves the actual version of an extension table (useful
// when 0 was used to open the highest one).
func (o *object) TableVersion(kind string, version int) (int, error) {
	r, err := o.Call("version_table", kind, version)
	if err != nil {
		return 0, err
	}
	return dispatch.ToInt(r)
}

// TableKeywords returns the keywords of an extension table.
func (o *object) TableKeywords(kind string, version int) (map[string]interface{}, error) {
	r, err := o.Call("keywords_table", kind, version)
	if err != nil {
		return nil, err
	}
	return dispatch.ToStringMap(r)
}

// TableRow returns one row of an extension table.
func (o *object) TableRow(kind string, version, row int) (map[string]interface{}, error) {
	r, err := o.Call("getrow_table", kind, version, row)
	if err != nil {
		return nil, err
	}
	return dispatch.ToStringMap(r)
}

// TableLen returns the number of rows in an extension table.
func (o *object) TableLen(kind string, version int) (int, error) {
	r, err := o.Call("len_table", kind, version)
	if err != nil {
		return 0, err
	}
	return dispatch.ToInt(r)
}

// HistoryRow returns one line of the data object's history.
func (o *object) HistoryRow(row int) (string, error) {
	r, err := o.Call("getrow_history", row)
	if err != nil {
		return "", err
	}
	return dispatch.ToString(r)
}

func (o *object) callStrings(method string) ([]string, error) {
	r, err := o.Call(method)
	if err != nil {
		return nil, err
	}
	return dispatch.ToStrings(r)
}
