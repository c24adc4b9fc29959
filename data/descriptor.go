// Package data provides the user-facing handles for catalogued data
// objects. All verb-like functionality dispatches by name through a backing
// proxy, so the same handle works whether the data lives in this process or
// behind a remote dispatch server.
package data

import (
	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/dispatch"
)

// Descriptor identifies one catalogued data object. It is passed by value
// as the first argument of every dispatched data call; two handles refer to
// the same data exactly when their descriptors are equal. The Disk field is
// the number in effect on the serving side, which for remote data may
// differ from the disk number used for routing here.
type Descriptor struct {
	Name   string `json:"name"`
	Klass  string `json:"klass"`
	Disk   int    `json:"disk"`
	Seq    int    `json:"seq"`
	Userno int    `json:"userno"`
}

// Map renders the descriptor in the string-keyed primitive form the wire
// channel understands.
func (d Descriptor) Map() map[string]interface{} {
	return map[string]interface{}{
		"name":   d.Name,
		"klass":  d.Klass,
		"disk":   d.Disk,
		"seq":    d.Seq,
		"userno": d.Userno,
	}
}

// DescriptorFromMap decodes the wire form back into a descriptor.
func DescriptorFromMap(m map[string]interface{}) (Descriptor, error) {
	var d Descriptor
	var err error
	if d.Name, err = dispatch.ToString(m["name"]); err != nil {
		return d, errors.Wrap(err, "descriptor name")
	}
	if d.Klass, err = dispatch.ToString(m["klass"]); err != nil {
		return d, errors.Wrap(err, "descriptor klass")
	}
	if d.Disk, err = dispatch.ToInt(m["disk"]); err != nil {
		return d, errors.Wrap(err, "descriptor disk")
	}
	if d.Seq, err = dispatch.ToInt(m["seq"]); err != nil {
		return d, errors.Wrap(err, "descriptor seq")
	}
	if d.Userno, err = dispatch.ToInt(m["userno"]); err != nil {
		return d, errors.Wrap(err, "descriptor userno")
	}
	return d, nil
}
