// Package param implements the validated adverb container used to drive
// legacy batch tasks. Attribute names resolve by unique prefix, values are
// checked against the value already present (type, numeric range, string
// length), and list attributes keep a fixed capacity for the life of the
// store. A nil list element is a sentinel: once present it can only ever be
// assigned nil again, which is how 1-based adverb arrays protect slot zero.
package param

import (
	"strings"

	"github.com/pkg/errors"
)

// Store holds the adverbs of one task instance. Defaults and bound tables
// are fixed when the store is built; afterwards only values change, and only
// through the validated assignment paths. A Store is owned by a single task
// instance and is not safe for concurrent mutation.
type Store struct {
	names    []string
	values   map[string]interface{}
	defaults map[string]interface{}
	min      map[string]float64
	max      map[string]float64
	strlen   map[string]int
}

func New() *Store {
	return &Store{
		values:   map[string]interface{}{},
		defaults: map[string]interface{}{},
		min:      map[string]float64{},
		max:      map[string]float64{},
		strlen:   map[string]int{},
	}
}

// Define declares an attribute. The default fixes the attribute's type and,
// for list values, its capacity. Definition order is the canonical order
// consulted by prefix resolution. Allowed value shapes: nil, int, float64,
// string, bool, and []interface{} of those (nested lists included).
func (s *Store) Define(name string, def interface{}) {
	if _, ok := s.defaults[name]; !ok {
		s.names = append(s.names, name)
	}
	s.defaults[name] = copyValue(def)
	s.values[name] = copyValue(def)
}

// Bound declares an inclusive numeric range for an attribute.
func (s *Store) Bound(name string, min, max float64) {
	s.min[name] = min
	s.max[name] = max
}

// MaxLen declares the maximum string length for an attribute.
func (s *Store) MaxLen(name string, n int) {
	s.strlen[name] = n
}

// Names returns the canonical attribute names in definition order.
func (s *Store) Names() []string {
	return append([]string{}, s.names...)
}

// Resolve expands an abbreviated name to its canonical form. An exact match
// always wins; otherwise the abbreviation must be a prefix of exactly one
// canonical name. Private names (leading underscore) only match exactly.
func (s *Store) Resolve(name string) (string, error) {
	if _, ok := s.defaults[name]; ok {
		return name, nil
	}
	if name == "" || strings.HasPrefix(name, "_") {
		return "", errors.Wrapf(ErrNoSuchAttr, "attribute '%s'", name)
	}
	match := ""
	for _, n := range s.names {
		if strings.HasPrefix(n, "_") || !strings.HasPrefix(n, name) {
			continue
		}
		if match != "" {
			return "", errors.Wrapf(ErrNoSuchAttr, "attribute '%s' is ambiguous", name)
		}
		match = n
	}
	if match == "" {
		return "", errors.Wrapf(ErrNoSuchAttr, "attribute '%s'", name)
	}
	return match, nil
}

// Get returns the current value of an attribute, resolving abbreviations.
// List values are returned as copies: mutation goes through SetIndex and
// SetSlice only.
func (s *Store) Get(name string) (interface{}, error) {
	attr, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return copyValue(s.values[attr]), nil
}

// Set assigns a value to an attribute, resolving abbreviations and
// validating against the value already present. A rejected assignment
// leaves the store unchanged. Private attributes bypass validation.
func (s *Store) Set(name string, value interface{}) error {
	attr, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if strings.HasPrefix(attr, "_") {
		s.values[attr] = value
		return nil
	}
	v, err := s.validate(attr, value, s.values[attr])
	if err != nil {
		return err
	}
	s.values[attr] = v
	return nil
}

// SetIndex assigns one element of a list attribute.
func (s *Store) SetIndex(name string, index int, value interface{}) error {
	attr, list, err := s.list(name)
	if err != nil {
		return err
	}
	out := copyList(list)
	if err := s.setElem(attr, out, index, value); err != nil {
		return err
	}
	s.values[attr] = out
	return nil
}

// SetSlice replaces the elements in [low, high) of a list attribute. The
// replacement must not change the list's length: more values than positions
// is an error, and fewer values is only allowed when the range runs to the
// end of the list, in which case the skipped positions are refilled from
// the declared default.
func (s *Store) SetSlice(name string, low, high int, values []interface{}) error {
	attr, list, err := s.list(name)
	if err != nil {
		return err
	}
	if high > len(list) {
		high = len(list)
	}
	if low < 0 || low > high {
		return errors.Errorf("slice %d:%d is out of range for attribute '%s'", low, high, attr)
	}
	if len(values) > high-low || (len(values) < high-low && high < len(list)) {
		return errors.Wrapf(ErrFixedSize, "slice %d:%d changes the size of attribute '%s'", low, high, attr)
	}
	defaults := s.defaults[attr].([]interface{})
	out := copyList(list)
	for i := low; i < high; i++ {
		if i-low < len(values) {
			if err := s.setElem(attr, out, i, values[i-low]); err != nil {
				return err
			}
		} else {
			out[i] = copyValue(defaults[i])
		}
	}
	s.values[attr] = out
	return nil
}

// Inputs exports the current non-private values, keyed by canonical name,
// for marshalling to a spawned task.
func (s *Store) Inputs() map[string]interface{} {
	out := map[string]interface{}{}
	for _, n := range s.names {
		if strings.HasPrefix(n, "_") {
			continue
		}
		out[n] = copyValue(s.values[n])
	}
	return out
}

func (s *Store) list(name string) (string, []interface{}, error) {
	attr, err := s.Resolve(name)
	if err != nil {
		return "", nil, err
	}
	list, ok := s.values[attr].([]interface{})
	if !ok {
		return "", nil, errors.Wrapf(ErrInvalidType, "attribute '%s' is not a list", attr)
	}
	return attr, list, nil
}

// validate checks value against the attribute's current value cur and
// returns the (possibly coerced) value to store.
func (s *Store) validate(attr string, value, cur interface{}) (interface{}, error) {
	if value == nil && cur == nil {
		return nil, nil
	}

	// Lists validate element by element against the existing elements;
	// positions past the new value's length keep their current contents.
	if vl, ok := value.([]interface{}); ok {
		if cl, ok := cur.([]interface{}); ok {
			if len(vl) > len(cl) {
				return nil, errors.Wrapf(ErrListTooBig, "array %v is too big for attribute '%s'", value, attr)
			}
			out := copyList(cl)
			for i := range vl {
				if err := s.setElem(attr, out, i, vl[i]); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
	}

	if iv, ok := value.(int); ok {
		if _, ok := cur.(float64); ok {
			value = float64(iv)
		}
	}

	if !sameType(value, cur) {
		return nil, errors.Wrapf(ErrInvalidType, "value '%v' has invalid type for attribute '%s'", value, attr)
	}

	if num, ok := numeric(value); ok {
		if min, bounded := s.min[attr]; bounded && num < min {
			return nil, errors.Wrapf(ErrOutOfRange, "value '%v' is out of range for attribute '%s'", value, attr)
		}
		if max, bounded := s.max[attr]; bounded && num > max {
			return nil, errors.Wrapf(ErrOutOfRange, "value '%v' is out of range for attribute '%s'", value, attr)
		}
	}

	if sv, ok := value.(string); ok {
		if n, limited := s.strlen[attr]; limited && len(sv) > n {
			return nil, errors.Wrapf(ErrTooLong, "string '%s' is too long for attribute '%s'", sv, attr)
		}
	}

	return value, nil
}

// setElem assigns one element in place, enforcing the sentinel rule: a nil
// element can only ever be assigned nil again.
func (s *Store) setElem(attr string, list []interface{}, index int, value interface{}) error {
	if index < 0 || index >= len(list) {
		return errors.Errorf("index %d is out of range for attribute '%s'", index, attr)
	}
	if value != nil && list[index] == nil {
		return errors.Wrapf(ErrSentinel, "setting element %d of attribute '%s' is prohibited", index, attr)
	}
	v, err := s.validate(attr, value, list[index])
	if err != nil {
		return err
	}
	list[index] = v
	return nil
}

func sameType(value, cur interface{}) bool {
	switch cur.(type) {
	case int:
		_, ok := value.(int)
		return ok
	case float64:
		_, ok := value.(float64)
		return ok
	case string:
		_, ok := value.(string)
		return ok
	case bool:
		_, ok := value.(bool)
		return ok
	case []interface{}:
		_, ok := value.([]interface{})
		return ok
	}
	return false
}

func numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func copyValue(value interface{}) interface{} {
	if l, ok := value.([]interface{}); ok {
		return copyList(l)
	}
	return value
}

func copyList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, v := range list {
		out[i] = copyValue(v)
	}
	return out
}

// Zeros builds a float list default of the given length.
func Zeros(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = 0.0
	}
	return out
}

// Strings builds a string list default of the given length.
func Strings(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = ""
	}
	return out
}

// List builds a list default from explicit values; a leading nil makes the
// list 1-based with a protected slot zero.
func List(values ...interface{}) []interface{} {
	return append([]interface{}{}, values...)
}
