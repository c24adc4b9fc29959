package dispatch

import (
	"math"

	"github.com/pkg/errors"
)

// ErrBadArgument means a dispatched call carried an argument of the wrong
// shape for the capability it reached.
var ErrBadArgument = errors.New("bad argument")

// The To* coercions normalize wire values. JSON decoding turns every number
// into a float64, so integral arguments are accepted in either form.

func ToInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, errors.Wrapf(ErrBadArgument, "'%v' is not an integer", v)
}

func ToFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, errors.Wrapf(ErrBadArgument, "'%v' is not a number", v)
}

func ToBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, errors.Wrapf(ErrBadArgument, "'%v' is not a boolean", v)
}

func ToString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.Wrapf(ErrBadArgument, "'%v' is not a string", v)
}

// ToList accepts any wire list; a nil value is an empty list.
func ToList(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if l, ok := v.([]interface{}); ok {
		return l, nil
	}
	return nil, errors.Wrapf(ErrBadArgument, "'%v' is not a list", v)
}

// ToStrings accepts either a []string (local calls) or a []interface{} of
// strings (decoded wire calls); a nil value is an empty list.
func ToStrings(v interface{}) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return l, nil
	case []interface{}:
		out := make([]string, len(l))
		for i, e := range l {
			s, err := ToString(e)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrBadArgument, "'%v' is not a string list", v)
}

func ToStringMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	return nil, errors.Wrapf(ErrBadArgument, "'%v' is not a map", v)
}

// Argument accessors for capability implementations.

func Int(args []interface{}, i int) (int, error) {
	v, err := arg(args, i)
	if err != nil {
		return 0, err
	}
	return ToInt(v)
}

func Float(args []interface{}, i int) (float64, error) {
	v, err := arg(args, i)
	if err != nil {
		return 0, err
	}
	return ToFloat(v)
}

func Bool(args []interface{}, i int) (bool, error) {
	v, err := arg(args, i)
	if err != nil {
		return false, err
	}
	return ToBool(v)
}

func String(args []interface{}, i int) (string, error) {
	v, err := arg(args, i)
	if err != nil {
		return "", err
	}
	return ToString(v)
}

func Strings(args []interface{}, i int) ([]string, error) {
	v, err := arg(args, i)
	if err != nil {
		return nil, err
	}
	return ToStrings(v)
}

func List(args []interface{}, i int) ([]interface{}, error) {
	v, err := arg(args, i)
	if err != nil {
		return nil, err
	}
	return ToList(v)
}

func StringMap(args []interface{}, i int) (map[string]interface{}, error) {
	v, err := arg(args, i)
	if err != nil {
		return nil, err
	}
	return ToStringMap(v)
}

func arg(args []interface{}, i int) (interface{}, error) {
	if i < 0 || i >= len(args) {
		return nil, errors.Wrapf(ErrBadArgument, "missing argument %d", i)
	}
	return args[i], nil
}
