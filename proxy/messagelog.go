package proxy

import (
	"os"

	"github.com/pkg/errors"

	"github.com/jive-vlbi/adder/dispatch"
)

// NewMessageLogTarget serves the AIPSMessageLog dispatch class. The legacy
// tasks append to a shared message log file on the host that runs them;
// zap truncates it. The path is resolved per call since it depends on the
// user number in effect.
func NewMessageLogTarget(path func() string) dispatch.Target {
	return dispatch.Target{
		"zap": func(args []interface{}) (interface{}, error) {
			p := path()
			if p == "" {
				return true, nil
			}
			if err := os.Truncate(p, 0); err != nil && !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "zapping message log %s", p)
			}
			return true, nil
		},
	}
}
