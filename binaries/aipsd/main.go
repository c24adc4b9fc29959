package main

// aipsd serves a host's task execution and message log classes over the
// dispatch wire, so control scripts on other machines can run tasks and
// reach data on this host's disks. With --fake-data it also serves an empty
// in-memory catalogue, which is enough to demo the data classes without a
// science backend.

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jive-vlbi/adder/aips"
	"github.com/jive-vlbi/adder/dispatch/server"
	"github.com/jive-vlbi/adder/proxy/fake"
)

func main() {
	var addr string
	var logLevel string
	var userno int
	var fakeData bool

	cmd := &cobra.Command{
		Use:   "aipsd",
		Short: "serve this host's tasks and data over the dispatch wire",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)

			sys := aips.NewSystem(userno)
			if fakeData {
				cat := fake.NewCatalog()
				sys.RegisterTarget("AIPSImage", cat.ImageTarget())
				sys.RegisterTarget("AIPSUVData", cat.UVDataTarget())
				sys.RegisterTarget("AIPSCat", cat.CatTarget())
			}
			return server.ListenAndServe(addr, sys.Registry())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8000", "address to serve dispatch calls on")
	cmd.Flags().StringVar(&logLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")
	cmd.Flags().IntVar(&userno, "userno", 0, "user number owning this host's data")
	cmd.Flags().BoolVar(&fakeData, "fake-data", false, "serve an in-memory catalogue instead of a science backend")

	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
