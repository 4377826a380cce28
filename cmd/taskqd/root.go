package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ZEDDEV1/nozesia-sub005/internal/config"
)

// options are shared by every subcommand.
type options struct {
	file string
	v    *viper.Viper
}

func (o *options) load() (*config.Config, error) {
	return config.Load(o.v, o.file)
}

func newRootCmd() *cobra.Command {
	opts := &options{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "taskqd",
		Short:         "In-process job queue daemon for the NozesIA back office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.file, "config", "c", "", "config file (default ./taskqd.yaml or /etc/taskqd/taskqd.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	_ = opts.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", pf.Lookup("log-format"))

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}
