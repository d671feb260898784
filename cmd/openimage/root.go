package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anatolykoptev/go-openimage/internal/app"
	"github.com/anatolykoptev/go-openimage/internal/config"
)

// cli carries state shared by all subcommands of one invocation.
type cli struct {
	v          *viper.Viper
	configPath string
	debug      bool
	settings   *config.Settings
	appOpts    []app.Option
}

func newRootCmd(appOpts ...app.Option) *cobra.Command {
	c := &cli{v: viper.New(), appOpts: appOpts}

	root := &cobra.Command{
		Use:          "openimage",
		Short:        "Find commercially usable images across licensed sources",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetErrPrefix("openimage:")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		c.searchCmd(),
		c.statusCmd(),
		c.serveCmd(),
		c.cacheCmd(),
	)
	return root
}

// setup loads settings and installs the default logger.
func (c *cli) setup(cmd *cobra.Command) error {
	s, err := config.LoadWith(c.v, c.configPath)
	if err != nil {
		return err
	}
	if c.debug {
		s.Log.Level = "debug"
	}
	c.settings = s
	slog.SetDefault(slog.New(newLogHandler(cmd.ErrOrStderr(), s.Log)))
	return nil
}

func newLogHandler(w io.Writer, ls config.LogSettings) slog.Handler {
	opts := &slog.HandlerOptions{Level: ls.SlogLevel()}
	if ls.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// withApp builds the application, runs fn and closes it.
func (c *cli) withApp(fn func(*app.App) error) (err error) {
	a, err := app.New(c.settings, c.appOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(a)
}
