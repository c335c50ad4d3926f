package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

const envPrefix = "DOODLEBOT"

type Config struct {
	server string
	link   string
	room   string
	name   string
	debug  bool
}

// resolve fills room and name from the join link when one is given.
func (c *Config) resolve() error {
	if c.link != "" {
		l, err := protocol.ParseJoinLink(c.link)
		if err != nil {
			return fmt.Errorf("parse link: %w", err)
		}
		c.room, c.name = l.Room, l.Name
	}
	if c.server == "" {
		return errors.New("--server must not be empty")
	}
	if c.room == "" || c.name == "" {
		return errors.New("either --link or both --room and --name must be provided")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "doodlebot",
		Short: "Join a doodlewhat room from the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.resolve(); err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.debug).Named("doodlebot")
			ctx := logging.WithLogger(cmd.Context(), logger)

			if err := run(ctx, cfg.server, cfg.room, cfg.name, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				logger.Errorw("session ended", "err", err)
				return err
			}
			return nil
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:8080/ws", "websocket endpoint (env: DOODLEBOT_SERVER)")
	fs.StringVarP(&cfg.link, "link", "l", "", "join link, overrides --room and --name (env: DOODLEBOT_LINK)")
	fs.StringVarP(&cfg.room, "room", "r", "", "room code (env: DOODLEBOT_ROOM)")
	fs.StringVarP(&cfg.name, "name", "n", "", "display name (env: DOODLEBOT_NAME)")
	fs.BoolVarP(&cfg.debug, "debug", "d", false, "debug logging (env: DOODLEBOT_DEBUG)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
