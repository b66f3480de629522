package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"linedoc/internal/config"
	"linedoc/internal/line"

	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "push [to] <text...>",
		Short: "Send a push message to a user, group or named target",
		Long: `Sends a text push message. The recipient is either the first argument
(a user, group or room id) or a named target from the configuration, e.g.
--target LINE_GROUP_ID_PATROL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadWebhook(source)
			if cfg.ChannelAccessToken == "" {
				return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is not set")
			}

			to := ""
			if target != "" {
				id, err := resolveTarget(cfg.Targets, target)
				if err != nil {
					return err
				}
				to = id
			} else {
				if len(args) < 2 {
					return fmt.Errorf("need a recipient and a message, or --target")
				}
				to, args = args[0], args[1:]
			}
			text := strings.Join(args, " ")

			dispatcher := line.NewDispatcher(line.DispatcherConfig{
				Client:  newLineClient(cfg),
				Timeout: cfg.MessageTimeout,
				Logger:  logger,
			})
			result, err := dispatcher.SendPush(context.Background(), to, text)
			if result != line.SendOK {
				return fmt.Errorf("push %s: %w", result, err)
			}
			fmt.Printf("sent to %s\n", config.MaskString(to))
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "named target key (e.g. LINE_USER_ID_CURRENT)")
	return cmd
}

// resolveTarget looks a target up by its key, case-insensitively.
func resolveTarget(targets map[string]string, name string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if id, ok := targets[key]; ok {
		return id, nil
	}
	known := make([]string, 0, len(targets))
	for k := range targets {
		known = append(known, k)
	}
	sort.Strings(known)
	if len(known) == 0 {
		return "", fmt.Errorf("unknown target %q: no targets configured (set one of %s)", name, strings.Join(config.TargetKeys, ", "))
	}
	return "", fmt.Errorf("unknown target %q (configured: %s)", name, strings.Join(known, ", "))
}
