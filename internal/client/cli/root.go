package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/shotsync/internal/client/autosave"
	"github.com/iudanet/shotsync/internal/client/iocli"
	"github.com/iudanet/shotsync/internal/config"
)

type rootOptions struct {
	viper      *viper.Viper
	io         iocli.IO
	configFile string
	project    string
}

// NewRootCommand собирает дерево команд клиента
func NewRootCommand(io iocli.IO, version string) *cobra.Command {
	opts := &rootOptions{
		viper: config.New(),
		io:    io,
	}

	root := &cobra.Command{
		Use:           "shotsync",
		Short:         "Collaborative shot list client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(io)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to YAML config file")
	flags.StringVar(&opts.project, "project", "", "project ID (overrides the selected project)")
	flags.String("server", "http://localhost:8080", "server URL")
	flags.String("db", "shotsync-client.db", "path to local database")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.Duration("poll-interval", 2*time.Second, "edit lock check interval")

	_ = opts.viper.BindPFlag("client.server_url", flags.Lookup("server"))
	_ = opts.viper.BindPFlag("client.db", flags.Lookup("db"))
	_ = opts.viper.BindPFlag("client.poll_interval", flags.Lookup("poll-interval"))
	_ = opts.viper.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		opts.whoamiCommand(),
		opts.projectCommand(),
		opts.boardCommand(),
		opts.watchCommand(),
	)
	return root
}

// run загружает конфигурацию, готовит Cli и закрывает ресурсы после fn
func (o *rootOptions) run(fn func(ctx context.Context, c *Cli, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(o.viper, o.configFile)
		if err != nil {
			return err
		}
		if err := cfg.ValidateClient(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx := cmd.Context()
		c, closeFn, err := Setup(ctx, o.io, cfg, cfg.Log.NewLogger())
		if err != nil {
			return err
		}
		defer func() {
			_ = closeFn()
		}()

		c.SetProject(o.project)
		return fn(ctx, c, args)
	}
}

func (o *rootOptions) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print this device's client ID",
		Args:  cobra.NoArgs,
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.WhoAmI(ctx)
		}),
	}
}

func (o *rootOptions) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project and select it",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.ProjectCreate(ctx, args[0], description)
		}),
	}
	create.Flags().StringVar(&description, "description", "", "project description")

	var title, newDescription string
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit the selected project's title or description",
		Args:  cobra.NoArgs,
	}
	edit.Flags().StringVar(&title, "title", "", "new title")
	edit.Flags().StringVar(&newDescription, "description", "", "new description")
	edit.RunE = o.run(func(ctx context.Context, c *Cli, args []string) error {
		rec := autosave.Record{}
		if edit.Flags().Changed("title") {
			rec[autosave.FieldTitle] = title
		}
		if edit.Flags().Changed("description") {
			rec[autosave.FieldDescription] = newDescription
		}
		if len(rec) == 0 {
			return errors.New("nothing to change: pass --title or --description")
		}
		return c.ProjectEdit(ctx, rec)
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project if nobody else is working in it",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.ProjectDelete(ctx, args[0], yes)
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List projects",
			Args:  cobra.NoArgs,
			RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
				return c.ProjectList(ctx)
			}),
		},
		create,
		&cobra.Command{
			Use:   "use <id>",
			Short: "Select the project for board commands",
			Args:  cobra.ExactArgs(1),
			RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
				return c.ProjectUse(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the selected project",
			Args:  cobra.NoArgs,
			RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
				return c.ProjectShow(ctx)
			}),
		},
		edit,
		del,
	)
	return cmd
}

func (o *rootOptions) boardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage boards of the selected project",
	}

	var addFields []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a board (an occupied shot number shifts later boards)",
		Args:  cobra.NoArgs,
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			rec, err := parseFields(addFields)
			if err != nil {
				return err
			}
			return c.BoardAdd(ctx, rec)
		}),
	}
	add.Flags().StringArrayVarP(&addFields, "set", "s", nil, "field=value, repeatable")

	var editFields []string
	var interactive bool
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a board while holding its edit lock",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			rec, err := parseFields(editFields)
			if err != nil {
				return err
			}
			if len(rec) == 0 && !interactive {
				return errors.New("nothing to change: pass --set field=value or --interactive")
			}
			return c.BoardEdit(ctx, args[0], rec, interactive)
		}),
	}
	edit.Flags().StringArrayVarP(&editFields, "set", "s", nil, "field=value, repeatable")
	edit.Flags().BoolVarP(&interactive, "interactive", "i", false, "read field=value lines from input")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a board if nobody else is editing it",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.BoardDelete(ctx, args[0], yes)
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List boards in shot order",
			Args:  cobra.NoArgs,
			RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
				return c.BoardList(ctx)
			}),
		},
		add,
		edit,
		&cobra.Command{
			Use:   "move <from> <to>",
			Short: "Move the board at position <from> to position <to> and renumber shots",
			Args:  cobra.ExactArgs(2),
			RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
				from, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid position %q", args[0])
				}
				to, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid position %q", args[1])
				}
				return c.BoardMove(ctx, from, to)
			}),
		},
		del,
	)
	return cmd
}

func (o *rootOptions) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to the selected project",
		Args:  cobra.NoArgs,
		RunE: o.run(func(ctx context.Context, c *Cli, args []string) error {
			return c.Watch(ctx)
		}),
	}
}

// parseFields разбирает значения вида field=value
func parseFields(values []string) (autosave.Record, error) {
	rec := autosave.Record{}
	for _, v := range values {
		field, value, ok := strings.Cut(v, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid field %q: expected field=value", v)
		}
		if err := autosave.CheckField(field, autosave.BoardFields); err != nil {
			return nil, err
		}
		rec[field] = value
	}
	return rec, nil
}
