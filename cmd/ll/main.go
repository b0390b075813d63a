package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"logline/internal/config"
	"logline/internal/db"
	"logline/internal/domain"
	"logline/internal/engine"
	"logline/internal/inbox"
	"logline/internal/migrate"
	"logline/internal/repo"
	"logline/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "ll",
	Short: "Logline CLI",
	Long: `Logline keeps a plain-text work journal in sync with a task store.
You edit one inbox document (dated blocks with LOG/TODO_ADD/TODO_DONE
sections, plus a generated TODO LIST mirror); 'll update' folds your edits
into the store, archives log lines per day and regenerates the views.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LOGLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(eventsCmd())
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Process the inbox document once",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg := config.Load(workspace)
			r, closeRepo, err := openRepo(cmd.Context(), cfg, workspace)
			if err != nil {
				return err
			}
			defer closeRepo()
			summary, err := engine.New(cfg, workspace, r).Run(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(summary)
			}
			if summary.NoOp {
				fmt.Println("No update blocks processed; rolled the inbox header.")
			} else {
				fmt.Printf("Processed %d update block(s).\n", summary.Processed)
			}
			if summary.Events > 0 {
				fmt.Printf("Applied %d TODO LIST edit(s).\n", summary.Events)
			}
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.MkdirAll(workspace, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
			}
			cfg := config.Load(workspace)
			paths := cfg.Resolve(workspace)
			for _, dir := range []string{filepath.Dir(paths.InboxFile), paths.LogsDir, filepath.Dir(paths.TasksFile)} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if _, err := os.Stat(paths.InboxFile); os.IsNotExist(err) {
				doc := "# Inbox\n\n" + inbox.Template(time.Now()) + "\n"
				if err := os.WriteFile(paths.InboxFile, []byte(doc), 0o644); err != nil {
					return err
				}
			}
			fmt.Println("Workspace ready:", workspace)
			return nil
		},
	}
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "Inspect the task store"}
	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksShowCmd())
	return cmd
}

func tasksListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd.Context(), func(cfg *config.Config, tasks []domain.Task) error {
				var filtered []domain.Task
				for _, t := range tasks {
					if status == "" || t.Status == status {
						filtered = append(filtered, t)
					}
				}
				if viper.GetBool("json") {
					return printJSON(filtered)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Pri", "Title", "Status", "Tags", "Due"})
				for _, t := range filtered {
					pri := ""
					if t.Priority != nil {
						pri = fmt.Sprintf("%d", *t.Priority)
					}
					tw.AppendRow(table.Row{t.ID, pri, t.Title, t.Status, strings.Join(t.Tags, ","), t.Due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, done, canceled)")
	return cmd
}

func tasksShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one task",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg := config.Load(workspace)
			if cfg.Store == config.StoreSQLite {
				conn, err := db.Open(db.Config{Workspace: workspace})
				if err != nil {
					return err
				}
				defer conn.Close()
				if err := migrate.Migrate(conn); err != nil {
					return err
				}
				t, err := repo.Repo{DB: conn}.Get(cmd.Context(), id)
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("task %s not found", id)
				}
				if err != nil {
					return err
				}
				return printJSON(t)
			}
			return withTasks(cmd.Context(), func(cfg *config.Config, tasks []domain.Task) error {
				for _, t := range tasks {
					if t.ID == id {
						return printJSON(t)
					}
				}
				return fmt.Errorf("task %s not found", id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "task id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(config.Load(viper.GetString("workspace")))
		},
	})
	return cmd
}

func eventsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the sqlite store event trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg := config.Load(workspace)
			if cfg.Store != config.StoreSQLite {
				return fmt.Errorf("event trail requires store: sqlite in %s", config.Path(workspace))
			}
			if _, err := os.Stat(db.Path(workspace)); os.IsNotExist(err) {
				return fmt.Errorf("no event trail yet at %s", db.Path(workspace))
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			events, err := repo.Repo{DB: conn}.LatestEvents(cmd.Context(), n)
			if err != nil {
				return err
			}
			return printJSON(events)
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

// --- helpers ---

func openRepo(ctx context.Context, cfg *config.Config, workspace string) (store.Repository, func() error, error) {
	if cfg.Store == config.StoreSQLite {
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return repo.Repo{DB: conn}, conn.Close, nil
	}
	return store.FileRepository{Path: cfg.Resolve(workspace).TasksFile}, func() error { return nil }, nil
}

func withTasks(ctx context.Context, fn func(*config.Config, []domain.Task) error) error {
	workspace := viper.GetString("workspace")
	cfg := config.Load(workspace)
	r, closeRepo, err := openRepo(ctx, cfg, workspace)
	if err != nil {
		return err
	}
	defer closeRepo()
	tasks, err := r.Load(ctx)
	if err != nil {
		return err
	}
	return fn(cfg, tasks)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
