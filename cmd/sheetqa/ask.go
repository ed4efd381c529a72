package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/sheetqa/internal/application"
	appdocs "github.com/bryanwahyu/sheetqa/internal/application/documents"
	appqa "github.com/bryanwahyu/sheetqa/internal/application/qa"
	"github.com/bryanwahyu/sheetqa/internal/config"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/prompt"
	"github.com/bryanwahyu/sheetqa/internal/infra/spreadsheet"
	"github.com/bryanwahyu/sheetqa/internal/infra/storage"
)

func newAskCommand(newClient clientFactory) *cobra.Command {
	var (
		question   string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "ask --question <text> <file>...",
		Short: "Ask a question against one or more workbooks",
		Long: "Loads the given workbooks into an in-memory store and asks the configured provider the question once per file.\n" +
			"Answers are keyed by file base name; repeated base names get a _1, _2... suffix.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = "config.yaml"
				if v := os.Getenv("CONFIG_PATH"); v != "" {
					configPath = v
				}
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Storage.Backend = "memory"
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store := storage.NewMemoryStore()
			names := make(map[string]bool, len(args))
			for _, path := range args {
				name := uniqueName(names, filepath.Base(path))
				if err := loadFile(cmd, store, path, name); err != nil {
					return err
				}
			}

			client, closeClient, err := newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			svc := &appqa.Service{
				Documents: &appdocs.Service{
					Store:  store,
					Parser: spreadsheet.NewParser(),
					Clock:  application.SystemClock{},
					Log:    log,
				},
				Client:      client,
				Mode:        qa.AnswerMode(cfg.QA.AnswerMode),
				Extract:     prompt.ExtractAnswer,
				Concurrency: cfg.Ask.Concurrency,
				FailFast:    cfg.Ask.FailFast,
				Log:         log,
			}

			res, err := svc.Ask(ctx, question)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask about each workbook")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default config.yaml or $CONFIG_PATH)")
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

// uniqueName returns base, or base with a _N suffix before the extension when base is taken.
func uniqueName(taken map[string]bool, base string) string {
	name := base
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; taken[name]; n++ {
		name = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	taken[name] = true
	return name
}

// loadFile copies a workbook into the store under name.
func loadFile(cmd *cobra.Command, store *storage.MemoryStore, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := store.Put(cmd.Context(), name, f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
