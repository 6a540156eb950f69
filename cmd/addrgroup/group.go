package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artemgubar/addrgroup/internal/config"
	"github.com/artemgubar/addrgroup/internal/group"
	"github.com/artemgubar/addrgroup/internal/match"
	"github.com/artemgubar/addrgroup/internal/process"
	"github.com/artemgubar/addrgroup/internal/translate"
)

type groupFlags struct {
	csv        bool
	threshold  float64
	translator string
	dictionary string
}

func newGroupCmd() *cobra.Command {
	flags := &groupFlags{}

	cmd := &cobra.Command{
		Use:   "group [FILE]",
		Short: "Group the records in FILE or stdin",
		Long: `Read one "Name, Address" record per line, or a CSV file with Name and
Address columns, and print each group of people sharing an address as a
comma-separated line. Files ending in .csv are read as CSV.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroup(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.csv, "csv", false, "read input as CSV with a header row")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", group.DefaultThreshold, "Jaccard similarity a pair must exceed to share a group")
	cmd.Flags().StringVar(&flags.translator, "translator", "", "translation backend: mymemory, anthropic or transliterate")
	cmd.Flags().StringVar(&flags.dictionary, "dictionary", "", "YAML file mapping source phrases to translations; replaces --translator")
	return cmd
}

func runGroup(cmd *cobra.Command, args []string, flags *groupFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.SimilarityThreshold = flags.threshold
	}
	if flags.translator != "" {
		cfg.Translator = flags.translator
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, name, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	translator, err := buildTranslator(cfg, flags.dictionary)
	if err != nil {
		return err
	}

	logger := slog.Default()
	engine := group.NewEngine(match.NewNormalizer(translator), cfg.SimilarityThreshold, logger)
	processor := process.NewProcessor(engine, logger)

	var output string
	if flags.csv || strings.EqualFold(filepath.Ext(name), ".csv") {
		output, err = processor.ProcessCSV(cmd.Context(), data)
	} else {
		output, err = processor.ProcessText(cmd.Context(), string(data))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", process.Kind(err), err)
	}

	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}
	return nil
}

func readInput(stdin io.Reader, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}
	return data, args[0], nil
}

func buildTranslator(cfg *config.Config, dictionary string) (translate.Translator, error) {
	if dictionary != "" {
		f, err := os.Open(dictionary)
		if err != nil {
			return nil, fmt.Errorf("open dictionary: %w", err)
		}
		defer f.Close()
		return translate.LoadStatic(f)
	}

	return translate.New(translate.Options{
		Backend:         cfg.Translator,
		Timeout:         cfg.TranslateTimeout,
		Retries:         cfg.TranslateRetries,
		MyMemoryEmail:   cfg.MyMemoryEmail,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Logger:          slog.Default(),
	})
}
