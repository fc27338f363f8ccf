package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/internal/config"
	"github.com/promptkit/textbatch/pkg/batch"
	"github.com/promptkit/textbatch/pkg/state"
)

var (
	batchFile      string
	batchText      string
	batchSeparator string
	batchAutoStop  bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Serve the next prompt from a batch, persisting progress",
	Long: `next splits the batch input and prints the current prompt, advancing
the persisted cursor so repeated invocations walk the whole batch.
Progress is stored per the TEXTBATCH_STATE_DIR / blob configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		proc := batch.NewProcessor(store, nil, logger)
		res := proc.Process(cmd.Context(), &batch.Request{
			Source:        sourceFromFlags(),
			SeparatorType: separatorType(),
			Separator:     batchSeparator,
			AutoStop:      batchAutoStop,
		})

		fmt.Println(res.Prompt)
		fmt.Println(res.Status)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count how many prompts a batch splits into",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, status := batch.CountSplits(sourceFromFlags(), separatorType(), batchSeparator)
		fmt.Printf("%d\n%s\n", count, status)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{nextCmd, countCmd} {
		c.Flags().StringVarP(&batchFile, "file", "f", "", "read batch text from a file")
		c.Flags().StringVarP(&batchText, "text", "t", "", "inline batch text")
		c.Flags().StringVarP(&batchSeparator, "separator", "s", "", "custom separator (default: newline)")
	}
	nextCmd.Flags().BoolVar(&batchAutoStop, "auto-stop", true, "advance the cursor until the final prompt")
	rootCmd.AddCommand(nextCmd, countCmd)
}

func sourceFromFlags() batch.Source {
	if batchFile != "" {
		return batch.Source{Mode: batch.ModeFile, File: batchFile}
	}
	return batch.Source{Mode: batch.ModeText, Text: batchText}
}

func separatorType() batch.SeparatorType {
	if batchSeparator != "" {
		return batch.SeparatorCustom
	}
	return batch.SeparatorNewline
}

// openStore picks blob persistence when configured, falling back to the
// local state directory.
func openStore(cfg *config.Config) (state.Store, error) {
	if cfg.BlobConnectionString != "" && cfg.BlobContainer != "" {
		client, err := state.NewAzureBlobClient(cfg.BlobConnectionString, cfg.BlobContainer, logger)
		if err != nil {
			return nil, fmt.Errorf("blob client: %w", err)
		}
		logger.Info("Using blob state store", zap.String("container", cfg.BlobContainer))
		return state.NewBlobStore(client, "textbatch", logger)
	}
	return state.NewFileStore(cfg.StateDir, logger)
}
