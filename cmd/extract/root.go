package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/feichai0017/policy-decoder/internal/agent"
	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/storage/local"
)

type extractOptions struct {
	maxBytes  int64
	maxPages  int
	maxText   int
	asJSON    bool
	verbose   bool
	uploadDir string
}

func newRootCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract sanitized text from a PDF or text document",
		Long: `Runs the same ingestion pipeline as the server on a local file.
The file is copied to a temporary artifact first; the original is never modified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runExtract(cmd, opts, args[0])
			if err != nil {
				cmd.PrintErrln("Error:", err)
				if isRejection(err) {
					cmd.PrintErrln(docagent.Reason(err))
				}
			}
			return err
		},
	}

	limits := docagent.DefaultLimits()
	cmd.Flags().Int64Var(&opts.maxBytes, "max-bytes", limits.MaxBytes, "maximum file size in bytes")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", limits.MaxUnits, "maximum number of pages")
	cmd.Flags().IntVar(&opts.maxText, "max-text-bytes", limits.MaxTextBytes, "truncate extracted text to this many bytes")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output the result as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	cmd.Flags().StringVar(&opts.uploadDir, "tmp-dir", filepath.Join(os.TempDir(), "policy-decoder-extract"), "directory for the temporary copy")

	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions, path string) error {
	log := logger.NewNop()
	if opts.verbose {
		l, err := logger.NewLogger(
			logger.WithLevel("debug"),
			logger.WithEncoding("console"),
			logger.WithOutputPaths([]string{"stderr"}),
		)
		if err != nil {
			return err
		}
		log = l
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	store, err := local.New(opts.uploadDir, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fileID, err := store.Store(ctx, f, info.Name())
	if err != nil {
		return fmt.Errorf("copy to temp storage: %w", err)
	}

	mediaType, _ := agent.MediaTypeForFilename(info.Name())
	pipeline := docagent.NewPipeline(agent.NewProcessorFactory(log), store, log)
	result, err := pipeline.Extract(ctx, &models.RawDocument{
		FileID:    fileID,
		MediaType: mediaType,
		Size:      info.Size(),
		Filename:  info.Name(),
	}, docagent.Limits{
		MaxBytes:     opts.maxBytes,
		MaxUnits:     opts.maxPages,
		MaxTextBytes: opts.maxText,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return nil
}

func isRejection(err error) bool {
	for _, target := range []error{
		docagent.ErrInvalidInput,
		docagent.ErrTooLarge,
		docagent.ErrTooComplex,
		docagent.ErrMalformedDocument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
