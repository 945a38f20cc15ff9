package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/formatter"
)

// getFormatter returns the formatter for the given format
func getFormatter(format string) (formatter.Formatter, error) {
	return formatter.New(format, useColor(), !isEmojiDisabled())
}

// outputAnalyses formats analyses and writes them to stdout or --output-file
func outputAnalyses(cmd *cobra.Command, analyses []*api.Analysis) error {
	format := getOutputFormat()
	if formatter.IsBinary(format) && outputFile == "" {
		return fmt.Errorf("%s output is binary, use --output-file", format)
	}

	f, err := getFormatter(format)
	if err != nil {
		return err
	}

	output, err := f.Format(analyses)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	return handleOutputDestination(cmd, output)
}

// handleOutputDestination writes output to file or stdout
func handleOutputDestination(cmd *cobra.Command, output []byte) error {
	if outputFile == "" {
		_, err := cmd.OutOrStdout().Write(output)
		return err
	}

	if err := validateOutputFilePath(outputFile); err != nil {
		return fmt.Errorf("invalid output file path: %w", err)
	}
	if err := writeOutputBytesToFile(output, outputFile); err != nil {
		return fmt.Errorf("failed to write output to file: %w", err)
	}

	if isVerbose() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Output saved to: %s\n", outputFile)
	}
	return nil
}

func validateOutputFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}
	return nil
}

// writeOutputBytesToFile writes output to a file with proper error handling
func writeOutputBytesToFile(output []byte, filePath string) error {
	cleanPath := filepath.Clean(filePath)

	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && isVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output file: %v\n", closeErr)
		}
	}()

	if _, err := file.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}

	return nil
}
