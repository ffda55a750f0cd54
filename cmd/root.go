package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"certverify/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "certverify",
	Short: "Read certificates and validate them against trusted records",
	Long: `certverify extracts text from certificate images and PDFs, parses the
certificate fields (student, certificate ID, course, issue date, institution,
grade) and compares them with the trusted record for that certificate.

Images are read with the OCR engine selected by OCR_ENGINE (tesseract, vision
or documentai). PDFs are read from their text layer.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("certverify executed without a subcommand")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
