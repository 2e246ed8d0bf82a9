package main

import (
	"fmt"

	"github.com/avrabe/mcp-loxone/internal/apikey"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the API key",
	Long:  `Commands for printing, rotating and removing the stored API key.`,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the API key clients must send",
	RunE:  runKeyShow,
}

var keyRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Generate and store a new API key",
	Long: `Generate and store a new API key. Running servers keep using the old key
until they are restarted.`,
	RunE: runKeyRotate,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE:  runKeyClear,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyRotateCmd)
	keyCmd.AddCommand(keyClearCmd)
}

// withResolver handles common config, logger and store setup and teardown.
func withResolver(fn func(r *apikey.Resolver, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()

	resolver, closeStore, err := openResolver(cfg, true, log)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(resolver, log)
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	return withResolver(func(r *apikey.Resolver, log *zap.Logger) error {
		m, err := r.Current(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "source: %s  fingerprint: %s\n", m.Source(), m.Fingerprint())
		fmt.Fprintln(cmd.OutOrStdout(), m.Reveal())
		return nil
	})
}

func runKeyRotate(cmd *cobra.Command, args []string) error {
	return withResolver(func(r *apikey.Resolver, log *zap.Logger) error {
		m, err := r.Rotate(cmd.Context())
		if err != nil {
			return fmt.Errorf("rotating API key: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "new key stored; restart running servers to use it")
		fmt.Fprintln(cmd.OutOrStdout(), m.Reveal())
		return nil
	})
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	return withResolver(func(r *apikey.Resolver, log *zap.Logger) error {
		if err := r.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clearing API key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
		return nil
	})
}
