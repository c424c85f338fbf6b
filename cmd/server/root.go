package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dasmlab/vakya/pkg/config"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vakya",
	Short: "English to Sanskrit translation server",
	Long:  "Vakya serves English to Sanskrit translation through a hosted Gemini model or locally installed mBART and IndicTrans2 models.",

	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if err := config.BindEnv(v); err != nil {
			return err
		}

		// Load config and env files
		if err := config.LoadEnvAndConfigFiles(v); err != nil {
			return err
		}

		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = config.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())

	pflags := rootCmd.PersistentFlags()
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")
	pflags.String("log-level", "info", "Log level: debug, info, warn, error")
	pflags.String("log-format", "text", "Log format: text or json")

	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("log_level", pflags.Lookup("log-level"))
	viper.BindPFlag("log_format", pflags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd, translateCmd, methodsCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
