package cmds

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "grillo",
	Short: "grillo streams LLM chat sessions from the command line",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger once --log-level has been parsed
		initLogger()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.grillo/config.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (trace, debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().String("settings", "", "step settings yaml file")
	viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings"))

	rootCmd.PersistentFlags().String("api-type", "", "backend to use (openai, anyscale, fireworks, claude, gemini, ollama, echo)")
	viper.BindPFlag("api-type", rootCmd.PersistentFlags().Lookup("api-type"))

	rootCmd.PersistentFlags().StringP("model", "m", "", "model name, e.g. gpt-4 or claude-3-sonnet-20240229")
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.PersistentFlags().String("system", "", "system prompt sent with every exchange")
	viper.BindPFlag("system", rootCmd.PersistentFlags().Lookup("system"))

	rootCmd.PersistentFlags().Float64("temperature", 0, "sampling temperature")
	rootCmd.PersistentFlags().Int("max-response-tokens", 0, "maximum tokens in the response")

	viper.SetDefault("claude-base-url", "https://api.anthropic.com")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME/.grillo")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("grillo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("failed to read config file")
		}
	}
}

func initLogger() {
	if viper.GetString("log-format") == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch viper.GetString("log-level") {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}
