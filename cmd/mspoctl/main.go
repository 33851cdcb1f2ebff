package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "mspoctl",
		Short:         "Import, export and analyse MSPO polygons against a running server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration (default ~/.mspoctl.yaml)")
	rootCmd.PersistentFlags().String("server", "", "Server base URL")
	rootCmd.PersistentFlags().String("session", "", "Existing session id")
	rootCmd.PersistentFlags().String("username", "", "Login user name")
	rootCmd.PersistentFlags().String("password", "", "Login password")
	for _, k := range []string{"server", "session", "username", "password"} {
		_ = viper.BindPFlag(k, rootCmd.PersistentFlags().Lookup(k))
	}

	// Defaults
	viper.SetDefault("server", "http://localhost:5050")

	viper.SetEnvPrefix("MSPO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		if configFile == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return
			}
			configFile = filepath.Join(home, ".mspoctl.yaml")
			if _, err := os.Stat(configFile); os.IsNotExist(err) {
				return
			}
		}

		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
	})

	rootCmd.AddCommand(
		loginCmd(),
		listCmd(),
		importCmd(),
		exportCmd(),
		statsCmd(),
		analyzeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
