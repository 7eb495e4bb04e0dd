package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/minios-linux/docloc/config"
	"github.com/minios-linux/docloc/settings"
	"github.com/minios-linux/docloc/translate"
	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// auth (manage the stored DeepL key)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored DeepL API key",
		Long: `Manage the DeepL API key stored in the docloc data directory.

The stored key is used when no key is given by flag, environment, .env or
config file. Keys ending in ":fx" use the free API endpoint.

Examples:
  docloc auth login                        Prompt for the key
  docloc auth login --key 0f3c...:fx       Store a key non-interactively
  docloc auth status                       Show which key would be used
  docloc auth logout                       Remove the stored key`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var key, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a DeepL API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			existing := settings.GetAPIKey(settings.ServiceDeepL)

			if key == "" {
				fmt.Fprintf(stderr, "\n%s\n", colorBlue.Sprint("DeepL API Key Setup"))
				fmt.Fprintln(stderr, strings.Repeat("─", 60))
				fmt.Fprintf(stderr, "  Get your API key from: %s\n\n", colorGreen.Sprint("https://www.deepl.com/your-account/keys"))
				if existing != "" {
					fmt.Fprintf(stderr, "  Current key: %s\n", colorYellow.Sprint(settings.MaskKey(existing)))
					fmt.Fprint(stderr, "  Enter new key to replace, or press Enter to keep: ")
				} else {
					fmt.Fprint(stderr, "  Enter API key: ")
				}

				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					return fmt.Errorf("no input received")
				}
				key = strings.TrimSpace(scanner.Text())
			}

			if key == "" {
				if existing != "" {
					logInfo("Keeping existing key")
					return nil
				}
				return fmt.Errorf("no API key provided")
			}

			if err := settings.SetAPIKey(settings.ServiceDeepL, key, baseURL); err != nil {
				return fmt.Errorf("saving API key: %w", err)
			}
			endpoint := baseURL
			if endpoint == "" {
				endpoint = translate.BaseURLForKey(key)
			}
			logSuccess("DeepL API key saved to %s (endpoint %s)", settings.FilePath(), endpoint)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (default: prompt)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom API base URL to store with the key")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.RemoveAll(); err != nil {
				return err
			}
			logSuccess("All stored credentials removed")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"list", "ls"},
		Short:   "Show stored credentials and which key would be used",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%s\n", colorBlue.Sprint("Stored Credentials"))
			fmt.Fprintln(out, strings.Repeat("─", 60))

			store := settings.Load()
			if len(store) == 0 {
				fmt.Fprintf(out, "  %s\n", colorRed.Sprint("none"))
			}
			for _, id := range sortedKeys(store) {
				entry := store[id]
				status := fmt.Sprintf("%s (key: %s)", colorGreen.Sprint("configured"), settings.MaskKey(entry.Key))
				if entry.BaseURL != "" {
					status += fmt.Sprintf("\n  %8s endpoint: %s", "", entry.BaseURL)
				}
				fmt.Fprintf(out, "  %-8s %s\n", id, status)
			}

			fmt.Fprintf(out, "\n  %s\n", colorYellow.Sprint("Environment Variables"))
			for _, name := range []string{config.EnvPrefix + "_API_KEY", "DEEPL_API_KEY"} {
				if v := os.Getenv(name); v != "" {
					fmt.Fprintf(out, "  %s: %s\n", name, colorGreen.Sprint(settings.MaskKey(v)))
				} else {
					fmt.Fprintf(out, "  %s: %s\n", name, colorRed.Sprint("not set"))
				}
			}

			cfg, err := config.Load(config.Options{ConfigFile: cfgFile})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n  %s\n", colorYellow.Sprint("Effective Key"))
			if cfg.APIKey == "" {
				fmt.Fprintf(out, "  %s\n\n", colorRed.Sprint("no key configured"))
				return nil
			}
			endpoint := cfg.BaseURL
			if endpoint == "" {
				endpoint = translate.BaseURLForKey(cfg.APIKey)
			}
			fmt.Fprintf(out, "  %s from %s\n  endpoint: %s\n\n", settings.MaskKey(cfg.APIKey), cfg.KeySource, endpoint)
			return nil
		},
	}
}
