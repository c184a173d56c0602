package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/lprojsync/settings"
	"github.com/minios-linux/lprojsync/translate"
)

var (
	heading = color.New(color.FgBlue).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	notice  = color.New(color.FgYellow).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
)

// authProviders are the providers that take stored credentials, in menu order.
var authProviders = []struct {
	id      string
	helpURL string
	example string
}{
	{translate.ProviderGoogle, "https://aistudio.google.com/apikey", "lprojsync sync --provider google --model gemini-2.5-flash"},
	{translate.ProviderGroq, "https://console.groq.com/keys", "lprojsync sync --provider groq --model llama-3.3-70b-versatile"},
	{translate.ProviderCustomOpenAI, "", "lprojsync sync --provider custom-openai --model MODEL_NAME"},
}

func authProviderIDs() []string {
	ids := make([]string, 0, len(authProviders))
	for _, p := range authProviders {
		ids = append(ids, p.id)
	}
	return ids
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys for the AI translation providers.

API key providers:
  google         Google AI Studio (Gemini API key)
  groq           Groq Cloud (free tier available)
  custom-openai  Custom OpenAI-compatible endpoint (URL and optional key)

No auth required:
  google-translate  Google Translate web endpoint
  ollama            Local Ollama server

Keys are stored in ` + settings.FilePath() + `.
` + settings.EnvAPIKey + ` and --api-key take precedence over stored keys.

Examples:
  lprojsync auth login google     Store a Google AI API key
  lprojsync auth logout groq      Remove the Groq API key
  lprojsync auth logout           Remove all credentials
  lprojsync auth list             Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func completeAuthProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return authProviderIDs(), cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "login <provider>",
		Short:             "Store an API key for a provider",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeAuthProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(args[0])
			switch id {
			case translate.ProviderGoogleTranslate, translate.ProviderOllama:
				logInfo("Provider '%s' does not need credentials", id)
				return nil
			case translate.ProviderCustomOpenAI:
				return authLoginCustomOpenAI(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			for _, p := range authProviders {
				if p.id == id {
					return authLoginAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr(), id, p.helpURL, p.example)
				}
			}
			return fmt.Errorf("unknown provider '%s' (want one of %s)", args[0], strings.Join(authProviderIDs(), ", "))
		},
	}
}

func authLoginAPIKey(in io.Reader, out io.Writer, providerID, helpURL, example string) error {
	name := translate.DefaultProviders()[providerID].Name

	fmt.Fprintf(out, "\n%s\n", heading(name+": API Key Setup"))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintln(out)

	if helpURL != "" {
		fmt.Fprintf(out, "  Get your API key from: %s\n\n", good(helpURL))
	}

	// Check if already configured
	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(out, "  Current key: %s\n", notice(settings.MaskKey(existing)))
		fmt.Fprintf(out, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(out, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("no input received")
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo("Keeping existing key")
			return nil
		}
		return fmt.Errorf("no API key provided")
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	logSuccess("%s API key saved!", name)
	fmt.Fprintf(out, "\n  You can now use: %s\n\n", example)
	return nil
}

func authLoginCustomOpenAI(in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "\n%s\n", heading("Custom OpenAI-Compatible Endpoint"))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)

	// Base URL
	existing := settings.Get(translate.ProviderCustomOpenAI)
	if existing != nil && existing.BaseURL != "" {
		fmt.Fprintf(out, "  Current endpoint: %s\n", notice(existing.BaseURL))
		fmt.Fprintf(out, "  Enter new endpoint URL, or press Enter to keep: ")
	} else {
		fmt.Fprintf(out, "  Enter endpoint URL (e.g., https://api.example.com/v1): ")
	}

	if !scanner.Scan() {
		return fmt.Errorf("no input received")
	}
	baseURL := strings.TrimSpace(scanner.Text())

	if baseURL == "" && existing != nil {
		baseURL = existing.BaseURL
	}
	if baseURL == "" {
		return fmt.Errorf("endpoint URL is required")
	}

	// API key (optional for some endpoints)
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(out, "  Current key: %s\n", notice(settings.MaskKey(existing.Key)))
		fmt.Fprintf(out, "  Enter new API key, or press Enter to keep (leave empty for none): ")
	} else {
		fmt.Fprintf(out, "  Enter API key (or press Enter if not required): ")
	}

	apiKey := ""
	if scanner.Scan() {
		apiKey = strings.TrimSpace(scanner.Text())
	}
	if apiKey == "" && existing != nil {
		apiKey = existing.Key
	}

	if err := settings.SetAPIKeyWithBaseURL(translate.ProviderCustomOpenAI, apiKey, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	logSuccess("Custom OpenAI endpoint saved!")
	fmt.Fprintf(out, "\n  You can now use: %s\n\n", authProviders[len(authProviders)-1].example)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout [provider]",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

Without a provider, credentials for ALL providers are removed.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeAuthProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if err := settings.RemoveAll(); err != nil {
					return fmt.Errorf("removing credentials: %w", err)
				}
				logSuccess("All stored credentials removed")
				return nil
			}

			id := strings.ToLower(args[0])
			known := false
			for _, p := range authProviders {
				known = known || p.id == id
			}
			if !known {
				return fmt.Errorf("unknown provider '%s'. Run 'lprojsync auth list' to see providers", args[0])
			}
			if err := settings.Remove(id); err != nil {
				return fmt.Errorf("removing %s credentials: %w", id, err)
			}
			logSuccess("%s credentials removed", id)
			return nil
		},
	}
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printCredentials(cmd.ErrOrStderr(), settings.Load(), os.Getenv(settings.EnvAPIKey))
		},
	}
}

// printCredentials writes the credential overview for auth list.
func printCredentials(out io.Writer, store settings.Store, envKey string) {
	fmt.Fprintf(out, "\n%s\n", heading("Stored Credentials"))
	fmt.Fprintln(out, strings.Repeat("─", 60))

	fmt.Fprintf(out, "\n  %s\n", notice("API Key Providers"))
	for _, p := range authProviders {
		entry := store[p.id]
		switch {
		case entry != nil && entry.Key != "":
			status := fmt.Sprintf("%s (key: %s)", good("configured"), settings.MaskKey(entry.Key))
			if entry.BaseURL != "" {
				status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
			}
			fmt.Fprintf(out, "  %-14s %s\n", p.id, status)
		case entry != nil && entry.BaseURL != "":
			// custom-openai may have just a URL, no key
			status := fmt.Sprintf("%s (no key)", good("configured"))
			status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
			fmt.Fprintf(out, "  %-14s %s\n", p.id, status)
		default:
			fmt.Fprintf(out, "  %-14s %s\n", p.id, bad("not configured"))
		}
	}

	fmt.Fprintf(out, "\n  %s\n", notice("Environment Variables"))
	if envKey != "" {
		fmt.Fprintf(out, "  %s: %s (overrides stored keys)\n", settings.EnvAPIKey, good(settings.MaskKey(envKey)))
	} else {
		fmt.Fprintf(out, "  %s: %s\n", settings.EnvAPIKey, bad("not set"))
	}
	fmt.Fprintln(out)
}
