package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/skullzarmy/Tusk/internal/config"
	"github.com/skullzarmy/Tusk/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Mastodon credentials",
		Long:  "Store, inspect and remove Mastodon credentials kept in your OS keychain. Select a profile with the global --profile flag.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

type loginOptions struct {
	token          string
	tokenSecret    string
	consumerKey    string
	consumerSecret string
	authMode       string
	fingerprints   []string
	envFile        string
	verify         bool
}

func newAuthLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save credentials for an instance",
		Long: strings.TrimSpace(`
Save Mastodon credentials to your OS keychain.

You need the API URL of your instance and an access token. Create a token under
Preferences > Development > New application on your instance.

Signed mode stores a consumer key/secret and token secret and signs every
request with OAuth 1.0a (HMAC-SHA1) instead of sending a bearer token.`),
		Example: strings.TrimSpace(`
  # Bearer token
  tusk auth login --api-url https://mastodon.social --token YOUR_TOKEN

  # Token from stdin, checked against the instance before saving
  pass show mastodon | tusk auth login --api-url https://mastodon.social --token - --verify

  # Named profile from a .env file
  tusk auth login --profile work --env-file .env`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runAuthLogin(cmd, opts)
		}),
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "Access token (use - to read from stdin)")
	cmd.Flags().StringVar(&opts.tokenSecret, "token-secret", "", "Access token secret (signed mode)")
	cmd.Flags().StringVar(&opts.consumerKey, "consumer-key", "", "OAuth consumer key (signed mode)")
	cmd.Flags().StringVar(&opts.consumerSecret, "consumer-secret", "", "OAuth consumer secret (signed mode)")
	cmd.Flags().StringVar(&opts.authMode, "auth-mode", "", "Authentication mode: bearer|signed (default bearer)")
	cmd.Flags().StringSliceVar(&opts.fingerprints, "fingerprint", nil, "Trusted certificate fingerprint (repeatable; SHA-256 or SHA-1 hex)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Load TUSK_* values from a .env file")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Call accounts/verify_credentials before saving")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, opts loginOptions) error {
	profile := flags.Profile
	apiURL := flags.APIURL

	if opts.envFile != "" {
		envVars, err := loadAuthEnvFile(opts.envFile)
		if err != nil {
			return err
		}
		applyAuthEnvFileRuntimeVars(envVars)

		apiURL = firstNonEmpty(apiURL, envVars["TUSK_API_URL"])
		opts.token = firstNonEmpty(opts.token, envVars["TUSK_ACCESS_TOKEN"])
		opts.tokenSecret = firstNonEmpty(opts.tokenSecret, envVars["TUSK_ACCESS_TOKEN_SECRET"])
		opts.consumerKey = firstNonEmpty(opts.consumerKey, envVars["TUSK_CONSUMER_KEY"])
		opts.consumerSecret = firstNonEmpty(opts.consumerSecret, envVars["TUSK_CONSUMER_SECRET"])
		opts.authMode = firstNonEmpty(opts.authMode, envVars["TUSK_AUTH_MODE"])
		if profile == "" {
			profile = strings.TrimSpace(envVars["TUSK_PROFILE"])
		}
	}

	if strings.TrimSpace(apiURL) == "" {
		return fmt.Errorf("--api-url is required")
	}
	apiURL = validation.NormalizeAPIURL(apiURL)
	if err := validation.ValidateInstanceURL(apiURL); err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}

	if opts.token == "-" {
		token, err := readSecretLine(cmd)
		if err != nil {
			return err
		}
		opts.token = token
	}
	if opts.token == "" {
		return fmt.Errorf("--token is required")
	}

	account := config.Account{
		APIURL:                  apiURL,
		AccessToken:             opts.token,
		AccessTokenSecret:       opts.tokenSecret,
		ConsumerKey:             opts.consumerKey,
		ConsumerSecret:          opts.consumerSecret,
		TimeoutMS:               int(flags.Timeout / time.Millisecond),
		TrustedCertFingerprints: opts.fingerprints,
		AuthMode:                strings.ToLower(strings.TrimSpace(opts.authMode)),
	}
	if err := account.Validate(); err != nil {
		return err
	}

	var acct string
	if opts.verify {
		verified, err := verifyAccount(cmd, account)
		if err != nil {
			return err
		}
		acct = verified
	}

	if err := config.SaveProfile(profile, account); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if profile == "" {
		profile = "default"
	}

	if isJSON(cmd) {
		payload := map[string]any{
			"saved":        true,
			"profile":      profile,
			"api_url":      apiURL,
			"access_token": maskToken(opts.token),
		}
		if acct != "" {
			payload["acct"] = acct
		}
		return printJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Credentials saved.")
	_, _ = fmt.Fprintf(out, "  API URL: %s\n", apiURL)
	_, _ = fmt.Fprintf(out, "  Profile: %s\n", profile)
	if acct != "" {
		_, _ = fmt.Fprintf(out, "  Account: @%s\n", acct)
	}
	return nil
}

// verifyAccount checks the credentials against the instance and returns the
// account handle.
func verifyAccount(cmd *cobra.Command, account config.Account) (string, error) {
	cfg, err := account.APIConfig()
	if err != nil {
		return "", err
	}
	if flags.MaxRetries > 0 {
		cfg.MaxRetries = flags.MaxRetries
	}
	if flags.RetryDelay > 0 {
		cfg.RetryDelay = flags.RetryDelay
	}
	client, err := newClientFactory().newClient(cfg)
	if err != nil {
		return "", err
	}
	res, err := client.Get(cmd.Context(), "accounts/verify_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("credential check failed: %w", err)
	}
	acct := gjson.GetBytes(res.Body, "acct").String()
	if acct == "" {
		return "", fmt.Errorf("credential check failed: response has no account handle")
	}
	return acct, nil
}

func readSecretLine(cmd *cobra.Command) (string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func loadAuthEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--env-file requires a file path")
	}
	envVars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read --env-file %q: %w", path, err)
	}
	return envVars, nil
}

// applyAuthEnvFileRuntimeVars copies keyring settings from --env-file into the
// process environment when they are not already exported.
func applyAuthEnvFileRuntimeVars(envVars map[string]string) {
	for _, key := range []string{"TUSK_KEYRING_BACKEND", "TUSK_KEYRING_PASSWORD", "TUSK_CREDENTIALS_DIR"} {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if value := strings.TrimSpace(envVars[key]); value != "" {
			_ = os.Setenv(key, value)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active credentials",
		Long:  "Display the credentials tusk would use (tokens are masked).",
		Example: strings.TrimSpace(`
  tusk auth status
  tusk auth status --profile work --json`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			usingEnv := flags.Profile == "" && strings.TrimSpace(os.Getenv("TUSK_ACCESS_TOKEN")) != ""

			var (
				account config.Account
				err     error
			)
			if flags.Profile != "" {
				account, err = config.LoadProfile(flags.Profile)
			} else {
				account, err = config.LoadAccount()
			}
			if err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					if isJSON(cmd) {
						return printJSON(cmd, map[string]any{
							"authenticated": false,
							"message":       "Not authenticated. Run 'tusk auth login' to configure credentials.",
						})
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not authenticated.")
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Run 'tusk auth login' to configure credentials.")
					return nil
				}
				return fmt.Errorf("failed to load credentials: %w", err)
			}

			profile := flags.Profile
			if profile == "" && !usingEnv {
				profile = firstNonEmpty(os.Getenv("TUSK_PROFILE"))
				if profile == "" {
					if current, err := config.CurrentProfile(); err == nil {
						profile = current
					}
				}
			}
			source := "keychain"
			if usingEnv {
				source = "env"
			}
			mode := account.AuthMode
			if mode == "" {
				mode = "bearer"
			}

			if isJSON(cmd) {
				payload := map[string]any{
					"authenticated": true,
					"api_url":       account.APIURL,
					"access_token":  maskToken(account.AccessToken),
					"auth_mode":     mode,
					"source":        source,
				}
				if profile != "" {
					payload["profile"] = profile
				}
				if profiles, err := config.ListProfiles(); err == nil && len(profiles) > 0 {
					payload["profiles"] = profiles
				}
				return printJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Authenticated")
			_, _ = fmt.Fprintf(out, "  API URL: %s\n", account.APIURL)
			_, _ = fmt.Fprintf(out, "  Access Token: %s\n", maskToken(account.AccessToken))
			_, _ = fmt.Fprintf(out, "  Auth Mode: %s\n", mode)
			if profile != "" {
				_, _ = fmt.Fprintf(out, "  Profile: %s\n", profile)
			}
			_, _ = fmt.Fprintf(out, "  Source: %s\n", source)
			return nil
		}),
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove credentials from keychain",
		Long:  "Delete a stored profile (the current one unless --profile is given).",
		Example: strings.TrimSpace(`
  tusk auth logout
  tusk auth logout --profile work`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profile := flags.Profile
			if profile == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return fmt.Errorf("failed to read current profile: %w", err)
				}
				profile = current
			}

			if _, err := config.LoadProfile(profile); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No credentials found.")
					return nil
				}
				return err
			}

			if err := config.DeleteProfile(profile); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s removed.\n", profile)
			return nil
		}),
	}
}
