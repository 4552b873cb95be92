package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vtask/backend"
	"vtask/backend/vikunja"
	"vtask/internal/cache"
	"vtask/internal/config"
	"vtask/internal/credentials"
	"vtask/internal/quickadd"
	"vtask/internal/shutdown"
	"vtask/internal/tui"
	"vtask/internal/utils"
)

// Version is set at build time
var Version = "dev"

// cleanupTimeout bounds how long closing the cache and connections may take
const cleanupTimeout = 5 * time.Second

// Result codes for JSON output
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds injectable dependencies. The zero value uses the real
// environment.
type Config struct {
	ConfigPath string              // overrides the XDG config file
	Stdin      io.Reader           // defaults to os.Stdin
	Keyring    credentials.Keyring // defaults to the system keyring
	Getenv     func(string) string // defaults to os.Getenv
	Now        func() time.Time    // defaults to time.Now
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewVTask(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewVTask creates the root command with injectable IO
func NewVTask(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:   "vtask",
		Short: "Quick add tasks to a Vikunja server",
		Long: `vtask turns one line of text into a task. Words with a sigil become
fields: *label, +project, @user, !priority (1-5). Dates such as "tomorrow",
"next friday at 2pm", "in 3 days" or "17/02/2025" become the due date, and
"every 2 weeks" makes the task repeat.`,
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to config file")

	cmd.AddCommand(newParseCmd(stdout, cfg))
	cmd.AddCommand(newAddCmd(stdout, cfg))
	cmd.AddCommand(newTUICmd(stderr, cfg))
	cmd.AddCommand(newCredentialsCmd(stdout, cfg))
	cmd.AddCommand(newCacheCmd(stdout, cfg))

	return cmd
}

// loadConfig reads the config file and applies global flags
func loadConfig(cmd *cobra.Command, cfg *Config) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = cfg.ConfigPath
	}

	appCfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	format := ""
	if jsonOutput {
		format = "json"
	}
	appCfg.ApplyFlags(verbose, format)

	if err := appCfg.Validate(); err != nil {
		return nil, err
	}

	utils.SetVerboseMode(appCfg.Logging.Verbose)
	utils.Debugf("loaded config from %s", displayPath(path))
	return appCfg, nil
}

func displayPath(path string) string {
	if path == "" {
		return config.DefaultPath()
	}
	return path
}

func newParser(appCfg *config.Config, cfg *Config) *quickadd.QuickAddParser {
	opts := []quickadd.Option{
		quickadd.WithLocation(appCfg.GetLocation()),
		quickadd.WithNaturalLanguage(appCfg.IsNaturalLanguageEnabled()),
	}
	if cfg.Now != nil {
		opts = append(opts, quickadd.WithClock(cfg.Now))
	}
	return quickadd.New(opts...)
}

func newManager(cfg *Config) *credentials.Manager {
	var opts []credentials.ManagerOption
	if cfg.Keyring != nil {
		opts = append(opts, credentials.WithKeyring(cfg.Keyring))
	}
	if cfg.Getenv != nil {
		opts = append(opts, credentials.WithGetenv(cfg.Getenv))
	}
	return credentials.NewManager(opts...)
}

func stdin(cfg *Config) io.Reader {
	if cfg.Stdin != nil {
		return cfg.Stdin
	}
	return os.Stdin
}

// =============================================================================
// parse
// =============================================================================

type parseResponse struct {
	Input  string              `json:"input"`
	Task   quickadd.ParsedTask `json:"task"`
	Result string              `json:"result"`
}

func newParseCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text...>",
		Short: "Show what a quick add line parses to",
		Long:  "Parse a quick add line without contacting the server.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}

			input := strings.Join(args, " ")
			parsed := newParser(appCfg, cfg).Parse(input)
			utils.Debugf("parsed %q: %s", input, parsed.Summary())

			if appCfg.OutputFormat == "json" {
				return writeJSON(stdout, parseResponse{Input: input, Task: parsed, Result: ResultInfoOnly})
			}
			printParsed(stdout, parsed, appCfg.GetLocation())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func printParsed(w io.Writer, p quickadd.ParsedTask, loc *time.Location) {
	_, _ = fmt.Fprintf(w, "Title:     %s\n", p.Title)
	if p.Project != nil {
		_, _ = fmt.Fprintf(w, "Project:   %s\n", *p.Project)
	}
	if p.Priority != nil {
		_, _ = fmt.Fprintf(w, "Priority:  %d\n", *p.Priority)
	}
	if p.DueDate != nil {
		_, _ = fmt.Fprintf(w, "Due:       %s\n", p.DueDate.In(loc).Format("Mon 2006-01-02 15:04"))
	}
	if p.Repeat != nil {
		_, _ = fmt.Fprintf(w, "Repeat:    %s\n", p.Repeat)
	}
	if len(p.Labels) > 0 {
		_, _ = fmt.Fprintf(w, "Labels:    %s\n", strings.Join(p.Labels, ", "))
	}
	if len(p.Assignees) > 0 {
		_, _ = fmt.Fprintf(w, "Assignees: %s\n", strings.Join(p.Assignees, ", "))
	}
}

// =============================================================================
// add
// =============================================================================

type actionResponse struct {
	Action string        `json:"action"`
	Task   *backend.Task `json:"task"`
	Result string        `json:"result"`
}

func newAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Create a task from a quick add line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}

			input := strings.Join(args, " ")
			parsed := newParser(appCfg, cfg).Parse(input)
			if parsed.Title == "" {
				return utils.ErrEmptyTitle(input)
			}

			project, _ := cmd.Flags().GetString("project")
			if project == "" {
				project = appCfg.DefaultProject
			}

			sm := newShutdownManager()
			defer closeShutdownManager(sm)
			ctx := sm.Context()

			be, err := openBackend(appCfg, cfg, sm)
			if err != nil {
				return err
			}

			task, err := be.CreateFromParsed(ctx, parsed, project)
			if err != nil {
				return err
			}

			if appCfg.OutputFormat == "json" {
				return writeJSON(stdout, actionResponse{Action: "add", Task: task, Result: ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(stdout, "Created task %s\n", describeTask(task, appCfg.GetLocation()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("project", "p", "", "Project used when the line has no +project")
	return cmd
}

func describeTask(t *backend.Task, loc *time.Location) string {
	ref := t.Identifier
	if ref == "" {
		ref = fmt.Sprintf("#%d", t.ID)
	}
	s := fmt.Sprintf("%s %q", ref, t.Title)
	if t.DueDate != nil {
		s += " due " + t.DueDate.In(loc).Format("Mon 2006-01-02 15:04")
	}
	return s
}

// openBackend connects to the configured server with the stored token and
// registers its cleanups with sm. The lookup cache is optional: if it cannot
// be opened the backend runs without it.
func openBackend(appCfg *config.Config, cfg *Config, sm *shutdown.Manager) (*vikunja.Backend, error) {
	if !appCfg.IsServerConfigured() {
		return nil, utils.ErrServerNotConfigured()
	}

	token, err := newManager(cfg).Token(sm.Context(), vikunja.BackendName, appCfg.Server.Username)
	if err != nil {
		return nil, err
	}

	vcfg := vikunja.Config{
		BaseURL:  appCfg.Server.URL,
		APIToken: token,
	}

	if appCfg.IsCacheEnabled() {
		lookups, err := cache.Open(appCfg.GetCachePath(), appCfg.GetCacheTTLDuration())
		if err != nil {
			utils.Warnf("lookup cache disabled: %v", err)
		} else {
			vcfg.Cache = lookups
			sm.RegisterCleanup("lookup cache", func(context.Context) error {
				return lookups.Close()
			})
		}
	}

	be, err := vikunja.New(vcfg)
	if err != nil {
		return nil, err
	}
	sm.RegisterCleanup("backend", func(context.Context) error {
		return be.Close()
	})
	return be, nil
}

// newShutdownManager cancels the command context on SIGINT or SIGTERM.
func newShutdownManager() *shutdown.Manager {
	sm := shutdown.NewManager(context.Background())
	stop := sm.HandleSignals(os.Interrupt, syscall.SIGTERM)
	sm.RegisterCleanup("signals", func(context.Context) error {
		stop()
		return nil
	})
	return sm
}

func closeShutdownManager(sm *shutdown.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := sm.Close(ctx); err != nil {
		utils.Debugf("cleanup: %v", err)
	}
}

// =============================================================================
// tui
// =============================================================================

// backendSubmitter adapts the backend to the quick add prompt
type backendSubmitter struct {
	be      *vikunja.Backend
	project string
}

func (s *backendSubmitter) Submit(ctx context.Context, parsed quickadd.ParsedTask) (*backend.Task, error) {
	return s.be.CreateFromParsed(ctx, parsed, s.project)
}

func newTUICmd(stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive quick add prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("the quick add prompt needs an interactive terminal; use 'vtask add' instead")
			}

			appCfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}

			project, _ := cmd.Flags().GetString("project")
			if project == "" {
				project = appCfg.DefaultProject
			}

			sm := newShutdownManager()
			defer closeShutdownManager(sm)
			ctx := sm.Context()

			be, err := openBackend(appCfg, cfg, sm)
			if err != nil {
				return err
			}

			bgLog, err := utils.NewBackgroundLoggerWithEnabled(appCfg.IsBackgroundLoggingEnabled())
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Warning: background log unavailable: %v\n", err)
			}

			// The screen belongs to the prompt until it exits.
			utils.SetOutput(bgLog)
			sm.RegisterCleanup("background log", func(context.Context) error {
				utils.SetOutput(nil)
				bgLog.Close()
				return nil
			})

			model := tui.New(
				newParser(appCfg, cfg),
				&backendSubmitter{be: be, project: project},
				tui.WithLogger(bgLog),
				tui.WithLocation(appCfg.GetLocation()),
				tui.WithContext(ctx),
			)

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run TUI: %w", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("project", "p", "", "Project used when the line has no +project")
	return cmd
}

// =============================================================================
// credentials
// =============================================================================

func newCredentialsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the server API token",
		Long:  "Store, inspect and remove the API token in the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	credentialsCmd.AddCommand(newCredentialsSetCmd(stdout, cfg))
	credentialsCmd.AddCommand(newCredentialsGetCmd(stdout, cfg))
	credentialsCmd.AddCommand(newCredentialsDeleteCmd(stdout, cfg))

	return credentialsCmd
}

// credentialsUser picks the account name from args or server.username
func credentialsUser(cmd *cobra.Command, cfg *Config, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	appCfg, err := loadConfig(cmd, cfg)
	if err != nil {
		return "", err
	}
	if appCfg.Server.Username == "" {
		return "", utils.WrapWithSuggestion(
			errors.New("no username given"),
			"Pass a username or set server.username in your config file",
		)
	}
	return appCfg.Server.Username, nil
}

func newCredentialsSetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set [username]",
		Short: "Store the API token in the system keyring",
		Long:  "Prompt for the API token and store it in the system keyring (macOS Keychain, Windows Credential Manager, or Linux Secret Service).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := credentialsUser(cmd, cfg, args)
			if err != nil {
				return err
			}
			handler := credentials.NewCLIHandler(newManager(cfg), stdin(cfg), stdout)
			return handler.Set(context.Background(), vikunja.BackendName, username)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newCredentialsGetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get [username]",
		Short: "Show where the API token is found",
		Long:  "Look the token up in the keyring, then the environment, and show the source.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := credentialsUser(cmd, cfg, args)
			if err != nil {
				return err
			}
			jsonOutput, _ := cmd.Flags().GetBool("json")
			handler := credentials.NewCLIHandler(newManager(cfg), nil, stdout)
			return handler.Get(context.Background(), vikunja.BackendName, username, jsonOutput)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newCredentialsDeleteCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [username]",
		Short: "Remove the API token from the system keyring",
		Long:  "Remove the stored token from the system keyring. Environment variables are not affected.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := credentialsUser(cmd, cfg, args)
			if err != nil {
				return err
			}
			handler := credentials.NewCLIHandler(newManager(cfg), nil, stdout)
			return handler.Delete(context.Background(), vikunja.BackendName, username)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// =============================================================================
// cache
// =============================================================================

func newCacheCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the project, label and user lookup cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached lookup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			return doCacheClear(context.Background(), appCfg, cfg, yes, stdout)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}

func doCacheClear(ctx context.Context, appCfg *config.Config, cfg *Config, yes bool, stdout io.Writer) error {
	path := appCfg.GetCachePath()
	jsonOutput := appCfg.OutputFormat == "json"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if jsonOutput {
			return writeJSON(stdout, map[string]interface{}{"removed": 0, "result": ResultInfoOnly})
		}
		_, _ = fmt.Fprintln(stdout, "Cache is empty")
		return nil
	}

	if !yes && !jsonOutput {
		if !utils.PromptYesNo(fmt.Sprintf("Clear lookup cache at %s?", path), stdin(cfg), stdout) {
			_, _ = fmt.Fprintln(stdout, "Cancelled")
			return nil
		}
	}

	c, err := cache.Open(path, appCfg.GetCacheTTLDuration())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	n, err := c.Clear(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	if jsonOutput {
		return writeJSON(stdout, map[string]interface{}{"removed": n, "result": ResultActionCompleted})
	}
	_, _ = fmt.Fprintf(stdout, "Removed %d cached lookups\n", n)
	return nil
}

// =============================================================================
// JSON output
// =============================================================================

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

func writeJSON(stdout io.Writer, v interface{}) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	response := errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	}

	jsonBytes, _ := json.Marshal(response)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}
