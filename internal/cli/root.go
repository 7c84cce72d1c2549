// Package cli implements the provstore command line tool.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/provstore/provstore_sdk_go/pkg/provstore"
)

type app struct {
	baseURL    string
	username   string
	apiKey     string
	configPath string
	promptKey  bool
	verbose    bool

	backend provstore.Backend
	stdin   io.Reader
	client  *provstore.Client
}

// Option customises the root command. Used by tests.
type Option func(*app)

// WithBackend makes every command use b instead of the HTTP backend.
func WithBackend(b provstore.Backend) Option {
	return func(a *app) {
		a.backend = b
	}
}

// WithInput replaces standard input for file arguments given as "-" and for
// the API key prompt.
func WithInput(r io.Reader) Option {
	return func(a *app) {
		a.stdin = r
	}
}

// NewRootCommand builds the provstore command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{stdin: os.Stdin}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "provstore",
		Short:         "Work with documents on a ProvStore server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", "API base URL (default $PROVSTORE_API_URL or the public store)")
	flags.StringVarP(&a.username, "username", "u", "", "account name (default $PROVSTORE_USERNAME)")
	flags.StringVar(&a.apiKey, "api-key", "", "API key (default $PROVSTORE_API_KEY)")
	flags.BoolVar(&a.promptKey, "prompt-key", false, "read the API key from the terminal")
	flags.StringVar(&a.configPath, "config", "", "TOML config file (default ~/.provstore/config.toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		a.createCommand(),
		a.getCommand(),
		a.provCommand(),
		a.deleteCommand(),
		a.bundlesCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		if errors.Is(err, provstore.ErrNotFound) {
			return 2
		}
		return 1
	}
	return 0
}

func (a *app) connect(cmd *cobra.Command) error {
	path, explicit := a.configPath, a.configPath != ""
	if !explicit {
		path = defaultConfigPath()
	}
	fileCfg, err := loadFileConfig(path, explicit)
	if err != nil {
		return err
	}
	fileCfg.merge(&a.baseURL, &a.username, &a.apiKey)

	if a.promptKey {
		key, err := a.readKey(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.apiKey = key
	}

	level := hclog.Warn
	if a.verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "provstore",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})

	opts := []provstore.Option{provstore.WithLogger(logger)}
	if a.backend != nil {
		opts = append(opts, provstore.WithBackend(a.backend))
	}
	client, err := provstore.New(provstore.Config{
		BaseURL:  a.baseURL,
		Username: a.username,
		APIKey:   a.apiKey,
	}, opts...)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// readKey reads the API key without echo when stdin is a terminal.
func (a *app) readKey(prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "API key: ")
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read API key: %w", err)
		}
		return strings.TrimSpace(string(key)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readInput reads a file argument, "-" meaning standard input.
func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func parseDocumentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return id, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
