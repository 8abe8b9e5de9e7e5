package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nickyhof/BlockIndex"
	"github.com/nickyhof/BlockIndex/config"
	"github.com/nickyhof/BlockIndex/core"
	"github.com/nickyhof/BlockIndex/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

var errQuit = errors.New("quit")

// CLI holds the CLI state
type CLI struct {
	persistence *ps.Persistence
	indexes     *ps.IndexManager
	out         io.Writer
	history     *commandHistory
	database    string // current database context
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	baseDir := flag.String("baseDir", "", "Base directory for the repository (overrides storage.path)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the repository from (overrides storage.git_url)")
	scriptFile := flag.String("file", "", "Command file to execute (non-interactive)")
	userName := flag.String("name", "", "User name for Git commits")
	userEmail := flag.String("email", "", "User email for Git commits")
	capacity := flag.Int("capacity", 0, "Block capacity of new indexes")
	logLevel := flag.String("log", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("%sError loading config: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	applyFlags(cfg, *baseDir, *gitUrl, *userName, *userEmail, *logLevel, *capacity)

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := cfg.LogLevel()
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	logger.SetLevel(level)

	var persistence *ps.Persistence
	if cfg.Storage.Path == "" {
		persistence, err = ps.NewMemoryPersistence()
	} else {
		persistence, err = ps.NewFilePersistence(cfg.Storage.Path, cfg.Storage.GitURL)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	instance := BlockIndex.Open(persistence)
	cli := &CLI{
		persistence: persistence,
		indexes: instance.Indexes(
			core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email},
			ps.WithBlockCapacity(cfg.Index.BlockCapacity),
			ps.WithRemote(ps.RemoteConfig(cfg.Remote)),
			ps.WithLogger(logger),
		),
		out:     os.Stdout,
		history: newCommandHistory(defaultHistoryPath()),
	}
	if err := cli.history.load(); err != nil {
		logger.WithError(err).Warn("Could not read command history")
	}

	if *scriptFile != "" {
		if err := cli.importFile(*scriptFile); err != nil {
			fmt.Printf("%sError running file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	printBanner(cli.out, cfg)
	cli.run(os.Stdin)
	if err := cli.history.save(); err != nil {
		logger.WithError(err).Warn("Could not write command history")
	}
}

// applyFlags lets non-empty command line flags override the config file
func applyFlags(cfg *config.Config, baseDir, gitUrl, name, email, level string, capacity int) {
	if baseDir != "" {
		cfg.Storage.Path = baseDir
	}
	if gitUrl != "" {
		cfg.Storage.GitURL = gitUrl
	}
	if name != "" {
		cfg.Identity.Name = name
	}
	if email != "" {
		cfg.Identity.Email = email
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if capacity > 0 {
		cfg.Index.BlockCapacity = capacity
	}
}

// printBanner prints the version and the storage the shell is attached to
func printBanner(w io.Writer, cfg *config.Config) {
	storage := "in-memory repository"
	if cfg.Storage.Path != "" {
		storage = "repository at " + cfg.Storage.Path
	}
	title := fmt.Sprintf("BlockIndex %s", Version)
	fmt.Fprintf(w, "\n%s%s%s%s\n", BoldColor, PromptColor, title, ResetColor)
	fmt.Fprintf(w, "%s%s%s\n", PromptColor, strings.Repeat("─", len(title)), ResetColor)
	fmt.Fprintf(w, "%s, blocks of %d entries\n", storage, cfg.Index.BlockCapacity)
	fmt.Fprintf(w, "Enter .help for commands, .quit to leave\n\n")
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(cli.out, cli.getPrompt())

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		cli.history.add(input)

		if err := cli.execute(input); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
				return
			}
			fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		}
	}
}

func (cli *CLI) getPrompt() string {
	dbPart := ""
	if cli.database != "" {
		dbPart = fmt.Sprintf(" (%s)", cli.database)
	}
	return fmt.Sprintf("%sblockindex%s>%s ", PromptColor, dbPart, ResetColor)
}

func (cli *CLI) printHistory() {
	if cli.history.len() == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}
	entries, first := cli.history.recent(20)
	for i, cmd := range entries {
		fmt.Fprintf(cli.out, "  %3d  %s\n", first+i, cmd)
	}
}

// importFile runs the commands of a file, one per line or separated by
// semicolons. Lines starting with -- are comments.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0
	for i, stmt := range splitStatements(string(data)) {
		if err := cli.execute(stmt); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)
	return nil
}

// splitStatements splits a script into commands on semicolons and newlines,
// skipping -- comments. Separators inside quotes are kept.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			flush()
			continue
		}

		if !inString && (ch == ';' || ch == '\n') {
			flush()
			continue
		}

		current.WriteByte(ch)
	}
	flush()

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
