// docloc translates the strings of structured localization files (YAML,
// JSON, TOML, INI, properties, XML, plain text, SNBT) through DeepL while
// leaving every other byte of the document untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/minios-linux/docloc/config"
	"github.com/minios-linux/docloc/format"
	"github.com/minios-linux/docloc/i18n"
	"github.com/minios-linux/docloc/langmeta"
	"github.com/minios-linux/docloc/lockfile"
	"github.com/minios-linux/docloc/translate"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// stderr receives log output. Tests replace it.
var stderr io.Writer = os.Stderr

var (
	colorRed    = color.New(color.FgRed)
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorBlue   = color.New(color.FgBlue)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(stderr, colorBlue.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(stderr, colorGreen.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(stderr, colorYellow.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(stderr, colorRed.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// setupColor enables colours only when stderr, where the logs go, is a
// terminal and NO_COLOR is unset.
func setupColor() {
	color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(stderr)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var cfgFile string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docloc",
		Short: "Translate structured localization files with DeepL",
		Long: `docloc: translate the strings of a structured document with DeepL.

Only string values are sent for translation. Keys, comments, numbers,
formatting codes (&a, §l, %s, {name}, <b>) and the layout of the file are
preserved. The output file is rewritten after every string, so it is always
a complete, valid document that shows the progress of the job.

Commands:
  translate   Translate one file
  formats     List supported file formats
  languages   List supported languages
  auth        Manage the stored DeepL API key
  version     Show version information

Configuration (highest priority first):
  command-line flags
  DOCLOC_* environment variables (DEEPL_API_KEY for the key)
  .env in the working directory
  .docloc.yaml in the working or home directory (or --config)
  the key stored by 'docloc auth login'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag: inherited by all subcommands
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .docloc.yaml in the working or home directory)")

	root.AddCommand(
		newTranslateCmd(),
		newFormatsCmd(),
		newLanguagesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	setupColor()
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docloc version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// formats / languages (read-only listings)
// ---------------------------------------------------------------------------

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported file formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, a := range format.All() {
				fmt.Fprintf(out, "  %-12s %s\n", a.Name(), strings.Join(a.Extensions(), ", "))
			}
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "languages",
		Aliases: []string{"langs"},
		Short:   "List supported languages",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, code := range langmeta.Codes() {
				m := langmeta.Resolve(code)
				fmt.Fprintf(out, "  %-8s %s %s\n", code, m.Flag, m.Name)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	input, output string
	format        string
	dryRun        bool
	diff          bool
	verbose       bool
	resume        bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate <input> [output]",
		Short: "Translate one file",
		Long: `Translate the strings of one file into the --to language.

The format is detected from the file extension unless --format is given.
Without an output path the result is written next to the input as
<name>.<lang>.<ext>. Strings that fail to translate keep their source text
and are reported; the command still exits 0 with a partial result.

Examples:
  # Translate a YAML locale into German
  docloc translate messages.yml --to de

  # Brazilian Portuguese, explicit source language and output path
  docloc translate strings.xml values-pt-rBR/strings.xml --from en --to pt-BR

  # Show what would be sent without calling DeepL
  docloc translate lang/en_us.properties --to fr --dry-run

  # Review the changes after translating
  docloc translate config.toml --to ja --diff

  # Continue an interrupted job, sending only what is still missing
  docloc translate messages.yml --to de --resume`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.input = args[0]
			if len(args) == 2 {
				a.output = args[1]
			}
			return runTranslate(cmd, a)
		},
	}

	// Languages
	cmd.Flags().String("from", "", "Source language (default: detected by DeepL)")
	cmd.Flags().String("to", "", "Target language (required), e.g. de, pt-BR, zh-Hant")

	// Service
	cmd.Flags().String("api-key", "", "DeepL API key (or DEEPL_API_KEY env var)")
	cmd.Flags().String("base-url", "", "Custom API base URL (default: chosen from the key)")
	cmd.Flags().Duration("timeout", translate.DefaultTimeout, "Request timeout")
	cmd.Flags().String("proxy", "", "HTTP/HTTPS proxy URL")

	// Behaviour
	cmd.Flags().StringVar(&a.format, "format", "", "Input format (default: detected from the extension)")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "List the strings that would be translated without calling DeepL")
	cmd.Flags().BoolVar(&a.diff, "diff", false, "Print a line diff of input and output when done")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Log every string as it moves through the pipeline")
	cmd.Flags().BoolVar(&a.resume, "resume", false, "Reuse strings of an existing output whose source is unchanged (tracked in "+lockfile.LockFileName+")")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, len(format.All()))
		for _, ad := range format.All() {
			completions = append(completions, fmt.Sprintf("%s\t%s", ad.Name(), strings.Join(ad.Extensions(), ", ")))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("to", completeLanguages)
	_ = cmd.RegisterFlagCompletionFunc("from", completeLanguages)

	return cmd
}

func completeLanguages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	codes := langmeta.Codes()
	completions := make([]string, 0, len(codes))
	for _, code := range codes {
		completions = append(completions, fmt.Sprintf("%s\t%s", code, langmeta.Resolve(code).Name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func runTranslate(cmd *cobra.Command, a translateArgs) error {
	cfg, err := config.Load(config.Options{ConfigFile: cfgFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	if cfg.ConfigFile != "" && a.verbose {
		logInfo("Using config file %s", cfg.ConfigFile)
	}

	if a.dryRun {
		if cfg.TargetLang != "" {
			if err := cfg.ValidateLanguages(); err != nil {
				return err
			}
		}
		return runDryRun(cmd.OutOrStdout(), a, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.output == "" {
		a.output = defaultOutputPath(a.input, a.format, cfg.TargetLang)
	}
	if samePath(a.input, a.output) {
		return fmt.Errorf("output %s would overwrite the input", a.output)
	}

	meta := langmeta.Resolve(cfg.TargetLang)
	logInfo(i18n.T("Translating %s into %s %s"), a.input, meta.Flag, meta.Name)
	if a.verbose {
		logInfo("API key from %s", cfg.KeySource)
	}

	client := translate.NewClient(cfg.APIKey, append(cfg.ClientOptions(), translate.WithLogger(logWarning))...)
	if a.verbose {
		logInfo("Endpoint: %s", client.BaseURL())
	}

	var cache translate.Cache
	if a.resume {
		lock, err := lockfile.Load(filepath.Dir(a.output))
		if err != nil {
			return err
		}
		if a.verbose {
			logInfo("Lock file %s: %s", lock.Path(), lock.Summary())
		}
		cache = lock
	}

	showBar := isTerminal(stderr) && !a.verbose
	driver := translate.NewDriver(client, translate.Options{
		Cache:   cache,
		Verbose: a.verbose,
		OnLog:   logInfo,
		OnWarn: func(format string, args ...any) {
			if showBar {
				fmt.Fprint(stderr, "\r\033[K")
			}
			logWarning(format, args...)
		},
		OnProgress: func(done, total int) {
			if !showBar {
				return
			}
			fmt.Fprintf(stderr, "\r  %s %d/%d", progressBar(done*100/total, 30), done, total)
			if done == total {
				fmt.Fprintln(stderr)
			}
		},
	})

	rep, err := driver.Run(context.Background(), translate.Job{
		InputPath:  a.input,
		OutputPath: a.output,
		Format:     a.format,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	})
	if err != nil {
		if errors.Is(err, format.ErrMalformedInput) {
			return fmt.Errorf("%w (use --format to override detection)", err)
		}
		return err
	}

	printSummary(rep)

	if a.diff {
		if err := showDiff(cmd.OutOrStdout(), a.input, a.output); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(rep *translate.Report) {
	logSuccess(i18n.T("Wrote %s: %d translated, %d skipped, %d failed of %d"),
		rep.OutputPath, rep.Applied, rep.Skipped, rep.Failed, rep.Total())
	if rep.Reused > 0 {
		logInfo(i18n.N("%d string reused from the previous output", "%d strings reused from the previous output", rep.Reused), rep.Reused)
	}
	if rep.Failed > 0 {
		logWarning(i18n.N(
			"%d string could not be translated and kept its source text",
			"%d strings could not be translated and kept their source text",
			rep.Failed), rep.Failed)
	}
}

func runDryRun(out io.Writer, a translateArgs, cfg *config.Config) error {
	driver := translate.NewDriver(nil, translate.Options{})
	rep, err := driver.Plan(translate.Job{
		InputPath:  a.input,
		OutputPath: a.output,
		Format:     a.format,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	})
	if err != nil {
		return err
	}

	width := 0
	for _, u := range rep.Units {
		width = max(width, len(u.Path))
	}
	for _, u := range rep.Units {
		marker := colorGreen.Sprint("translate")
		if u.Status == translate.StatusSkipped {
			marker = colorYellow.Sprint("skip     ")
		}
		fmt.Fprintf(out, "  %s  %-*s  %q\n", marker, width, u.Path, u.Source)
	}

	pending := rep.Total() - rep.Skipped
	logInfo(i18n.T("Dry run (%s): %d of %d strings would be sent to DeepL"), rep.Format, pending, rep.Total())
	if cfg.TargetLang != "" {
		output := a.output
		if output == "" {
			output = defaultOutputPath(a.input, a.format, cfg.TargetLang)
		}
		logInfo(i18n.T("Output would be written to %s"), output)
	}
	return nil
}

// defaultOutputPath inserts the target language before the extension:
// messages.yml -> messages.de.yml, en_us.nbt.txt -> en_us.pt-br.nbt.txt.
func defaultOutputPath(input, formatName, lang string) string {
	ext := filepath.Ext(input)
	if a, err := format.Resolve(formatName, input); err == nil {
		lower := strings.ToLower(input)
		for _, e := range a.Extensions() {
			if strings.HasSuffix(lower, e) && len(e) > len(ext) {
				ext = input[len(input)-len(e):]
			}
		}
	}
	return strings.TrimSuffix(input, ext) + "." + strings.ToLower(lang) + ext
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// progressBar renders percent (clamped to 0..100) as a coloured bar.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := colorYellow
	switch {
	case percent >= 100:
		paint = colorGreen
	case percent < 34:
		paint = colorRed
	}
	return paint.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

// ---------------------------------------------------------------------------
// Diff
// ---------------------------------------------------------------------------

// lineDiff compares two documents line by line.
func lineDiff(from, to string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// writeDiff prints the removed and added lines of diffs and returns how
// many lines changed.
func writeDiff(w io.Writer, fromName, toName string, diffs []diffmatchpatch.Diff) int {
	fmt.Fprintf(w, "--- %s\n+++ %s\n", fromName, toName)
	changed := 0
	for _, d := range diffs {
		var prefix string
		var paint *color.Color
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, paint = "-", colorRed
		case diffmatchpatch.DiffInsert:
			prefix, paint = "+", colorGreen
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprintln(w, paint.Sprint(prefix+line))
			changed++
		}
	}
	return changed
}

func showDiff(w io.Writer, input, output string) error {
	from, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	to, err := os.ReadFile(output)
	if err != nil {
		return fmt.Errorf("reading %s: %w", output, err)
	}
	if writeDiff(w, input, output, lineDiff(string(from), string(to))) == 0 {
		logInfo(i18n.T("No differences"))
	}
	return nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
