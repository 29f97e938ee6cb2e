package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/vanderheijden86/treegrid/pkg/config"
	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/loader"
	"github.com/vanderheijden86/treegrid/pkg/model"
	"github.com/vanderheijden86/treegrid/pkg/treetable"
	"github.com/vanderheijden86/treegrid/pkg/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// flags holds the parsed command line.
type flags struct {
	configPath string
	exportFile string
	robotRows  bool
	print      bool
	expandAll  bool
	depth      int
	noWatch    bool
	noState    bool
	initConfig bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("tg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "Use this config file instead of searching for .treegrid/config.yaml")
	fs.StringVar(&f.exportFile, "export-md", "", "Export the visible rows to a Markdown file (e.g., outline.md)")
	fs.BoolVar(&f.robotRows, "robot-rows", false, "Output the visible rows as JSON for scripts and agents")
	fs.BoolVar(&f.print, "print", false, "Print the visible rows as Markdown instead of starting the TUI")
	fs.BoolVar(&f.expandAll, "expand-all", false, "Expand every node")
	fs.IntVar(&f.depth, "depth", -1, "Expand nodes shallower than N (overrides default_expand_depth)")
	fs.BoolVar(&f.noWatch, "no-watch", false, "Do not reload the document when it changes on disk")
	fs.BoolVar(&f.noState, "no-state", false, "Neither restore nor save the expansion state")
	fs.BoolVar(&f.initConfig, "init-config", false, "Write an example .treegrid/config.yaml next to FILE and exit")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tg [options] FILE")
		fmt.Fprintln(stderr, "\nBrowse and edit a YAML or JSON outline as a tree table.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	if f.version {
		fmt.Fprintf(stdout, "tg %s\n", version)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if f.initConfig {
		written, err := config.WriteExample(filepath.Dir(path))
		if err != nil {
			fmt.Fprintf(stderr, "Error writing config: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Wrote %s\n", written)
		return 0
	}

	cfg, err := resolveConfig(f.configPath, filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", path, err)
		return 1
	}
	doc, err := loader.Decode(path, data)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", path, err)
		return 1
	}

	depth := cfg.ExpandDepth()
	if f.depth >= 0 {
		depth = f.depth
	}
	opts := []treetable.Option{
		treetable.WithLayout(cfg.Layout()),
		treetable.WithDefaultExpandDepth(depth),
	}

	var state *treetable.TreeState
	if !f.noState {
		state, err = treetable.LoadTreeState(cfg.StatePath())
		if err != nil {
			log.Printf("warning: ignoring tree state: %v", err)
			state = nil
		}
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	interactive := isTerminal(stdout) && !f.print
	if f.robotRows || f.exportFile != "" || !interactive {
		t, err := treetable.New(doc.Tree, doc.Projection(), opts...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if state != nil {
			t.RestoreState(state, model.NodeKey)
		}
		if f.expandAll {
			t.ExpandAll()
		}
		switch {
		case f.robotRows:
			if err := export.RowsJSON(stdout, t); err != nil {
				fmt.Fprintf(stderr, "Error encoding rows: %v\n", err)
				return 1
			}
		case f.exportFile != "":
			if err := export.SaveMarkdownToFile(t, f.exportFile, title); err != nil {
				fmt.Fprintf(stderr, "Error exporting: %v\n", err)
				return 1
			}
			fmt.Fprintf(stdout, "Exported %d rows to %s\n", t.RowCount(), f.exportFile)
		default:
			if err := printMarkdown(stdout, t, title); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
		return 0
	}

	return runTUI(doc, data, cfg, f, opts, state, stderr)
}

func runTUI(doc *loader.Document, data []byte, cfg *config.Config, f *flags, opts []treetable.Option, state *treetable.TreeState, stderr io.Writer) int {
	if logPath := os.Getenv("TREEGRID_LOG"); logPath != "" {
		lf, err := tea.LogToFile(logPath, "tg")
		if err != nil {
			fmt.Fprintf(stderr, "Error opening log: %v\n", err)
			return 1
		}
		defer lf.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		DocPath:       doc.Path,
		DebounceDelay: cfg.Debounce(),
		Watch:         cfg.WatchEnabled() && !f.noWatch,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error watching %s: %v\n", doc.Path, err)
		return 1
	}
	worker.MarkWritten(data)
	defer worker.Stop()

	m, err := ui.NewModel(doc, ui.Options{
		TableOptions: opts,
		State:        state,
		ExpandAll:    f.expandAll,
		Worker:       worker,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	worker.SetProgram(p)
	if err := worker.Start(); err != nil {
		log.Printf("warning: file watching disabled: %v", err)
	}
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(stderr, "Error running treegrid: %v\n", err)
		return 1
	}
	fm, ok := final.(ui.Model)
	if !ok {
		return 0
	}

	if fm.Dirty() && isTerminal(os.Stdin) {
		if err := confirmSave(fm.Document()); err != nil && !errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintf(stderr, "Error saving: %v\n", err)
		}
	}
	if !f.noState {
		saveState(cfg, fm.SnapshotState())
	}
	return 0
}

func resolveConfig(path, docDir string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.Resolve(docDir)
}

// saveState persists expansion and keeps the default state directory out of git.
func saveState(cfg *config.Config, st *treetable.TreeState) {
	if err := treetable.SaveTreeState(cfg.StatePath(), st); err != nil {
		log.Printf("warning: saving tree state: %v", err)
		return
	}
	if cfg.StateDir == config.ConfigDirName {
		if err := loader.EnsureIgnored(cfg.Dir(), config.ConfigDirName); err != nil {
			log.Printf("warning: updating .gitignore: %v", err)
		}
	}
}

// confirmSave asks whether unsaved edits should be written before exiting.
func confirmSave(doc *loader.Document) error {
	save := true
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Save changes to %s?", filepath.Base(doc.Path))).
		Affirmative("Save").
		Negative("Discard").
		Value(&save).
		Run()
	if err != nil {
		return err
	}
	if !save {
		return nil
	}
	return loader.Save(doc)
}

// printMarkdown writes the view as Markdown, rendered with glamour when w is
// a terminal.
func printMarkdown(w io.Writer, t *treetable.TreeTable, title string) error {
	content, err := export.GenerateMarkdown(t, title)
	if err != nil {
		return err
	}
	if file, ok := w.(*os.File); ok && isTerminal(file) {
		width := 100
		if cols, _, err := term.GetSize(int(file.Fd())); err == nil && cols > 0 {
			width = cols
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			if out, err := r.Render(content); err == nil {
				content = out
			}
		}
	}
	_, err = io.WriteString(w, content)
	return err
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
