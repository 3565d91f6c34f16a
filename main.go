package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/background"
	"github.com/lotas/tabcounter/internal/bridge"
	"github.com/lotas/tabcounter/internal/config"
	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/export"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/server"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/storage"
	"github.com/lotas/tabcounter/internal/tui"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/lotas/tabcounter/internal/version"
	"github.com/lotas/tabcounter/internal/watch"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// localCaps describes the terminal and file outputs of the offline commands.
var localCaps = settings.StaticCapabilities{TextColor: true}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "count":
			runCount(os.Args[2:])
			return
		case "settings":
			runSettings(os.Args[2:])
			return
		case "config":
			runConfig(os.Args[2:])
			return
		case "watch":
			runWatch(os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "version", "--version":
			fmt.Println("tabcounter", version.Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
		if !strings.HasPrefix(os.Args[1], "-") {
			fmt.Fprintf(os.Stderr, "Unknown command %q. Run 'tabcounter help'.\n", os.Args[1])
			os.Exit(1)
		}
	}
	runServe(os.Args[1:])
}

func printHelp() {
	fmt.Print(`tabcounter: tab counter badge for Firefox

Usage:
  tabcounter [serve]                                   Serve the extension (default)
    --port <n>             WebSocket port (default: 19192)
    --db <path>            Settings database
    --debug                Log debug events
    --log-stderr           Log to stderr instead of the log file

  tabcounter count                                     Count tabs of a profile's session file
    --profile <name>       Firefox profile name
    --counter <mode>       Override the stored counter mode
    --json                 Output JSON instead of markdown
    --out <file>           Output file path (default: stdout)

  tabcounter watch [--profile X]                       Show the badge in the terminal, following
                                                       the session file

  tabcounter settings show                             Print the effective settings
  tabcounter settings set key=value...                 Change stored settings
  tabcounter settings reset                            Delete the stored settings
  tabcounter settings import <file>                    Store and migrate a JSON settings record
  tabcounter settings history [n]                      List previously saved records

  tabcounter config show                               Print the effective configuration
  tabcounter config init                               Write the defaults to the config file

  tabcounter profiles                                  List Firefox profiles
  tabcounter version                                   Print the version

Counter modes:
  currentWindow, allWindows, windowAndAll, numberOfWindows, none

Environment:
  TABCOUNTER_PORT, TABCOUNTER_DB_PATH, TABCOUNTER_LOG_DIR, TABCOUNTER_PROFILE,
  TABCOUNTER_DEBUG, TABCOUNTER_STARTUP_GRACE, TABCOUNTER_SETTLE,
  TABCOUNTER_PRIORITY_SETTLE, TABCOUNTER_REMOVAL_DELAY, TABCOUNTER_FORCE_POLL
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	return cfg
}

func backgroundOptions(cfg config.Config) background.Options {
	return background.Options{
		Version:      settings.MustParseVersion(version.Version),
		Timing:       cfg.Timing(),
		StartupGrace: cfg.StartupGrace,
	}
}

func openStore(path string) (*storage.SettingsStore, func(), error) {
	db, err := storage.OpenDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings database: %w", err)
	}
	return storage.NewSettingsStore(db), func() { db.Close() }, nil
}

func runServe(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "WebSocket port")
	dbPath := fs.String("db", cfg.DBPath, "Settings database")
	debug := fs.Bool("debug", cfg.Debug, "Log debug events")
	logStderr := fs.Bool("log-stderr", false, "Log to stderr instead of the log file")
	fs.Parse(args)

	if *logStderr {
		applog.InitWriter(os.Stderr)
	} else if err := applog.Init(cfg.LogDir); err != nil {
		fatal(fmt.Errorf("open log: %w", err))
	}
	defer applog.Close()
	applog.SetDebug(*debug)

	store, closeDB, err := openStore(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(*port)
	br := bridge.New(srv)
	bg := background.New(br, store, backgroundOptions(cfg))
	defer bg.Close()

	// `tabcounter settings set` writes from another process; treat that like
	// the options page's update signal. The daemon's own writes are filtered
	// out by the background.
	w, err := watch.New(*dbPath,
		watch.WithSiblings("-wal"),
		watch.WithOnChange(func() {
			if !srv.Connected() {
				return
			}
			if err := bg.HandleStoreChange(ctx); err != nil {
				applog.Error("serve.settingsChanged", err)
			}
		}),
		watch.WithOnError(func(err error) { applog.Error("serve.watch", err) }),
	)
	if err != nil {
		fatal(err)
	}
	if err := w.Start(); err != nil {
		fatal(err)
	}
	defer w.Stop()

	applog.Info("serve.start", "port", *port, "db", *dbPath, "version", version.Version)
	fmt.Fprintf(os.Stderr, "Waiting for the extension on port %d...\n", *port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return br.Run(gctx, bg) })
	if err := g.Wait(); err != nil {
		fatal(err)
	}
}

func runCount(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	profileName := fs.String("profile", cfg.Profile, "Firefox profile name")
	mode := fs.String("counter", "", "Counter mode (default: stored setting)")
	jsonFlag := fs.Bool("json", false, "Output JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	dbPath := fs.String("db", cfg.DBPath, "Settings database")
	fs.Parse(args)

	ctx := context.Background()
	profile, err := resolveProfile(*profileName)
	if err != nil {
		fatal(err)
	}
	inv := firefox.NewSessionInventory(profile)
	if err := inv.Reload(); err != nil {
		fatal(err)
	}

	store, closeDB, err := openStore(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()
	s, err := settings.Load(ctx, store, settings.MustParseVersion(version.Version), localCaps)
	if err != nil {
		fatal(err)
	}
	if *mode != "" {
		if s.CounterMode, err = settings.ParseCounterMode(*mode); err != nil {
			fatal(err)
		}
	}

	snap, err := counter.Take(ctx, inv, s, inv.HidingTabs())
	if err != nil {
		fatal(err)
	}
	report := export.NewReport(inv.Data(), s, snap)

	var output string
	if *jsonFlag {
		output, err = export.JSON(report)
		if err != nil {
			fatal(fmt.Errorf("generating JSON: %w", err))
		}
	} else {
		output = export.Markdown(report)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0o644); err != nil {
			fatal(fmt.Errorf("writing file: %w", err))
		}
		return
	}
	fmt.Print(output)
}

func runWatch(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	profileName := fs.String("profile", cfg.Profile, "Firefox profile name (skips picker)")
	dbPath := fs.String("db", cfg.DBPath, "Settings database")
	fs.Parse(args)

	// The terminal belongs to the TUI, so logs go to the file only.
	if err := applog.Init(cfg.LogDir); err == nil {
		defer applog.Close()
		applog.SetDebug(cfg.Debug)
	}

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal(fmt.Errorf("discovering Firefox profiles: %w", err))
	}
	store, closeDB, err := openStore(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	renderer := tui.NewRenderer()
	model := tui.NewModel(profiles, *profileName, store, backgroundOptions(cfg), renderer)
	p := tea.NewProgram(model, tea.WithAltScreen())
	renderer.Attach(p.Send)

	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		m.Close()
	}
	if err != nil {
		fatal(err)
	}
}

func runSettings(args []string) {
	cfg := loadConfig()
	if len(args) == 0 {
		args = []string{"show"}
	}
	subcmd, subArgs := args[0], args[1:]

	store, closeDB, err := openStore(cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	ctx := context.Background()
	current := settings.MustParseVersion(version.Version)

	switch subcmd {
	case "show":
		s, err := settings.Load(ctx, store, current, localCaps)
		if err != nil {
			fatal(err)
		}
		printJSON(s)

	case "set":
		if len(subArgs) == 0 {
			fatal(fmt.Errorf("usage: tabcounter settings set key=value..."))
		}
		s, err := settings.Update(ctx, store, current, localCaps, func(rec *settings.Record) error {
			for _, kv := range subArgs {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", kv)
				}
				if err := rec.Set(key, value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			fatal(err)
		}
		printJSON(s)

	case "reset":
		if err := store.Reset(ctx); err != nil {
			fatal(err)
		}
		fmt.Println("Settings reset. Defaults apply on the next start.")

	case "import":
		if len(subArgs) != 1 {
			fatal(fmt.Errorf("usage: tabcounter settings import <file>"))
		}
		data, err := os.ReadFile(subArgs[0])
		if err != nil {
			fatal(err)
		}
		var rec settings.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			fatal(fmt.Errorf("parse %s: %w", subArgs[0], err))
		}
		if err := store.Save(ctx, rec); err != nil {
			fatal(err)
		}
		s, err := settings.Reconcile(ctx, store, current, localCaps)
		if err != nil {
			fatal(err)
		}
		printJSON(s)

	case "history":
		limit := 10
		if len(subArgs) > 0 {
			if limit, err = strconv.Atoi(subArgs[0]); err != nil || limit < 1 {
				fatal(fmt.Errorf("invalid history limit %q", subArgs[0]))
			}
		}
		entries, err := store.History(ctx, limit)
		if err != nil {
			fatal(err)
		}
		if len(entries) == 0 {
			fmt.Println("No saved settings.")
			return
		}
		for _, e := range entries {
			mode := "-"
			if e.Record.CounterMode != nil {
				mode = *e.Record.CounterMode
			}
			fmt.Printf("  %d  %s  v%s  counter=%s\n", e.ID, e.SavedAt.Local().Format("2006-01-02 15:04"), e.Version, mode)
		}

	default:
		fatal(fmt.Errorf("unknown settings command %q; use show, set, reset, import or history", subcmd))
	}
}

func runConfig(args []string) {
	subcmd := "show"
	if len(args) > 0 {
		subcmd = args[0]
	}
	switch subcmd {
	case "show":
		cfg := loadConfig()
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("# %s\n%s", config.ConfigPath(), data)
	case "init":
		path := config.ConfigPath()
		if _, err := os.Stat(path); err == nil {
			fatal(fmt.Errorf("%s already exists", path))
		}
		if err := config.Save(path, config.Default()); err != nil {
			fatal(err)
		}
		fmt.Println("Wrote", path)
	default:
		fatal(fmt.Errorf("unknown config command %q; use show or init", subcmd))
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal(fmt.Errorf("discovering Firefox profiles: %w", err))
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// resolveProfile discovers profiles and picks the named one, or the default.
func resolveProfile(name string) (types.Profile, error) {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return types.Profile{}, fmt.Errorf("discover profiles: %w", err)
	}
	return firefox.PickProfile(profiles, name)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}
