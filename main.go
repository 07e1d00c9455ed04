// Package main provides the entry point for the narrator CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/config"
	"github.com/dgnsrekt/narrator/internal/engine"
	"github.com/dgnsrekt/narrator/internal/manifest"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/timeline"
	"github.com/dgnsrekt/narrator/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	noWatch    bool
	mouse      bool

	cfg    *config.Config
	envCfg config.Env

	rootCmd = &cobra.Command{
		Use:   "narrator MANIFEST",
		Short: "Play narrated documents in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nPlay a %s of narrated segments as one continuous recording, with word highlighting, seeking and section toggles.", keyword("manifest")),
		),
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: validateOptions,
		RunE:              execute,
	}
)

func validateOptions(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("config") {
		path, err := homedir.Expand(configFile)
		if err != nil {
			return fmt.Errorf("unable to expand path: %w", err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config: %w", err)
		}
		log.Debug("Using configuration file", "path", path)
	}

	var err error
	cfg, err = config.Decode(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	envCfg, err = config.ParseEnv()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}

	level, _ := log.ParseLevel(cfg.Log.Level)
	if envCfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	return nil
}

// session holds everything built from a manifest.
type session struct {
	path     string
	manifest *manifest.Manifest
	store    *timeline.Store
	cache    *cache.Tiered
	assemble *assemble.Assembler
}

func openSession(arg string) (*session, error) {
	path, err := homedir.Expand(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to expand path: %w", err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	store, err := timeline.NewStore(m.TimelineSegments())
	if err != nil {
		return nil, err
	}

	base := m.BaseURL
	if base == "" {
		base = filepath.Dir(path)
	}
	resolver, err := assemble.NewResolver(base)
	if err != nil {
		return nil, err
	}

	s := &session{path: path, manifest: m, store: store}
	var segCache cache.Store
	if cfg.Cache.Enabled {
		dir, err := segmentCacheDir()
		if err != nil {
			log.Warn("no cache directory, using memory only", "err", err)
		}
		s.cache, err = cache.New(cfg.CacheOptions(dir), log.Default())
		if err != nil {
			return nil, err
		}
		segCache = s.cache
	}
	fetcher := assemble.NewFetcher(assemble.FetchOptions{
		Client:            &http.Client{Timeout: cfg.Fetch.Timeout},
		MaxBytes:          cfg.Fetch.MaxBytes,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		UserAgent:         cfg.Fetch.UserAgent,
		Cache:             segCache,
		Logger:            log.Default(),
	})
	s.assemble = assemble.New(resolver, fetcher, cfg.AssemblerOptions(), log.Default())
	return s, nil
}

func (s *session) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func segmentCacheDir() (string, error) {
	if cfg.Cache.Dir != "" {
		return homedir.Expand(cfg.Cache.Dir)
	}
	dir, err := gap.NewScope(gap.User, "narrator").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "segments"), nil
}

func newTransport() (playback.Transport, error) {
	if envCfg.NoAudio {
		log.Info("audio output disabled")
		return audio.NewMock(audio.MockOptions{}), nil
	}
	s, err := audio.NewSpeaker(cfg.Format(), audio.SpeakerOptions{Volume: cfg.Playback.Volume})
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	return s, nil
}

func execute(_ *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	transport, err := newTransport()
	if err != nil {
		return err
	}
	controller := playback.NewController(transport, cfg.PlaybackOptions(), log.Default())
	eng := engine.New(s.store, s.assemble, controller, engine.Options{
		ScrollInterval: cfg.Highlight.ScrollInterval,
		Logger:         log.Default(),
	})
	defer eng.Close() //nolint:errcheck

	title := s.manifest.Title
	if title == "" {
		title = filepath.Base(s.path)
	}
	p := ui.NewProgram(ui.Config{
		Title:          title,
		Path:           s.path,
		EnableMouse:    mouse || envCfg.Mouse,
		AltScreen:      envCfg.AltScreen,
		ScrollInterval: cfg.Highlight.ScrollInterval,
	}, eng)
	eng.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !noWatch {
		go watchManifest(ctx, s.path, eng)
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func watchManifest(ctx context.Context, path string, eng *engine.Engine) {
	err := manifest.Watch(ctx, path, 0, func(m *manifest.Manifest, err error) {
		if err != nil {
			log.Warn("manifest reload failed", "err", err)
			return
		}
		if err := eng.ReplaceSegments(m.TimelineSegments()); err != nil {
			log.Warn("manifest reload rejected", "err", err)
			return
		}
		log.Info("manifest reloaded", "segments", len(m.Segments))
	})
	if err != nil {
		log.Error("manifest watcher stopped", "err", err)
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Int("sample-rate", 0, "assembly sample rate in Hz")
	rootCmd.PersistentFlags().Int("channels", 0, "assembly channel count")
	rootCmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the manifest when it changes")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	rootCmd.Flags().Float64P("rate", "r", 0, "initial playback rate (0.5 to 2.0)")
	rootCmd.Flags().Duration("skip", 0, "skip interval")

	// Config bindings
	_ = viper.BindPFlag("assembly.sample_rate", rootCmd.PersistentFlags().Lookup("sample-rate"))
	_ = viper.BindPFlag("assembly.channels", rootCmd.PersistentFlags().Lookup("channels"))
	_ = viper.BindPFlag("playback.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("playback.skip_interval", rootCmd.Flags().Lookup("skip"))

	rootCmd.AddCommand(configCmd, manCmd, exportCmd, timelineCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	config.SetDefaults(viper.GetViper())

	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrator.yml")
	}
}
