package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourorg/cleangen/internal/config"
	"github.com/yourorg/cleangen/internal/dart"
	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/internal/filter"
	"github.com/yourorg/cleangen/internal/har"
	"github.com/yourorg/cleangen/internal/importer"
	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/scaffold"
	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/internal/server"
	"github.com/yourorg/cleangen/internal/store"
	"github.com/yourorg/cleangen/internal/workspace"
	"github.com/yourorg/cleangen/pkg/types"
)

const defaultConfigContent = `output:
  dir: "./lib/features"

generator:
  legacy_wire_keys: false
  allow_name_collisions: false
  omit_literal_docs: false
  core_import: ""
  openapi: false
  workers: 4

filter:
  ignore_extensions:
    - .js
    - .css
    - .png
    - .jpg
    - .gif
    - .svg
    - .woff
    - .woff2
    - .ico
    - .map
  ignore_content_types:
    - text/html
    - text/css
    - image/*
    - font/*
    - application/javascript
  ignore_paths:
    - /static/
    - /assets/
    - /favicon

sanitize:
  headers:
    - Authorization
    - Cookie
    - Set-Cookie
    - X-Api-Key
    - X-Auth-Token
  body_fields:
    - password
    - secret
    - token
    - api_key
    - access_token
    - refresh_token
    - credential
  replacement: "***REDACTED***"

server:
  host: "127.0.0.1"
  port: 3000
  cors_origins: []

log:
  level: "info"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	debug   bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cleangen",
		Short:         "Scaffold Flutter clean-architecture features from sample JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug output")

	root.AddCommand(newInitCmd())
	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newModelCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newDiffCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newDeleteCmd(a))

	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Store.Path), 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(a.cfg.Store.Path)
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.cleangen directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := config.BaseDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile, err := config.DefaultPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(baseDir, "cleangen.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			return nil
		},
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var specPath, outDir string
	var openAPI, dryRun bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a feature from a feature file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.Output.Dir = outDir
			}
			if openAPI {
				a.cfg.Generator.OpenAPI = true
			}
			if !dryRun {
				if err := a.cfg.ValidateWrite(); err != nil {
					return err
				}
			}

			spec, err := feature.Load(specPath)
			if err != nil {
				return err
			}
			res, err := scaffold.Generate(cmd.Context(), spec, scaffold.OptionsFromConfig(a.cfg.Generator))
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			printSkipped(out, res.Skipped)

			if dryRun {
				for _, art := range res.Artifacts {
					out.header(art.RelativePath)
					fmt.Fprint(out.w, art.SourceText)
				}
				return nil
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.CreateRun("cli", spec)
			if err != nil {
				return err
			}
			if err := st.SaveArtifacts(run.ID, res.Artifacts, res.Skipped); err != nil {
				return err
			}

			root, err := workspace.Write(a.cfg.Output.Dir, scaffold.SnakeName(spec.Name), res.Artifacts)
			if err != nil {
				_ = st.UpdateRunStatus(run.ID, types.RunFailed)
				return err
			}
			if err := st.UpdateRunStatus(run.ID, types.RunWritten); err != nil {
				return err
			}
			for _, art := range res.Artifacts {
				out.added(art.RelativePath)
			}
			fmt.Fprintf(out.w, "run %s: %d files written to %s\n", run.ID, len(res.Artifacts), root)
			return nil
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "feature file (YAML or JSON)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory that receives the feature root (overrides output.dir)")
	cmd.Flags().BoolVar(&openAPI, "openapi", false, "also emit openapi.yaml")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print artifacts instead of writing them")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func newModelCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "model [literal-file]",
		Short: "Print the Dart model for a sample JSON literal (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			className := naming.ToType(name)
			if className == "" {
				className = "Model"
			}
			cls, err := schema.Infer(string(data), className)
			if err != nil {
				return err
			}
			literal := string(data)
			if a.cfg.Generator.OmitLiteralDocs {
				literal = ""
			}
			fmt.Fprint(cmd.OutOrStdout(), dart.Emit(cls, literal, dart.Options{LegacyWireKeys: a.cfg.Generator.LegacyWireKeys}))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Model", "root class name")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var harPath, name, host, outPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Derive a feature file from a HAR capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			exchanges, err := har.Parse(harPath)
			if err != nil {
				return err
			}
			total := len(exchanges)
			exchanges = filter.Sanitize(filter.Apply(exchanges, a.cfg.Filter), a.cfg.Sanitize)
			logrus.WithFields(logrus.Fields{"total": total, "kept": len(exchanges)}).Info("filtered capture")

			spec, err := importer.Build(name, exchanges, importer.Options{Host: host})
			if err != nil {
				return err
			}
			data, err := feature.Marshal(spec)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.CreateRun("har", spec)
			if err != nil {
				return err
			}
			if err := st.SaveExchanges(run.ID, exchanges); err != nil {
				return err
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d endpoints written to %s\n", run.ID, len(spec.Endpoints), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	cmd.Flags().StringVar(&name, "name", "", "feature name")
	cmd.Flags().StringVar(&host, "host", "", "only import exchanges sent to this host")
	cmd.Flags().StringVar(&outPath, "out", "", "feature file to write (stdout when empty)")
	_ = cmd.MarkFlagRequired("har")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var specPath, root string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a regenerated feature with the files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := feature.Load(specPath)
			if err != nil {
				return err
			}
			res, err := scaffold.Generate(cmd.Context(), spec, scaffold.OptionsFromConfig(a.cfg.Generator))
			if err != nil {
				return err
			}
			if root == "" {
				root = filepath.Join(a.cfg.Output.Dir, scaffold.SnakeName(spec.Name))
			}
			diffs, err := workspace.Diff(root, res.Artifacts)
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			if len(diffs) == 0 {
				fmt.Fprintln(out.w, "no changes")
				return nil
			}
			for _, d := range diffs {
				out.fileDiff(d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "feature file (YAML or JSON)")
	cmd.Flags().StringVar(&root, "root", "", "existing feature root (defaults to output.dir/<feature>)")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			srv, err := server.New(a.cfg, st)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 3000, "server port")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.ListRuns()
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			for _, r := range runs {
				fmt.Fprintf(out.w, "%s  %-12s %-9s %s  endpoints=%d artifacts=%d skipped=%d\n",
					out.id(r.ID), r.Feature, r.Source, out.status(r.Status), r.EndpointCount, r.ArtifactCount, r.SkippedCount)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var runID string
	var withSource bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show run details",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.GetRun(runID)
			if err != nil {
				return err
			}
			artifacts, err := st.GetArtifacts(runID)
			if err != nil {
				return err
			}
			skipped, err := st.GetSkipped(runID)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			fmt.Fprintf(out.w, "%s %s (%s, %s)\n", out.id(run.ID), run.Feature, run.Source, out.status(run.Status))
			fmt.Fprintf(out.w, "created %s\n\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprint(out.w, strings.TrimRight(run.Spec, "\n")+"\n\n")
			printSkipped(out, skipped)
			for _, art := range artifacts {
				if withSource {
					out.header(art.RelativePath)
					fmt.Fprint(out.w, art.SourceText)
					continue
				}
				fmt.Fprintln(out.w, art.RelativePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().BoolVar(&withSource, "source", false, "print artifact source text")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete run",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.DeleteRun(runID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
