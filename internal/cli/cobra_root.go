package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"imgclass/internal/common/fsutil"
	"imgclass/internal/config"
	"imgclass/internal/console"
	"imgclass/internal/mockapi"
	"imgclass/internal/session"
)

// buildRootCmd constructs the command tree around a.
func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "imgclass",
		Short:         "Client for an image-classification service",
		Long:          "imgclass selects images, requests predictions, uploads retraining data and monitors retraining jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error { return usageError{err} })

	def := config.Default()
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", def.BaseURL, "Classification service origin (defaults IMGCLASS_BASE_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", def.LogLevel, "Log level: debug|info|warn|error|off (defaults IMGCLASS_LOG_LEVEL)")
	root.PersistentFlags().DurationVar(&a.pollInterval, "poll-interval", def.PollInterval.Std(), "Retrain status poll interval")

	root.AddCommand(
		predictCmd(a),
		previewCmd(a),
		uploadDataCmd(a),
		retrainCmd(a),
		shellCmd(a),
		mockServerCmd(a),
		completionCmd(root),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func predictCmd(a *app) *cobra.Command {
	var file, id string
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Classify an uploaded file or a library image",
		Example: "  imgclass predict --file ./cat.jpg\n  imgclass predict --id 12",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (id == "") {
				return usagef("exactly one of --file or --id is required")
			}
			sess, err := a.newSession(console.NewView(a.out, a.cfg.PreviewDir, a.log))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			// A failed preview leaves the selection set; the prediction still runs.
			if file != "" {
				name, data, err := fsutil.ReadUpload(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				_ = sess.Input.SelectUpload(ctx, &session.Upload{Name: name, Data: data})
			} else {
				_ = sess.Input.SelectLibrary(ctx, id)
			}
			out, err := sess.Predictions.RequestPrediction(ctx)
			if err != nil || out.Kind != session.OutcomeSuccess {
				return errRendered
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Image file to upload")
	cmd.Flags().StringVar(&id, "id", "", "Library image id")
	return cmd
}

func previewCmd(a *app) *cobra.Command {
	var file, id, out string
	cmd := &cobra.Command{
		Use:     "preview",
		Short:   "Fetch or decode an image the way the session previews it",
		Example: "  imgclass preview --id 3 --out ./three.png",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (id == "") {
				return usagef("exactly one of --file or --id is required")
			}
			view := session.NewMemoryView()
			sess, err := a.newSession(view)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if file != "" {
				name, data, rerr := fsutil.ReadUpload(file)
				if rerr != nil {
					return fmt.Errorf("read %s: %w", file, rerr)
				}
				if err := sess.Input.SelectUpload(ctx, &session.Upload{Name: name, Data: data}); err != nil {
					return fmt.Errorf("preview %s: %w", name, err)
				}
			} else if err := sess.Input.SelectLibrary(ctx, id); err != nil {
				for _, msg := range view.Alerts() {
					fmt.Fprintf(a.out, "! %s\n", msg)
				}
				return errRendered
			}
			img := view.Preview()
			if out == "" {
				fmt.Fprintf(a.out, "preview: %d bytes (%s)\n", len(img), http.DetectContentType(img))
				return nil
			}
			if err := fsutil.WriteFileAtomic(out, img); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(a.out, "preview written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Image file to decode")
	cmd.Flags().StringVar(&id, "id", "", "Library image id")
	cmd.Flags().StringVar(&out, "out", "", "Write the preview image to this path")
	return cmd
}

func uploadDataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "upload-data <archive.zip>",
		Short:   "Upload a ZIP archive of new training images",
		Example: "  imgclass upload-data ./new_images.zip",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, data, err := fsutil.ReadUpload(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			sess, err := a.newSession(console.NewView(a.out, "", a.log))
			if err != nil {
				return err
			}
			if _, err := sess.Uploads.UploadRetrainArchive(cmd.Context(), &session.Upload{Name: name, Data: data}); err != nil {
				return errRendered
			}
			return nil
		},
	}
}

func retrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retrain",
		Short: "Start a retraining job and wait for its outcome",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.newSession(console.NewView(a.out, "", a.log))
			if err != nil {
				return err
			}
			if err := sess.Retrain.Start(cmd.Context()); err != nil {
				return errRendered
			}
			// Cancellation ends the monitor through its failure path, so Done
			// always closes.
			<-sess.Retrain.Done()
			if sess.Retrain.State() != session.MonitorCompleted {
				return errRendered
			}
			return nil
		},
	}
}

func shellCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with background retrain monitoring",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := console.NewView(a.out, a.cfg.PreviewDir, a.log)
			sess, err := a.newSession(view)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				r := chi.NewRouter()
				r.Get("/metrics", promhttp.Handler().ServeHTTP)
				srv := &http.Server{Addr: metricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						a.log.Error().Err(err).Str("addr", metricsAddr).Msg("metrics listener")
					}
				}()
				defer srv.Close()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			fmt.Fprintf(a.out, "imgclass shell on %s, type help for commands\n", a.cfg.BaseURL)
			err = console.NewShell(sess, a.in, a.out, a.log).Run(ctx)
			cancel()
			<-sess.Retrain.Done()
			return err
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func mockServerCmd(a *app) *cobra.Command {
	var (
		addr        string
		labels      []string
		step        float64
		failAt      float64
		librarySize int
		reject      string
		corsOrigins []string
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a scripted stand-in for the classification service",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := a.cfg.Mock
			flags := cmd.Flags()
			if flags.Changed("addr") {
				mc.Addr = addr
			}
			if flags.Changed("labels") {
				mc.Labels = labels
			}
			if flags.Changed("progress-step") {
				mc.ProgressStep = step
			}
			if flags.Changed("cors-origins") {
				mc.CORSOrigins = corsOrigins
			}
			mockapi.SetLogger(a.log.With().Str("component", "mockapi").Logger())
			srv := mockapi.New(mockapi.Options{
				Labels:        mc.Labels,
				ProgressStep:  mc.ProgressStep,
				LibrarySize:   librarySize,
				FailAt:        failAt,
				RejectRetrain: reject,
				CORSOrigins:   mc.CORSOrigins,
			})
			return srv.ListenAndServe(cmd.Context(), mc.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":5000", "Listen address (defaults mock.addr)")
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Labels the mock classifier answers with")
	cmd.Flags().Float64Var(&step, "progress-step", 25, "Retrain progress added per status read")
	cmd.Flags().Float64Var(&failAt, "fail-at", 0, "Fail retrain jobs once progress reaches this value (0 disables)")
	cmd.Flags().IntVar(&librarySize, "library-size", 10, "Number of generated library images")
	cmd.Flags().StringVar(&reject, "reject-retrain", "", "Answer POST /retrain with this message and no job id")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origins", nil, "Allowed CORS origins")
	return cmd
}

func completionCmd(root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	cmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	cmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	cmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	cmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	return cmd
}
