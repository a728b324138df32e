package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nightfallstudio/bugboard/internal/cache"
	"github.com/nightfallstudio/bugboard/internal/gateway"
	"github.com/nightfallstudio/bugboard/internal/logging"
	"github.com/nightfallstudio/bugboard/internal/patchnotes"
	"github.com/nightfallstudio/bugboard/internal/ratelimit"
	"github.com/nightfallstudio/bugboard/internal/token"
	"github.com/nightfallstudio/bugboard/internal/triage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API gateway",
	Long: `Start the HTTP gateway between bug-reporting clients and the upstream
issue tracker. By default it listens on port 8787. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		api, err := newUpstream(cfg)
		if err != nil {
			return err
		}

		var triager *triage.Client
		if cfg.Triage.APIKey != "" {
			triager = triage.NewClient(cfg.Triage.APIKey, cfg.Triage.Model)
		}

		srv := gateway.NewServer(cfg,
			api,
			token.NewStore(store, cfg.Tokens.Prefix, cfg.Tokens.TTL),
			ratelimit.New(store, cfg.RateLimit.Ceiling, cfg.RateLimit.Window),
			cache.New(store),
			patchnotes.NewSource(cfg.PatchNotesFile, api),
			triager,
		)

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logging.Info("gateway listening",
			"addr", addr,
			"repo", cfg.Upstream.Repo,
			"origins", cfg.Server.AllowedOrigins,
			"triage", triager != nil)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8787, "port to listen on")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
