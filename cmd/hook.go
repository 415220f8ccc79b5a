package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/collector"
	"github.com/theirongolddev/ccrelay/internal/config"
	"github.com/theirongolddev/ccrelay/internal/hookevent"
	"github.com/theirongolddev/ccrelay/internal/logging"
	"github.com/theirongolddev/ccrelay/internal/reconcile"
	"github.com/theirongolddev/ccrelay/internal/state"
)

var hookCmd = &cobra.Command{
	Use:   "hook <event>",
	Short: "Handle one lifecycle event (invoked by the host, reads stdin)",
	Args:  cobra.ExactArgs(1),
	// The host runs this inside its event loop: it must exit 0 and stay
	// quiet no matter what goes wrong, so errors are logged, not returned.
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	log := logging.NewFileLogger(cfg.LogPath(), "hook")

	ev, err := hookevent.Decode(os.Stdin, args[0])
	if err != nil {
		log.WithError(err).Warn("unreadable hook payload, skipping event")
		return nil
	}
	log = log.WithField("event", string(ev.Kind)).WithField("session", ev.SessionID)

	var sink collector.Sink = nopSink{}
	if client := collector.NewClient(config.GetCollectorURL(cfg), config.GetAPIKey(cfg)); client != nil {
		sink = client
	} else {
		log.Debug("no collector configured, accumulating state only")
	}

	r := reconcile.New(
		state.NewFileStore(cfg.StatePath()),
		sink,
		reconcile.WithToolCallSync(cfg.Hooks.SyncToolCalls),
	)

	out, err := r.Handle(cmd.Context(), ev)
	if err != nil {
		// State was persisted before forwarding; the host just re-sends
		// later events and dedup absorbs the overlap.
		log.WithError(err).Warn("sync failed")
	} else if out.Forwarded > 0 {
		log.WithField("records", out.Forwarded).Info("synced")
	}

	if out.Final != nil && cfg.Archive.Enabled {
		archiveFinal(log, cfg, out)
	}
	return nil
}

// archiveFinal records the finalized session locally. Best-effort only.
func archiveFinal(log *logrus.Entry, cfg config.Config, out reconcile.Outcome) {
	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		log.WithError(err).Warn("archive unavailable")
		return
	}
	defer func() { _ = db.Close() }()
	if err := db.SaveFinal(*out.Final); err != nil {
		log.WithError(err).Warn("archiving session failed")
	}
}

// nopSink accumulates state without forwarding when no collector is set.
type nopSink struct{}

func (nopSink) SyncSession(context.Context, collector.SessionRecord) error { return nil }
func (nopSink) SyncMessage(context.Context, collector.MessageRecord) error { return nil }
