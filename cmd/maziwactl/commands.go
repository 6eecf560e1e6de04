package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/aggregation"
	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	corecfg "github.com/jolla3/maziwa-smart-sub000/internal/core/config"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage/memory"
	"github.com/jolla3/maziwa-smart-sub000/internal/directory"
	"github.com/jolla3/maziwa-smart-sub000/internal/directory/browser"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// =============================================================================
// record
// =============================================================================

var recordFlags struct {
	producer  string
	collector string
	quantity  string
	at        string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record or correct a producer's collection for the current slot",
	Long: `Records a collection. The server derives the slot and day from the time of
the request (or --at). A second record in the same slot is a correction and is
rejected once the correction limit is used up.

Examples:
  maziwactl record --producer P001 --collector C01 --quantity 12.5
  maziwactl record --producer P001 --quantity 13 --at 2026-10-12T06:30:00+03:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := decimal.NewFromString(recordFlags.quantity)
		if err != nil {
			return fmt.Errorf("invalid --quantity %q: %w", recordFlags.quantity, err)
		}
		req := v1.RecordRequest{
			ProducerID:  recordFlags.producer,
			CollectorID: recordFlags.collector,
			Quantity:    qty,
		}
		if recordFlags.at != "" {
			at, err := time.Parse(time.RFC3339, recordFlags.at)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", recordFlags.at, err)
			}
			req.RecordedAt = &at
		}

		res, err := client.Record(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := printRecordResult(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Rejected() {
			return errRejected
		}
		return nil
	},
}

// =============================================================================
// rollup
// =============================================================================

var rollupFlags struct {
	dimension   string
	id          string
	granularity string
	start       string
	end         string
	watch       time.Duration
}

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Show a day, week or month rollup computed from the server's events",
	Long: `Folds the server's collection events locally. Snapshots are kept for the
session and reused while the server's revision for the range is unchanged.
With --watch the rollup is re-checked on every interval and printed when it changes.

Examples:
  maziwactl rollup --granularity week
  maziwactl rollup --dimension producer --id P001 --granularity month --start 2026-10-01
  maziwactl rollup --dimension slot --id morning --watch 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := rollupKey(time.Now())
		if err != nil {
			return err
		}
		if err := key.Validate(); err != nil {
			return err
		}

		engine := aggregation.NewEngine(client, memory.NewSnapshots(), aggregation.Options{
			Timeout:  corecfg.MustDuration(cfg.Aggregation.Timeout),
			Location: loc,
		})
		rollups := cache.New[*coreagg.Rollup](
			cache.WithName("cli-rollups"),
			cache.WithTTL(corecfg.MustDuration(cfg.Cache.TTL)),
			cache.WithFetchTimeout(corecfg.MustDuration(cfg.Cache.FetchTimeout)),
		)
		defer rollups.Close()

		fetch := func(ctx context.Context, _ string) (*coreagg.Rollup, error) {
			return engine.Rollup(ctx, key)
		}
		sig := key.Signature()

		entry, err := rollups.Get(cmd.Context(), sig, fetch, cache.ReadOptions{})
		if err != nil {
			return err
		}
		if err := printRollup(cmd.OutOrStdout(), entry); err != nil {
			return err
		}
		if rollupFlags.watch <= 0 {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(rollupFlags.watch)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			next, err := rollups.Get(ctx, sig, fetch, cache.ReadOptions{TTL: rollupFlags.watch, Force: true})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "refresh failed:", err)
				continue
			}
			if next.Value.SourceRevision != entry.Value.SourceRevision {
				fmt.Fprintln(cmd.OutOrStdout())
				if err := printRollup(cmd.OutOrStdout(), next); err != nil {
					return err
				}
			}
			entry = next
		}
	},
}

// rollupKey resolves the flags into a key. With no --start the current period
// of the granularity is used; with no --end the period containing --start.
func rollupKey(now time.Time) (coreagg.Key, error) {
	dim, err := coreagg.ParseDimension(rollupFlags.dimension)
	if err != nil {
		return coreagg.Key{}, err
	}
	gran, err := coreagg.ParseGranularity(rollupFlags.granularity)
	if err != nil {
		return coreagg.Key{}, err
	}

	start, end := coreagg.PeriodRange(gran, now, loc)
	if rollupFlags.start != "" {
		if start, err = time.ParseInLocation(time.DateOnly, rollupFlags.start, loc); err != nil {
			return coreagg.Key{}, fmt.Errorf("invalid --start: %w", err)
		}
		_, end = coreagg.PeriodRange(gran, start, loc)
	}
	if rollupFlags.end != "" {
		if end, err = time.ParseInLocation(time.DateOnly, rollupFlags.end, loc); err != nil {
			return coreagg.Key{}, fmt.Errorf("invalid --end: %w", err)
		}
	}

	return coreagg.Key{Dimension: dim, ID: rollupFlags.id, Granularity: gran, RangeStart: start, RangeEnd: end}, nil
}

// =============================================================================
// events
// =============================================================================

var eventsFlags struct {
	producer  string
	collector string
	slot      string
	start     string
	end       string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List collection events",
	Long: `Lists collection events for a producer, collector or slot. Dates are
YYYY-MM-DD in the ledger time zone; --end is exclusive and defaults to the day after --start.

Examples:
  maziwactl events --producer P001 --start 2026-10-12
  maziwactl events --slot evening --start 2026-10-01 --end 2026-11-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.EventFilter{ProducerID: eventsFlags.producer, CollectorID: eventsFlags.collector}
		if eventsFlags.slot != "" {
			s, err := slot.Parse(eventsFlags.slot)
			if err != nil {
				return err
			}
			filter.Slot = s
		}
		if eventsFlags.start != "" {
			start, err := time.ParseInLocation(time.DateOnly, eventsFlags.start, loc)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			filter.Start, filter.End = start, start.AddDate(0, 0, 1)
		}
		if eventsFlags.end != "" {
			end, err := time.ParseInLocation(time.DateOnly, eventsFlags.end, loc)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			filter.End = end
		}

		events, err := client.ListEvents(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printEvents(cmd.OutOrStdout(), events)
	},
}

// =============================================================================
// directory
// =============================================================================

var directoryFlags struct {
	pageSize int
	page     int
	filter   string
	plain    bool
}

var directoryCmd = &cobra.Command{
	Use:   "directory [producers|collectors]",
	Short: "Browse the producer or collector directory",
	Long: `Opens an interactive pager over the directory. When stdout is not a
terminal, or with --plain, one page is printed instead.

Examples:
  maziwactl directory
  maziwactl directory collectors --filter nyeri
  maziwactl directory producers --plain --page 2 --page-size 20`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(v1.KindProducers), string(v1.KindCollectors)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := v1.KindProducers
		if len(args) == 1 {
			k, err := v1.ParseDirectoryKind(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			kind = k
		}
		if directoryFlags.pageSize <= 0 {
			return fmt.Errorf("--page-size must be > 0")
		}

		pages := cache.New[v1.Page](
			cache.WithName("cli-directory"),
			cache.WithTTL(corecfg.MustDuration(cfg.Cache.TTL)),
			cache.WithFetchTimeout(corecfg.MustDuration(cfg.Upstream.Timeout)),
		)
		defer pages.Close()

		pager := directory.NewPager(client, pages, kind, directoryFlags.pageSize)
		ctx := cmd.Context()
		if directoryFlags.filter != "" {
			if err := pager.SetFilter(ctx, directoryFlags.filter); err != nil {
				return err
			}
		}

		if directoryFlags.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
			if err := pager.GoToPage(ctx, directoryFlags.page); err != nil {
				return err
			}
			state := pager.State()
			return printPage(cmd.OutOrStdout(), kind, state.PageIndex, pager.Pages(),
				v1.Page{Items: pager.Rows(), TotalCount: state.TotalCount})
		}

		return browser.Run(ctx, pager, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	f := recordCmd.Flags()
	f.StringVarP(&recordFlags.producer, "producer", "p", "", "Producer ID")
	f.StringVar(&recordFlags.collector, "collector", "", "Collector ID")
	f.StringVarP(&recordFlags.quantity, "quantity", "q", "", "Quantity in litres")
	f.StringVar(&recordFlags.at, "at", "", "Collection time (RFC 3339); defaults to now on the server")
	_ = recordCmd.MarkFlagRequired("producer")
	_ = recordCmd.MarkFlagRequired("quantity")

	f = rollupCmd.Flags()
	f.StringVarP(&rollupFlags.dimension, "dimension", "d", "global", "global, producer, collector or slot")
	f.StringVar(&rollupFlags.id, "id", "", "Producer, collector or slot for non-global rollups")
	f.StringVarP(&rollupFlags.granularity, "granularity", "g", "day", "day, week or month")
	f.StringVar(&rollupFlags.start, "start", "", "First day (YYYY-MM-DD); defaults to the current period")
	f.StringVar(&rollupFlags.end, "end", "", "Exclusive last day (YYYY-MM-DD)")
	f.DurationVarP(&rollupFlags.watch, "watch", "w", 0, "Re-check every interval until interrupted")

	f = eventsCmd.Flags()
	f.StringVarP(&eventsFlags.producer, "producer", "p", "", "Producer ID")
	f.StringVar(&eventsFlags.collector, "collector", "", "Collector ID")
	f.StringVar(&eventsFlags.slot, "slot", "", "morning, midmorning, afternoon or evening")
	f.StringVar(&eventsFlags.start, "start", "", "First day (YYYY-MM-DD)")
	f.StringVar(&eventsFlags.end, "end", "", "Exclusive last day (YYYY-MM-DD)")

	f = directoryCmd.Flags()
	f.IntVar(&directoryFlags.pageSize, "page-size", 10, "Rows per page")
	f.IntVar(&directoryFlags.page, "page", 0, "Zero-based page for --plain output")
	f.StringVar(&directoryFlags.filter, "filter", "", "Case-insensitive match on id, name, phone or location")
	f.BoolVar(&directoryFlags.plain, "plain", false, "Print one page instead of opening the pager")
}
