package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printRecordResult(w io.Writer, res v1.RecordResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}

	switch {
	case res.Rejected():
		r := res.Rejection
		fmt.Fprintf(w, "rejected (%s): %s\n", r.Reason, r.Message)
		if r.UpdatesUsed > 0 || !r.CurrentQuantity.IsZero() {
			fmt.Fprintf(w, "current %s, corrections used %d, remaining %d\n",
				r.CurrentQuantity.String(), r.UpdatesUsed, r.UpdatesRemaining)
		}
	case res.Outcome == v1.OutcomeUpdated:
		e := res.Event
		fmt.Fprintf(w, "updated %s %s %s: %s -> %s (delta %s), %d correction(s) remaining\n",
			e.ProducerID, e.Slot, e.Day.Format(time.DateOnly),
			res.PreviousQuantity.String(), e.Quantity.String(), res.Delta.String(), res.UpdatesRemaining)
	default:
		e := res.Event
		fmt.Fprintf(w, "recorded %s %s %s: %s, %d correction(s) remaining\n",
			e.ProducerID, e.Slot, e.Day.Format(time.DateOnly), e.Quantity.String(), res.UpdatesRemaining)
	}
	return nil
}

func printRollup(w io.Writer, e cache.Entry[*coreagg.Rollup]) error {
	if jsonOutput {
		return printJSON(w, struct {
			*coreagg.Rollup
			CacheState cache.State `json:"cache_state"`
			FetchedAt  time.Time   `json:"fetched_at"`
		}{e.Value, e.State, e.FetchedAt})
	}

	r := e.Value
	scope := string(r.Key.Dimension)
	if r.Key.ID != "" {
		scope += " " + r.Key.ID
	}
	fmt.Fprintf(w, "%s %s rollup %s .. %s  (revision %d, %s at %s)\n",
		scope, r.Key.Granularity,
		r.Key.RangeStart.Format(time.DateOnly), r.Key.RangeEnd.Format(time.DateOnly),
		r.Revision, e.State, e.FetchedAt.Local().Format(time.TimeOnly))
	fmt.Fprintf(w, "total %s from %d event(s)\n\n", r.TotalQuantity.String(), r.CountEvents)

	tw := newTable(w)
	header := []string{"BUCKET", "TOTAL", "EVENTS"}
	for _, s := range slot.All() {
		header = append(header, strings.ToUpper(string(s)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, b := range r.Buckets {
		row := []string{b.Label, b.TotalQuantity.String(), fmt.Sprint(b.CountEvents)}
		for _, s := range slot.All() {
			row = append(row, b.BySlot[s].String())
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printEvents(w io.Writer, events []*v1.CollectionEvent) error {
	if jsonOutput {
		list := v1.EventList{Items: make([]v1.CollectionEvent, len(events)), TotalCount: len(events)}
		for i, e := range events {
			list.Items[i] = *e
			list.MaxRevision = max(list.MaxRevision, e.Revision)
		}
		return printJSON(w, list)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "DAY\tSLOT\tPRODUCER\tCOLLECTOR\tQUANTITY\tCORRECTIONS\tREVISION")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			e.Day.Format(time.DateOnly), e.Slot, e.ProducerID, e.CollectorID,
			e.Quantity.String(), e.UpdateCount, e.Revision)
	}
	fmt.Fprintf(tw, "\n%d event(s)\n", len(events))
	return tw.Flush()
}

func printPage(w io.Writer, kind v1.DirectoryKind, pageIndex, pages int, page v1.Page) error {
	if jsonOutput {
		return printJSON(w, page)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tLOCATION")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Phone, p.Location)
	}
	fmt.Fprintf(tw, "\n%s page %d/%d, %d total\n", kind, pageIndex+1, max(pages, 1), page.TotalCount)
	return tw.Flush()
}
