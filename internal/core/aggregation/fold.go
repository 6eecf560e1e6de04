package aggregation

import (
	"iter"
	"sort"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Fold computes the rollup for key over events. Events outside the key are
// skipped, so callers may pass a superset. The result is a pure function of
// the event multiset: order does not matter and an empty input yields a
// zero-valued rollup whose buckets are all present.
func Fold(key Key, events iter.Seq[v1.CollectionEvent], loc *time.Location) *Rollup {
	if loc == nil {
		loc = time.UTC
	}

	r := &Rollup{
		Key:           key,
		TotalQuantity: decimal.Zero,
		BySlot:        NewSlotTotals(),
		ByProducer:    make(map[string]decimal.Decimal),
		ByCollector:   make(map[string]decimal.Decimal),
		Buckets:       Buckets(key.Granularity, key.RangeStart, key.RangeEnd, loc),
	}
	for i := range r.Buckets {
		r.Buckets[i].TotalQuantity = decimal.Zero
		r.Buckets[i].BySlot = NewSlotTotals()
		for j := range r.Buckets[i].Days {
			r.Buckets[i].Days[j].Quantity = decimal.Zero
		}
	}

	for e := range events {
		if !key.Covers(&e) {
			continue
		}
		r.TotalQuantity = r.TotalQuantity.Add(e.Quantity)
		r.CountEvents++
		r.BySlot.add(e.Slot, e.Quantity)
		r.ByProducer[e.ProducerID] = r.ByProducer[e.ProducerID].Add(e.Quantity)
		if e.CollectorID != "" {
			r.ByCollector[e.CollectorID] = r.ByCollector[e.CollectorID].Add(e.Quantity)
		}
		if e.Revision > r.Revision {
			r.Revision = e.Revision
		}

		b := bucketIndex(r.Buckets, e.Timestamp)
		if b < 0 {
			continue
		}
		bucket := &r.Buckets[b]
		bucket.TotalQuantity = bucket.TotalQuantity.Add(e.Quantity)
		bucket.CountEvents++
		bucket.BySlot.add(e.Slot, e.Quantity)
		if len(bucket.Days) > 0 {
			day := StartOfDay(e.Timestamp, loc)
			for j := range bucket.Days {
				if bucket.Days[j].Date.Equal(day) {
					bucket.Days[j].Quantity = bucket.Days[j].Quantity.Add(e.Quantity)
					break
				}
			}
		}
	}
	return r
}

// bucketIndex finds the bucket containing t, or -1.
func bucketIndex(buckets []Bucket, t time.Time) int {
	i := sort.Search(len(buckets), func(i int) bool {
		return buckets[i].End.After(t)
	})
	if i < len(buckets) && !t.Before(buckets[i].Start) {
		return i
	}
	return -1
}

// Values adapts a slice of event pointers for Fold.
func Values(events []*v1.CollectionEvent) iter.Seq[v1.CollectionEvent] {
	return func(yield func(v1.CollectionEvent) bool) {
		for _, e := range events {
			if !yield(*e) {
				return
			}
		}
	}
}
