package postgres

import "fmt"

// SQL queries for the collection ledger and the producer/collector directory.

const eventColumns = `
			id, producer_id, collector_id, slot, day,
			occurred_at, quantity, update_count, revision,
			created_at, updated_at`

var (
	// queryInsertEvent creates the single event for a (producer_id, slot, day).
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) when the slot is taken.
	// RETURNING retrieves the revision drawn from collection_revision_seq.
	queryInsertEvent = `
		INSERT INTO collection_events (
			id, producer_id, collector_id, slot, day,
			occurred_at, quantity, update_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (producer_id, slot, day) DO NOTHING
		RETURNING revision
	`

	// queryUpdateEvent rewrites an event in place only while its revision is unchanged.
	// No rows means another writer got there first.
	queryUpdateEvent = `
		UPDATE collection_events
		SET collector_id = $1,
		    quantity = $2,
		    occurred_at = $3,
		    update_count = $4,
		    updated_at = $5,
		    revision = nextval('collection_revision_seq')
		WHERE producer_id = $6
		  AND slot = $7
		  AND day = $8
		  AND revision = $9
		RETURNING revision
	`

	queryFindSlotEvent = `
		SELECT` + eventColumns + `
		FROM collection_events
		WHERE producer_id = $1
		  AND slot = $2
		  AND day = $3
	`

	// queryListEvents treats empty scope parameters as wildcards.
	// The time range is half-open on occurred_at.
	queryListEvents = `
		SELECT` + eventColumns + `
		FROM collection_events
		WHERE ($1::text = '' OR producer_id = $1)
		  AND ($2::text = '' OR collector_id = $2)
		  AND ($3::text = '' OR slot = $3)
		  AND occurred_at >= $4
		  AND occurred_at < $5
		ORDER BY occurred_at ASC, revision ASC
	`

	queryMaxRevision = `
		SELECT COALESCE(MAX(revision), 0)
		FROM collection_events
		WHERE ($1::text = '' OR producer_id = $1)
		  AND ($2::text = '' OR collector_id = $2)
		  AND ($3::text = '' OR slot = $3)
		  AND occurred_at >= $4
		  AND occurred_at < $5
	`

	queryProducerExists = `
		SELECT EXISTS (SELECT 1 FROM producers WHERE id = $1)
	`

	queryListProducers  = directoryPageQuery("producers")
	queryCountProducers = directoryCountQuery("producers")

	queryListCollectors  = directoryPageQuery("collectors")
	queryCountCollectors = directoryCountQuery("collectors")
)

// directoryMatch is a case-insensitive substring match on every visible column.
const directoryMatch = `
		WHERE $1::text = ''
		   OR id ILIKE '%%' || $1 || '%%'
		   OR name ILIKE '%%' || $1 || '%%'
		   OR phone ILIKE '%%' || $1 || '%%'
		   OR location ILIKE '%%' || $1 || '%%'`

func directoryPageQuery(table string) string {
	return fmt.Sprintf(`
		SELECT id, name, phone, location
		FROM %s`+directoryMatch+`
		ORDER BY name ASC, id ASC
		LIMIT $2 OFFSET $3
	`, table)
}

func directoryCountQuery(table string) string {
	return fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s`+directoryMatch+`
	`, table)
}
