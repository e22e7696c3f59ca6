package sweat

// Entity is implemented by any struct that maps to a database table. Column
// mapping comes from `db` struct tags, relations from `rel` tags on Lazy and
// LazyMany fields, and per-instance session state from an embedded Record.
//
//	type Book struct {
//		sweat.Record
//
//		ID       int64  `db:"id,primaryKey,autoIncrement"`
//		Title    string `db:"title"`
//		AuthorID int64  `db:"author_id"`
//
//		Author sweat.Lazy[Author] `rel:"local=author_id"`
//	}
type Entity interface {
	TableName() string
}

// Record carries the session state the manager keeps per entity instance:
// whether the instance is known to be backed by a stored row and, once known,
// the primary key value it was stored under. Embed it in every entity struct.
type Record struct {
	saved bool
	key   any
}

// Saved reports whether this instance is backed by a stored row.
func (record *Record) Saved() bool {
	return record.saved
}

// Key returns the primary key value captured when the instance was fetched
// or first saved. UPDATE and DELETE statements are keyed on this value, so
// edits to the primary key field itself do not change which row they hit.
func (record *Record) Key() any {
	return record.key
}

func (record *Record) markSaved(key any) {
	record.saved = true
	record.key = key
}

func (record *Record) inner() *Record {
	return record
}

type recordCarrier interface {
	inner() *Record
}
