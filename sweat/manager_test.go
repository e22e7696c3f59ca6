package sweat

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gotest.tools/v3/assert"
)

const trackInsert = `INSERT INTO "track" ("title", "plays", "rating") VALUES (?, ?, ?)`

func Test_Manager_SaveInsert(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	{ // A fresh instance inserts and captures the generated key
		mock.ExpectExec(exactly(trackInsert)).
			WithArgs("Go", 10, 4.5).
			WillReturnResult(sqlmock.NewResult(7, 1))

		track := Track{Title: "Go", Plays: 10, Rating: 4.5}
		assert.NilError(t, manager.Save(context.Background(), &track))
		assert.Equal(t, track.ID, int64(7))
		assert.Equal(t, track.Saved(), true)
		assert.Equal(t, track.Key(), int64(7))
	}

	{ // A failed insert leaves the instance unsaved, so the next Save inserts again
		mock.ExpectExec(exactly(trackInsert)).
			WithArgs("Return", 0, 0.0).
			WillReturnError(fmt.Errorf("connection reset"))

		track := Track{Title: "Return"}
		err := manager.Save(context.Background(), &track)
		assert.ErrorContains(t, err, "connection reset")
		assert.Equal(t, track.Saved(), false)

		mock.ExpectExec(exactly(trackInsert)).
			WithArgs("Return", 0, 0.0).
			WillReturnResult(sqlmock.NewResult(8, 1))

		assert.NilError(t, manager.Save(context.Background(), &track))
		assert.Equal(t, track.ID, int64(8))
	}

	assert.NilError(t, mock.ExpectationsWereMet())
}

type ImportedTrack struct {
	Record

	ID      int64  `db:"id,primaryKey"`
	Subject string `db:"subject"`
}

func (e ImportedTrack) TableName() string {
	return "imported_track"
}

func Test_Manager_SaveInsertWithOwnKey(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	// A primary key without autoIncrement is written like any other column
	// and never overwritten by whatever LastInsertId reports.
	mock.ExpectExec(exactly(`INSERT INTO "imported_track" ("id", "subject") VALUES (?, ?)`)).
		WithArgs(42, "from the other system").
		WillReturnResult(sqlmock.NewResult(33, 1))

	track := ImportedTrack{ID: 42, Subject: "from the other system"}
	assert.NilError(t, manager.Save(context.Background(), &track))
	assert.Equal(t, track.ID, int64(42))
	assert.Equal(t, track.Key(), int64(42))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func Test_Manager_SaveInsertReturning(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{numbered: true, returning: true})

	mock.ExpectQuery(exactly(trackInsert+` RETURNING "id" as "id"`)).
		WithArgs("Go", 10, 4.5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	track := Track{Title: "Go", Plays: 10, Rating: 4.5}
	assert.NilError(t, manager.Save(context.Background(), &track))
	assert.Equal(t, track.ID, int64(5))
	assert.Equal(t, track.Saved(), true)
	assert.NilError(t, mock.ExpectationsWereMet())
}

func Test_Manager_SaveUpdateKeysOnSessionKey(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	mock.ExpectExec(exactly(trackInsert)).
		WithArgs("Go", 10, 4.5).
		WillReturnResult(sqlmock.NewResult(9, 1))

	track := Track{Title: "Go", Plays: 10, Rating: 4.5}
	assert.NilError(t, manager.Save(context.Background(), &track))

	// Editing the key field must not change which row the update hits.
	track.ID = 1234
	track.Plays = 11

	mock.ExpectExec(exactly(`UPDATE "track" SET "title" = ?, "plays" = ?, "rating" = ? WHERE "id" = ?`)).
		WithArgs("Go", 11, 4.5, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NilError(t, manager.Save(context.Background(), &track))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func Test_Manager_Delete(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	{ // Deleting an unsaved instance runs nothing
		track := Track{Title: "Go"}
		assert.ErrorIs(t, manager.Delete(context.Background(), &track), ErrNotSaved)
		assert.NilError(t, mock.ExpectationsWereMet())
	}

	{ // Deleting a saved instance is keyed on the session key
		mock.ExpectExec(exactly(trackInsert)).
			WithArgs("Go", 0, 0.0).
			WillReturnResult(sqlmock.NewResult(10, 1))

		track := Track{Title: "Go"}
		assert.NilError(t, manager.Save(context.Background(), &track))

		mock.ExpectExec(exactly(`DELETE FROM "track" WHERE "id" = ?`)).
			WithArgs(10).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NilError(t, manager.Delete(context.Background(), &track))
		assert.NilError(t, mock.ExpectationsWereMet())

		// The instance still reports saved; deletion does not rewind it.
		assert.Equal(t, track.Saved(), true)
	}
}

type Playlist struct {
	Record

	ID     int64    `db:"id,primaryKey,autoIncrement"`
	Name   string   `db:"name"`
	Tracks []string `db:"tracks"`
}

func (e Playlist) TableName() string {
	return "playlist"
}

func Test_Manager_JSONColumns(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	{ // Slice and struct columns store as JSON text
		mock.ExpectExec(exactly(`INSERT INTO "playlist" ("name", "tracks") VALUES (?, ?)`)).
			WithArgs("Focus", `["Go","Return"]`).
			WillReturnResult(sqlmock.NewResult(3, 1))

		playlist := Playlist{Name: "Focus", Tracks: []string{"Go", "Return"}}
		assert.NilError(t, manager.Save(context.Background(), &playlist))
	}

	{ // And decode again on the way out
		mock.ExpectQuery(exactly(`SELECT "id", "name", "tracks" FROM "playlist" WHERE "id" = ?`)).
			WithArgs(3).
			WillReturnRows(
				sqlmock.NewRows([]string{"id", "name", "tracks"}).
					AddRow(3, "Focus", `["Go","Return"]`),
			)

		playlist := Playlist{}
		assert.NilError(t, manager.Get(context.Background(), &playlist, 3))
		assert.DeepEqual(t, playlist.Tracks, []string{"Go", "Return"})
	}

	assert.NilError(t, mock.ExpectationsWereMet())
}

func Test_Manager_Get(t *testing.T) {
	t.Parallel()

	manager, mock := newMockManager(t, &mockDriver{})

	mock.ExpectQuery(exactly(trackSelect + ` WHERE "id" = ?`)).
		WithArgs(3).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "title", "plays", "rating"}).
				AddRow(3, "Go", 11, 4.8),
		)

	track := Track{}
	assert.NilError(t, manager.Get(context.Background(), &track, 3))
	assert.Equal(t, track.Title, "Go")
	assert.Equal(t, track.Saved(), true)
	assert.Equal(t, track.Key(), int64(3))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func Test_Manager_RejectsNonPointers(t *testing.T) {
	t.Parallel()

	manager, _ := newMockManager(t, &mockDriver{})

	assert.ErrorIs(t, manager.Save(context.Background(), Track{}), ErrNotPointer)
	assert.ErrorIs(t, manager.Delete(context.Background(), Track{}), ErrNotPointer)
	assert.ErrorIs(t, manager.Get(context.Background(), Track{}, 1), ErrNotPointer)
}
