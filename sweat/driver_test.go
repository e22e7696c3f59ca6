package sweat_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/tomvlk/sweat-orm/sweat"
	"github.com/tomvlk/sweat-orm/sweattest"
	"gotest.tools/v3/assert"
)

type AuthorID int64
type BookID int64

type Author struct {
	sweat.Record

	ID   AuthorID `db:"id,primaryKey,autoIncrement"`
	Name string   `db:"name"`

	Books sweat.LazyMany[Book] `rel:"target=author_id"`
}

func (e Author) TableName() string {
	return "author"
}

type Book struct {
	sweat.Record

	ID       BookID   `db:"id,primaryKey,autoIncrement"`
	Title    string   `db:"title"`
	Pages    int      `db:"pages"`
	Price    float64  `db:"price"`
	AuthorID AuthorID `db:"author_id"`

	Author sweat.Lazy[Author] `rel:"local=author_id"`
}

func (e Book) TableName() string {
	return "book"
}

func testSuite(t *testing.T, driver sweat.Driver, configFuncs ...sweat.ConfigFunc) {
	configFuncs = append(configFuncs, sweat.WithLogger(slog.Default()))
	manager, err := sweat.New(driver, configFuncs...)
	assert.NilError(t, err)
	t.Cleanup(func() {
		_ = manager.Close()
	})

	sweattest.LoadFixture(t, manager.Connection(), "testdata/library.yaml")

	{ // Fetch every seeded row
		books := []Book{}
		assert.NilError(t, manager.Find(&Book{}).All(context.Background(), &books))
		assert.Equal(t, len(books), 4)
	}

	{ // Filter with IN over a sequence value
		books := []Book{}
		err := manager.Find(&Book{}).Where("id", "IN", []int64{1, 2}).All(context.Background(), &books)
		assert.NilError(t, err)
		assert.Equal(t, len(books), 2)
	}

	{ // Combine batch criteria, sorting and paging
		books := []Book{}
		err := manager.Find(&Book{}).
			Where(sweat.Criteria{"price": sweat.Criteria{">": 10.0}}).
			Sort("title").
			Limit(2).
			Offset(2).
			All(context.Background(), &books)
		assert.NilError(t, err)
		assert.Equal(t, len(books), 2)
		assert.Equal(t, books[0].Title, "Exhalation")
		assert.Equal(t, books[1].Title, "Stories of Your Life and Others")
	}

	{ // Get by primary key marks the instance as saved
		book := Book{}
		assert.NilError(t, manager.Get(context.Background(), &book, 3))
		assert.Equal(t, book.Title, "Stories of Your Life and Others")
		assert.Equal(t, book.Saved(), true)
	}

	{ // Get for a key that does not exist
		book := Book{}
		assert.ErrorIs(t, manager.Get(context.Background(), &book, 9999), sweat.ErrNoRows)
	}

	{ // One runs the same statement All would and takes the first row
		book := Book{}
		err := manager.Find(&Book{}).Where("author_id", 2).Sort("title", "DESC").One(context.Background(), &book)
		assert.NilError(t, err)
		assert.Equal(t, book.Title, "Stories of Your Life and Others")
	}

	{ // Queued input problems surface on execution instead of running
		books := []Book{}
		err := manager.Find(&Book{}).Where("shelf", 9).Limit(-1).All(context.Background(), &books)

		validationErr := sweat.ValidationError{}
		assert.Assert(t, errors.As(err, &validationErr))
		assert.Equal(t, len(books), 0)
	}

	{ // Insert a new row and read back the generated key
		book := Book{Title: uuid.NewString(), Pages: 100, Price: 9.99, AuthorID: 1}
		assert.NilError(t, manager.Save(context.Background(), &book))
		assert.Assert(t, book.ID > 4)
		assert.Equal(t, book.Saved(), true)

		{ // Saving again updates the same row
			book.Price = 19.99
			assert.NilError(t, manager.Save(context.Background(), &book))

			fetched := Book{}
			assert.NilError(t, manager.Get(context.Background(), &fetched, book.ID))
			assert.Equal(t, fetched.Price, 19.99)
		}

		{ // Delete it and confirm it is gone
			assert.NilError(t, manager.Delete(context.Background(), &book))

			missing := Book{}
			assert.ErrorIs(t, manager.Get(context.Background(), &missing, book.ID), sweat.ErrNoRows)
		}
	}

	{ // Deleting an instance that never hit storage fails fast
		book := Book{Title: uuid.NewString(), AuthorID: 1}
		assert.ErrorIs(t, manager.Delete(context.Background(), &book), sweat.ErrNotSaved)
	}

	{ // Resolve a to-one relation and hop back across the to-many side
		book := Book{}
		assert.NilError(t, manager.Get(context.Background(), &book, 1))

		author, err := book.Author.Get(context.Background())
		assert.NilError(t, err)
		assert.Equal(t, author.Name, "Ann Leckie")

		books, err := author.Books.Get(context.Background())
		assert.NilError(t, err)
		assert.Equal(t, len(books), 2)
	}

	{ // Hand-set relation values win until the next fetch discards them
		book := Book{}
		assert.NilError(t, manager.Get(context.Background(), &book, 2))

		book.Author.Set(&Author{Name: "Placeholder"})
		placeholder, err := book.Author.Get(context.Background())
		assert.NilError(t, err)
		assert.Equal(t, placeholder.Name, "Placeholder")

		assert.NilError(t, manager.Get(context.Background(), &book, 2))
		author, err := book.Author.Get(context.Background())
		assert.NilError(t, err)
		assert.Equal(t, author.Name, "Ann Leckie")
	}

	{ // Relation access queries again every time, nothing is retained
		book := Book{}
		assert.NilError(t, manager.Get(context.Background(), &book, 1))

		before, err := book.Author.Get(context.Background())
		assert.NilError(t, err)

		renamed := before
		renamed.Name = uuid.NewString()
		assert.NilError(t, manager.Save(context.Background(), &renamed))

		after, err := book.Author.Get(context.Background())
		assert.NilError(t, err)
		assert.Equal(t, after.Name, renamed.Name)
		assert.Assert(t, after.Name != before.Name)
	}

	{ // Relations on instances that never hit storage are unresolved
		book := Book{AuthorID: 1}
		_, err := book.Author.Get(context.Background())
		assert.ErrorIs(t, err, sweat.ErrUnresolvedRelation)
	}
}
