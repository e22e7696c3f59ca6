package catalog

type Entry struct {
	ID int64
}
