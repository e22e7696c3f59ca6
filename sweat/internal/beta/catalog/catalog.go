package catalog

type Entry struct {
	Code string
}
