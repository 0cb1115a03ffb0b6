package newsletter

// Database is implemented by storage backends (bolt, sqlite)
type Database interface {
	Open() error
	Close() error
}
