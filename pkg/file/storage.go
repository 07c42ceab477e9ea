package file

import (
	"context"
	"time"
)

// Storage keeps opaque byte blobs addressed by a reference string.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put writes data under ref, replacing any previous content.
	Put(ctx context.Context, ref string, data []byte) error
	// Get returns the content stored under ref or ErrFileNotFound.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Delete removes ref. Deleting a missing ref is not an error.
	Delete(ctx context.Context, ref string) error
}

// Lister is implemented by storages that can enumerate their content.
type Lister interface {
	List(ctx context.Context) ([]Object, error)
}

// TempPruner is implemented by storages that stage writes in temporary
// files. PruneTemp removes staged files last modified before cutoff, which
// only a crash between staging and commit leaves behind.
type TempPruner interface {
	PruneTemp(ctx context.Context, cutoff time.Time) (int, error)
}

// Object describes a stored blob.
type Object struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

// Config selects and configures the blob backend.
type Config struct {
	Driver    string        `env:"BLOB_STORE" envDefault:"local"`            // Driver is one of local, s3 or badger.
	LocalDir  string        `env:"BLOB_LOCAL_DIR" envDefault:"./uploads"`    // LocalDir is the directory used by the local driver.
	BadgerDir string        `env:"BADGER_DIR" envDefault:"./data/blobs"`     // BadgerDir is the database directory used by the badger driver.
	BadgerTTL time.Duration `env:"BADGER_BLOB_TTL" envDefault:"0s"`          // BadgerTTL expires badger entries natively; zero keeps them until deleted.
	S3        S3Config
}

const (
	DriverLocal  = "local"
	DriverS3     = "s3"
	DriverBadger = "badger"
)
