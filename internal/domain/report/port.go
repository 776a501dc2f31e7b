package report

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrAlreadyExists = errors.New("report already exists")
)

// Kind separates the report families kept in one store.
type Kind string

const (
	KindAccess     Kind = "access"
	KindInactivity Kind = "inactivity"
)

// Repository stores serialized reports. Reports are write-once: a second
// Put for the same kind and id fails with ErrAlreadyExists.
type Repository interface {
	Put(ctx context.Context, kind Kind, id string, payload []byte) error
	Get(ctx context.Context, kind Kind, id string) ([]byte, error)
}
