// Package blobstore provides the object-store adapter for product
// images, backed by a JetStream object store bucket.
package blobstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/retailstore/errors"
)

// Store holds product images in one object store bucket. Object names
// are prefixed with a fresh identifier, so uploads never collide even
// when callers reuse filenames.
type Store struct {
	bucket     jetstream.ObjectStore
	bucketName string
	baseURL    string
	logger     *slog.Logger
}

// NewStore creates a blob store over the given bucket. baseURL is the
// public prefix under which stored objects are addressable.
func NewStore(bucket jetstream.ObjectStore, bucketName, baseURL string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		bucket:     bucket,
		bucketName: bucketName,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// URI returns the public address of a stored object.
func (s *Store) URI(name string) string {
	return s.baseURL + "/" + s.bucketName + "/" + name
}

// UploadImage stores image bytes under a unique name derived from the
// original filename and returns the stored name and its public URI.
func (s *Store) UploadImage(ctx context.Context, data []byte, filename string) (string, string, error) {
	name := uuid.NewString() + "_" + filename

	if _, err := s.bucket.PutBytes(ctx, name, data); err != nil {
		return "", "", errors.Wrap(err, "blobstore", "UploadImage", "store object")
	}

	s.logger.Debug("image uploaded", "name", name, "bytes", len(data))
	return name, s.URI(name), nil
}

// Image returns the bytes of one stored object.
func (s *Store) Image(ctx context.Context, name string) ([]byte, error) {
	data, err := s.bucket.GetBytes(ctx, name)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, errors.WrapNotFound(errors.ErrBlobNotFound,
				"blobstore", "Image", "fetch "+name)
		}
		return nil, errors.Wrap(err, "blobstore", "Image", "fetch "+name)
	}
	return data, nil
}

// DeleteImage removes one stored object. Deleting an object that does
// not exist is a no-op.
func (s *Store) DeleteImage(ctx context.Context, name string) error {
	err := s.bucket.Delete(ctx, name)
	if err != nil && !stderrors.Is(err, jetstream.ErrObjectNotFound) {
		return errors.Wrap(err, "blobstore", "DeleteImage", "delete "+name)
	}
	return nil
}

// ImageURIs lists the public URIs of every stored object, sorted by
// name. An empty bucket yields an empty slice.
func (s *Store) ImageURIs(ctx context.Context) ([]string, error) {
	infos, err := s.bucket.List(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoObjectsFound) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "blobstore", "ImageURIs", "list objects")
	}

	uris := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Deleted {
			continue
		}
		uris = append(uris, s.URI(info.Name))
	}
	sort.Strings(uris)
	return uris, nil
}
