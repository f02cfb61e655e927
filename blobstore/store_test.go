package blobstore

import (
	"context"
	"strings"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/retailstore/errors"
)

// fakeObjectStore is an in-memory jetstream.ObjectStore; only the
// methods the store calls are implemented.
type fakeObjectStore struct {
	jetstream.ObjectStore
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) PutBytes(_ context.Context, name string, data []byte) (*jetstream.ObjectInfo, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.objects[name] = data
	return &jetstream.ObjectInfo{
		ObjectMeta: jetstream.ObjectMeta{Name: name},
		Size:       uint64(len(data)),
	}, nil
}

func (f *fakeObjectStore) GetBytes(_ context.Context, name string) ([]byte, error) {
	data, ok := f.objects[name]
	if !ok {
		return nil, jetstream.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, name string) error {
	if _, ok := f.objects[name]; !ok {
		return jetstream.ErrObjectNotFound
	}
	delete(f.objects, name)
	return nil
}

func (f *fakeObjectStore) List(_ context.Context, _ ...jetstream.ListObjectsOpt) ([]*jetstream.ObjectInfo, error) {
	if len(f.objects) == 0 {
		return nil, jetstream.ErrNoObjectsFound
	}
	infos := make([]*jetstream.ObjectInfo, 0, len(f.objects))
	for name, data := range f.objects {
		infos = append(infos, &jetstream.ObjectInfo{
			ObjectMeta: jetstream.ObjectMeta{Name: name},
			Size:       uint64(len(data)),
		})
	}
	return infos, nil
}

func TestUploadImage(t *testing.T) {
	fake := newFakeObjectStore()
	store := NewStore(fake, "product-images", "https://cdn.example.com/", nil)

	name, uri, err := store.UploadImage(context.Background(), []byte("png-bytes"), "widget.png")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, "_widget.png"))
	assert.Greater(t, len(name), len("_widget.png"), "name carries a unique prefix")
	assert.Equal(t, "https://cdn.example.com/product-images/"+name, uri)

	data, err := store.Image(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestUploadImage_SameFilenameNeverCollides(t *testing.T) {
	fake := newFakeObjectStore()
	store := NewStore(fake, "product-images", "https://cdn.example.com", nil)

	a, _, err := store.UploadImage(context.Background(), []byte("one"), "dup.png")
	require.NoError(t, err)
	b, _, err := store.UploadImage(context.Background(), []byte("two"), "dup.png")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, fake.objects, 2)
}

func TestImage_NotFound(t *testing.T) {
	store := NewStore(newFakeObjectStore(), "product-images", "https://cdn.example.com", nil)

	_, err := store.Image(context.Background(), "missing.png")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteImage(t *testing.T) {
	fake := newFakeObjectStore()
	store := NewStore(fake, "product-images", "https://cdn.example.com", nil)

	name, _, err := store.UploadImage(context.Background(), []byte("x"), "gone.png")
	require.NoError(t, err)

	require.NoError(t, store.DeleteImage(context.Background(), name))
	assert.Empty(t, fake.objects)

	// Second delete is a no-op.
	require.NoError(t, store.DeleteImage(context.Background(), name))
}

func TestImageURIs(t *testing.T) {
	fake := newFakeObjectStore()
	store := NewStore(fake, "product-images", "https://cdn.example.com", nil)

	// Empty bucket yields an empty slice, not an error.
	uris, err := store.ImageURIs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, uris)

	_, uriA, err := store.UploadImage(context.Background(), []byte("a"), "a.png")
	require.NoError(t, err)
	_, uriB, err := store.UploadImage(context.Background(), []byte("b"), "b.png")
	require.NoError(t, err)

	uris, err = store.ImageURIs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{uriA, uriB}, uris)
}
