package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/auctioneer/internal/testing/fake"
)

func TestFileLoader_LoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private.key")

	generator := fakeGenerator{
		calls: fake.NewCall(),
	}

	loader := NewFileLoader(path).(fileLoader)

	// Generate..
	data, err := loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 1, generator.calls.Len())

	// Read from the file..
	data, err = loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 1, generator.calls.Len())

	require.NoError(t, os.Remove(path))
	_, err = loader.LoadOrCreate(fakeGenerator{err: fake.GetError()})
	require.EqualError(t, err, fake.Err("generator failed"))

	loader.openFileFn = func(path string, flags int, perms os.FileMode) (*os.File, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("while creating file"))

	loader.statFn = func(path string) (os.FileInfo, error) {
		return nil, nil
	}
	loader.openFn = func(path string) (*os.File, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("failed to load file: while opening file"))
}

func TestFileLoader_Load(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "missing.key"))

	_, err := loader.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "while opening file: ")

	dir := t.TempDir()
	loader = NewFileLoader(dir)

	_, err = loader.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "while reading file: ")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeGenerator struct {
	calls *fake.Call
	err   error
}

func (g fakeGenerator) Generate() ([]byte, error) {
	g.calls.Add("Generate")

	return []byte{1, 2, 3}, g.err
}
