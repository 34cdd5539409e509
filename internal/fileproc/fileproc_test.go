package fileproc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesInputOrder(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.yaml", i)
	}

	got, errs := Map(context.Background(), files, Options{Workers: 8}, func(_ context.Context, path string) (string, error) {
		return strings.ToUpper(path), nil
	})

	require.Nil(t, errs)
	require.Len(t, got, len(files))
	for i, f := range files {
		assert.Equal(t, strings.ToUpper(f), got[i])
	}
}

func TestMapCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	files := []string{"c.yaml", "bad2.yaml", "a.yaml", "bad1.yaml"}

	var progress atomic.Int32
	got, errs := Map(context.Background(), files, Options{OnProgress: func() { progress.Add(1) }}, func(_ context.Context, path string) (int, error) {
		if strings.HasPrefix(path, "bad") {
			return 0, boom
		}
		return len(path), nil
	})

	assert.Equal(t, []int{6, 6}, got)
	require.True(t, errs.HasErrors())
	sorted := errs.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "bad1.yaml", sorted[0].Path)
	assert.ErrorIs(t, sorted[0], boom)
	assert.Contains(t, errs.Error(), "2 files failed to load")
	assert.EqualValues(t, len(files), progress.Load())
}

func TestMapEmpty(t *testing.T) {
	got, errs := Map(context.Background(), nil, Options{}, func(context.Context, string) (int, error) {
		t.Fatal("fn should not be called")
		return 0, nil
	})
	assert.Nil(t, got)
	assert.Nil(t, errs)
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, errs := Map(ctx, []string{"a", "b"}, Options{Workers: 1}, func(context.Context, string) (int, error) {
		return 1, nil
	})
	assert.Empty(t, got)
	require.True(t, errs.HasErrors())
	for _, e := range errs.Sorted() {
		assert.ErrorIs(t, e, context.Canceled)
	}
}

func TestLoadErrors(t *testing.T) {
	var nilErrs *LoadErrors
	assert.False(t, nilErrs.HasErrors())

	errs := &LoadErrors{}
	assert.Equal(t, "no errors", errs.Error())
	errs.Add("x.java", errors.New("bad"))
	assert.Equal(t, "x.java: bad", errs.Error())
}
