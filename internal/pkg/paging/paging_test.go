package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = New(0, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)

	p, err := New(0, 1)
	require.NoError(t, err)
	assert.Equal(t, Page{From: 0, Size: 1}, p)
}

func TestPage_IndexAndOffset(t *testing.T) {
	tests := []struct {
		name   string
		from   int
		size   int
		index  int
		offset int
	}{
		{"first page", 0, 10, 0, 0},
		{"exact multiple", 10, 10, 1, 10},
		{"floor division", 5, 2, 2, 4},
		{"from smaller than size", 3, 10, 0, 0},
		{"size one", 7, 1, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.from, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.index, p.Index())
			assert.Equal(t, tt.offset, p.Offset())
			assert.Equal(t, tt.size, p.Limit())
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	t.Run("middle page", func(t *testing.T) {
		p, _ := New(5, 2)
		assert.Equal(t, []int{4, 5}, Slice(items, p))
	})

	t.Run("short last page", func(t *testing.T) {
		p, _ := New(6, 3)
		assert.Equal(t, []int{6}, Slice(items, p))
	})

	t.Run("past the end", func(t *testing.T) {
		p, _ := New(20, 5)
		assert.Empty(t, Slice(items, p))
	})
}
