package orm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationDefaultsAndCap(t *testing.T) {
	p := NewPagination(0, 0, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.Limit)

	p = NewPagination(3, 500, 100)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())

	p = NewPagination(2, 500, 0)
	assert.Equal(t, 500, p.Limit)
}

func TestWithTotalComputesPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		pages int64
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{25, 5, 5},
	}
	for _, tc := range cases {
		p := NewPagination(1, tc.limit, 0).WithTotal(tc.total)
		assert.Equal(t, tc.pages, p.Pages, "total=%d limit=%d", tc.total, tc.limit)
		assert.Equal(t, tc.total, p.Total)
	}
}

func TestNewPaginationClampsHugePage(t *testing.T) {
	p := NewPagination(math.MaxInt, 50, 100)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	assert.Equal(t, (math.MaxInt/50-1)*50, p.Offset())

	p = NewPagination(math.MaxInt, 1, 0)
	assert.Equal(t, math.MaxInt-1, p.Offset())
}
