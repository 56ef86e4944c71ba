package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestParsePaginationDefaults(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(20), limit)
}

func TestParsePaginationExplicit(t *testing.T) {
	page, limit, err := parsePaginationParams("3", "50")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page)
	assert.Equal(t, int64(50), limit)
}

func TestParsePaginationRejectsBadInput(t *testing.T) {
	for _, tc := range []struct{ page, limit string }{
		{"0", "10"},
		{"-1", "10"},
		{"abc", "10"},
		{"1", "0"},
		{"1", "xyz"},
	} {
		_, _, err := parsePaginationParams(tc.page, tc.limit)
		assert.ErrorIs(t, err, errInvalidPagination, "page=%q limit=%q", tc.page, tc.limit)
	}
}

func TestApplyPaginationWithLimitOnly(t *testing.T) {
	opts := options.Find()
	require.NoError(t, applyPagination(opts, "", "5"))

	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(5), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(0), *opts.Skip)
}

func TestApplyPaginationWithPageOnly(t *testing.T) {
	opts := options.Find()
	require.NoError(t, applyPagination(opts, "3", ""))

	// Default limit of 20 applies, so page 3 skips 40.
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(20), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(40), *opts.Skip)
}

func TestApplyPaginationAbsent(t *testing.T) {
	opts := options.Find()
	require.NoError(t, applyPagination(opts, "", ""))

	assert.Nil(t, opts.Limit)
	assert.Nil(t, opts.Skip)
}

func TestApplyPaginationBadInput(t *testing.T) {
	opts := options.Find()
	err := applyPagination(opts, "zero", "10")
	assert.ErrorIs(t, err, errInvalidPagination)
}
