package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Str(t *testing.T) {
	params := Params{"name": "  Anna  "}

	assert.Equal(t, "Anna", params.Str("name"))
	assert.Empty(t, params.Str("missing"))
	assert.True(t, params.Has("name"))
	assert.False(t, params.Has("missing"))
}

func TestParams_Int(t *testing.T) {
	params := Params{"limit": "25", "blank": "   ", "bad": "abc"}

	limit, err := params.Int("limit", 0)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	fallback, err := params.Int("missing", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, fallback)

	fallback, err = params.Int("blank", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, fallback)

	_, err = params.Int("bad", 0)
	assert.Error(t, err)
}

func TestParams_IntList(t *testing.T) {
	params := Params{
		"plain":    "1,2,3",
		"spaced":   " 4 , 5 ",
		"brackets": "[7,8,9]",
		"empty":    "",
		"bad":      "1,x",
	}

	numbers, err := params.IntList("plain")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers)

	numbers, err = params.IntList("spaced")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, numbers)

	numbers, err = params.IntList("brackets")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 9}, numbers)

	numbers, err = params.IntList("empty")
	require.NoError(t, err)
	assert.Nil(t, numbers)

	_, err = params.IntList("bad")
	assert.Error(t, err)
}
