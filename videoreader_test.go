package videoreader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimg/videoreader"
	"github.com/minimg/videoreader/frame"
)

func TestCreateOddLengthParameters(t *testing.T) {
	_, err := videoreader.Create(context.Background(), "any", []string{"single"}, nil, nil, nil, nil, nil)
	require.Error(t, err)
	var cfgErr *videoreader.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "invalid parameters size")
}

func TestCreateMispairedAllocators(t *testing.T) {
	_, err := videoreader.Create(context.Background(), "any", nil, nil,
		func(*frame.Image) error { return nil }, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all or no allocators MUST be specified")
}

func TestCreateInvokesLogCallback(t *testing.T) {
	var got []string
	logFn := func(message string, level videoreader.LogLevel, userdata any) {
		got = append(got, message)
		assert.Equal(t, "marker", userdata)
	}
	_, _ = videoreader.Create(context.Background(), "any", nil, nil, nil, nil, logFn, "marker")
	assert.NotEmpty(t, got, "Create should log at least the opening line through the callback")
}
