package store

import (
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestSampleEvents(t *testing.T) {
	events, err := SampleEvents()
	require.NoErrorf(t, err, "should not fail but got: %s", errors.Prettify(err))
	require.NotEmpty(t, events, "should contain events")
	festivalazo := events[0]
	assert.Equal(t, "FESTIVALAZO", festivalazo.Name, "should have correct name")
	assert.True(t, festivalazo.IsActive, "should be active")
	assert.True(t, festivalazo.Logo.Valid, "should have logo")
	assert.Len(t, festivalazo.Images, 9, "should have all sponsor images")
	assert.GreaterOrEqual(t, len(festivalazo.Images), games.DefaultPairCount, "should be playable")
	for _, event := range events {
		assert.NotEmpty(t, event.ID, "should have fixed id")
		for _, image := range event.Images {
			assert.NotEmpty(t, image.CompanyName, "image should have company name")
			assert.NotEmpty(t, image.ImageURL, "image should have url")
		}
	}
}
