package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedule(t *testing.T) {
	s := Default()

	sl, ok := s.Slot("10:00 AM")
	require.True(t, ok)
	assert.Equal(t, 3, sl.Capacity)

	price, err := s.Price("residential", "Medium (1000-2000 sq ft)")
	require.NoError(t, err)
	assert.Equal(t, int64(16000), price)

	_, err = s.Price("Residential", "Mansion")
	assert.ErrorIs(t, err, domain.ErrUnknownService)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[slots]]
time = "9:00 AM"
capacity = 1

[[services]]
name = "Windows"
  [[services.sizes]]
  label = "Any"
  price_cents = 5000
`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Slots, 1)
	_, ok := s.Slot("10:00 AM")
	assert.False(t, ok)
}

func TestLoadRejectsBadSlots(t *testing.T) {
	tests := map[string]string{
		"bad format": "[[slots]]\ntime = \"9am\"\ncapacity = 1\n",
		"duplicate":  "[[slots]]\ntime = \"9:00 AM\"\ncapacity = 1\n[[slots]]\ntime = \"9:00 AM\"\ncapacity = 2\n",
		"empty":      "",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
