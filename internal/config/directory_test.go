package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDirectoryYAML = `
defaults:
  open: "09:00"
  close: "18:00"
  days_off: [6, 7]

locations:
  - id: 1
    name: Downtown
    timezone: Europe/Budapest
    hours:
      - { day: 4, open: "09:00", close: "11:00" }
  - id: 2
    name: Riverside

employees:
  - id: 11
    name: Anna Kovacs
    locations: [1]
  - id: 12
    name: Peter Nagy
    locations: [1, 2]
    hidden: true

services:
  - id: 100
    name: Consultation
    color: "#1d4ed8"
    duration: 30
`

func writeDirectory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDirectory(t *testing.T) {
	cfg, err := LoadDirectory(writeDirectory(t, validDirectoryYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Locations, 2)
	assert.Equal(t, "Downtown", cfg.Locations[0].Name)
	assert.Equal(t, "Europe/Budapest", cfg.Locations[0].Timezone)

	// Location 1 has explicit hours: defaults do not touch them.
	require.Len(t, cfg.Locations[0].Hours, 1)
	assert.Equal(t, 4, cfg.Locations[0].Hours[0].Day)

	// Location 2 has none: a full default week is generated.
	require.Len(t, cfg.Locations[1].Hours, 7)
	assert.Equal(t, "09:00", cfg.Locations[1].Hours[0].Open)
	assert.Equal(t, "18:00", cfg.Locations[1].Hours[0].Close)
	assert.False(t, cfg.Locations[1].Hours[0].Closed) // Monday
	assert.True(t, cfg.Locations[1].Hours[5].Closed)  // Saturday
	assert.True(t, cfg.Locations[1].Hours[6].Closed)  // Sunday

	require.Len(t, cfg.Employees, 2)
	assert.True(t, cfg.Employees[1].Hidden)

	assert.Equal(t, "Downtown", cfg.LocationByID(1).Name)
	assert.Nil(t, cfg.LocationByID(99))
	assert.Equal(t, "DirectoryConfig: 2 locations, 2 employees, 1 services", cfg.String())
}

func TestDirectoryValidate(t *testing.T) {
	base := func() *DirectoryConfig {
		return &DirectoryConfig{
			Locations: []LocationConfig{{ID: 1, Name: "Downtown"}},
			Employees: []EmployeeConfig{{ID: 11, Name: "Anna", Locations: []int64{1}}},
			Services:  []ServiceConfig{{ID: 100, Name: "Consultation"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*DirectoryConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *DirectoryConfig) {}, wantErr: ""},
		{name: "no locations", mutate: func(c *DirectoryConfig) { c.Locations = nil }, wantErr: "no locations"},
		{name: "bad location id", mutate: func(c *DirectoryConfig) { c.Locations[0].ID = 0 }, wantErr: "id must be positive"},
		{name: "duplicate location id", mutate: func(c *DirectoryConfig) {
			c.Locations = append(c.Locations, LocationConfig{ID: 1, Name: "Copy"})
		}, wantErr: "duplicate id"},
		{name: "missing location name", mutate: func(c *DirectoryConfig) { c.Locations[0].Name = "" }, wantErr: "name is required"},
		{name: "bad weekday", mutate: func(c *DirectoryConfig) {
			c.Locations[0].Hours = []DayHoursConfig{{Day: 8, Open: "09:00", Close: "17:00"}}
		}, wantErr: "day must be 1-7"},
		{name: "bad open format", mutate: func(c *DirectoryConfig) {
			c.Locations[0].Hours = []DayHoursConfig{{Day: 1, Open: "9am", Close: "17:00"}}
		}, wantErr: "invalid format"},
		{name: "closed day skips format check", mutate: func(c *DirectoryConfig) {
			c.Locations[0].Hours = []DayHoursConfig{{Day: 1, Open: "whenever", Closed: true}}
		}, wantErr: ""},
		{name: "employee unknown location", mutate: func(c *DirectoryConfig) {
			c.Employees[0].Locations = []int64{42}
		}, wantErr: "unknown location"},
		{name: "duplicate employee id", mutate: func(c *DirectoryConfig) {
			c.Employees = append(c.Employees, EmployeeConfig{ID: 11, Name: "Copy"})
		}, wantErr: "duplicate id"},
		{name: "bad service id", mutate: func(c *DirectoryConfig) { c.Services[0].ID = -1 }, wantErr: "id must be positive"},
		{name: "bad days off", mutate: func(c *DirectoryConfig) { c.Defaults.DaysOff = []int{0} }, wantErr: "invalid day"},
		// Timezone strings are not validated; the scheduler falls back at
		// request time.
		{name: "garbage timezone accepted", mutate: func(c *DirectoryConfig) {
			c.Locations[0].Timezone = "Mars/Olympus"
		}, wantErr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadDirectory(writeDirectory(t, "locations: [broken"))
	assert.Error(t, err)

	_, err = LoadDirectory(writeDirectory(t, "locations: []\n"))
	assert.Error(t, err)
}

func TestWatchDirectory(t *testing.T) {
	path := writeDirectory(t, validDirectoryYAML)

	var mu sync.Mutex
	var updates []*DirectoryConfig
	onUpdate := func(cfg *DirectoryConfig) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, WatchDirectory(ctx, path, 10*time.Millisecond, onUpdate))

	// Initial load happens synchronously.
	mu.Lock()
	require.Len(t, updates, 1)
	mu.Unlock()

	// Touch the file with new content and a newer mtime.
	updated := validDirectoryYAML + `
  - id: 102
    name: Extended
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	last := updates[len(updates)-1]
	mu.Unlock()
	assert.Len(t, last.Services, 2)
}

func TestWatchDirectory_InitialLoadFailure(t *testing.T) {
	err := WatchDirectory(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), time.Second, nil)
	assert.Error(t, err)
}
