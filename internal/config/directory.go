package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DayHoursConfig is one weekday's hours in the directory file.
type DayHoursConfig struct {
	Day    int    `yaml:"day"` // 1=Mon .. 7=Sun
	Open   string `yaml:"open,omitempty"`
	Close  string `yaml:"close,omitempty"`
	Closed bool   `yaml:"closed,omitempty"`
}

// LocationConfig describes a location and its weekly hours.
type LocationConfig struct {
	ID       int64            `yaml:"id"`
	Name     string           `yaml:"name"`
	Timezone string           `yaml:"timezone,omitempty"`
	Hours    []DayHoursConfig `yaml:"hours,omitempty"`
}

// EmployeeConfig describes an employee and its location assignments.
type EmployeeConfig struct {
	ID        int64   `yaml:"id"`
	Name      string  `yaml:"name"`
	Locations []int64 `yaml:"locations"`
	Hidden    bool    `yaml:"hidden,omitempty"`
}

// ServiceConfig describes a bookable service.
type ServiceConfig struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	Color     string `yaml:"color,omitempty"`
	TextColor string `yaml:"text_color,omitempty"`
	Duration  int    `yaml:"duration,omitempty"` // minutes
}

// DirectoryDefaults holds hours applied to locations without explicit ones.
type DirectoryDefaults struct {
	Open    string `yaml:"open"`
	Close   string `yaml:"close"`
	DaysOff []int  `yaml:"days_off"` // 1=Mon .. 7=Sun
}

// DirectoryConfig is the root of directory.yaml: the synced master data
// for locations, employees and services.
type DirectoryConfig struct {
	Locations []LocationConfig  `yaml:"locations"`
	Employees []EmployeeConfig  `yaml:"employees"`
	Services  []ServiceConfig   `yaml:"services"`
	Defaults  DirectoryDefaults `yaml:"defaults"`
}

// LoadDirectory loads and validates the directory file.
func LoadDirectory(path string) (*DirectoryConfig, error) {
	if path == "" {
		path = "configs/directory.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory config: %w", err)
	}

	var cfg DirectoryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse directory config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate directory config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the directory for structural errors. Timezone strings
// are deliberately not validated here; the aggregator falls back to the
// site default at request time.
func (c *DirectoryConfig) Validate() error {
	if len(c.Locations) == 0 {
		return fmt.Errorf("no locations defined")
	}

	locationIDs := make(map[int64]bool)
	for i, loc := range c.Locations {
		if loc.ID <= 0 {
			return fmt.Errorf("location[%d]: id must be positive, got %d", i, loc.ID)
		}
		if locationIDs[loc.ID] {
			return fmt.Errorf("location[%d]: duplicate id %d", i, loc.ID)
		}
		locationIDs[loc.ID] = true
		if loc.Name == "" {
			return fmt.Errorf("location[%d]: name is required", i)
		}
		for j, h := range loc.Hours {
			if h.Day < 1 || h.Day > 7 {
				return fmt.Errorf("location[%d].hours[%d]: day must be 1-7, got %d", i, j, h.Day)
			}
			if err := validateHours(h, fmt.Sprintf("location[%d].hours[%d]", i, j)); err != nil {
				return err
			}
		}
	}

	employeeIDs := make(map[int64]bool)
	for i, e := range c.Employees {
		if e.ID <= 0 {
			return fmt.Errorf("employee[%d]: id must be positive, got %d", i, e.ID)
		}
		if employeeIDs[e.ID] {
			return fmt.Errorf("employee[%d]: duplicate id %d", i, e.ID)
		}
		employeeIDs[e.ID] = true
		if e.Name == "" {
			return fmt.Errorf("employee[%d]: name is required", i)
		}
		for _, locID := range e.Locations {
			if !locationIDs[locID] {
				return fmt.Errorf("employee[%d]: unknown location %d", i, locID)
			}
		}
	}

	for i, s := range c.Services {
		if s.ID <= 0 {
			return fmt.Errorf("service[%d]: id must be positive, got %d", i, s.ID)
		}
		if s.Name == "" {
			return fmt.Errorf("service[%d]: name is required", i)
		}
	}

	for i, d := range c.Defaults.DaysOff {
		if d < 1 || d > 7 {
			return fmt.Errorf("defaults.days_off[%d]: invalid day %d, must be 1-7", i, d)
		}
	}

	return nil
}

func validateHours(h DayHoursConfig, prefix string) error {
	if h.Closed {
		return nil
	}
	if h.Open != "" {
		if _, err := time.Parse("15:04", h.Open); err != nil {
			return fmt.Errorf("%s.open: invalid format %q, expected HH:MM", prefix, h.Open)
		}
	}
	if h.Close != "" {
		if _, err := time.Parse("15:04", h.Close); err != nil {
			return fmt.Errorf("%s.close: invalid format %q, expected HH:MM", prefix, h.Close)
		}
	}
	return nil
}

// applyDefaults fills in weekly hours for locations that configure none,
// using the defaults block.
func (c *DirectoryConfig) applyDefaults() {
	if c.Defaults.Open == "" && c.Defaults.Close == "" && len(c.Defaults.DaysOff) == 0 {
		return
	}

	daysOff := make(map[int]bool, len(c.Defaults.DaysOff))
	for _, d := range c.Defaults.DaysOff {
		daysOff[d] = true
	}

	for i := range c.Locations {
		if len(c.Locations[i].Hours) > 0 {
			continue
		}
		for day := 1; day <= 7; day++ {
			c.Locations[i].Hours = append(c.Locations[i].Hours, DayHoursConfig{
				Day:    day,
				Open:   c.Defaults.Open,
				Close:  c.Defaults.Close,
				Closed: daysOff[day],
			})
		}
	}
}

// LocationByID returns the location config by id, or nil.
func (c *DirectoryConfig) LocationByID(id int64) *LocationConfig {
	for i := range c.Locations {
		if c.Locations[i].ID == id {
			return &c.Locations[i]
		}
	}
	return nil
}

// String returns a summary of the directory.
func (c *DirectoryConfig) String() string {
	return fmt.Sprintf("DirectoryConfig: %d locations, %d employees, %d services",
		len(c.Locations), len(c.Employees), len(c.Services))
}
