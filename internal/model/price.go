package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one real-time LMP observation for a pricing node.
// Money fields are $/MWh.
type PriceRecord struct {
	Node       string          `json:"node" yaml:"node"`
	Zone       string          `json:"zone" yaml:"zone"`
	LMP        decimal.Decimal `json:"lmp" yaml:"lmp"`
	Energy     decimal.Decimal `json:"energy_component" yaml:"energy_component"`
	Congestion decimal.Decimal `json:"congestion_component" yaml:"congestion_component"`
	Loss       decimal.Decimal `json:"loss_component" yaml:"loss_component"`
	Timestamp  time.Time       `json:"timestamp" yaml:"timestamp"`
}

// ZoneStatistic is the per-zone aggregate computed by the database for one day.
type ZoneStatistic struct {
	Zone          string          `json:"zone"`
	Records       int64           `json:"records"`
	AvgLMP        decimal.Decimal `json:"avg_lmp"`
	MinLMP        decimal.Decimal `json:"min_lmp"`
	MaxLMP        decimal.Decimal `json:"max_lmp"`
	AvgCongestion decimal.Decimal `json:"avg_congestion"`
	MaxCongestion decimal.Decimal `json:"max_congestion"`
}

// Snapshot is everything the reader returns for the most recent trading day.
// Records are ordered by LMP descending, Zones by average LMP descending.
type Snapshot struct {
	Date    time.Time
	Records []PriceRecord
	Zones   []ZoneStatistic
}

// Column describes one column of the price table.
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// TableProfile summarizes the price table for the inspect command.
type TableProfile struct {
	Table    string        `yaml:"table"`
	Columns  []Column      `yaml:"columns"`
	Earliest *time.Time    `yaml:"earliest,omitempty"`
	Latest   *time.Time    `yaml:"latest,omitempty"`
	RowCount int64         `yaml:"row_count"`
	Sample   []PriceRecord `yaml:"sample,omitempty"`
}
