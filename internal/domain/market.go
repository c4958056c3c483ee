package domain

import "regexp"

// MarketStatus represents the lifecycle state of a market.
//
// Transitions: Active → Closed → {Canceled | InDispute → Resolved}, with
// Canceled also reachable directly from Active. Canceled and Resolved are
// terminal.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "active"
	MarketStatusClosed    MarketStatus = "closed"
	MarketStatusCanceled  MarketStatus = "canceled"
	MarketStatusInDispute MarketStatus = "in_dispute"
	MarketStatusResolved  MarketStatus = "resolved"
)

// Market is a binary or multi-option prediction market. Result stays nil
// until the market is resolved and is immutable afterwards.
type Market struct {
	ID               int64
	Creator          Identity
	Question         string
	Description      string
	Options          []string
	Category         string
	StartTime        int64 // unix seconds
	EndTime          int64 // unix seconds
	Status           MarketStatus
	ResolutionBond   int64
	ResolutionReward int64
	Result           *int
}

const (
	// MaxMarketOptions bounds the outcome option list.
	MaxMarketOptions = 10
)

var (
	questionPattern    = regexp.MustCompile(`^[A-Za-z0-9\s\?\.,!-]{10,200}$`)
	descriptionPattern = regexp.MustCompile(`^[A-Za-z0-9\s\.,!?-]{20,1000}$`)
)

// ValidateQuestion rejects question text that is not 10-200 characters of
// alphanumerics, whitespace, and basic punctuation.
func ValidateQuestion(question string) error {
	if !questionPattern.MatchString(question) {
		return ErrInvalidQuestion
	}
	return nil
}

// ValidateDescription rejects description text that is not 20-1000 characters
// of alphanumerics, whitespace, and basic punctuation.
func ValidateDescription(description string) error {
	if len(description) < 20 || len(description) > 1000 {
		return ErrInvalidDescription
	}
	if !descriptionPattern.MatchString(description) {
		return ErrInvalidDescription
	}
	return nil
}

// MarketStatistics summarizes matched activity for one market.
type MarketStatistics struct {
	MarketID    int64
	TotalVolume int64
	OrderCount  int64
	Status      MarketStatus
}
