package models

import "time"

// RadarScan is a purchased visibility boost.
type RadarScan struct {
	ID             string    `dynamodbav:"id" json:"id" gorm:"primaryKey"`
	UserID         string    `dynamodbav:"userId" json:"userId" gorm:"index;not null"`
	FPSpent        int       `dynamodbav:"fpSpent" json:"fpSpent"`
	ScannedAt      time.Time `dynamodbav:"scannedAt" json:"scannedAt"`
	BoostExpiresAt time.Time `dynamodbav:"boostExpiresAt" json:"boostExpiresAt"`
}

// RadarScansTable is the table name for radar scans
const RadarScansTable = "radar_scans"

// TableName binds the gorm model to RadarScansTable.
func (RadarScan) TableName() string { return RadarScansTable }

// Active reports whether the boost is still running at now.
func (s *RadarScan) Active(now time.Time) bool {
	return s.BoostExpiresAt.After(now)
}
