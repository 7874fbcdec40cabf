package models

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// BackupVersion is written to every export and required on import.
const BackupVersion = "1.1"

// Backup is the full academy state exchanged as a JSON document.
type Backup struct {
	Version      string               `json:"version"`
	ExportDate   time.Time            `json:"exportDate"`
	Students     []StudentDetail      `json:"students"`
	Teachers     []Teacher            `json:"teachers"`
	Attendance   []AttendanceRecord   `json:"attendance"`
	Transactions []Transaction        `json:"transactions"`
	Prices       *pricing.TariffTable `json:"prices,omitempty"`
	Settings     *SchoolSettings      `json:"schoolSettings,omitempty"`
}
