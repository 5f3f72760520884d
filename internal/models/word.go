package models

import "gorm.io/gorm"

// Word is one solution candidate in the curated word list. Admins manage
// these; solution generation prefers the database list and falls back to the
// embedded defaults when a length has too few entries.
type Word struct {
	gorm.Model
	Text   string `gorm:"size:16;unique;not null"`
	Length int    `gorm:"not null;index"`
}
