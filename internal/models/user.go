package models

import "gorm.io/gorm"

// User represents an account in the system. Guest accounts are minted on the
// fly for invite links and may only post into temporary (lobby/game) chat rooms.
type User struct {
	gorm.Model
	Nickname     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:50;not null;default:'user';index"`
	Guest        bool   `gorm:"not null;default:false"`
}
