package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Vendor  *VendorRepository
	PO      *PORepository
	History *HistoryRepository
	User    *UserRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Vendor:  NewVendorRepository(db),
		PO:      NewPORepository(db),
		History: NewHistoryRepository(db),
		User:    NewUserRepository(db),
	}
}
