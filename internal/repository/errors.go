package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 表示查詢不到對應的資料列
var ErrNotFound = errors.New("record not found")

// translate 將 gorm 的錯誤轉成本層的 sentinel error
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
