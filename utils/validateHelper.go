package utils

import (
	"context"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
)

// ResourceCountWhere counts rows of T matching the condition.
func ResourceCountWhere[T any](ctx context.Context, query string, args ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).Where(query, args...).Count(&count).Error
	return count, err
}

// ValidateResourceId checks that a row of T with the given id exists.
// Returns ErrorRecordNotFound when it does not.
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateUnique checks no other row of T carries the same column value.
// exceptId excludes the row being updated; pass 0 on create.
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId int) error {
	var count int64
	var err error
	if exceptId == 0 {
		count, err = ResourceCountWhere[T](ctx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, column+" = ? AND id != ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("%s already exists", column)
	}
	return nil
}
