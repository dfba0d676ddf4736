package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is invalid")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- catalog sync ------------------
var (
	ErrInvalidProductId   = errors.New("invalid product id")
	ErrInvalidAction      = errors.New("invalid sync action")
	ErrProductNotFound    = errors.New("product not found")
	ErrNoDefaultVariant   = errors.New("no default variant found")
	ErrPublishFailure     = errors.New("failed to publish sync message")
	ErrSerialization      = errors.New("failed to serialize sync message")
	ErrBulkSyncInProgress = errors.New("bulk sync is already running")
)
