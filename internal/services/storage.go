package services

import (
	"context"
	"fmt"
	"io"
)

// StorageService stores rendered credential images
type StorageService interface {
	// Upload stores the object and returns its public URL
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error)

	// Delete removes an object
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for an object
	GetURL(key string) string

	// Exists reports whether an object is stored under key
	Exists(ctx context.Context, key string) (bool, error)
}

// CredentialImageKey is the storage key for one ticket's QR image
func CredentialImageKey(eventID, orderID, sequence int) string {
	return fmt.Sprintf("credentials/event-%d/order-%d/ticket-%d.png", eventID, orderID, sequence)
}
