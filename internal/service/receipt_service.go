package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/repository/storage"
	"github.com/rs/zerolog/log"
)

const (
	MaxReceiptSize     = 5 * 1024 * 1024 // 5MB
	MaxReceiptWidth    = 1200
	ReceiptJPEGQuality = 85
	ReceiptURLExpiry   = 15 * time.Minute
)

var (
	ErrReceiptTooLarge          = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidReceiptFormat     = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrInvalidReceiptData       = errors.New("invalid image data")
	ErrReceiptStorageNotEnabled = errors.New("receipt storage not configured")
	ErrNoReceipt                = errors.New("transaction has no receipt")
)

// allowedReceiptExtensions maps extensions to content types
var allowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptService attaches receipt images to transactions. Images are
// validated, downscaled and re-encoded before upload; only the object key is
// stored on the transaction row.
type ReceiptService struct {
	storage         storage.ImageRepository
	transactionRepo domain.TransactionRepository
}

// NewReceiptService creates a new ReceiptService. A nil storage disables
// uploads without disabling the rest of the API.
func NewReceiptService(storage storage.ImageRepository, transactionRepo domain.TransactionRepository) *ReceiptService {
	return &ReceiptService{storage: storage, transactionRepo: transactionRepo}
}

// IsEnabled indicates whether receipt storage is configured
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// AttachReceipt validates and stores a receipt image for a transaction,
// replacing any previous one.
func (s *ReceiptService) AttachReceipt(ctx context.Context, userID uuid.UUID, transactionID int32, data []byte, filename string) (*domain.Transaction, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotEnabled
	}

	transaction, err := s.transactionRepo.GetByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	// Downscale wide images, keeping aspect ratio
	if img.Bounds().Dx() > MaxReceiptWidth {
		img = imaging.Resize(img, MaxReceiptWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: ReceiptJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	objectPath := storage.GenerateObjectPath(userID, transactionID, ".jpg")
	key, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	updated, err := s.transactionRepo.SetReceiptKey(userID, transactionID, &key)
	if err != nil {
		// The row update failed after the upload; remove the orphan object.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("Failed to clean up orphaned receipt object")
		}
		return nil, err
	}

	// Best-effort removal of the replaced object
	if transaction.ReceiptKey != nil && *transaction.ReceiptKey != key {
		if err := s.storage.Delete(ctx, *transaction.ReceiptKey); err != nil {
			log.Warn().Err(err).Str("key", *transaction.ReceiptKey).Msg("Failed to delete replaced receipt object")
		}
	}

	return updated, nil
}

// GetReceiptURL returns a short-lived presigned URL for a transaction's receipt
func (s *ReceiptService) GetReceiptURL(ctx context.Context, userID uuid.UUID, transactionID int32) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotEnabled
	}

	transaction, err := s.transactionRepo.GetByID(userID, transactionID)
	if err != nil {
		return "", err
	}
	if transaction.ReceiptKey == nil {
		return "", ErrNoReceipt
	}
	return s.storage.GeneratePresignedURL(ctx, *transaction.ReceiptKey, ReceiptURLExpiry)
}

// RemoveReceipt deletes a transaction's receipt image and clears the key
func (s *ReceiptService) RemoveReceipt(ctx context.Context, userID uuid.UUID, transactionID int32) error {
	if !s.IsEnabled() {
		return ErrReceiptStorageNotEnabled
	}

	transaction, err := s.transactionRepo.GetByID(userID, transactionID)
	if err != nil {
		return err
	}
	if transaction.ReceiptKey == nil {
		return nil
	}

	if _, err := s.transactionRepo.SetReceiptKey(userID, transactionID, nil); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, *transaction.ReceiptKey); err != nil {
		log.Warn().Err(err).Str("key", *transaction.ReceiptKey).Msg("Failed to delete receipt object")
	}
	return nil
}

func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedReceiptExtensions[ext]; !ok {
		return nil, ErrInvalidReceiptFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidReceiptData
	}
	return img, nil
}
