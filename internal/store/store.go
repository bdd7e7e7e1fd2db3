// Package store is the credential store: user records keyed by username,
// each owning a list of image metadata rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/petermazzocco/vitalarbor-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PasswordHasher is the slow hash used for stored passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

type Store struct {
	db     *gorm.DB
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func New(db *gorm.DB, hasher PasswordHasher) *Store {
	return &Store{db: db, hasher: hasher, now: time.Now}
}

// Open connects to the database named by driver ("postgres" or "sqlite")
// and migrates the user and image tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Image{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}
	return db, nil
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count user %q: %w", username, err)
	}
	return count > 0, nil
}

// Create stores a new user with a hashed password and no images. It never
// overwrites an existing record.
func (s *Store) Create(ctx context.Context, username, password string) error {
	exists, err := s.Exists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user %q: %w", username, common.ErrAlreadyExists)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Omit("Images").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %q: %w", username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("create user %q: %w", username, err)
	}
	return nil
}

// Verify checks password against the stored hash. A missing user still
// costs one hash comparison before ErrNotFound is returned.
func (s *Store) Verify(ctx context.Context, username, password string) (bool, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("username", "password_hash").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.burnCompare(password)
		return false, fmt.Errorf("user %q: %w", username, common.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("load user %q: %w", username, err)
	}
	return s.hasher.Compare(user.PasswordHash, password)
}

func (s *Store) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Compare(s.dummyHash, password)
	}
}

// AppendImage inserts one image row for username.
func (s *Store) AppendImage(ctx context.Context, username string, image *models.Image) error {
	exists, err := s.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %q: %w", username, common.ErrNotFound)
	}

	image.ID = 0
	image.Username = username
	if image.UUID == "" {
		image.UUID = uuid.NewString()
	}
	if image.UploadedAt.IsZero() {
		image.UploadedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("image %q: %w", image.Filename, common.ErrAlreadyExists)
		}
		return fmt.Errorf("append image %q: %w", image.Filename, err)
	}
	return nil
}

// UpdateImage applies mutate to the image of username named filename and
// writes it back. If no image matches, nothing happens and nil is returned.
func (s *Store) UpdateImage(ctx context.Context, username, filename string, mutate func(*models.Image)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.Image
		err := tx.Where("username = ? AND filename = ?", username, filename).First(&image).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load image %q: %w", filename, err)
		}

		id, owner := image.ID, image.Username
		mutate(&image)
		image.ID, image.Username = id, owner

		if err := tx.Save(&image).Error; err != nil {
			return fmt.Errorf("update image %q: %w", filename, err)
		}
		return nil
	})
}

// ListImages returns the images of username in upload order.
func (s *Store) ListImages(ctx context.Context, username string) ([]models.Image, error) {
	images := []models.Image{}
	err := s.db.WithContext(ctx).Where("username = ?", username).Order("id").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("list images of %q: %w", username, err)
	}
	return images, nil
}

func (s *Store) FindImage(ctx context.Context, username, filename string) (*models.Image, error) {
	var image models.Image
	err := s.db.WithContext(ctx).Where("username = ? AND filename = ?", username, filename).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("image %q: %w", filename, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load image %q: %w", filename, err)
	}
	return &image, nil
}
