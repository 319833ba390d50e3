package repository

import (
	"errors"
	"fmt"

	"GreetFM/model"

	"gorm.io/gorm"
)

// DeviceRepository defines device registry operations.
type DeviceRepository interface {
	Create(device *model.Device) error
	GetByDeviceID(deviceID string) (*model.Device, error)
	List() ([]model.Device, error)
}

// gormDeviceRepository implements DeviceRepository with GORM.
type gormDeviceRepository struct {
	db *gorm.DB
}

// NewGormDeviceRepository creates a device repository.
func NewGormDeviceRepository(db *gorm.DB) DeviceRepository {
	return &gormDeviceRepository{db: db}
}

// Create inserts a new device row.
func (r *gormDeviceRepository) Create(device *model.Device) error {
	if err := r.db.Create(device).Error; err != nil {
		return fmt.Errorf("failed to create device %s: %w", device.DeviceID, err)
	}
	return nil
}

// GetByDeviceID looks a device up by its fleet id. Returns (nil, nil)
// when absent.
func (r *gormDeviceRepository) GetByDeviceID(deviceID string) (*model.Device, error) {
	var device model.Device
	err := r.db.Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device %s: %w", deviceID, err)
	}
	return &device, nil
}

// List returns every registered device.
func (r *gormDeviceRepository) List() ([]model.Device, error) {
	var devices []model.Device
	if err := r.db.Order("device_id").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}
