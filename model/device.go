package model

import "time"

// Device is a registered fleet device. The secret is issued once at
// registration time; only its bcrypt hash is stored.
type Device struct {
	ID         int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	DeviceID   string    `json:"deviceId" gorm:"uniqueIndex;size:64"`
	Name       string    `json:"name" gorm:"size:128"`
	SecretHash string    `json:"-" gorm:"size:128"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName sets the GORM table name.
func (Device) TableName() string {
	return "devices"
}

// DeviceStatus is the control-plane view of a device: registry row plus
// live session state.
type DeviceStatus struct {
	Device
	Connected bool       `json:"connected"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}
