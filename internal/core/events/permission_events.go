package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePermissionRequested = "permission.requested"
	EventTypePermissionResponded = "permission.responded"
	EventTypePermissionRevoked   = "permission.revoked"
	EventTypePengadaanSubmitted  = "pengadaan.submitted"
)

type PermissionRequestedEvent struct {
	BaseEvent
	PermissionID   string `json:"permission_id"`
	UserID         int64  `json:"user_id"`
	PengadaanID    int64  `json:"pengadaan_id"`
	PermissionType string `json:"permission_type"`
}

func NewPermissionRequestedEvent(permissionID string, userID, pengadaanID int64, permissionType string) *PermissionRequestedEvent {
	return &PermissionRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id":   permissionID,
				"user_id":         userID,
				"pengadaan_id":    pengadaanID,
				"permission_type": permissionType,
			},
		},
		PermissionID:   permissionID,
		UserID:         userID,
		PengadaanID:    pengadaanID,
		PermissionType: permissionType,
	}
}

type PermissionRespondedEvent struct {
	BaseEvent
	PermissionID string `json:"permission_id"`
	AdminID      int64  `json:"admin_id"`
	Status       string `json:"status"`
	UserID       int64  `json:"user_id"`
	PengadaanID  int64  `json:"pengadaan_id"`
}

func NewPermissionRespondedEvent(permissionID string, adminID int64, status string, userID, pengadaanID int64) *PermissionRespondedEvent {
	return &PermissionRespondedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionResponded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id": permissionID,
				"admin_id":      adminID,
				"status":        status,
				"user_id":       userID,
				"pengadaan_id":  pengadaanID,
			},
		},
		PermissionID: permissionID,
		AdminID:      adminID,
		Status:       status,
		UserID:       userID,
		PengadaanID:  pengadaanID,
	}
}

type PermissionRevokedEvent struct {
	BaseEvent
	PermissionID string `json:"permission_id"`
	AdminID      int64  `json:"admin_id"`
	Reason       string `json:"reason"`
}

func NewPermissionRevokedEvent(permissionID string, adminID int64, reason string) *PermissionRevokedEvent {
	return &PermissionRevokedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionRevoked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id": permissionID,
				"admin_id":      adminID,
				"reason":        reason,
			},
		},
		PermissionID: permissionID,
		AdminID:      adminID,
		Reason:       reason,
	}
}

type PengadaanSubmittedEvent struct {
	BaseEvent
	PengadaanID int64 `json:"pengadaan_id"`
	UserID      int64 `json:"user_id"`
}

func NewPengadaanSubmittedEvent(pengadaanID, userID int64) *PengadaanSubmittedEvent {
	return &PengadaanSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePengadaanSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"pengadaan_id": pengadaanID,
				"user_id":      userID,
			},
		},
		PengadaanID: pengadaanID,
		UserID:      userID,
	}
}
