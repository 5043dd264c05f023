package services

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"

	"meetbarter/internal/models"
)

// EventPublisher is the seam to the external notification/chat bus.
// The engine publishes domain events here; it does not manage delivery.
type EventPublisher interface {
	Publish(event string, userIDs []uint, payload map[string]interface{})
}

// NotificationPublisher is the default publisher: it persists a
// notification row per affected user and logs the event. A real
// deployment would fan these out over websockets from the feed.
type NotificationPublisher struct {
	notifications *NotificationService
}

func NewNotificationPublisher(db *gorm.DB) *NotificationPublisher {
	return &NotificationPublisher{notifications: NewNotificationService(db)}
}

func (p *NotificationPublisher) Publish(event string, userIDs []uint, payload map[string]interface{}) {
	log.Printf("event %s -> users %v", event, userIDs)

	notifType, title, message := describeEvent(event, payload)
	for _, id := range userIDs {
		if err := p.notifications.Create(id, notifType, title, message, payload); err != nil {
			log.Printf("failed to persist %s notification for user %d: %v", event, id, err)
		}
	}
}

func describeEvent(event string, payload map[string]interface{}) (models.NotificationType, string, string) {
	switch event {
	case "escrow.released":
		return models.NotificationEscrowReleased, "Escrow Released",
			fmt.Sprintf("Escrow of %v VP has been released for trade %v", payload["amount"], payload["trade_id"])
	case "escrow.refunded":
		return models.NotificationEscrowRefunded, "Escrow Refunded",
			fmt.Sprintf("Escrow of %v VP has been refunded for trade %v", payload["amount"], payload["trade_id"])
	default:
		return models.NotificationStateChanged, "Trade Updated",
			fmt.Sprintf("Trade %v moved to %v", payload["trade_id"], payload["state"])
	}
}

// NotificationService persists per-user notifications.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Create creates a new notification
func (s *NotificationService) Create(userID uint, notifType models.NotificationType, title, message string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := s.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}
