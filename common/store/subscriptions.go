package store

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrialing  SubscriptionStatus = "trialing"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
)

var subscriptionStatuses = map[string]SubscriptionStatus{
	"active":     SubscriptionActive,
	"activa":     SubscriptionActive,
	"trialing":   SubscriptionTrialing,
	"prueba":     SubscriptionTrialing,
	"en_prueba":  SubscriptionTrialing,
	"expired":    SubscriptionExpired,
	"vencida":    SubscriptionExpired,
	"cancelled":  SubscriptionCancelled,
	"canceled":   SubscriptionCancelled,
	"cancelada":  SubscriptionCancelled,
	"suspended":  SubscriptionSuspended,
	"suspendida": SubscriptionSuspended,
}

func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return s.Scan(string(v))
	case string:
		status, ok := subscriptionStatuses[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return fmt.Errorf("unknown subscription status %q", v)
		}
		*s = status
	default:
		return errors.New("need a string subscription status")
	}
	return nil
}

func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Terminal statuses deny access whatever the dates say.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionExpired || s == SubscriptionCancelled || s == SubscriptionSuspended
}

type Subscription struct {
	SubscriptionId int64 `gorm:"primary_key"`
	DaycareId      sql.NullString
	Status         SubscriptionStatus
	OnTrial        Flag
	TrialEndsOn    *time.Time
	PaidUntil      *time.Time
	CreatedAt      time.Time
}

func (s Subscription) Trialing() bool {
	return s.Status == SubscriptionTrialing || s.OnTrial.True()
}

func (s *Store) AddSubscription(tx *gorm.DB, subscription Subscription) (Subscription, error) {
	db := s.dbOrTx(tx)

	if err := db.Create(&subscription).Error; err != nil {
		return Subscription{}, err
	}
	return subscription, nil
}

// GetLatestSubscription returns the most recently created subscription of the daycare.
func (s *Store) GetLatestSubscription(tx *gorm.DB, daycareId string) (Subscription, error) {
	db := s.dbOrTx(tx)

	subscription := Subscription{}
	err := db.Where("daycare_id = ?", daycareId).Order("subscription_id DESC").Limit(1).Find(&subscription).Error
	if gorm.IsRecordNotFoundError(err) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	return subscription, nil
}
