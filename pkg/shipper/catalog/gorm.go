package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CarrierSetting is the operator-override row stored by the admin surface.
type CarrierSetting struct {
	ID          uint           `gorm:"primaryKey"`
	Code        string         `gorm:"type:varchar(32);not null;uniqueIndex"`
	Endpoint    string         `gorm:"type:varchar(255)"`
	Mode        string         `gorm:"type:varchar(16)"`
	Credentials datatypes.JSON `gorm:"type:jsonb"`
	Enabled     *bool
	IsPrimary   bool `gorm:"default:false"`
	TokenTTL    int64
	UpdatedAt   time.Time
}

// TableName pins the table name.
func (CarrierSetting) TableName() string {
	return "carrier_settings"
}

// Override converts the row. Credentials that are not a JSON object of strings are rejected.
func (s CarrierSetting) Override() (Override, error) {
	o := Override{
		Code:     shipper.Code(s.Code),
		Endpoint: s.Endpoint,
		Mode:     shipper.Mode(s.Mode),
		Enabled:  s.Enabled,
		Primary:  s.IsPrimary,
		TokenTTL: time.Duration(s.TokenTTL) * time.Second,
	}
	if len(s.Credentials) > 0 && string(s.Credentials) != "null" {
		if err := json.Unmarshal(s.Credentials, &o.Credentials); err != nil {
			return Override{}, fmt.Errorf("carrier setting %s: decoding credentials: %w", s.Code, err)
		}
	}
	return o, nil
}

// GormOverrides reads overrides from the carrier_settings table.
type GormOverrides struct {
	db *gorm.DB
}

// NewGormOverrides wraps an open connection.
func NewGormOverrides(db *gorm.DB) *GormOverrides {
	return &GormOverrides{db: db}
}

// OpenPostgres connects to dsn with gorm's postgres driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the carrier_settings table.
func (g *GormOverrides) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&CarrierSetting{})
}

// Override implements OverrideSource.
func (g *GormOverrides) Override(ctx context.Context, code shipper.Code) (Override, bool, error) {
	var row CarrierSetting
	err := g.db.WithContext(ctx).Where("code = ?", string(code)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Override{}, false, nil
	}
	if err != nil {
		return Override{}, false, fmt.Errorf("loading carrier setting %s: %w", code, err)
	}
	o, err := row.Override()
	if err != nil {
		return Override{}, false, err
	}
	return o, true, nil
}

// Save upserts the override for o.Code.
func (g *GormOverrides) Save(ctx context.Context, o Override) error {
	creds, err := json.Marshal(o.Credentials)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	row := CarrierSetting{
		Code:        string(o.Code),
		Endpoint:    o.Endpoint,
		Mode:        string(o.Mode),
		Credentials: datatypes.JSON(creds),
		Enabled:     o.Enabled,
		IsPrimary:   o.Primary,
		TokenTTL:    int64(o.TokenTTL / time.Second),
	}
	return g.db.WithContext(ctx).
		Where(CarrierSetting{Code: row.Code}).
		Assign(row).
		FirstOrCreate(&CarrierSetting{}).Error
}

var _ OverrideSource = (*GormOverrides)(nil)
