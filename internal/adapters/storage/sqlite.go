package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// SQLiteStore implements ports.FindingStore using GORM and SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// ServerModel is the GORM model for the server inventory.
type ServerModel struct {
	AssetUUID       string `gorm:"primaryKey"`
	Hostname        string `gorm:"index"`
	IPV4            string `gorm:"column:ipv4"`
	OperatingSystem string
	DeviceType      string
	LastSeen        time.Time
	CreatedAt       time.Time
}

// FindingModel is the GORM model for classified findings. The unique
// (asset_uuid, plugin_id) index enforces the at-most-one-per-pair
// contract; callers must deduplicate before a batch insert.
type FindingModel struct {
	ID               uint   `gorm:"primaryKey"`
	AssetUUID        string `gorm:"uniqueIndex:idx_asset_plugin;index"`
	PluginID         string `gorm:"uniqueIndex:idx_asset_plugin"`
	Hostname         string `gorm:"index"`
	IPV4             string `gorm:"column:ipv4"`
	OperatingSystem  string
	DeviceType       string `gorm:"index"`
	PluginName       string
	Description      string
	Solution         string
	Synopsis         string
	CVE              string // comma-joined CVE identifiers
	Severity         string `gorm:"index"`
	State            string
	FirstFound       string
	LastFound        string
	ExploitAvailable bool
	HasPatch         bool
	Vendor           string `gorm:"index"`
	ProductFamily    string
	VendorConfidence string
	QuickWinCategory string
	CreatedAt        time.Time
}

// SyncRunModel is the audit trail for pipeline runs.
type SyncRunModel struct {
	RunID          string    `gorm:"primaryKey"`
	Timestamp      time.Time `gorm:"index"`
	FiltersJSON    string
	TotalFindings  int
	TotalAssets    int
	RuntimeSeconds float64
	GeneratedBy    string
}

// NewSQLiteStore initializes the database and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ServerModel{}, &FindingModel{}, &SyncRunModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_findings_quick_win ON finding_models(quick_win_category)")

	return &SQLiteStore{db: db}, nil
}

// ReplaceFindings clears the findings table and bulk-inserts the batch in
// one transaction (full refresh). Duplicate (asset, plugin) pairs violate
// the unique index and roll the whole batch back.
func (s *SQLiteStore) ReplaceFindings(ctx context.Context, findings []*domain.Vulnerability) (int, error) {
	models := make([]FindingModel, len(findings))
	for i, v := range findings {
		models[i] = toFindingModel(v)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&FindingModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 100).Error
	})
	if err != nil {
		return 0, err
	}
	return len(models), nil
}

// UpsertServers creates or updates inventory rows keyed by asset UUID.
func (s *SQLiteStore) UpsertServers(ctx context.Context, servers []domain.ServerRecord) (created, updated int, err error) {
	if len(servers) == 0 {
		return 0, 0, nil
	}

	uuids := make([]string, len(servers))
	for i, srv := range servers {
		uuids[i] = srv.AssetUUID
	}

	var existing []ServerModel
	if err := s.db.WithContext(ctx).Where("asset_uuid IN ?", uuids).Find(&existing).Error; err != nil {
		return 0, 0, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, m := range existing {
		existingSet[m.AssetUUID] = true
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, srv := range servers {
			model := ServerModel{
				AssetUUID:       srv.AssetUUID,
				Hostname:        srv.Hostname,
				IPV4:            srv.IPV4,
				OperatingSystem: srv.OperatingSystem,
				DeviceType:      string(srv.DeviceType),
				LastSeen:        srv.LastSeen,
			}
			if existingSet[srv.AssetUUID] {
				if err := tx.Model(&ServerModel{}).Where("asset_uuid = ?", srv.AssetUUID).
					Updates(map[string]any{
						"hostname":         model.Hostname,
						"ipv4":             model.IPV4,
						"operating_system": model.OperatingSystem,
						"device_type":      model.DeviceType,
						"last_seen":        model.LastSeen,
					}).Error; err != nil {
					return err
				}
				updated++
			} else {
				model.CreatedAt = time.Now().UTC()
				if err := tx.Create(&model).Error; err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// RecordRun appends an audit row for a completed pipeline run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	filtersJSON, _ := json.Marshal(run.Filters)

	model := SyncRunModel{
		RunID:          run.ID,
		Timestamp:      run.Timestamp,
		FiltersJSON:    string(filtersJSON),
		TotalFindings:  run.TotalFindings,
		TotalAssets:    run.TotalAssets,
		RuntimeSeconds: run.RuntimeSeconds,
		GeneratedBy:    run.GeneratedBy,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// CountFindings returns the number of stored findings.
func (s *SQLiteStore) CountFindings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FindingModel{}).Count(&count).Error
	return count, err
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toFindingModel(v *domain.Vulnerability) FindingModel {
	return FindingModel{
		AssetUUID:        v.AssetUUID,
		PluginID:         v.PluginID,
		Hostname:         v.Hostname,
		IPV4:             v.IPV4,
		OperatingSystem:  truncate(v.OperatingSystem, 255),
		DeviceType:       string(v.DeviceType),
		PluginName:       truncate(v.PluginName, 500),
		Description:      truncate(v.Description, 2000),
		Solution:         truncate(v.Solution, 2000),
		Synopsis:         truncate(v.Synopsis, 2000),
		CVE:              strings.Join(v.CVE, ","),
		Severity:         string(v.Severity),
		State:            v.State,
		FirstFound:       v.FirstFound,
		LastFound:        v.LastFound,
		ExploitAvailable: v.ExploitAvailable,
		HasPatch:         v.HasPatch,
		Vendor:           v.Vendor,
		ProductFamily:    v.ProductFamily,
		VendorConfidence: string(v.VendorConfidence),
		QuickWinCategory: string(v.QuickWin),
		CreatedAt:        time.Now().UTC(),
	}
}

// truncate caps s at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
