package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"payremind/internal/model"
)

// DurableStore keeps reminders in a relational database via GORM. A postgres
// DSN selects PostgreSQL; anything else is treated as a SQLite file path.
type DurableStore struct {
	dsn string

	mu      sync.Mutex
	db      *gorm.DB
	pending []model.Reminder
	paid    []model.Reminder
	lastID  uint
}

func NewDurableStore(dsn string) *DurableStore {
	if dsn == "" {
		dsn = "payremind.db"
	}
	return &DurableStore{dsn: dsn}
}

// Initialize opens the database, runs migrations and loads both views.
func (s *DurableStore) Initialize(ctx context.Context) error {
	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector, err := openDialector(s.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrStoreUnavailable, s.dsn, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&model.Reminder{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()

	return s.refresh(ctx)
}

// openDialector picks the GORM driver from the DSN shape.
func openDialector(dsn string) (gorm.Dialector, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn), nil
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	return sqlite.Open(dsn), nil
}

// ensureDirForSQLite creates the parent dir for a SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

func (s *DurableStore) LoadPending(ctx context.Context) error {
	var pending []model.Reminder
	if err := s.conn().WithContext(ctx).Where("payment_done = ?", false).Order("id ASC").Find(&pending).Error; err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	return nil
}

func (s *DurableStore) LoadPaid(ctx context.Context) error {
	var paid []model.Reminder
	if err := s.conn().WithContext(ctx).Where("payment_done = ?", true).Order("id ASC").Find(&paid).Error; err != nil {
		return fmt.Errorf("load paid: %w", err)
	}
	s.mu.Lock()
	s.paid = paid
	s.mu.Unlock()
	return nil
}

func (s *DurableStore) Pending() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Reminder(nil), s.pending...)
}

func (s *DurableStore) Paid() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Reminder(nil), s.paid...)
}

func (s *DurableStore) Add(ctx context.Context, r *model.Reminder) error {
	r.ID = 0
	r.PaymentDone = false
	if err := s.conn().WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("add reminder: %w", err)
	}
	s.mu.Lock()
	s.lastID = r.ID
	s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *DurableStore) Update(ctx context.Context, r *model.Reminder) error {
	err := s.conn().WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{"name": r.Name, "value": r.Value, "due_at": r.DueAt}).Error
	if err != nil {
		return fmt.Errorf("update reminder %d: %w", r.ID, err)
	}
	return s.refresh(ctx)
}

func (s *DurableStore) MarkPaid(ctx context.Context, r *model.Reminder) error {
	err := s.conn().WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ?", r.ID).
		Update("payment_done", true).Error
	if err != nil {
		return fmt.Errorf("mark paid %d: %w", r.ID, err)
	}
	return s.refresh(ctx)
}

func (s *DurableStore) Delete(ctx context.Context, id model.Identity) error {
	if err := s.conn().WithContext(ctx).Where("id = ?", id.ID).Delete(&model.Reminder{}).Error; err != nil {
		return fmt.Errorf("delete reminder %d: %w", id.ID, err)
	}
	return s.refresh(ctx)
}

func (s *DurableStore) LastInsertedID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// Close releases the underlying connection pool.
func (s *DurableStore) Close() error {
	db := s.conn()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *DurableStore) conn() *gorm.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

func (s *DurableStore) refresh(ctx context.Context) error {
	if err := s.LoadPending(ctx); err != nil {
		return err
	}
	return s.LoadPaid(ctx)
}
