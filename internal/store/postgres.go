package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"certverify/internal/certificate"
	"certverify/internal/logger"
)

// CertificateRecord is the database row of a trusted certificate.
type CertificateRecord struct {
	ID            uint   `gorm:"primaryKey"`
	CertificateID string `gorm:"size:128;not null"`
	// LookupKey is the normalized CertificateID. It is maintained by BeforeSave.
	LookupKey   string `gorm:"size:128;not null;uniqueIndex"`
	StudentName string `gorm:"size:255;not null"`
	CourseName  string `gorm:"size:255"`
	IssueDate   string `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName implements gorm's tabler.
func (CertificateRecord) TableName() string { return "certificates" }

// BeforeSave keeps LookupKey in step with CertificateID.
func (r *CertificateRecord) BeforeSave(tx *gorm.DB) error {
	r.LookupKey = certificate.Normalize(r.CertificateID)
	if r.LookupKey == "" {
		return fmt.Errorf("certificate ID %q has no letters or digits", r.CertificateID)
	}
	return nil
}

// ToRecord converts the row to a validation record.
func (r CertificateRecord) ToRecord() certificate.Record {
	return certificate.Record{
		StudentName:   r.StudentName,
		CertificateID: r.CertificateID,
		CourseName:    r.CourseName,
		IssueDate:     r.IssueDate,
	}
}

func fromRecord(r certificate.Record) CertificateRecord {
	return CertificateRecord{
		CertificateID: r.CertificateID,
		StudentName:   r.StudentName,
		CourseName:    r.CourseName,
		IssueDate:     r.IssueDate,
	}
}

// PostgresStore keeps trusted records in PostgreSQL.
type PostgresStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// OpenPostgres connects to dsn and migrates the certificates table.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	log := logger.WithComponent("store")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormLogWriter{log: log}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Warn,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CertificateRecord{}); err != nil {
		return nil, fmt.Errorf("migrate certificates table: %w", err)
	}

	log.Info().Msg("Connected to certificate database")
	return &PostgresStore{db: db, log: log}, nil
}

// NewPostgresStore wraps an open gorm handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, log: logger.WithComponent("store")}
}

// FindByCertificateID implements RecordStore.
func (s *PostgresStore) FindByCertificateID(ctx context.Context, certificateID string) (*certificate.Record, error) {
	key := certificate.Normalize(certificateID)
	if key == "" {
		return nil, ErrRecordNotFound
	}

	var row CertificateRecord
	err := s.db.WithContext(ctx).Where("lookup_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate %q: %w", certificateID, err)
	}

	rec := row.ToRecord()
	return &rec, nil
}

// Save inserts records, updating existing rows with the same normalized ID.
func (s *PostgresStore) Save(ctx context.Context, records ...certificate.Record) error {
	if len(records) == 0 {
		return nil
	}

	// One upsert statement may not touch the same key twice; the last record wins.
	index := make(map[string]int, len(records))
	rows := make([]CertificateRecord, 0, len(records))
	for _, r := range records {
		row := fromRecord(r)
		key := certificate.Normalize(r.CertificateID)
		if i, ok := index[key]; ok {
			rows[i] = row
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lookup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"certificate_id", "student_name", "course_name", "issue_date", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save certificates: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormLogWriter struct {
	log zerolog.Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}
