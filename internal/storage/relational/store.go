// Package relational implements the BookingStore on a SQL database through GORM.
// Production runs it against Postgres; tests use GORM's SQLite driver.
package relational

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

// bookingRow is the table layout; it stays separate from models.Booking so the
// domain type carries no ORM tags.
type bookingRow struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	AppointmentDate string `gorm:"type:varchar(10);not null;index"`
	AppointmentTime string `gorm:"type:varchar(5);not null"`
	Groomer         string `gorm:"not null"`
	ServiceType     string `gorm:"not null;default:''"`
	PetName         string
	PetBreed        string
	PetSize         string
	PetNotes        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Status          string `gorm:"type:varchar(16);not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (bookingRow) TableName() string { return "bookings" }

const occupiedSlotIndex = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_occupied_slot
	ON bookings (appointment_date, appointment_time, groomer, service_type)
	WHERE status IN ('confirmed', 'expired')`

// Store is the GORM BookingStore.
type Store struct {
	db *gorm.DB
}

// OpenPostgres connects to Postgres and migrates the bookings table.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return New(ctx, db)
}

// New wraps an open GORM handle and migrates the schema. The handle should be
// opened with TranslateError so duplicate keys map to gorm.ErrDuplicatedKey.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&bookingRow{}); err != nil {
		return nil, fmt.Errorf("migrating bookings: %w", err)
	}
	if err := db.Exec(occupiedSlotIndex).Error; err != nil {
		return nil, fmt.Errorf("creating occupied slot index: %w", err)
	}
	return &Store{db: db.WithContext(context.Background())}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListBookings returns matching bookings ordered by slot.
func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Model(&bookingRow{})
	if filter.Date != "" {
		q = q.Where("appointment_date = ?", filter.Date)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []bookingRow
	if err := q.Order("appointment_date, appointment_time, groomer, created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}

	out := make([]models.Booking, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// GetBooking returns a booking by id or storage.ErrNotFound.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var row bookingRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	b := row.toModel()
	return &b, nil
}

// InsertBooking creates a row with a fresh UUID.
func (s *Store) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	row := fromModel(*b)
	row.ID = uuid.NewString()

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrSlotTaken
		}
		return nil, fmt.Errorf("inserting booking: %w", err)
	}

	out := row.toModel()
	return &out, nil
}

// UpdateBookingStatus reads the row, overwrites its status and saves it back in
// one transaction.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	var row bookingRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		row.Status = string(status)
		return tx.Save(&row).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, storage.ErrSlotTaken
	case err != nil:
		return nil, fmt.Errorf("updating booking status: %w", err)
	}

	out := row.toModel()
	return &out, nil
}

func fromModel(b models.Booking) bookingRow {
	return bookingRow{
		ID:              b.ID,
		AppointmentDate: b.Date,
		AppointmentTime: b.Time,
		Groomer:         b.Groomer,
		ServiceType:     b.ServiceType,
		PetName:         b.Pet.Name,
		PetBreed:        b.Pet.Breed,
		PetSize:         b.Pet.Size,
		PetNotes:        b.Pet.Notes,
		CustomerName:    b.Customer.Name,
		CustomerEmail:   b.Customer.Email,
		CustomerPhone:   b.Customer.Phone,
		Status:          string(b.Status),
	}
}

func (r bookingRow) toModel() models.Booking {
	return models.Booking{
		ID:          r.ID,
		Date:        r.AppointmentDate,
		Time:        r.AppointmentTime,
		Groomer:     r.Groomer,
		ServiceType: r.ServiceType,
		Pet: models.PetInfo{
			Name:  r.PetName,
			Breed: r.PetBreed,
			Size:  r.PetSize,
			Notes: r.PetNotes,
		},
		Customer: models.CustomerInfo{
			Name:  r.CustomerName,
			Email: r.CustomerEmail,
			Phone: r.CustomerPhone,
		},
		Status:    models.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
