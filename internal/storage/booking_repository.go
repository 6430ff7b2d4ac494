package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/groom-booking/backend/internal/storage/models"
)

const bookingColumns = `
	id, appointment_date, appointment_time, groomer, service_type,
	pet_name, pet_breed, pet_size, pet_notes,
	customer_name, customer_email, customer_phone,
	status, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BookingRepository is the SQLite BookingStore.
type BookingRepository struct {
	db  *DB
	now func() time.Time
}

// NewBookingRepository creates a booking repository on db.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ListBookings retrieves bookings matching the filter, oldest slot first.
// SQLite reads are never cached, so ForceRefresh has no effect here.
func (r *BookingRepository) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query := "SELECT" + bookingColumns + " FROM bookings WHERE 1=1"
	var args []any

	if filter.Date != "" {
		query += " AND appointment_date = ?"
		args = append(args, filter.Date)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY appointment_date, appointment_time, groomer, created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// GetBooking retrieves a booking by its ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return r.getBooking(ctx, r.db, id)
}

func (r *BookingRepository) getBooking(ctx context.Context, q querier, id string) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, "SELECT"+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	return b, nil
}

// InsertBooking inserts a new booking. A second occupying booking on the same
// slot violates the partial unique index and returns ErrSlotTaken.
func (r *BookingRepository) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	out := *b
	out.ID = uuid.NewString()
	out.CreatedAt = r.now()
	out.UpdatedAt = out.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		out.ID, out.Date, out.Time, out.Groomer, out.ServiceType,
		out.Pet.Name, out.Pet.Breed, out.Pet.Size, out.Pet.Notes,
		out.Customer.Name, out.Customer.Email, out.Customer.Phone,
		out.Status, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("inserting booking: %w", err)
	}

	return &out, nil
}

// UpdateBookingStatus overwrites a booking's status and returns the updated row.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	var updated *models.Booking

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?
		`, status, r.now(), id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("updating booking status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		updated, err = r.getBooking(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := s.Scan(
		&b.ID, &b.Date, &b.Time, &b.Groomer, &b.ServiceType,
		&b.Pet.Name, &b.Pet.Breed, &b.Pet.Size, &b.Pet.Notes,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Ping checks the database connection.
func (r *BookingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
