// Package sheets implements the BookingStore on a Google Sheets tab, one booking
// per row. Cell values are whatever the sheet renders, so dates and times are
// normalized on the way in.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

// Column order of the bookings tab. Row 1 is a header.
var header = []any{
	"ID", "Date", "Time", "Groomer", "Service Type",
	"Pet Name", "Pet Breed", "Pet Size", "Pet Notes",
	"Customer Name", "Customer Email", "Customer Phone",
	"Status", "Created At",
}

const (
	colID = iota
	colDate
	colTime
	colGroomer
	colService
	colPetName
	colPetBreed
	colPetSize
	colPetNotes
	colCustomerName
	colCustomerEmail
	colCustomerPhone
	colStatus
	colCreatedAt
	numCols
)

// statusColumn is the A1 column letter of colStatus.
const statusColumn = "M"

// Config selects the spreadsheet and tab.
type Config struct {
	SpreadsheetID   string
	Tab             string
	CredentialsFile string
	Location        *time.Location
}

// Store reads and writes bookings through the Sheets v4 values API. Sheets
// has no transactions, so writes are serialized in-process.
type Store struct {
	svc      *sheets.Service
	id       string
	tab      string
	location *time.Location
	writeMu  sync.Mutex
}

// New creates a Sheets-backed store using a service-account credentials file.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if cfg.Tab == "" {
		cfg.Tab = "Bookings"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	return &Store{svc: svc, id: cfg.SpreadsheetID, tab: cfg.Tab, location: cfg.Location}, nil
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A2:N", s.tab)
}

// ListBookings scans the whole tab and filters in memory. The sheet itself is
// never cached here; wrap the store in storage.CachedStore for that.
func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Booking
	for _, r := range rows {
		if filter.Matches(r.booking) {
			out = append(out, r.booking)
		}
	}
	return out, nil
}

// GetBooking finds a booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.booking.ID == id {
			b := r.booking
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

// InsertBooking appends a row.
func (s *Store) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	out := *b
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	vr := &sheets.ValueRange{Values: [][]any{BookingToRow(out)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.id, s.tab+"!A:N", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("appending booking row: %w", err)
	}

	return &out, nil
}

// UpdateBookingStatus rewrites the status cell of the booking's row.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		if r.booking.ID != id {
			continue
		}

		cell := fmt.Sprintf("%s!%s%d", s.tab, statusColumn, r.sheetRow)
		vr := &sheets.ValueRange{Values: [][]any{{string(status)}}}
		_, err := s.svc.Spreadsheets.Values.Update(s.id, cell, vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("updating status cell %s: %w", cell, err)
		}

		b := r.booking
		b.Status = status
		b.UpdatedAt = time.Now().UTC()
		return &b, nil
	}

	return nil, storage.ErrNotFound
}

// EnsureHeader writes the header row if the first row is empty.
func (s *Store) EnsureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, s.tab+"!A1:N1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading header row: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: [][]any{header}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.id, s.tab+"!A1:N1", vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}
	return nil
}

type sheetRow struct {
	sheetRow int
	booking  models.Booking
}

func (s *Store) readRows(ctx context.Context) ([]sheetRow, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, s.dataRange()).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading booking rows: %w", err)
	}

	out := make([]sheetRow, 0, len(resp.Values))
	for i, cells := range resp.Values {
		b, ok := RowToBooking(cells, s.location)
		if !ok {
			continue
		}
		// Data starts on sheet row 2.
		out = append(out, sheetRow{sheetRow: i + 2, booking: b})
	}
	return out, nil
}

// RowToBooking maps sheet cells onto a booking. Rows without an id or date are
// skipped. Legacy rows with unknown statuses read as pending.
func RowToBooking(cells []any, loc *time.Location) (models.Booking, bool) {
	get := func(i int) string {
		if i >= len(cells) || cells[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(cells[i]))
	}

	if get(colID) == "" || get(colDate) == "" {
		return models.Booking{}, false
	}

	status, ok := models.ParseStatus(get(colStatus))
	if !ok {
		status = models.StatusPending
	}

	b := models.Booking{
		ID:          get(colID),
		Date:        slot.NormalizeDateIn(get(colDate), loc),
		Time:        slot.NormalizeTimeIn(get(colTime), loc),
		Groomer:     get(colGroomer),
		ServiceType: strings.ToLower(get(colService)),
		Pet: models.PetInfo{
			Name:  get(colPetName),
			Breed: get(colPetBreed),
			Size:  get(colPetSize),
			Notes: get(colPetNotes),
		},
		Customer: models.CustomerInfo{
			Name:  get(colCustomerName),
			Email: get(colCustomerEmail),
			Phone: get(colCustomerPhone),
		},
		Status: status,
	}
	if created, err := time.Parse(time.RFC3339, get(colCreatedAt)); err == nil {
		b.CreatedAt = created
		b.UpdatedAt = created
	}
	return b, true
}

// BookingToRow renders a booking as sheet cells in column order. Dates are
// written as plain strings so the sheet never reinterprets them in a timezone.
func BookingToRow(b models.Booking) []any {
	row := make([]any, numCols)
	row[colID] = b.ID
	row[colDate] = b.Date
	row[colTime] = b.Time
	row[colGroomer] = b.Groomer
	row[colService] = b.ServiceType
	row[colPetName] = b.Pet.Name
	row[colPetBreed] = b.Pet.Breed
	row[colPetSize] = b.Pet.Size
	row[colPetNotes] = b.Pet.Notes
	row[colCustomerName] = b.Customer.Name
	row[colCustomerEmail] = b.Customer.Email
	row[colCustomerPhone] = b.Customer.Phone
	row[colStatus] = string(b.Status)
	row[colCreatedAt] = b.CreatedAt.UTC().Format(time.RFC3339)
	return row
}
