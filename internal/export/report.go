// Package export builds spreadsheet reports of reservations for managers.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
)

// ReservationLister provides the reservations within a time range.
type ReservationLister interface {
	ListReservations(ctx context.Context, from, to time.Time) ([]booking.Reservation, error)
}

var reportColumns = []string{
	"Appointment ID", "Service", "Customer", "Email", "Phone",
	"Start", "End", "Status", "Notes", "Created",
}

// Reporter writes reservation reports.
type Reporter struct {
	ledger  ReservationLister
	catalog *catalog.Catalog
}

// NewReporter builds a reporter over the given ledger and catalog.
func NewReporter(ledger ReservationLister, cat *catalog.Catalog) *Reporter {
	return &Reporter{ledger: ledger, catalog: cat}
}

// WriteReport renders all reservations in [from, to) as one xlsx sheet.
func (r *Reporter) WriteReport(ctx context.Context, from, to time.Time, out io.Writer) (int, error) {
	reservations, err := r.ledger.ListReservations(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return r.write(reservations, from, to, NewExcelizeWriter(), out)
}

func (r *Reporter) write(reservations []booking.Reservation, from, to time.Time, w ExcelWriter, out io.Writer) (int, error) {
	defer w.Close()

	sheet := fmt.Sprintf("Bookings %s", from.Format("2006-01-02"))
	if err := w.AddSheet(sheet); err != nil {
		return 0, err
	}
	if err := w.WriteHeader(reportColumns); err != nil {
		return 0, err
	}

	for _, res := range reservations {
		serviceName := res.ServiceID
		if svc, ok := r.catalog.Get(res.ServiceID); ok {
			serviceName = svc.Name
		}
		row := []interface{}{
			res.AppointmentID,
			serviceName,
			res.CustomerName,
			res.CustomerEmail,
			res.CustomerPhone,
			res.Start.Format("2006-01-02 15:04"),
			res.End.Format("15:04"),
			string(res.Status),
			res.Notes,
			res.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return 0, err
		}
	}

	if err := w.Save(out); err != nil {
		return 0, err
	}
	return len(reservations), nil
}
