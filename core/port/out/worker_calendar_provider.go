// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
	"time"

	"exchange_calendar/core/domain"
)

// =============================================================================
// Calendar Folder Port (Exchange Web Services, Microsoft Graph)
// =============================================================================

// CalendarQuery carries the comparison bounds of a remote calendar query.
// Nil bounds are omitted; set bounds are combined with AND.
type CalendarQuery struct {
	StartBefore *time.Time // item start < StartBefore
	EndAfter    *time.Time // item end > EndAfter
	EndBefore   *time.Time // item end < EndBefore
}

// IsEmpty reports whether the query carries no bounds.
func (q CalendarQuery) IsEmpty() bool {
	return q.StartBefore == nil && q.EndAfter == nil && q.EndBefore == nil
}

// CalendarFolder is a handle to one remote calendar. It is shared read-only
// by every fetcher created from the same connection.
type CalendarFolder interface {
	Name() string
	Filter(ctx context.Context, q CalendarQuery) ([]*domain.CandidateEvent, error)
}

// MailboxConnector authenticates against the mail server and resolves the
// account's default calendar folder.
type MailboxConnector interface {
	Connect(ctx context.Context) (CalendarFolder, error)
}
