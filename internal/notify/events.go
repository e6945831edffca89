package notify

// Event names are part of the frontend contract and must not change.
const (
	TicketCreatedInCalendarLists          = "TicketCreatedInCalendarLists"
	TicketCreatedInDayView                = "TicketCreatedInDayView"
	TicketUpdatedInCalendarLists          = "TicketUpdatedInCalendarLists"
	TicketUpdatedInDayView                = "TicketUpdatedInDayView"
	TicketCompletedUpdatedInCalendarLists = "TicketCompletedUpdatedInCalendarLists"
	TicketCompletedUpdatedInDayView       = "TicketCompletedUpdatedInDayView"
	TicketDeletedInCalendarLists          = "TicketDeletedInCalendarLists"
	TicketDeletedInDayView                = "TicketDeletedInDayView"
	TicketReorderedInCalendarLists        = "TicketReorderedInCalendarLists"
	TicketReorderedInDayView              = "TicketReorderedInDayView"
	TicketScheduled                       = "TicketScheduled"
	TicketMovedBetweenDays                = "TicketMovedBetweenDays"
	TicketCopiedInCalendarLists           = "TicketCopiedInCalendarLists"
	TicketCopiedInCalendar                = "TicketCopiedInCalendar"
	TicketMovedBackToCalendar             = "TicketMovedBackToCalendar"
	CalendarListCreated                   = "CalendarListCreated"
	CalendarListUpdated                   = "CalendarListUpdated"
	CalendarListDeleted                   = "CalendarListDeleted"
	CalendarCopied                        = "CalendarCopied"
	CalendarDeleted                       = "CalendarDeleted"
)

// Event is one message delivered to a group.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}
