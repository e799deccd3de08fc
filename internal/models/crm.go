package models

import (
	"time"
)

// BusinessRecord is a lead or customer account in the CRM. The record
// updater inserts new leads; the other updaters attach child rows to
// existing records.
type BusinessRecord struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID      string    `gorm:"size:36;index;not null" json:"tenant_id"`
	CustomerID    string    `gorm:"size:64;index" json:"customer_id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	ContactName   string    `gorm:"size:100" json:"contact_name"`
	ContactEmail  string    `gorm:"size:100" json:"contact_email"`
	Status        string    `gorm:"size:30;default:'lead'" json:"status"`
	Source        string    `gorm:"size:50" json:"source"`
	Industry      string    `gorm:"size:50" json:"industry"`
	Score         int       `json:"score"`
	AnnualRevenue float64   `json:"annual_revenue"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (BusinessRecord) TableName() string {
	return "business_records"
}

// BusinessRecordActivity is a logged touchpoint (call, email, meeting,
// note, demo) against a business record.
type BusinessRecordActivity struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	TenantID         string     `gorm:"size:36;index;not null" json:"tenant_id"`
	BusinessRecordID string     `gorm:"size:36;index;not null" json:"business_record_id"`
	Type             string     `gorm:"size:30;not null" json:"type"`
	Subject          string     `gorm:"size:200" json:"subject"`
	Direction        string     `gorm:"size:20" json:"direction,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	Outcome          string     `gorm:"size:30" json:"outcome,omitempty"`
	FollowUpAt       *time.Time `json:"follow_up_at,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (BusinessRecordActivity) TableName() string {
	return "business_record_activities"
}

// ServiceTicket is a copier/printer service request. Ticket numbers are
// sequential per tenant with an ST- prefix.
type ServiceTicket struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID         string    `gorm:"size:36;index;not null" json:"tenant_id"`
	CustomerID       string    `gorm:"size:64;index;not null" json:"customer_id"`
	BusinessRecordID string    `gorm:"size:36;index" json:"business_record_id,omitempty"`
	TicketNumber     string    `gorm:"size:20;index;not null" json:"ticket_number"`
	Priority         string    `gorm:"size:20;not null" json:"priority"`
	Status           string    `gorm:"size:30;not null" json:"status"`
	Subject          string    `gorm:"size:200" json:"subject"`
	Description      string    `gorm:"type:text" json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (ServiceTicket) TableName() string {
	return "service_tickets"
}
