package mailstore

import "time"

// ReceivedRow is the emails table's row shape.
type ReceivedRow struct {
	ID          int64
	MessageID   string
	FromAddr    string
	ToAddrs     []string
	Subject     string
	Date        time.Time
	Size        int64
	IsRead      bool
	IsDeleted   bool
	IsSpam      bool
	SpamScore   float64
	ContentPath string
	IsRecalled  bool
	RecalledAt  time.Time
	RecalledBy  string
}

// SentRow is the sent_emails table's row shape.
type SentRow struct {
	ID             int64
	MessageID      string
	FromAddr       string
	ToAddrs        []string
	CCAddrs        []string
	BCCAddrs       []string
	Subject        string
	Date           time.Time
	Size           int64
	IsRead         bool
	IsDeleted      bool
	IsSpam         bool
	SpamScore      float64
	ContentPath    string
	HasAttachments bool
	Status         string
	IsRecalled     bool
	RecalledAt     time.Time
	RecalledBy     string
}

// ListFilter narrows ListReceived.
type ListFilter struct {
	UserEmail      string // matches ToAddrs containment OR FromAddr equality
	IncludeDeleted bool
	IncludeSpam    bool
	IncludeRecalled bool
	IsSpam         *bool
	Limit          int
	Offset         int
}

// SentFilter narrows ListSent.
type SentFilter struct {
	FromAddr    string
	IncludeSpam bool
	IsSpam      *bool
	Limit       int
	Offset      int
}
