package database

// ASIN check statuses stored in asin_checks.status.
const (
	CheckOK          = "ok"
	CheckDead        = "dead"
	CheckRateLimited = "rate_limited"
	CheckError       = "error"
)

// ASINCheck is the outcome of one live lookup of an Amazon product page.
type ASINCheck struct {
	ID          int64
	ASIN        string
	ProductName string
	Status      string
	StatusCode  int
	Detail      *string
	CheckedAt   *string
}

// AuditReport summarises one site audit run.
type AuditReport struct {
	ID              int64
	GeneratedAt     *string
	PostCount       int
	ProductCount    int
	MentionCount    int
	MissingProducts []string
	DeadASINs       []string
	SuggestionCount int
}

// Stats contains aggregate database statistics.
type Stats struct {
	StoredKeys   int
	ASINChecks   int
	DeadASINs    int
	AuditReports int
	LastAuditAt  *string
}
