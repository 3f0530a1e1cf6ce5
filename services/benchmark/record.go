package benchmark

import "github.com/google/uuid"

// unknownField marks a value the page carried but we could not read.
// It is distinct from "" which means the portal genuinely has nothing.
const unknownField = "unknown"

// Record is one court case as read off the portal's detail pages. A few
// fields (arrest data, officer identity, defendant DOB) exist in the
// shared output shape but are never populated because this portal does
// not expose them.
type Record struct {
	Id     string
	State  string
	County string
	// PortalId is the case number the search was run with, suffix and
	// all. It lands in the output column the checkpoint reads.
	PortalId           string
	CaseNumber         string
	AgencyReportNumber string
	PartyId            string

	FirstName  string
	MiddleName string
	LastName   string
	Suffix     string
	Dob        string
	Race       string
	Sex        string

	ArrestDate   string
	FilingDate   string
	OffenseDate  string
	DivisionName string
	CaseStatus   string

	DefenseAttorneys []string
	PublicDefenders  []string
	Judge            string

	ArrestingOfficer      string
	ArrestingOfficerBadge string

	Charges []Charge
}

// Charge is one count row from the detail page's charges grid. Pleas
// are filled in afterwards from the docket entries; the grid's own plea
// column is always blank on this portal.
type Charge struct {
	Count           int
	Description     string
	Statute         string
	Level           string
	Degree          string
	Disposition     string
	DispositionDate string
	OffenseDate     string
	CitationNumber  string
	Plea            string
	PleaDate        string
}

// DocketEntry is one row of the docket grid. Rows with an attachment
// handle point at a digitized paper we can download; rows with a
// requestable id point at a paper the clerk has to pull on request.
type DocketEntry struct {
	Date string
	Text string

	AttachmentRel    string
	AttachmentDigest string

	RequestableId string
}

func NewRecord(state, county, portalId string) Record {
	return Record{
		Id:       uuid.NewString(),
		State:    state,
		County:   county,
		PortalId: portalId,
	}
}
