package store

import (
	"fmt"
	"strings"
)

// Entity names a derived table.
type Entity string

// Derived entities, named after their tables.
const (
	EntityGeneralInfo  Entity = "general_info"
	EntityEducation    Entity = "education"
	EntityAppointment  Entity = "appointments"
	EntityPublication  Entity = "publications"
	EntitySupervision  Entity = "supervisions"
	EntityAward        Entity = "awards"
	EntityResearchArea Entity = "research_areas"
)

// ColumnKind is the storage class of a derived column.
type ColumnKind uint8

// Column kinds. IntColumn values are nullable.
const (
	TextColumn ColumnKind = iota
	IntColumn
)

// Column describes one derived column besides id and record_id.
type Column struct {
	Name string
	Kind ColumnKind
}

// Table describes a derived table.
type Table struct {
	Entity  Entity
	Columns []Column
}

// ColumnNames returns the column names in insert order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func text(name string) Column { return Column{Name: name, Kind: TextColumn} }
func num(name string) Column  { return Column{Name: name, Kind: IntColumn} }

// Tables lists the derived tables in a stable order.
var Tables = []Table{
	{EntityGeneralInfo, []Column{
		text("full_name"), text("citation_name"), text("orcid"),
		text("summary"), text("lattes_url"), text("keywords"),
	}},
	{EntityEducation, []Column{
		text("level"), text("course"), text("institution"),
		num("start_year"), num("end_year"), text("title"), text("advisor"),
	}},
	{EntityAppointment, []Column{
		text("institution"), text("activity"), text("bond"), num("start_year"), num("end_year"),
	}},
	{EntityPublication, []Column{
		text("kind"), text("title"), num("year"), text("venue"),
		num("coauthor_count"), text("coauthors"), text("details"),
	}},
	{EntitySupervision, []Column{
		text("category"), text("student_name"), text("course"),
		text("institution"), text("title"), num("year"),
	}},
	{EntityAward, []Column{text("name"), num("year"), text("institution")}},
	{EntityResearchArea, []Column{text("major_area"), text("area"), text("subarea"), text("specialty")}},
}

// Entities returns every derived entity in table order.
func Entities() []Entity {
	out := make([]Entity, len(Tables))
	for i, t := range Tables {
		out[i] = t.Entity
	}
	return out
}

// TableFor returns the table description of an entity.
func TableFor(e Entity) (Table, bool) {
	for _, t := range Tables {
		if t.Entity == e {
			return t, true
		}
	}
	return Table{}, false
}

// ParseEntity resolves a case-insensitive entity name.
func ParseEntity(name string) (Entity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tables {
		if string(t.Entity) == n {
			return t.Entity, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q", name)
}

// Row is one derived row. Values are returned in the column order of the entity's Table.
type Row interface {
	Entity() Entity
	Values() []any
}

// GeneralInfo is the identity summary of a record. At most one per record.
type GeneralInfo struct {
	FullName     string
	CitationName string
	ORCID        string
	Summary      string
	LattesURL    string
	// Keywords is a comma separated list.
	Keywords string
}

func (GeneralInfo) Entity() Entity { return EntityGeneralInfo }

func (r GeneralInfo) Values() []any {
	return []any{r.FullName, r.CitationName, r.ORCID, r.Summary, r.LattesURL, r.Keywords}
}

// Education is one academic degree.
type Education struct {
	Level       string
	Course      string
	Institution string
	StartYear   *int
	EndYear     *int
	// Title of the thesis or monograph.
	Title   string
	Advisor string
}

func (Education) Entity() Entity { return EntityEducation }

func (r Education) Values() []any {
	return []any{r.Level, r.Course, r.Institution, r.StartYear, r.EndYear, r.Title, r.Advisor}
}

// Appointment is one professional position.
type Appointment struct {
	Institution string
	Activity    string
	Bond        string
	StartYear   *int
	EndYear     *int
}

func (Appointment) Entity() Entity { return EntityAppointment }

func (r Appointment) Values() []any {
	return []any{r.Institution, r.Activity, r.Bond, r.StartYear, r.EndYear}
}

// Publication kinds.
const (
	PublicationArticle    = "article"
	PublicationEventPaper = "event_paper"
	PublicationBook       = "book"
	PublicationChapter    = "chapter"
)

// Publication is one bibliographic item.
type Publication struct {
	Kind          string
	Title         string
	Year          *int
	Venue         string
	CoauthorCount int
	// Coauthors joins author names with "; ".
	Coauthors string
	// Details is the canonical JSON of the source item.
	Details string
}

func (Publication) Entity() Entity { return EntityPublication }

func (r Publication) Values() []any {
	return []any{r.Kind, r.Title, r.Year, r.Venue, r.CoauthorCount, r.Coauthors, r.Details}
}

// Supervision categories.
const (
	SupervisionMasters              = "masters"
	SupervisionDoctoral             = "doctoral"
	SupervisionPostdoctoral         = "postdoctoral"
	SupervisionOther                = "other"
	SupervisionScientificInitiation = "scientific_initiation"
	SupervisionUndergraduateThesis  = "undergraduate_thesis"
)

// Supervision is one completed student supervision.
type Supervision struct {
	Category    string
	StudentName string
	Course      string
	Institution string
	Title       string
	Year        *int
}

func (Supervision) Entity() Entity { return EntitySupervision }

func (r Supervision) Values() []any {
	return []any{r.Category, r.StudentName, r.Course, r.Institution, r.Title, r.Year}
}

// Award is one prize or honorary title.
type Award struct {
	Name        string
	Year        *int
	Institution string
}

func (Award) Entity() Entity { return EntityAward }

func (r Award) Values() []any { return []any{r.Name, r.Year, r.Institution} }

// ResearchArea is one knowledge-area classification.
type ResearchArea struct {
	MajorArea string
	Area      string
	Subarea   string
	Specialty string
}

func (ResearchArea) Entity() Entity { return EntityResearchArea }

func (r ResearchArea) Values() []any { return []any{r.MajorArea, r.Area, r.Subarea, r.Specialty} }
