package layout

import (
	"strings"
	"time"
)

// Language selects the declaration template and the sheet labels.
type Language string

const (
	English Language = "en"
	German  Language = "de"
)

// ParseLanguage accepts "en", "de" and regional variants such as "de-AT".
// Anything else is English.
func ParseLanguage(value string) Language {
	tag := strings.ToLower(strings.TrimSpace(value))
	if tag == string(German) || strings.HasPrefix(tag, "de-") || strings.HasPrefix(tag, "de_") {
		return German
	}
	return English
}

// Report is the textual part of a handover as entered by staff.
type Report struct {
	ClaimantName    string    `json:"claimant_name"`
	TicketNumber    string    `json:"ticket_number"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	StaffName       string    `json:"staff_name,omitempty"`
	ItemDescription string    `json:"item_description,omitempty"`
	EventName       string    `json:"event_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Language        Language  `json:"language,omitempty"`
}

type labels struct {
	Title              string
	Claimant           string
	Ticket             string
	Phone              string
	Email              string
	Staff              string
	Event              string
	Item               string
	Date               string
	DeclarationTitle   string
	Evidence           string
	AdditionalEvidence string
	NoPhotos           string
	ClaimantSignature  string
	StaffSignature     string
	Photo              string
	NoDescription      string
	NoStaff            string
	NoDate             string
	timeLayout         string
}

var labelsByLanguage = map[Language]labels{
	English: {
		Title:              "Handover declaration",
		Claimant:           "Claimant",
		Ticket:             "Ticket number",
		Phone:              "Phone",
		Email:              "Email",
		Staff:              "Staff member",
		Event:              "Event",
		Item:               "Item",
		Date:               "Date",
		DeclarationTitle:   "Declaration",
		Evidence:           "Evidence photos",
		AdditionalEvidence: "Additional evidence",
		NoPhotos:           "No photos were captured for this handover.",
		ClaimantSignature:  "Signature of claimant",
		StaffSignature:     "Signature of staff member",
		Photo:              "Photo",
		NoDescription:      "[no description given]",
		NoStaff:            "[staff member]",
		NoDate:             "[date]",
		timeLayout:         "January 2, 2006 at 3:04 PM",
	},
	German: {
		Title:              "Übergabeerklärung",
		Claimant:           "Abholer",
		Ticket:             "Ticketnummer",
		Phone:              "Telefon",
		Email:              "E-Mail",
		Staff:              "Mitarbeiter",
		Event:              "Veranstaltung",
		Item:               "Gegenstand",
		Date:               "Datum",
		DeclarationTitle:   "Erklärung",
		Evidence:           "Beweisfotos",
		AdditionalEvidence: "Weitere Beweisfotos",
		NoPhotos:           "Für diese Übergabe wurden keine Fotos aufgenommen.",
		ClaimantSignature:  "Unterschrift Abholer",
		StaffSignature:     "Unterschrift Mitarbeiter",
		Photo:              "Foto",
		NoDescription:      "[keine Beschreibung angegeben]",
		NoStaff:            "[Mitarbeiter]",
		NoDate:             "[Datum]",
		timeLayout:         "02.01.2006, 15:04 Uhr",
	},
}

func labelsFor(language Language) labels {
	if l, ok := labelsByLanguage[language]; ok {
		return l
	}
	return labelsByLanguage[English]
}

// FormatTimestamp formats t the way the sheet prints dates in language.
func FormatTimestamp(t time.Time, language Language) string {
	l := labelsFor(language)
	if t.IsZero() {
		return l.NoDate
	}
	return t.Format(l.timeLayout)
}
