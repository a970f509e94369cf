/*
Package layout arranges a handover report and its evidence photos on a single
A4 declaration sheet and renders it as print-safe HTML.
*/
package layout

import (
	"strings"

	"handover/src/pkg/compress"
)

// PrimaryGridSize is the number of photos the evidence grid holds, and the
// number a handover needs to be complete.
const PrimaryGridSize = 4

// Field is one labelled identity line of the sheet.
type Field struct {
	Label string
	Value string
}

/*
PageLayout describes one declaration sheet. PrimaryPhotos holds at most
PrimaryGridSize photos; every further photo is in ExtraPhotos. Placeholder is
set when there are no photos at all.
*/
type PageLayout struct {
	Report        Report
	Language      Language
	Title         string
	Fields        []Field
	PrimaryPhotos []compress.EncodedImage
	ExtraPhotos   []compress.EncodedImage
	Placeholder   bool

	labels labels
}

// Build lays out report with photos in capture order.
func Build(report Report, photos []compress.EncodedImage) PageLayout {
	language := ParseLanguage(string(report.Language))
	report.Language = language
	l := labelsFor(language)

	page := PageLayout{
		Report:   report,
		Language: language,
		Title:    l.Title,
		labels:   l,
	}

	staff := strings.TrimSpace(report.StaffName)
	if staff == "" {
		staff = l.NoStaff
	}
	page.Fields = append(page.Fields,
		Field{l.Claimant, strings.TrimSpace(report.ClaimantName)},
		Field{l.Ticket, strings.TrimSpace(report.TicketNumber)},
	)
	for _, optional := range []Field{
		{l.Phone, report.Phone},
		{l.Email, report.Email},
		{l.Event, report.EventName},
		{l.Item, report.ItemDescription},
	} {
		if value := strings.TrimSpace(optional.Value); value != "" {
			page.Fields = append(page.Fields, Field{optional.Label, value})
		}
	}
	page.Fields = append(page.Fields,
		Field{l.Staff, staff},
		Field{l.Date, FormatTimestamp(report.CreatedAt, language)},
	)

	split := min(len(photos), PrimaryGridSize)
	page.PrimaryPhotos = append([]compress.EncodedImage(nil), photos[:split]...)
	page.ExtraPhotos = append([]compress.EncodedImage(nil), photos[split:]...)
	page.Placeholder = len(photos) == 0

	return page
}

// PrimaryComplete reports whether the evidence grid is full. Extra photos
// never count.
func (p PageLayout) PrimaryComplete() bool {
	return len(p.PrimaryPhotos) == PrimaryGridSize
}

// PhotoCount is the number of photos on the sheet.
func (p PageLayout) PhotoCount() int {
	return len(p.PrimaryPhotos) + len(p.ExtraPhotos)
}

// Declaration returns the plain-text declaration of the sheet.
func (p PageLayout) Declaration() string {
	return Declaration(p.Report)
}

// Labels used by renderers other than HTML.
func (p PageLayout) DeclarationTitle() string   { return p.labelSet().DeclarationTitle }
func (p PageLayout) EvidenceTitle() string      { return p.labelSet().Evidence }
func (p PageLayout) ExtraEvidenceTitle() string { return p.labelSet().AdditionalEvidence }
func (p PageLayout) NoPhotosMessage() string    { return p.labelSet().NoPhotos }
func (p PageLayout) SignatureLabels() (claimant, staff string) {
	l := p.labelSet()
	return l.ClaimantSignature, l.StaffSignature
}

// labelSet covers layouts not created by Build.
func (p PageLayout) labelSet() labels {
	if p.labels.Title == "" {
		return labelsFor(p.Language)
	}
	return p.labels
}
