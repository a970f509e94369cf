package layout

import (
	"html"
	"strings"
)

const (
	englishDeclaration = "I, {claimant}, confirm that I am the rightful owner of the item deposited under " +
		"ticket number {ticket} ({description}) and that I received it back from {staff} on {timestamp} " +
		"without presenting the original ticket. I accept full responsibility for any claims arising " +
		"from this handover and release the venue from all liability towards third parties."
	germanDeclaration = "Ich, {claimant}, bestätige, dass ich der rechtmäßige Eigentümer des unter der " +
		"Ticketnummer {ticket} abgegebenen Gegenstands ({description}) bin und diesen am {timestamp} " +
		"von {staff} ohne Vorlage des Originaltickets zurückerhalten habe. Ich übernehme die volle " +
		"Verantwortung für alle Ansprüche aus dieser Übergabe und stelle den Veranstalter von jeder " +
		"Haftung gegenüber Dritten frei."
)

func declarationTemplate(language Language) string {
	if language == German {
		return germanDeclaration
	}
	return englishDeclaration
}

/*
Declaration returns the liability declaration of report in its language as
plain text. Missing item description and staff name become bracketed
placeholders.
*/
func Declaration(report Report) string {
	return declaration(report, func(s string) string { return s })
}

// DeclarationHTML is Declaration with every interpolated field HTML-escaped.
func DeclarationHTML(report Report) string {
	return declaration(report, html.EscapeString)
}

func declaration(report Report, escape func(string) string) string {
	language := ParseLanguage(string(report.Language))
	l := labelsFor(language)

	description := strings.TrimSpace(report.ItemDescription)
	if description == "" {
		description = l.NoDescription
	}
	staff := strings.TrimSpace(report.StaffName)
	if staff == "" {
		staff = l.NoStaff
	}

	replacer := strings.NewReplacer(
		"{claimant}", escape(strings.TrimSpace(report.ClaimantName)),
		"{ticket}", escape(strings.TrimSpace(report.TicketNumber)),
		"{description}", escape(description),
		"{staff}", escape(staff),
		"{timestamp}", escape(FormatTimestamp(report.CreatedAt, language)),
	)
	return replacer.Replace(declarationTemplate(language))
}
