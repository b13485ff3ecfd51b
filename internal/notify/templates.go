package notify

import (
	"fmt"
	"strings"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// Message kinds.
const (
	KindAdminSubmission = "admin_new_submission"
	KindAdminCustom     = "admin_custom"
	KindAuthorReceived  = "author_received"
	KindAuthorApproved  = "author_approved"
	KindAuthorRejected  = "author_rejected"
	KindAuthorUpdated   = "author_updated"
	KindAuthorDeleted   = "author_deleted"
)

// Templates renders the French notification texts.
type Templates struct {
	// App is the brand in subjects, e.g. "PumpFoilMap".
	App string
	// AdminMail receives admin notifications; empty leaves them unaddressed.
	AdminMail string
}

func (t Templates) subject(s string) string {
	return "[" + t.App + "] " + s
}

// DefaultAdminSubject is the subject used when an admin mail request has none.
func (t Templates) DefaultAdminSubject() string { return t.App + " notification" }

// DefaultAdminBody is the text sent when the admin mail request has none.
func (t Templates) DefaultAdminBody() string {
	return "Bonjour,\nUn événement administrateur a été déclenché."
}

// AdminNewSubmission tells the admin mailbox about a new spot.
func (t Templates) AdminNewSubmission(s *spot.Spot) Message {
	body := fmt.Sprintf("Un nouveau spot a été soumis :\n\nNom : %s\nType : %s\nCoordonnées : lat %g, lng %g\nSoumis par : %s\nSpot ID : %s\n",
		s.Name, s.Type, s.Lat, s.Lng, s.SubmittedBy, s.ID)
	return Message{
		Kind:    KindAdminSubmission,
		To:      t.AdminMail,
		Subject: t.subject("Nouveau spot soumis"),
		Body:    body,
	}
}

// AdminCustom wraps an arbitrary admin message, applying defaults for empty fields.
func (t Templates) AdminCustom(subject, body string) Message {
	if strings.TrimSpace(subject) == "" {
		subject = t.DefaultAdminSubject()
	}
	if strings.TrimSpace(body) == "" {
		body = t.DefaultAdminBody()
	}
	return Message{Kind: KindAdminCustom, To: t.AdminMail, Subject: subject, Body: body}
}

// AuthorReceived acknowledges a submission to its author.
func (t Templates) AuthorReceived(s *spot.Spot) Message {
	body := fmt.Sprintf("Bonjour %s,\n\nVotre soumission du spot \"%s\" a été reçue et sera modérée sous peu.\n\nIdentifiant : %s\nMerci !\n",
		s.SubmittedBy, s.Name, s.ID)
	return Message{
		Kind:    KindAuthorReceived,
		To:      s.ContactEmail,
		Subject: t.subject("Votre soumission a été reçue"),
		Body:    body,
	}
}

// AuthorStatus tells the author that an admin approved or rejected the spot.
func (t Templates) AuthorStatus(s *spot.Spot) Message {
	kind, verb := KindAuthorUpdated, "mise à jour"
	switch s.Status {
	case spot.StatusApproved:
		kind, verb = KindAuthorApproved, "approuvée"
	case spot.StatusRejected:
		kind, verb = KindAuthorRejected, "rejetée"
	}
	body := fmt.Sprintf("Bonjour,\n\nVotre soumission (%s) a été %s.\n", describe(s), verb)
	if s.Status == spot.StatusApproved {
		body += "Merci pour votre contribution !\n"
	}
	if s.ModerationNote != "" {
		body += "Note de modération : " + s.ModerationNote + "\n"
	}
	return Message{
		Kind:    kind,
		To:      s.ContactEmail,
		Subject: t.subject("Votre soumission a été " + verb),
		Body:    body,
	}
}

// AuthorUpdated tells the author about an admin correction. The wording
// depends on whether the patch set the status.
func (t Templates) AuthorUpdated(s *spot.Spot, p *spot.Patch) Message {
	kind, verb := KindAuthorUpdated, "mise à jour"
	if p.Status != nil {
		switch *p.Status {
		case spot.StatusApproved:
			kind, verb = KindAuthorApproved, "validée"
		case spot.StatusRejected:
			kind, verb = KindAuthorRejected, "rejetée"
		}
	}
	body := fmt.Sprintf("Bonjour,\n\nVotre soumission (%s) a été %s par un administrateur.\n", describe(s), verb)
	if p.ModerationNote != nil && *p.ModerationNote != "" {
		body += "Note de modération : " + *p.ModerationNote + "\n"
	}
	return Message{
		Kind:    kind,
		To:      s.ContactEmail,
		Subject: t.subject("Votre soumission a été " + verb),
		Body:    body,
	}
}

// AuthorDeleted tells the author that the spot was removed.
func (t Templates) AuthorDeleted(s *spot.Spot) Message {
	body := fmt.Sprintf("Bonjour,\n\nVotre soumission (%s) a été supprimée par un administrateur.\n", describe(s))
	return Message{
		Kind:    KindAuthorDeleted,
		To:      s.ContactEmail,
		Subject: t.subject("Votre soumission a été supprimée"),
		Body:    body,
	}
}

func describe(s *spot.Spot) string {
	if s.Name == "" {
		return "ID : " + s.ID
	}
	return "ID : " + s.ID + ", Nom : " + s.Name
}
