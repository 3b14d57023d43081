// Package i18n selects and formats localized bot messages.
//
// The bot speaks two languages: English when the principal's language tag
// has "en" as its base language, French otherwise.
package i18n

import (
	"fmt"
	"strings"
)

// Key names one localized message.
type Key string

// Message keys.
const (
	WelcomeSelectService Key = "welcome_select_service"
	About                Key = "about"

	ServiceSingleProvider Key = "service_single_provider"
	ServiceSelectProvider Key = "service_select_provider"

	CashEnterAmount Key = "cash_enter_amount"
	CashOutLabel    Key = "cash_out_label"
	CashInLabel     Key = "cash_in_label"
	CashResult      Key = "cash_result"

	ReceiptEnterTrxID Key = "receipt_enter_trx_id"
	ReceiptPleaseWait Key = "receipt_please_wait"

	WarnInvalidAmount  Key = "warn_invalid_amount"
	WarnAmountRange    Key = "warn_amount_range"
	WarnInvalidTrxID   Key = "warn_invalid_trx_id"
	ErrorNotDownloaded Key = "error_not_downloaded"

	Retry         Key = "retry"
	RetryAmount   Key = "retry_amount"
	RetryProvider Key = "retry_provider"
	RetryTrxID    Key = "retry_trx_id"
	RetryUtility  Key = "retry_utility"
	Home          Key = "home"
	Back          Key = "back"
	Yes           Key = "yes"
	No            Key = "no"
)

var english = map[Key]string{
	WelcomeSelectService: "%s\n\nWelcome %s! Pick a service below.",
	About:                "%s\n\nI help you move cash and fetch receipts. Questions? Reach the maintainer at %s.",

	ServiceSingleProvider: "%s\n\nOnly <b>%s</b> offers this service. Continue?",
	ServiceSelectProvider: "%s\n\n%d providers offer this service. Select one.",

	CashEnterAmount: "%s\n\nEnter the %s amount.",
	CashOutLabel:    "withdrawal",
	CashInLabel:     "deposit",
	CashResult:      "The %s fee for <b>%.0f</b> with <b>%s</b> is <b>%.2f</b>.",

	ReceiptEnterTrxID: "%s\n\nEnter the transaction id from your <b>%s</b> receipt.",
	ReceiptPleaseWait: "%s Fetching your receipt, please wait...",

	WarnInvalidAmount:  "%s The amount must be a positive number.",
	WarnAmountRange:    "%s Amount %.2f is outside the allowed range [%.0f - %.0f].",
	WarnInvalidTrxID:   "%s The transaction id must be exactly %d characters long.",
	ErrorNotDownloaded: "%s The receipt could not be downloaded. Try again?",

	Retry:         "What next?",
	RetryAmount:   "%s New amount",
	RetryProvider: "%s Change provider",
	RetryTrxID:    "%s New transaction id",
	RetryUtility:  "%s Change utility company",
	Home:          "%s Home",
	Back:          "Back to %s",
	Yes:           "Yes",
	No:            "No",
}

var french = map[Key]string{
	WelcomeSelectService: "%s\n\nBienvenue %s ! Choisissez un service ci-dessous.",
	About:                "%s\n\nJe vous aide à déplacer de l'argent et à récupérer des reçus. Des questions ? Contactez le mainteneur : %s.",

	ServiceSingleProvider: "%s\n\nSeul <b>%s</b> offre ce service. Continuer ?",
	ServiceSelectProvider: "%s\n\n%d fournisseurs offrent ce service. Choisissez-en un.",

	CashEnterAmount: "%s\n\nSaisissez le montant du %s.",
	CashOutLabel:    "retrait",
	CashInLabel:     "dépôt",
	CashResult:      "Les frais de %s pour <b>%.0f</b> chez <b>%s</b> sont de <b>%.2f</b>.",

	ReceiptEnterTrxID: "%s\n\nSaisissez l'identifiant de transaction de votre reçu <b>%s</b>.",
	ReceiptPleaseWait: "%s Récupération de votre reçu, veuillez patienter...",

	WarnInvalidAmount:  "%s Le montant doit être un nombre positif.",
	WarnAmountRange:    "%s Le montant %.2f est hors de la plage autorisée [%.0f - %.0f].",
	WarnInvalidTrxID:   "%s L'identifiant de transaction doit comporter exactement %d caractères.",
	ErrorNotDownloaded: "%s Le reçu n'a pas pu être téléchargé. Réessayer ?",

	Retry:         "Et ensuite ?",
	RetryAmount:   "%s Nouveau montant",
	RetryProvider: "%s Changer de fournisseur",
	RetryTrxID:    "%s Nouvel identifiant",
	RetryUtility:  "%s Changer de compagnie",
	Home:          "%s Accueil",
	Back:          "Retour à %s",
	Yes:           "Oui",
	No:            "Non",
}

// Locale formats messages for one language.
type Locale struct {
	english bool
	msgs    map[Key]string
}

// ForLanguage returns the locale for a BCP 47 language tag. English is
// used when the base language is "en", French for everything else.
func ForLanguage(tag string) *Locale {
	base, _, _ := strings.Cut(strings.ToLower(tag), "-")
	if base == "en" {
		return &Locale{english: true, msgs: english}
	}
	return &Locale{msgs: french}
}

// English reports whether the locale is the English one.
func (l *Locale) English() bool { return l.english }

// T formats the message for key with the given arguments.
func (l *Locale) T(key Key, args ...any) string {
	msg, ok := l.msgs[key]
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
