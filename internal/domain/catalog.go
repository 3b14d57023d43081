package domain

import "time"

// Provider is a cash/receipt provider the bot can offer.
type Provider struct {
	ID        int64
	Name      string
	CreatedAt time.Time

	// Utilities are the provider's registered utility sub-providers,
	// stored as a JSON array in the providers table.
	Utilities []Utility

	Config *ProviderConfig
}

// Utility is a utility sub-provider reachable through a provider.
type Utility struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
}

// ProviderConfig carries per-provider integration settings.
type ProviderConfig struct {
	ID         int64
	ProviderID int64

	// ReceiptURL is a format template with two %s verbs: the utility
	// sub-provider id and the transaction id, in that order.
	ReceiptURL     string
	ReceiptHost    string
	ReceiptReferer string

	// TrxIDLength is the exact length a transaction id must have.
	TrxIDLength int
}

// Pricing is a named tiered pricing schedule. Lines holds the raw JSON
// tier array; the fee package parses it.
type Pricing struct {
	ID        int64
	Name      string
	URL       string
	Lines     string
	CreatedAt time.Time
}

// Service is one user-facing command of the bot, part of a tree rooted at
// the menu service. Read-only at runtime.
type Service struct {
	ID        int64
	Command   string
	EnDesc    string
	FrDesc    string
	AdminOnly bool
	ParentID  int64 // 0 for the root service
	CreatedAt time.Time

	Parent   *Service
	Children []*Service
	Catalogs []*Catalog
}

// Desc returns the service description for the given language choice.
func (s *Service) Desc(english bool) string {
	if english {
		return s.EnDesc
	}
	return s.FrDesc
}

// HasSibling reports whether data names a sibling command under the same
// parent. Workflows use this to step aside instead of interpreting another
// workflow's command as input.
func (s *Service) HasSibling(data string) bool {
	if s.Parent == nil {
		return false
	}
	for _, sib := range s.Parent.Children {
		if sib.Command == data {
			return true
		}
	}
	return false
}

// Catalog links a service to a provider offering it, optionally with a
// pricing schedule.
type Catalog struct {
	ProviderID int64
	ServiceID  int64
	PricingID  int64 // 0 when the offer carries no schedule

	Provider *Provider
	Pricing  *Pricing
}

// CatalogByProvider returns the service's catalog entry for the given
// provider id, or nil.
func (s *Service) CatalogByProvider(providerID int64) *Catalog {
	for _, cat := range s.Catalogs {
		if cat.ProviderID == providerID {
			return cat
		}
	}
	return nil
}
