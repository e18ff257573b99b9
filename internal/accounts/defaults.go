package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// EntityMicro is a micro-entreprise under the franchise en base de TVA: it
// neither collects nor deducts VAT.
const EntityMicro = "micro"

// DefaultChart returns the default chart of accounts for an entity type.
// Every entity gets the same subset of the plan comptable général, minus
// the VAT accounts for EntityMicro.
func DefaultChart(entityType string) []model.Account {
	chart := pcgChart()
	if entityType != EntityMicro {
		return chart
	}
	out := chart[:0]
	for _, a := range chart {
		if Classify(a.Number).VAT {
			continue
		}
		a.DefaultVATAccount = ""
		out = append(out, a)
	}
	return out
}

func rate(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// pcgChart is a working subset of the plan comptable général.
func pcgChart() []model.Account {
	return []model.Account{
		{Number: "101000", Label: "Capital"},
		{Number: "120000", Label: "Résultat de l'exercice"},
		{Number: "401000", Label: "Fournisseurs", DefaultExpenseAccount: "607000", DefaultVATAccount: "445660"},
		{Number: "411000", Label: "Clients", DefaultExpenseAccount: "707000", DefaultVATAccount: "445710"},
		{Number: "421000", Label: "Personnel - rémunérations dues"},
		{Number: "431000", Label: "Sécurité sociale"},
		{Number: "445660", Label: "TVA déductible sur ABS 20%", VATRate: rate("0.20")},
		{Number: "445661", Label: "TVA déductible 5,5 %", VATRate: rate("0.055")},
		{Number: "445710", Label: "TVA collectée 20%", VATRate: rate("0.20")},
		{Number: "445711", Label: "TVA collectée 10 %", VATRate: rate("0.10")},
		{Number: "512000", Label: "Banque"},
		{Number: "530000", Label: "Caisse"},
		{Number: "606100", Label: "Fournitures non stockables (eau, énergie)"},
		{Number: "606400", Label: "Fournitures administratives"},
		{Number: "607000", Label: "Achats de marchandises"},
		{Number: "613200", Label: "Locations immobilières"},
		{Number: "626000", Label: "Frais postaux et télécommunications"},
		{Number: "627000", Label: "Services bancaires"},
		{Number: "706000", Label: "Prestations de services"},
		{Number: "707000", Label: "Ventes de marchandises"},
	}
}
