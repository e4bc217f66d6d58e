package domain

// PlanType identifies a purchasable bundle of keys.
type PlanType string

const (
	PlanSingle   PlanType = "single"
	PlanFivePack PlanType = "five_pack"
)

// Currency is the ISO code sent to the payment gateway.
const Currency = "brl"

// Plan is a purchasable bundle defining price and number of keys granted.
type Plan struct {
	Type        PlanType `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`      // whole BRL, used for display and stored on orders
	KeyCount    int      `json:"keyCount"`   // keys granted once the order completes
	UnitAmount  int64    `json:"unitAmount"` // cents, sent to the gateway
	Currency    string   `json:"currency"`
	Popular     bool     `json:"popular"`

	// Line item shown on the hosted checkout page.
	ProductName        string `json:"-"`
	ProductDescription string `json:"-"`
}

// AvailablePlans returns the static plan catalog.
func AvailablePlans() []Plan {
	return []Plan{
		{
			Type:               PlanSingle,
			Name:               "Chave Única",
			Description:        "1 chave Pix personalizada",
			Price:              49,
			KeyCount:           1,
			UnitAmount:         4900,
			Currency:           Currency,
			ProductName:        "1 Chave Pix Personalizada",
			ProductDescription: "Domínio " + KeyDomain + " - 1 chave Pix personalizada",
		},
		{
			Type:               PlanFivePack,
			Name:               "Pacote 5 Chaves",
			Description:        "5 chaves Pix personalizadas",
			Price:              99,
			KeyCount:           5,
			UnitAmount:         9900,
			Currency:           Currency,
			Popular:            true,
			ProductName:        "5 Chaves Pix Personalizadas",
			ProductDescription: "Domínio " + KeyDomain + " - 5 chaves Pix personalizadas",
		},
	}
}

// LookupPlan returns the plan for the given type. Unknown types report false.
func LookupPlan(t PlanType) (Plan, bool) {
	for _, p := range AvailablePlans() {
		if p.Type == t {
			return p, true
		}
	}
	return Plan{}, false
}

// KeyCountFor returns the keys granted by a plan type, or 0 if unknown.
func KeyCountFor(t PlanType) int {
	p, ok := LookupPlan(t)
	if !ok {
		return 0
	}
	return p.KeyCount
}
