package models

// Project is a mite project.
type Project struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Note             string   `json:"note"`
	CustomerID       *int64   `json:"customer_id"`
	CustomerName     string   `json:"customer_name"`
	Budget           *float64 `json:"budget"`
	BudgetType       string   `json:"budget_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
	ActiveHourlyRate string   `json:"active_hourly_rate"`
	Archived         bool     `json:"archived"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// Customer is a mite customer.
type Customer struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Note             string   `json:"note"`
	HourlyRate       *float64 `json:"hourly_rate"`
	ActiveHourlyRate string   `json:"active_hourly_rate"`
	Archived         bool     `json:"archived"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// TradingPartner is an Alphaflow business partner that invoices are addressed to.
type TradingPartner struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Type        string `json:"type"`
}

// DisplayName prefers the company name.
func (p TradingPartner) DisplayName() string {
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Name
}
