package model

import "github.com/shopspring/decimal"

type SalesSummary struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int64           `json:"total_orders"`
	TotalCustomers    int64           `json:"total_customers"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

type TopProduct struct {
	ProductID     uint            `json:"product_id"`
	Name          string          `json:"name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type CommissionSummary struct {
	Total  decimal.Decimal `json:"total_commissions"`
	Paid   decimal.Decimal `json:"paid_commissions"`
	Unpaid decimal.Decimal `json:"unpaid_commissions"`
}
