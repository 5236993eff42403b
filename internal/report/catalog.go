package report

import (
	"github.com/dvloznov/sales-analysis/internal/aggregate"
	"github.com/dvloznov/sales-analysis/internal/chart"
	"github.com/dvloznov/sales-analysis/internal/schema"
)

// Definition is one chart of the report.
type Definition struct {
	// Name is the output file name without extension.
	Name    string
	Title   string
	GroupBy []schema.Key
	// Metric is ignored for count charts.
	Metric schema.Key
	Reduce aggregate.Reduction
	TopN   int
	Kind   chart.Kind
	// XLabel and YLabel override the bound column names.
	XLabel string
	YLabel string
	Width  float64
	Height float64
}

// Catalog returns the fixed list of charts, in render order.
func Catalog() []Definition {
	return []Definition{
		{
			Name: "gender_distribution", Title: "Gender Distribution",
			GroupBy: []schema.Key{schema.Gender}, Reduce: aggregate.Count, Kind: chart.Count,
			Width: 6, Height: 5,
		},
		{
			Name: "total_sales_by_gender", Title: "Total Sales by Gender",
			GroupBy: []schema.Key{schema.Gender}, Metric: schema.Amount, Reduce: aggregate.Sum, Kind: chart.Bar,
			Width: 6, Height: 5,
		},
		{
			Name: "age_group_distribution", Title: "Age Group Distribution by Gender",
			GroupBy: []schema.Key{schema.AgeGroup, schema.Gender}, Reduce: aggregate.Count, Kind: chart.Count,
			Width: 12, Height: 6,
		},
		{
			Name: "sales_by_age_group", Title: "Total Sales by Age Group",
			GroupBy: []schema.Key{schema.AgeGroup}, Metric: schema.Amount, Reduce: aggregate.Sum, Kind: chart.Bar,
			Width: 8, Height: 5,
		},
		{
			Name: "top_states_by_orders", Title: "Top 10 States by Orders",
			GroupBy: []schema.Key{schema.State}, Metric: schema.Orders, Reduce: aggregate.Sum, TopN: 10, Kind: chart.Bar,
			Width: 15, Height: 5,
		},
		{
			Name: "top_states_by_sales", Title: "Top 10 States by Sales",
			GroupBy: []schema.Key{schema.State}, Metric: schema.Amount, Reduce: aggregate.Sum, TopN: 10, Kind: chart.Bar,
			Width: 15, Height: 5,
		},
		{
			Name: "marital_status_distribution", Title: "Marital Status Distribution",
			GroupBy: []schema.Key{schema.MaritalStatus}, Reduce: aggregate.Count, Kind: chart.Count,
			Width: 7, Height: 5,
		},
		{
			Name: "sales_by_marital_status_gender", Title: "Sales by Marital Status and Gender",
			GroupBy: []schema.Key{schema.MaritalStatus, schema.Gender}, Metric: schema.Amount, Reduce: aggregate.Sum, Kind: chart.Bar,
			Width: 6, Height: 5,
		},
		{
			Name: "sales_by_occupation", Title: "Sales by Occupation",
			GroupBy: []schema.Key{schema.Occupation}, Metric: schema.Amount, Reduce: aggregate.Sum, Kind: chart.Bar,
			Width: 20, Height: 5,
		},
		{
			Name: "product_category_distribution", Title: "Product Category Distribution",
			GroupBy: []schema.Key{schema.ProductCategory}, Reduce: aggregate.Count, Kind: chart.Count,
			Width: 20, Height: 5,
		},
		{
			Name: "top_product_categories_by_sales", Title: "Top 10 Product Categories by Sales",
			GroupBy: []schema.Key{schema.ProductCategory}, Metric: schema.Amount, Reduce: aggregate.Sum, TopN: 10, Kind: chart.Bar,
			Width: 20, Height: 5,
		},
		{
			Name: "top_products_by_orders", Title: "Top 10 Products by Orders",
			GroupBy: []schema.Key{schema.ProductID}, Metric: schema.Orders, Reduce: aggregate.Sum, TopN: 10, Kind: chart.Bar,
			Width: 20, Height: 5,
		},
		{
			Name: "top_most_sold_products", Title: "Top 10 Most Sold Products",
			GroupBy: []schema.Key{schema.ProductID}, Metric: schema.Orders, Reduce: aggregate.Sum, TopN: 10, Kind: chart.Bar,
			XLabel: "Product ID", YLabel: "Number of Orders",
			Width: 12, Height: 7,
		},
	}
}
