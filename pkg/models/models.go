package models

import (
	"math"
	"time"
)

type CalibrationType string

const (
	CalibrationInternal CalibrationType = "Internal"
	CalibrationExternal CalibrationType = "External"
)

type OrderStatus string

const (
	StatusPending     OrderStatus = "Pending"
	StatusCalibrating OrderStatus = "Calibrating"
	StatusCompleted   OrderStatus = "Completed"
)

type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type Technician struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Specification string    `json:"specification"`
	Category      string    `json:"category"`
	StandardPrice float64   `json:"standardPrice"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// OrderLine is the unit actually stored: the order collection is a flat list
// of line items, grouped into logical orders by OrderNumber. Customer and
// technician references are denormalized names, not foreign keys.
type OrderLine struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	EquipmentNumber string          `json:"equipmentNumber"`
	EquipmentName   string          `json:"equipmentName"`
	CustomerName    string          `json:"customerName"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductSpec     string          `json:"productSpec"`
	Category        string          `json:"category"`
	CalibrationType CalibrationType `json:"calibrationType"`
	Quantity        int             `json:"quantity"`
	UnitPrice       float64         `json:"unitPrice"`
	DiscountRate    int             `json:"discountRate"`
	TotalAmount     float64         `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	CreateDate      time.Time       `json:"createDate"`
	TargetDate      time.Time       `json:"targetDate"`
	Technicians     []string        `json:"technicians"`
	IsArchived      bool            `json:"isArchived"`
	Notes           string          `json:"notes"`
	ResurrectReason string          `json:"resurrectReason,omitempty"`
}

// NewOrderLine carries the caller-supplied fields for one line of a new
// order. IDs, create dates, status and totals are assigned by whichever
// backend serves the create.
type NewOrderLine struct {
	OrderNumber     string          `json:"orderNumber"`
	EquipmentNumber string          `json:"equipmentNumber"`
	EquipmentName   string          `json:"equipmentName"`
	CustomerName    string          `json:"customerName"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductSpec     string          `json:"productSpec"`
	Category        string          `json:"category"`
	CalibrationType CalibrationType `json:"calibrationType"`
	Quantity        int             `json:"quantity"`
	UnitPrice       float64         `json:"unitPrice"`
	DiscountRate    int             `json:"discountRate"`
	TargetDate      time.Time       `json:"targetDate"`
	Technicians     []string        `json:"technicians"`
	Notes           string          `json:"notes"`
}

// LineTotal is the single place line amounts are computed. DiscountRate is an
// integer percent where 100 means no discount.
func LineTotal(unitPrice float64, quantity, discountRate int) float64 {
	return math.Round(unitPrice * float64(quantity) * float64(discountRate) / 100)
}

// APIRequest is the request envelope of the hosted HTTP transport: one
// endpoint, one action name, one operation-specific payload.
type APIRequest struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// APIResponse is the response envelope of the hosted HTTP transport.
type APIResponse struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
