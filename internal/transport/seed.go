package transport

import (
	"time"

	"github.com/calibworks/calibtrack/pkg/models"
)

// Fallback dataset for the local mock. Stores are seeded from these values
// on first access so a fresh install has something to render.

func seedProducts(now time.Time) []models.Product {
	return []models.Product{
		{
			ID:            "PRD-0001",
			Name:          "Digital Pressure Gauge",
			Specification: "0-10 bar, 0.05% FS",
			Category:      "Pressure",
			StandardPrice: 1200,
			LastUpdated:   now,
		},
		{
			ID:            "PRD-0002",
			Name:          "Thermocouple Type K",
			Specification: "-200 to 1260 C",
			Category:      "Temperature",
			StandardPrice: 450,
			LastUpdated:   now,
		},
		{
			ID:            "PRD-0003",
			Name:          "Digital Multimeter",
			Specification: "6.5 digit",
			Category:      "Electrical",
			StandardPrice: 900,
			LastUpdated:   now,
		},
	}
}

func seedCustomers() []models.Customer {
	return []models.Customer{
		{ID: "CUS-0001", Name: "Hanul Precision", ContactPerson: "J. Park", Phone: "010-2200-1188"},
		{ID: "CUS-0002", Name: "Daesung Metrology Lab", ContactPerson: "S. Choi", Phone: "010-7744-0923"},
	}
}

func seedTechnicians() []models.Technician {
	return []models.Technician{
		{ID: "TEC-0001", Name: "M. Kang"},
		{ID: "TEC-0002", Name: "H. Yoon"},
	}
}

func seedOrderLines(now time.Time) []models.OrderLine {
	return []models.OrderLine{
		{
			ID:              "ORD-L-0001",
			OrderNumber:     "CAL-2024-001",
			EquipmentNumber: "EQ-118",
			EquipmentName:   "Line 2 pressure gauge",
			CustomerName:    "Hanul Precision",
			ProductID:       "PRD-0001",
			ProductName:     "Digital Pressure Gauge",
			ProductSpec:     "0-10 bar, 0.05% FS",
			Category:        "Pressure",
			CalibrationType: models.CalibrationInternal,
			Quantity:        1,
			UnitPrice:       1200,
			DiscountRate:    100,
			TotalAmount:     models.LineTotal(1200, 1, 100),
			Status:          models.StatusPending,
			CreateDate:      now.AddDate(0, 0, -14),
			TargetDate:      now.AddDate(0, 0, 7),
			Technicians:     []string{"M. Kang"},
		},
		{
			ID:              "ORD-L-0002",
			OrderNumber:     "CAL-2024-001",
			EquipmentNumber: "EQ-119",
			EquipmentName:   "Line 2 thermocouple",
			CustomerName:    "Hanul Precision",
			ProductID:       "PRD-0002",
			ProductName:     "Thermocouple Type K",
			ProductSpec:     "-200 to 1260 C",
			Category:        "Temperature",
			CalibrationType: models.CalibrationExternal,
			Quantity:        2,
			UnitPrice:       450,
			DiscountRate:    90,
			TotalAmount:     models.LineTotal(450, 2, 90),
			Status:          models.StatusCalibrating,
			CreateDate:      now.AddDate(0, 0, -14),
			TargetDate:      now.AddDate(0, 0, 10),
			Technicians:     []string{"M. Kang", "H. Yoon"},
		},
	}
}
