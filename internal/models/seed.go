package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedDentists = []Dentist{
	{DentistName: "Dr. Emily Carter", Specialty: "General Dentistry", IsActive: true},
	{DentistName: "Dr. James Nguyen", Specialty: "Cosmetic and Restorative Dentistry", IsActive: true},
	{DentistName: "Dr. Sarah Mitchell", Specialty: "Orthodontics and Periodontics", IsActive: true},
}

var seedSuppliers = []Supplier{
	{CompanyName: "AusDental Labs Pty Ltd", Specialty: "Crowns, bridges and veneers", ContactNumber: "0298765432", Email: "orders@ausdentallabs.com.au", IsActive: true},
	{CompanyName: "MedPro Orthodontics", Specialty: "Aligners and retainers", ContactNumber: "0387654321", Email: "support@medproortho.com.au", IsActive: true},
	{CompanyName: "Southern Implant Supply Co.", Specialty: "Implant components", ContactNumber: "0876543210", Email: "sales@southernimplant.com.au", IsActive: true},
	{CompanyName: "PrecisionDenture Works", Specialty: "Dentures and partials", ContactNumber: "0765432109", Email: "lab@precisiondenture.com.au", IsActive: true},
	{CompanyName: "OralCraft Technologies", Specialty: "Night guards and mouthguards", ContactNumber: "0254321098", Email: "hello@oralcraft.com.au", IsActive: true},
}

// Seed inserts the reference dentists, suppliers and the admin portal account.
// Running it again leaves existing rows untouched.
func Seed(db *gorm.DB, adminUsername, adminPassword string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, d := range seedDentists {
			dentist := d
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&dentist).Error; err != nil {
				return err
			}
		}
		for _, s := range seedSuppliers {
			supplier := s
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&supplier).Error; err != nil {
				return err
			}
		}

		if adminUsername == "" {
			return nil
		}
		var count int64
		if err := tx.Model(&PortalUser{}).Where("username = ?", adminUsername).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		admin := PortalUser{Username: adminUsername, DisplayName: "Clinic Admin", Role: RoleAdmin}
		if err := admin.SetPassword(adminPassword); err != nil {
			return err
		}
		return tx.Create(&admin).Error
	})
}
