package models

import (
	"log"

	"bitbucket.org/mmdatafocus/retail_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{}, &Role{}, &RolePermission{},
		&Store{}, &Supplier{},
		&Product{},
		&Sale{}, &SaleItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
