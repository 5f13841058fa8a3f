// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations
//	├── galleries/       # Galleries created by imports
//	├── photos/          # Imported photos and duplicate detection
//	├── imports/         # Import records, atomic counters, failure detail
//	└── users/           # User lookup and default user seeding
//
// Credentials live in internal/credentials, which owns encryption.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	importsRepo := imports.NewRepository(db.DB)
//	photosRepo := photos.NewRepository(db.DB)
//
//	imp, err := importsRepo.GetByID(42)
//	exists, err := photosRepo.ExistsForUser("53012345", userID)
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add a compile-time interface check in internal/interfaces/checks.go
package database
