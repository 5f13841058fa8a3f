// Package importer copies photos from an external album into a gallery.
//
// # Architecture
//
// One import run is driven by the Orchestrator and processes photos one at
// a time through the ItemImporter:
//
//	backlite task → Orchestrator.Run → Provider.ListAlbumPhotos (page by page)
//	                                 → Pacer.Wait → ItemImporter.Import → ObjectStorage + photos table
//
// Per-photo problems never abort a run. They come back as a Result and are
// counted on the import record. Only run-level problems (missing
// credentials, a failed listing) fail the whole import.
//
// # Example Usage
//
//	items := importer.NewItemImporter(photoRepo, store, importer.ItemOptions{MaxBytes: 512 << 20})
//	orch := importer.NewOrchestrator(importRepo, credStore, registry, items, pacer)
//	err := orch.Run(ctx, importID)
package importer
