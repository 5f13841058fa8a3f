package config

// Default locations
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./gallery.db"

	// DefaultStorageDir is where the local storage backend keeps photo files
	DefaultStorageDir = "./media"

	DefaultFlickrAPIURL  = "https://api.flickr.com/services/rest"
	DefaultFlickrSiteURL = "https://www.flickr.com"
)
