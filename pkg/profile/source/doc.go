// Package source supplies policy profile documents to the profile catalog.
//
// Profiles may come from a directory of documents, optionally watched for
// changes with fsnotify, or from a git repository that is pulled on an
// interval. Every source produces complete catalog snapshots; the caller
// hands them to the profile store, which decides what may be superseded.
//
//	profiles, err := source.LoadDirectory("profiles/", profile.Options{})
//	candidates := st.UpdateCatalog(profiles)
package source
