// Package watchpaths adds, toggles and removes the directories the backend
// indexes. The backend's list is canonical: every successful mutation is
// followed by a re-fetch that replaces the store's copy.
package watchpaths
