// Package sqlite provides the site persistence adapter backed by SQLite.
//
// The store holds the topic tree snapshot served to navigation renderers,
// the classification values used for alternate menu styling, and visitor
// session attributes.
package sqlite
